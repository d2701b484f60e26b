package providers

import (
	"io"

	"golang.org/x/net/html/charset"

	"github.com/saiset-co/sai-travel/types"
)

// xmlCharsetReader decodes the legacy encodings MOFA files declare,
// Shift_JIS and EUC-JP among them, into UTF-8 for encoding/xml.
func xmlCharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return nil, types.Errorf(types.ErrParseFailure, "unsupported charset %q", label)
	}
	return r, nil
}
