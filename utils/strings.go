package utils

import (
	"math"
	"strings"
	"unsafe"

	"golang.org/x/net/html"
)

func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}

// NormalizeCode turns user input like " jp " into "JP".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StripHTML keeps the text of an HTML fragment with entities decoded and
// whitespace, &nbsp; included, collapsed to single spaces.
func StripHTML(s string) string {
	var b strings.Builder

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func Ptr[T any](v T) *T {
	return &v
}
