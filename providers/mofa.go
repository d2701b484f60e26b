package providers

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type mofaDocument struct {
	RiskLevel1 string         `xml:"riskLevel1"`
	RiskLevel2 string         `xml:"riskLevel2"`
	RiskLevel3 string         `xml:"riskLevel3"`
	RiskLevel4 string         `xml:"riskLevel4"`
	RiskTitle  string         `xml:"riskTitle"`
	RiskLead   string         `xml:"riskLead"`
	Spots      []mofaBulletin `xml:"spotInfo"`
	Mails      []mofaBulletin `xml:"mail"`
}

type mofaBulletin struct {
	Title string `xml:"title"`
	Lead  string `xml:"lead"`
}

// Mofa reads the foreign ministry's per-country open-data XML. It is the
// primary safety source.
type Mofa struct {
	base
}

func NewMofa(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *Mofa {
	return &Mofa{base: newBase("mofa", client, c, config, logger)}
}

// GetSafetyInfo fails only when the file cannot be fetched or parsed.
// Countries the ministry does not publish a file for get the canned table
// entry, or level 0.
func (p *Mofa) GetSafetyInfo(ctx context.Context, code string) (types.SafetyInfo, error) {
	code = utils.NormalizeCode(code)

	fileCode, ok := mofaCodes[code]
	if !ok {
		if info, found := MockSafety(code); found {
			return info, nil
		}
		return newSafetyInfo(code, 0, safety.Summary(0), nil, nil), nil
	}

	return cache.GetOrFetch(ctx, p.cache, code, p.ttl(), func(ctx context.Context) (types.SafetyInfo, error) {
		return p.fetch(ctx, code, fileCode)
	})
}

func (p *Mofa) fetch(ctx context.Context, code, fileCode string) (types.SafetyInfo, error) {
	resp, err := p.get(ctx, p.baseURL()+"/"+fileCode+".xml", nil, nil)
	if err != nil {
		return types.SafetyInfo{}, err
	}

	// An HTML page instead of XML means no advisory is in force.
	if strings.Contains(strings.ToLower(resp.ContentType), "text/html") {
		return newSafetyInfo(code, 0, safety.Summary(0), nil, nil), nil
	}

	doc, err := parseMofa(resp.Body)
	if err != nil {
		p.logger.Warn("Advisory file rejected",
			zap.String("provider", p.name),
			zap.String("country", code),
			zap.Error(err))
		return types.SafetyInfo{}, err
	}

	level, summary := doc.assess()
	return newSafetyInfo(code, level, summary, toBulletins(doc.Spots), toBulletins(doc.Mails)), nil
}

func parseMofa(body []byte) (*mofaDocument, error) {
	doc := &mofaDocument{}

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = xmlCharsetReader
	if err := decoder.Decode(doc); err != nil {
		return nil, types.WrapError(types.ErrParseFailure, err.Error())
	}

	return doc, nil
}

// assess returns the highest flagged level and the advisory text. The
// text is kept whole.
func (d *mofaDocument) assess() (int, string) {
	flags := []string{d.RiskLevel1, d.RiskLevel2, d.RiskLevel3, d.RiskLevel4}

	for level := safety.MaxLevel; level >= 1; level-- {
		if strings.TrimSpace(flags[level-1]) != "1" {
			continue
		}

		parts := make([]string, 0, 2)
		if title := strings.TrimSpace(d.RiskTitle); title != "" {
			parts = append(parts, title)
		}
		if lead := strings.TrimSpace(d.RiskLead); lead != "" {
			parts = append(parts, lead)
		}
		if len(parts) == 0 {
			return level, safety.Summary(level)
		}
		return level, strings.Join(parts, "。")
	}

	return 0, safety.Summary(0)
}

func toBulletins(in []mofaBulletin) []types.Bulletin {
	out := make([]types.Bulletin, 0, len(in))
	for _, b := range in {
		out = append(out, types.Bulletin{Title: b.Title, Lead: b.Lead})
	}
	return out
}

func newSafetyInfo(code string, level int, summary string, spots, mails []types.Bulletin) types.SafetyInfo {
	return types.SafetyInfo{
		CountryCode: code,
		Level:       level,
		LevelLabel:  safety.Label(level),
		Summary:     summary,
		Details:     safety.BuildDetails(summary, level, spots, mails, safety.NewSeenTitles()),
		Source:      safety.SourcePrimary,
	}
}
