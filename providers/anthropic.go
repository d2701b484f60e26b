package providers

import (
	"context"
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const (
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-3-5-sonnet-20241022"
	defaultMaxTokens = 2000
)

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// AnthropicOptions is the provider-specific block of the narrative
// provider's configuration.
type AnthropicOptions struct {
	Model     string `json:"model" yaml:"model"`
	MaxTokens int    `json:"max_tokens" yaml:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Anthropic writes the descriptive travel narrative with a hosted language
// model. It needs an API key.
type Anthropic struct {
	base
	options AnthropicOptions
}

func NewAnthropic(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *Anthropic {
	p := &Anthropic{
		base:    newBase("anthropic", client, c, config, logger),
		options: AnthropicOptions{Model: defaultModel, MaxTokens: defaultMaxTokens},
	}

	if config != nil && config.Config != nil {
		var opts AnthropicOptions
		if err := utils.UnmarshalConfig(config.Config, &opts); err == nil {
			if opts.Model != "" {
				p.options.Model = opts.Model
			}
			if opts.MaxTokens > 0 {
				p.options.MaxTokens = opts.MaxTokens
			}
		}
	}

	return p
}

func (p *Anthropic) Available() bool {
	return p.hasKey()
}

func (p *Anthropic) Generate(ctx context.Context, code, name string) (types.Narrative, error) {
	if !p.Available() {
		return types.Narrative{}, types.Errorf(types.ErrConfigurationMissing, "%s: api key", p.name)
	}

	code = utils.NormalizeCode(code)
	return cache.GetOrFetch(ctx, p.cache, "narrative_"+code, p.ttl(), func(ctx context.Context) (types.Narrative, error) {
		return p.fetch(ctx, code, name)
	})
}

func (p *Anthropic) fetch(ctx context.Context, code, name string) (types.Narrative, error) {
	body, err := utils.Marshal(anthropicRequest{
		Model:     p.options.Model,
		MaxTokens: p.options.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: narrativePrompt(code, name)}},
	})
	if err != nil {
		return types.Narrative{}, types.WrapError(types.ErrParseFailure, err.Error())
	}

	resp, err := p.client.Do(ctx, &types.UpstreamRequest{
		Method: fasthttp.MethodPost,
		URL:    p.config.BaseURL,
		Headers: map[string]string{
			"x-api-key":         p.config.APIKey,
			"anthropic-version": anthropicVersion,
			"Content-Type":      "application/json",
		},
		Body: body,
	})
	if err != nil {
		return types.Narrative{}, err
	}

	var raw anthropicResponse
	if err := utils.Unmarshal(resp.Body, &raw); err != nil {
		return types.Narrative{}, err
	}

	var text strings.Builder
	for _, block := range raw.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return parseNarrative(text.String())
}

// parseNarrative pulls the first JSON object out of the model's reply.
func parseNarrative(reply string) (types.Narrative, error) {
	match := jsonObject.FindString(strings.TrimSpace(reply))
	if match == "" {
		return types.Narrative{}, types.Errorf(types.ErrParseFailure, "no JSON object in reply")
	}

	var n types.Narrative
	if err := utils.Unmarshal([]byte(match), &n); err != nil {
		return types.Narrative{}, err
	}

	if len(n.Attractions) == 0 {
		return types.Narrative{}, types.Errorf(types.ErrEmptyResult, "reply has no attractions")
	}
	if n.TravelTips == nil {
		n.TravelTips = []string{}
	}
	for i := range n.Attractions {
		if n.Attractions[i].Highlights == nil {
			n.Attractions[i].Highlights = []string{}
		}
	}

	return n, nil
}

func narrativePrompt(code, name string) string {
	return name + "（国コード: " + code + "）を旅行する日本人旅行者向けに、観光情報をJSON形式で提供してください。\n\n" +
		`以下のJSONフォーマットで回答してください（JSONのみ、他のテキストなし）:
{
  "attractions": [
    {
      "name": "観光地名",
      "description": "100文字程度の説明",
      "category": "自然|文化|歴史|食|アドベンチャー|都市|宗教|世界遺産",
      "highlights": ["見どころ1", "見どころ2", "見どころ3"]
    }
  ],
  "best_season": "ベストシーズンの説明（例: 春（3-5月）と秋（9-11月）が過ごしやすい）",
  "travel_tips": ["旅行のコツ1", "旅行のコツ2", "旅行のコツ3", "旅行のコツ4", "旅行のコツ5"]
}

観光スポットは5〜8か所を厳選してください。`
}
