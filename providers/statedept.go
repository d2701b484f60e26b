package providers

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-travel/cache"
	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

const allAdvisoriesKey = "_all_advisories"

type stateDeptEntry struct {
	ISOCode       string `json:"ISO_Code"`
	AdvisoryLevel string `json:"Advisory_Level"`
}

type stateDeptEnvelope struct {
	Data []stateDeptEntry `json:"data"`
}

// StateDept is the secondary safety source. The feed covers every country
// in one document, so it is fetched once and kept for the cache TTL.
type StateDept struct {
	base
	group singleflight.Group
}

func NewStateDept(client types.UpstreamClient, c types.Cache, config *types.ProviderConfig, logger types.Logger) *StateDept {
	return &StateDept{base: newBase("state_dept", client, c, config, logger)}
}

// GetAdvisory answers {0, 情報なし} for countries missing from the feed.
func (p *StateDept) GetAdvisory(ctx context.Context, code string) (types.SecondaryAdvisory, error) {
	code = utils.NormalizeCode(code)

	return cache.GetOrFetch(ctx, p.cache, "state_"+code, p.ttl(), func(ctx context.Context) (types.SecondaryAdvisory, error) {
		entries, err := p.all(ctx)
		if err != nil {
			return types.SecondaryAdvisory{}, err
		}

		for _, e := range entries {
			if strings.EqualFold(strings.TrimSpace(e.ISOCode), code) {
				return ParseAdvisoryLevel(e.AdvisoryLevel), nil
			}
		}

		return types.SecondaryAdvisory{Level: 0, Message: safety.PlaceholderMissing}, nil
	})
}

func (p *StateDept) all(ctx context.Context) ([]stateDeptEntry, error) {
	return shared(ctx, &p.group, allAdvisoriesKey, func(ctx context.Context) ([]stateDeptEntry, error) {
		return cache.GetOrFetch(ctx, p.cache, allAdvisoriesKey, p.ttl(), p.fetchAll)
	})
}

func (p *StateDept) fetchAll(ctx context.Context) ([]stateDeptEntry, error) {
	resp, err := p.get(ctx, p.config.BaseURL, nil, nil)
	if err != nil {
		return nil, err
	}

	// The feed has been published both as a bare list and as {data: [...]}.
	if firstByte(resp.Body) == '[' {
		var entries []stateDeptEntry
		if err := utils.Unmarshal(resp.Body, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var envelope stateDeptEnvelope
	if err := utils.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// ParseAdvisoryLevel reads "Level 3 - Reconsider Travel" into {3, "Reconsider
// Travel"}. Text without a level keeps level 0 and the whole string.
func ParseAdvisoryLevel(s string) types.SecondaryAdvisory {
	s = strings.TrimSpace(s)
	advisory := types.SecondaryAdvisory{Level: 0, Message: s}

	if !strings.Contains(s, "Level") {
		return advisory
	}

	if fields := strings.Fields(s); len(fields) > 1 {
		if level, err := strconv.Atoi(fields[1]); err == nil {
			advisory.Level = level
		}
	}

	if _, message, found := strings.Cut(s, " - "); found {
		advisory.Message = strings.TrimSpace(message)
	}

	return advisory
}
