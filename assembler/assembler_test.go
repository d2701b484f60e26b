package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

func TestEnrichedAttractions_EmptySourcesStayLists(t *testing.T) {
	narrative := types.Narrative{
		Attractions: []types.NarrativeAttraction{{Name: "Kyoto"}},
	}

	resp := EnrichedAttractions("JP", "Japan", narrative, nil, nil)

	require.NotNil(t, resp.OTMAttractions)
	require.NotNil(t, resp.HeritageSites)
	require.NotNil(t, resp.TravelTips)
	assert.Empty(t, resp.OTMAttractions)
	assert.Len(t, resp.AISummary, 1)
	assert.NotNil(t, resp.AISummary[0].Highlights)
	assert.Nil(t, resp.BestSeason)

	data, err := utils.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"otm_attractions":[]`)
	assert.Contains(t, string(data), `"heritage_sites":[]`)
	assert.Contains(t, string(data), `"best_season":null`)
}

func TestAttractions_SharedKeysMeanTheSame(t *testing.T) {
	season := "春と秋"
	narrative := types.Narrative{BestSeason: &season, TravelTips: []string{"tip"}}

	basic := Attractions("JP", "Japan", narrative)
	enriched := EnrichedAttractions("JP", "Japan", narrative, nil, nil)

	assert.Equal(t, basic.CountryCode, enriched.CountryCode)
	assert.Equal(t, basic.CountryName, enriched.CountryName)
	assert.Equal(t, basic.BestSeason, enriched.BestSeason)
	assert.Equal(t, basic.TravelTips, enriched.TravelTips)
	assert.NotNil(t, basic.Attractions)
}

func TestAttractions_TextIsNotCut(t *testing.T) {
	long := strings.Repeat("長い説明", 200)
	narrative := types.Narrative{
		Attractions: []types.NarrativeAttraction{{Name: "x", Description: long}},
	}

	resp := Attractions("JP", "Japan", narrative)

	assert.Equal(t, long, resp.Attractions[0].Description)
}

func TestOverview_DefaultsLists(t *testing.T) {
	country := types.Country{Code: "FR", Name: "France"}

	overview := Overview(country, OverviewParts{})

	assert.Equal(t, "FR", overview.CountryCode)
	assert.Equal(t, "France", overview.CountryName)
	assert.NotNil(t, overview.Country.Languages)
	assert.NotNil(t, overview.Country.Borders)
	assert.NotNil(t, overview.Safety.Details)
	assert.NotNil(t, overview.Exchange.Rates)
	assert.NotNil(t, overview.Climate.Monthly)
}

func TestNews_TotalMatchesArticles(t *testing.T) {
	resp := News("TH", []types.NewsArticle{{URL: "a"}, {URL: "b"}})
	assert.Equal(t, 2, resp.Total)

	empty := News("TH", nil)
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Articles)
}
