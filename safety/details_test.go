package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-travel/types"
)

func TestBuildDetails_AdvisoryFirst(t *testing.T) {
	details := BuildDetails("危険情報", 3, nil, nil, nil)

	require.Len(t, details, 1)
	assert.Equal(t, CategoryAdvisory, details[0].Category)
	assert.Equal(t, "危険情報", details[0].Description)
	assert.Equal(t, types.SeverityHigh, details[0].Severity)
}

func TestBuildDetails_SharedSeenTitles(t *testing.T) {
	spots := []types.Bulletin{
		{Title: "デモの発生", Lead: "首都中心部"},
		{Title: "デモの発生", Lead: "重複"},
		{Title: "洪水情報"},
	}
	mails := []types.Bulletin{
		{Title: "洪水情報", Lead: "同じ件名"},
		{Title: "選挙への注意"},
		{Title: ""},
	}

	details := BuildDetails("summary", 1, spots, mails, NewSeenTitles())

	require.Len(t, details, 4)
	assert.Equal(t, CategorySpot, details[1].Category)
	assert.Equal(t, "デモの発生。首都中心部", details[1].Description)
	assert.Equal(t, CategorySpot, details[2].Category)
	assert.Equal(t, "洪水情報", details[2].Description)
	assert.Equal(t, CategoryMail, details[3].Category)
	assert.Equal(t, "選挙への注意", details[3].Description)
}

func TestBuildDetails_SeenFromCaller(t *testing.T) {
	seen := NewSeenTitles()
	seen.Add("既出")

	details := BuildDetails("summary", 0, []types.Bulletin{{Title: "既出"}, {Title: "新規"}}, nil, seen)

	require.Len(t, details, 2)
	assert.Equal(t, "新規", details[1].Description)
	assert.Len(t, seen, 2)
}
