package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestActivityItemAutoScore(t *testing.T) {
	item := ActivityItem{
		ID:              "q1",
		Type:            ItemTypeMultipleChoice,
		Points:          2.5,
		Options:         []ItemOption{{ID: "a"}, {ID: "b"}},
		CorrectOptionID: "b",
	}

	require.Equal(t, 2.5, item.AutoScore("b"))
	require.Equal(t, 0.0, item.AutoScore("a"))
	require.Equal(t, 0.0, item.AutoScore(""))

	noCorrect := item
	noCorrect.CorrectOptionID = ""
	require.Equal(t, 0.0, noCorrect.AutoScore("b"))

	text := ActivityItem{ID: "q2", Type: ItemTypeText, Points: 5}
	require.Equal(t, 0.0, text.AutoScore("uma resposta dissertativa"))
}

func TestNormalizedItemsPrefersItems(t *testing.T) {
	activity := Activity{
		Items:     datatypes.JSON(`[{"id":"q1","type":"text","question":"Explique.","points":4}]`),
		Questions: datatypes.JSON(`[{"id":"legacy","question":"?","options":[],"correctOptionId":""}]`),
	}

	items, err := activity.NormalizedItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "q1", items[0].ID)
	require.Equal(t, ItemTypeText, items[0].Type)
	require.Equal(t, 4.0, items[0].Points)
}

func TestNormalizedItemsLegacyQuestions(t *testing.T) {
	activity := Activity{
		Questions: datatypes.JSON(`[
			{"question":"Capital do Brasil?","options":[{"id":"a","text":"Brasília"},{"id":"b","text":"Rio"}],"correctOptionId":"a"},
			{"id":"extra","question":"2+2?","options":[{"id":"a","text":"3"},{"id":"b","text":"4"}],"correctOptionId":"b"}
		]`),
	}

	items, err := activity.NormalizedItems()
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Missing legacy IDs are filled positionally; provided ones are kept.
	require.Equal(t, "q1", items[0].ID)
	require.Equal(t, "extra", items[1].ID)

	for _, item := range items {
		require.Equal(t, ItemTypeMultipleChoice, item.Type)
		require.Equal(t, 1.0, item.Points)
	}

	require.Equal(t, 1.0, items[0].AutoScore("a"))
	require.Equal(t, 0.0, items[0].AutoScore("b"))
}

func TestNormalizedItemsEmpty(t *testing.T) {
	items, err := Activity{}.NormalizedItems()
	require.NoError(t, err)
	require.Nil(t, items)
}

func TestMaxPointsFallsBackToItemSum(t *testing.T) {
	activity := Activity{
		Items: datatypes.JSON(`[
			{"id":"q1","type":"multiple_choice","points":2},
			{"id":"q2","type":"text","points":3.5}
		]`),
	}

	require.Equal(t, 5.5, activity.MaxPoints())

	activity.Points = 10
	require.Equal(t, 10.0, activity.MaxPoints())
}

func TestRoundGrade(t *testing.T) {
	require.Equal(t, 7.3, RoundGrade(7.25))
	require.Equal(t, 7.2, RoundGrade(7.24))
	require.Equal(t, 0.0, RoundGrade(0))
	require.Equal(t, 10.0, RoundGrade(9.99))
}

func TestIsValidUnidade(t *testing.T) {
	for _, unidade := range Unidades {
		require.True(t, IsValidUnidade(unidade))
	}
	require.False(t, IsValidUnidade("5ª Unidade"))
	require.False(t, IsValidUnidade(""))
}
