package quotareports

import (
	"bytes"
	"image/png"
	"testing"

	quotadomain "github.com/baysaa41/mmo-ranking/app/modules/quota/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSelectionWorkbook(t *testing.T) {
	selections := []quotadomain.Selection{
		{
			Candidate: quotadomain.Candidate{ContestantID: 1, Name: "Бат Болд", School: "1-р сургууль", Region: "Дорнод", Category: "C", Total: 30, Rank: 1},
			Label:     quotadomain.LabelSecondList,
		},
		{
			Candidate: quotadomain.Candidate{ContestantID: 2, Name: "Сараа", School: "2-р сургууль", Region: "Дорнод", Category: "C", Total: 16},
			Label:     quotadomain.LabelSecondExtra,
		},
		{
			Candidate: quotadomain.Candidate{ContestantID: 3, Name: "Тэмүүлэн", Region: "Дорнод", Category: "C", Total: 28, Rank: 2},
			Label:     quotadomain.LabelSecondList,
		},
	}

	data, err := SelectionWorkbook(quotadomain.StageSecond, selections)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{selectionSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(selectionSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Овог нэр", rows[0][2])
	assert.Equal(t, []string{"1", "C", "Бат Болд", "1-р сургууль", "Дорнод", "30", "1", quotadomain.LabelSecondList}, rows[1])
	// missing rank renders blank
	assert.Equal(t, "", rows[2][6])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Үе шат", "second"}, summary[0])
	assert.Equal(t, []string{"Дорнод", "C", quotadomain.LabelSecondList, "2"}, summary[3])
	assert.Equal(t, []string{"Дорнод", "C", quotadomain.LabelSecondExtra, "1"}, summary[4])
}

func TestHistogram(t *testing.T) {
	got := Histogram([]float64{0, 4.5, 5, 12, -1}, 5)
	require.Len(t, got, 3)
	assert.Equal(t, Bucket{Low: 0, High: 5, Count: 3}, got[0])
	assert.Equal(t, Bucket{Low: 5, High: 10, Count: 1}, got[1])
	assert.Equal(t, Bucket{Low: 10, High: 15, Count: 1}, got[2])

	assert.Nil(t, Histogram(nil, 5))
	assert.Nil(t, Histogram([]float64{1}, 0))
}

func TestDistributionChart(t *testing.T) {
	tests := []struct {
		name   string
		totals []float64
	}{
		{name: "scores", totals: []float64{3, 7, 7, 12, 20, 21}},
		{name: "no sheets", totals: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DistributionChart("Contest 105", tt.totals, 5)
			require.NoError(t, err)
			_, err = png.Decode(bytes.NewReader(data))
			assert.NoError(t, err)
		})
	}
}
