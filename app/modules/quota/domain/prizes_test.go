package quotadomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPrefixed(t *testing.T) {
	tests := []struct {
		name   string
		prizes string
		prefix string
		want   string
	}{
		{"empty", "", "2.1", ""},
		{"only stage labels", "2.1 эрх жагсаалтаас", "2.1", ""},
		{"keeps others", "Алт медаль, 2.1 эрх нэмэлтээр , Тусгай шагнал", "2.1", "Алт медаль, Тусгай шагнал"},
		{"prefix must lead", "Мөнгө 2.1", "2.1", "Мөнгө 2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPrefixed(tt.prizes, tt.prefix))
		})
	}
}

func TestAppendLabel(t *testing.T) {
	assert.Equal(t, LabelThird, AppendLabel("", LabelThird))
	assert.Equal(t, "Алт медаль, "+LabelThird, AppendLabel("Алт медаль", LabelThird))
	assert.Equal(t, "Алт медаль, "+LabelThird, AppendLabel("Алт медаль, "+LabelThird, LabelThird))
}

func TestJoinAwards(t *testing.T) {
	got := JoinAwards([]string{"Тусгай байр", "Хүрэл медаль", " ", "АЛТ медаль", "Мөнгөн медаль"})
	assert.Equal(t, "АЛТ медаль, Мөнгөн медаль, Хүрэл медаль, Тусгай байр", got)
	assert.Equal(t, "", JoinAwards(nil))
}

func TestMedalTier(t *testing.T) {
	tests := []struct {
		place string
		want  int
	}{
		{"Алтан медаль", 1},
		{"АЛТ медаль", 1},
		{"Мөнгөн медаль", 2},
		{"Хүрэл медаль", 3},
		{LabelSecondList, 4},
		{LabelSecondExtra, 4},
		{"Тусгай байр", 4},
		{"", 4},
	}
	for _, tt := range tests {
		t.Run(tt.place, func(t *testing.T) {
			assert.Equal(t, tt.want, MedalTier(tt.place))
		})
	}
}

func TestJoinAwards_StageLabelAfterMedals(t *testing.T) {
	got := JoinAwards([]string{LabelSecondList, "Алтан медаль"})
	assert.Equal(t, "Алтан медаль, "+LabelSecondList, got)
}
