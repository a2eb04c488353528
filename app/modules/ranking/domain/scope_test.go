package rankingdomain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopes(t *testing.T) {
	members := []Member{
		{SheetID: 1, ContestantID: 101, ProvinceID: 5, ZoneID: 2, Total: 10, IsOfficial: true},
		{SheetID: 2, ContestantID: 102, ProvinceID: 5, ZoneID: 2, Total: 8, IsOfficial: false},
		{SheetID: 3, ContestantID: 103, ProvinceID: 7, ZoneID: 2, Total: 9, IsOfficial: true},
	}

	want := []Scope{
		{Kind: KindNational, ID: 0, Population: PopulationOfficial},
		{Kind: KindNational, ID: 0, Population: PopulationAll},
		{Kind: KindNational, ID: 0, Population: PopulationUnofficial},
		{Kind: KindProvince, ID: 5, Population: PopulationOfficial},
		{Kind: KindProvince, ID: 5, Population: PopulationAll},
		{Kind: KindProvince, ID: 5, Population: PopulationUnofficial},
		{Kind: KindProvince, ID: 7, Population: PopulationOfficial},
		{Kind: KindProvince, ID: 7, Population: PopulationAll},
		{Kind: KindZone, ID: 2, Population: PopulationOfficial},
		{Kind: KindZone, ID: 2, Population: PopulationAll},
		{Kind: KindZone, ID: 2, Population: PopulationUnofficial},
	}

	if diff := cmp.Diff(want, Scopes(members)); diff != "" {
		t.Errorf("Scopes() mismatch (-want +got):\n%s", diff)
	}
}

func TestScopes_Empty(t *testing.T) {
	assert.Empty(t, Scopes(nil))
	rows, scopes := RankAll(nil)
	assert.Empty(t, rows)
	assert.Empty(t, scopes)
}

func TestRankAll(t *testing.T) {
	members := []Member{
		{SheetID: 1, ContestantID: 101, ProvinceID: 5, ZoneID: 2, Total: 10, IsOfficial: true},
		{SheetID: 2, ContestantID: 102, ProvinceID: 5, ZoneID: 2, Total: 12, IsOfficial: false},
		{SheetID: 3, ContestantID: 103, ProvinceID: 7, ZoneID: 2, Total: 10, IsOfficial: true},
	}

	rows, scopes := RankAll(members)
	require.Len(t, scopes, 11)

	byScope := make(map[Scope][]ScopedRank)
	for _, r := range rows {
		byScope[r.Scope] = append(byScope[r.Scope], r)
	}

	// each contestant appears in national, province and zone for every
	// population they belong to
	perContestant := make(map[int64]int)
	for _, r := range rows {
		perContestant[r.ContestantID]++
	}
	assert.Equal(t, map[int64]int{101: 6, 102: 6, 103: 6}, perContestant)

	nationalAll := byScope[Scope{Kind: KindNational, Population: PopulationAll}]
	require.Len(t, nationalAll, 3)
	assert.Equal(t, int64(102), nationalAll[0].ContestantID)
	assert.Equal(t, 1, nationalAll[0].RankingA)
	assert.Equal(t, 2, nationalAll[1].RankingA)
	assert.Equal(t, 2, nationalAll[2].RankingA)
	assert.Equal(t, 3, nationalAll[1].RankingB)

	// official numbering ignores the unofficial leader
	nationalOfficial := byScope[Scope{Kind: KindNational, Population: PopulationOfficial}]
	require.Len(t, nationalOfficial, 2)
	assert.Equal(t, 1, nationalOfficial[0].RankingA)
	assert.Equal(t, 1, nationalOfficial[1].RankingA)
	assert.Equal(t, 2, nationalOfficial[1].RankingB)

	province7 := byScope[Scope{Kind: KindProvince, ID: 7, Population: PopulationOfficial}]
	require.Len(t, province7, 1)
	assert.Equal(t, 1, province7[0].ListRank)

	_, hasEmpty := byScope[Scope{Kind: KindProvince, ID: 7, Population: PopulationUnofficial}]
	assert.False(t, hasEmpty)
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		raw     string
		want    Scope
		wantErr bool
	}{
		{raw: "province:5:official", want: Scope{Kind: KindProvince, ID: 5, Population: PopulationOfficial}},
		{raw: "zone:2:all", want: Scope{Kind: KindZone, ID: 2, Population: PopulationAll}},
		{raw: "national:all", want: Scope{Kind: KindNational, Population: PopulationAll}},
		{raw: "national::unofficial", want: Scope{Kind: KindNational, Population: PopulationUnofficial}},
		{raw: "national:3:all", wantErr: true},
		{raw: "province:official", wantErr: true},
		{raw: "school:1:all", wantErr: true},
		{raw: "province:x:all", wantErr: true},
		{raw: "province:1:everyone", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseScope(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			back, err := ParseScope(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}
