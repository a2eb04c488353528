package quotadomain

import (
	"fmt"
	"sort"
	"strings"
)

// MissingRank orders candidates without a province rank after everyone else.
const MissingRank = 99999

// TiePolicy decides what happens to a group of equal totals that straddles
// the quota boundary.
type TiePolicy string

const (
	// TieIncludeAll extends the selection to the whole tied group.
	TieIncludeAll TiePolicy = "include"
	// TieExcludeAll drops the whole tied group, so the selection may fall
	// short of the quota.
	TieExcludeAll TiePolicy = "exclude"
)

// ParseTiePolicy accepts "include" or "exclude"; empty means include.
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch TiePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieIncludeAll:
		return TieIncludeAll, nil
	case TieExcludeAll:
		return TieExcludeAll, nil
	default:
		return "", fmt.Errorf("unknown tie policy %q", s)
	}
}

// Candidate is one contestant eligible for the next stage.
type Candidate struct {
	ContestantID int64
	SheetID      int64
	ContestID    int64
	Name         string
	School       string
	RegionID     int64
	Region       string
	Category     string
	Total        float64
	// Rank is the contestant's ranking_a within the official population of
	// their province; 0 when unknown.
	Rank int
}

func (c Candidate) effectiveRank() int {
	if c.Rank <= 0 {
		return MissingRank
	}
	return c.Rank
}

// SortByRank orders candidates by rank ascending, then name, then contestant
// id.
func SortByRank(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := cands[i].effectiveRank(), cands[j].effectiveRank()
		if ri != rj {
			return ri < rj
		}
		if cands[i].Name != cands[j].Name {
			return cands[i].Name < cands[j].Name
		}
		return cands[i].ContestantID < cands[j].ContestantID
	})
}

// sortForSelection orders by total descending, then as SortByRank. Rank is
// derived from total, so this matches rank order whenever every candidate
// carries one, and a missing rank never costs a place.
func sortForSelection(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Total != cands[j].Total {
			return cands[i].Total > cands[j].Total
		}
		ri, rj := cands[i].effectiveRank(), cands[j].effectiveRank()
		if ri != rj {
			return ri < rj
		}
		if cands[i].Name != cands[j].Name {
			return cands[i].Name < cands[j].Name
		}
		return cands[i].ContestantID < cands[j].ContestantID
	})
}

// SelectWithinQuota picks up to quota candidates with the highest totals.
// Candidates with a non-positive total never qualify. A tied group at the
// boundary is either taken whole or dropped whole, according to policy, so
// two contestants with the same total always share the outcome.
func SelectWithinQuota(cands []Candidate, quota int, policy TiePolicy) []Candidate {
	if quota <= 0 {
		return nil
	}

	ordered := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Total > 0 {
			ordered = append(ordered, c)
		}
	}
	sortForSelection(ordered)

	if len(ordered) <= quota {
		return ordered
	}

	cutoff := ordered[quota-1].Total
	next := ordered[quota].Total
	if cutoff != next {
		return ordered[:quota]
	}

	out := make([]Candidate, 0, quota)
	for _, c := range ordered {
		switch {
		case c.Total > cutoff:
			out = append(out, c)
		case c.Total == cutoff && policy != TieExcludeAll:
			out = append(out, c)
		}
	}
	return out
}

// SelectAboveThreshold returns candidates scoring at least threshold that
// are not in alreadySelected, in rank order. A non-positive threshold
// selects nobody.
func SelectAboveThreshold(cands []Candidate, threshold float64, alreadySelected map[int64]bool) []Candidate {
	if threshold <= 0 {
		return nil
	}
	var out []Candidate
	for _, c := range cands {
		if c.Total >= threshold && c.Total > 0 && !alreadySelected[c.ContestantID] {
			out = append(out, c)
		}
	}
	SortByRank(out)
	return out
}
