package scoringdomain

import (
	"cmp"
	"slices"
)

// ResultState is the grading lifecycle of a single answer.
type ResultState int

const (
	StateNotSubmitted ResultState = iota
	StateSubmitted
	StateGraded
	StateDisputed
	StateApproved
	StateFinalized
)

// FirstRound is the school round. Official participation is decided per
// school only in this round.
const FirstRound = 1

// ResultRow is one graded answer reduced to what aggregation needs.
type ResultRow struct {
	ContestantID int64
	ProblemOrder int
	Score        *float64
}

// Sheet is the aggregated score of one contestant in one contest.
type Sheet struct {
	ContestantID int64
	Scores       []float64
	Total        float64
}

// Aggregation is the output of AggregateResults.
type Aggregation struct {
	Sheets []Sheet
	// InvalidOrders counts rows whose problem order was below 1.
	InvalidOrders int
}

// ComputeTotal sums a score sequence.
func ComputeTotal(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

// AggregateResults groups rows by contestant and folds each group into a
// zero-filled slot sequence of at least problemCount entries. Null scores
// leave their slot at zero. Sheets are returned ordered by contestant.
func AggregateResults(rows []ResultRow, problemCount int) Aggregation {
	var agg Aggregation
	byContestant := make(map[int64][]float64)

	for _, row := range rows {
		slots, ok := byContestant[row.ContestantID]
		if !ok {
			slots = make([]float64, problemCount)
		}
		if row.ProblemOrder < 1 {
			agg.InvalidOrders++
			byContestant[row.ContestantID] = slots
			continue
		}
		for len(slots) < row.ProblemOrder {
			slots = append(slots, 0)
		}
		if row.Score != nil {
			slots[row.ProblemOrder-1] = *row.Score
		}
		byContestant[row.ContestantID] = slots
	}

	agg.Sheets = make([]Sheet, 0, len(byContestant))
	for id, slots := range byContestant {
		agg.Sheets = append(agg.Sheets, Sheet{
			ContestantID: id,
			Scores:       slots,
			Total:        ComputeTotal(slots),
		})
	}
	slices.SortFunc(agg.Sheets, func(a, b Sheet) int {
		return cmp.Compare(a.ContestantID, b.ContestantID)
	})
	return agg
}

// IsOfficial reports whether a contestant counts toward official standings.
// In the first round that depends on the school being registered for the
// contest's level; later rounds are official for everyone who reached them.
func IsOfficial(round int, levelID int64, schoolOfficialLevels []int64) bool {
	if round != FirstRound {
		return true
	}
	return slices.Contains(schoolOfficialLevels, levelID)
}

// SameScores reports whether two score sequences are identical.
func SameScores(a, b []float64) bool {
	return slices.Equal(a, b)
}
