package rankingdomain

import "sort"

// Entry is one score sheet taking part in a ranking population.
type Entry struct {
	SheetID int64
	Total   float64
}

// Ranked is an entry with its three rank values.
//
// RankingA is competition ranking ("1224"): one plus the number of strictly
// higher totals. RankingB gives a tied group the worst position it covers
// ("1334"). ListRank is the plain position in the descending order.
type Ranked struct {
	SheetID  int64
	Total    float64
	RankingA int
	RankingB int
	ListRank int
}

// SortDescending orders entries by total descending, then by sheet id so
// equal totals always come out in the same order.
func SortDescending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].SheetID < entries[j].SheetID
	})
}

// AssignRanks ranks one population. The input is not modified and the
// result is in descending order. An empty population yields nil.
func AssignRanks(entries []Entry) []Ranked {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortDescending(sorted)

	n := len(sorted)
	out := make([]Ranked, n)
	for start := 0; start < n; {
		end := start
		for end+1 < n && sorted[end+1].Total == sorted[start].Total {
			end++
		}
		// ascending competition rank of the group is n-end, so
		// n - (n-end) + 1 is its last 1-based position
		for i := start; i <= end; i++ {
			out[i] = Ranked{
				SheetID:  sorted[i].SheetID,
				Total:    sorted[i].Total,
				RankingA: start + 1,
				RankingB: end + 1,
				ListRank: i + 1,
			}
		}
		start = end + 1
	}
	return out
}
