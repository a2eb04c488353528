package quotadomain

import (
	"sort"
	"strings"
)

const prizeSeparator = ", "

// SplitPrizes breaks a prizes field into its trimmed, non-empty labels.
func SplitPrizes(prizes string) []string {
	var out []string
	for _, p := range strings.Split(prizes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StripPrefixed removes every label starting with prefix.
func StripPrefixed(prizes, prefix string) string {
	var kept []string
	for _, p := range SplitPrizes(prizes) {
		if !strings.HasPrefix(p, prefix) {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, prizeSeparator)
}

// AppendLabel adds label unless it is already present.
func AppendLabel(prizes, label string) string {
	labels := SplitPrizes(prizes)
	for _, p := range labels {
		if p == label {
			return strings.Join(labels, prizeSeparator)
		}
	}
	return strings.Join(append(labels, label), prizeSeparator)
}

// MedalTier orders award labels: gold, silver, bronze, then everything else.
// Only a word starting with the metal name counts, so "жагсаалтаас" is not gold.
func MedalTier(place string) int {
	tier := 4
	for _, word := range strings.Fields(strings.ToLower(place)) {
		switch {
		case strings.HasPrefix(word, "алт"):
			tier = min(tier, 1)
		case strings.HasPrefix(word, "мөнгө"):
			tier = min(tier, 2)
		case strings.HasPrefix(word, "хүрэл"):
			tier = min(tier, 3)
		}
	}
	return tier
}

// JoinAwards renders one contestant's award places as a prizes field,
// ordered by medal tier then text.
func JoinAwards(places []string) string {
	sorted := make([]string, 0, len(places))
	for _, p := range places {
		if p = strings.TrimSpace(p); p != "" {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := MedalTier(sorted[i]), MedalTier(sorted[j])
		if ti != tj {
			return ti < tj
		}
		return sorted[i] < sorted[j]
	})
	return strings.Join(sorted, prizeSeparator)
}
