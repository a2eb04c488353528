package quotadomain

import (
	"fmt"
	"sort"
)

type Stage string

const (
	StageSecond Stage = "second"
	StageThird  Stage = "third"
	StageFourth Stage = "fourth"
)

const (
	LabelSecondList  = "2.1 эрх жагсаалтаас"
	LabelSecondExtra = "2.1 эрх нэмэлтээр"
	LabelThird       = "3-р даваанд шалгарсан"
	LabelFourth      = "4-р даваанд шалгарсан"
)

func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageSecond, StageThird, StageFourth:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("unknown stage %q (want second, third or fourth)", s)
	}
}

// Prefix is what every award label of the stage starts with. Rerunning a
// stage replaces exactly the awards and prize labels carrying it.
func (s Stage) Prefix() string {
	switch s {
	case StageSecond:
		return "2.1"
	case StageThird:
		return LabelThird
	case StageFourth:
		return LabelFourth
	default:
		return ""
	}
}

// Rules are the fixed quota parameters of the selection stages.
type Rules struct {
	// Regions with an id up to AimagMaxRegionID are aimags, the rest are
	// capital districts.
	AimagMaxRegionID     int64
	AimagListQuota       int
	DuuregListQuota      int
	MaxFourthPerProvince int
	TiePolicy            TiePolicy
}

func DefaultRules() Rules {
	return Rules{
		AimagMaxRegionID:     21,
		AimagListQuota:       20,
		DuuregListQuota:      50,
		MaxFourthPerProvince: 2,
		TiePolicy:            TieIncludeAll,
	}
}

// ListQuota is the second stage quota of a region.
func (r Rules) ListQuota(regionID int64) int {
	if regionID <= r.AimagMaxRegionID {
		return r.AimagListQuota
	}
	return r.DuuregListQuota
}

// Selection is a candidate picked by a stage, with the award label to give.
type Selection struct {
	Candidate
	Label string
	// TargetContestID is the contest the candidate advances to, 0 if unknown.
	TargetContestID int64
}

type groupKey struct {
	category string
	regionID int64
}

// SelectStage runs one stage over candidates drawn from the workbook's
// source contests. Output is ordered by category (workbook order), region
// and rank.
func SelectStage(stage Stage, rules Rules, wb Workbook, cands []Candidate) ([]Selection, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}

	groups := make(map[groupKey][]Candidate)
	for _, c := range cands {
		k := groupKey{category: c.Category, regionID: c.RegionID}
		groups[k] = append(groups[k], c)
	}
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	order := wb.categoryOrder()
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := order[keys[i].category], order[keys[j].category]
		if oi != oj {
			return oi < oj
		}
		if keys[i].category != keys[j].category {
			return keys[i].category < keys[j].category
		}
		return keys[i].regionID < keys[j].regionID
	})

	var out []Selection
	for _, k := range keys {
		target := wb.TargetContest(stage, k.category)
		group := groups[k]
		value, hasValue := wb.Value(k.regionID, k.category)

		switch stage {
		case StageSecond:
			selected := SelectWithinQuota(group, rules.ListQuota(k.regionID), rules.TiePolicy)
			taken := make(map[int64]bool, len(selected))
			for _, c := range selected {
				taken[c.ContestantID] = true
				out = append(out, Selection{Candidate: c, Label: LabelSecondList, TargetContestID: target})
			}
			if hasValue {
				for _, c := range SelectAboveThreshold(group, value, taken) {
					out = append(out, Selection{Candidate: c, Label: LabelSecondExtra, TargetContestID: target})
				}
			}

		case StageThird, StageFourth:
			if !hasValue || value <= 0 {
				continue
			}
			quota := int(value)
			label := LabelThird
			if stage == StageFourth {
				quota = min(quota, rules.MaxFourthPerProvince)
				label = LabelFourth
			}
			for _, c := range SelectWithinQuota(group, quota, rules.TiePolicy) {
				out = append(out, Selection{Candidate: c, Label: label, TargetContestID: target})
			}
		}
	}
	return out, nil
}
