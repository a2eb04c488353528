package quotadomain

// CategoryContests maps a workbook category to its contests. SourceContestID
// is the contest candidates are drawn from and awards are written to.
type CategoryContests struct {
	Category        string
	SourceContestID int64
	ThirdContestID  int64
	FourthContestID int64
}

// RegionRow is one row of the region table. Values holds the non-blank
// category cells: a list threshold for the second stage, a quota otherwise.
type RegionRow struct {
	RegionID int64
	Name     string
	Values   map[string]float64
}

// Workbook is a parsed quota configuration.
type Workbook struct {
	Categories []CategoryContests
	Regions    []RegionRow
}

// SourceContests lists the categories a stage draws candidates from. The
// third and fourth stages only cover categories with a contest for that
// round.
func (wb Workbook) SourceContests(stage Stage) []CategoryContests {
	var out []CategoryContests
	for _, c := range wb.Categories {
		switch stage {
		case StageThird:
			if c.ThirdContestID == 0 {
				continue
			}
		case StageFourth:
			if c.FourthContestID == 0 {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// TargetContest is the contest a category advances to in a stage, 0 when
// the workbook does not say.
func (wb Workbook) TargetContest(stage Stage, category string) int64 {
	for _, c := range wb.Categories {
		if c.Category != category {
			continue
		}
		switch stage {
		case StageThird:
			return c.ThirdContestID
		case StageFourth:
			return c.FourthContestID
		}
	}
	return 0
}

// Value returns the region table cell for a region and category.
func (wb Workbook) Value(regionID int64, category string) (float64, bool) {
	for _, r := range wb.Regions {
		if r.RegionID == regionID {
			v, ok := r.Values[category]
			return v, ok
		}
	}
	return 0, false
}

// RegionName returns the name the workbook gives a region.
func (wb Workbook) RegionName(regionID int64) string {
	for _, r := range wb.Regions {
		if r.RegionID == regionID {
			return r.Name
		}
	}
	return ""
}

func (wb Workbook) categoryOrder() map[string]int {
	order := make(map[string]int, len(wb.Categories))
	for i, c := range wb.Categories {
		order[c.Category] = i
	}
	return order
}
