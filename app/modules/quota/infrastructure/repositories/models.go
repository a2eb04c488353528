package quotadb

import (
	"time"

	"github.com/uptrace/bun"
)

// Award is a free-text distinction of a contestant in a contest: a medal, a
// diploma or an admission label written by a quota stage.
type Award struct {
	bun.BaseModel `bun:"table:awards,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ContestID    int64     `bun:"contest_id,notnull"`
	ContestantID int64     `bun:"contestant_id,notnull"`
	Place        string    `bun:"place,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ContestRef is the part of a contest the quota stages need.
type ContestRef struct {
	ID          int64  `bun:"id"`
	Name        string `bun:"name"`
	NextRoundID *int64 `bun:"next_round_id"`
}

// CandidateRow is one (province, official) entry of a contest's active
// ranking snapshot with the names needed to report it.
type CandidateRow struct {
	SheetID      int64   `bun:"sheet_id"`
	ContestantID int64   `bun:"contestant_id"`
	ContestID    int64   `bun:"contest_id"`
	LastName     string  `bun:"last_name"`
	FirstName    string  `bun:"first_name"`
	School       string  `bun:"school"`
	ProvinceID   int64   `bun:"province_id"`
	Province     string  `bun:"province"`
	Total        float64 `bun:"total"`
	RankingA     int     `bun:"ranking_a"`
}

// SheetPrizes is the prizes field of one score sheet.
type SheetPrizes struct {
	bun.BaseModel `bun:"table:score_sheets,alias:ss"`

	SheetID      int64  `bun:"id"`
	ContestID    int64  `bun:"contest_id"`
	ContestantID int64  `bun:"contestant_id"`
	Prizes       string `bun:"prizes"`
}
