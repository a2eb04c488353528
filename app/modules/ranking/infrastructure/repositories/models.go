package rankingdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RankingSnapshot is one immutable ranking pass over a contest. At most one
// snapshot per contest is active.
type RankingSnapshot struct {
	bun.BaseModel `bun:"table:ranking_snapshots,alias:rs"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ContestID  int64     `bun:"contest_id,notnull"`
	ComputedAt time.Time `bun:"computed_at,notnull"`
	Active     bool      `bun:"active,notnull"`
	SheetCount int       `bun:"sheet_count,notnull"`
	ScopeCount int       `bun:"scope_count,notnull"`
}

// RankingEntry is the position of one score sheet inside one scope of a
// snapshot.
type RankingEntry struct {
	bun.BaseModel `bun:"table:ranking_entries,alias:re"`

	SnapshotID   uuid.UUID `bun:"snapshot_id,pk,type:uuid"`
	ScopeKind    string    `bun:"scope_kind,pk"`
	ScopeID      int64     `bun:"scope_id,pk"`
	Population   string    `bun:"population,pk"`
	ScoreSheetID int64     `bun:"score_sheet_id,pk"`
	ContestantID int64     `bun:"contestant_id,notnull"`
	Total        float64   `bun:"total,notnull"`
	RankingA     int       `bun:"ranking_a,notnull"`
	RankingB     int       `bun:"ranking_b,notnull"`
	ListRank     int       `bun:"list_rank,notnull"`
}

// SheetRow is a score sheet joined with the province and zone of its
// contestant.
type SheetRow struct {
	SheetID      int64   `bun:"sheet_id"`
	ContestantID int64   `bun:"contestant_id"`
	ProvinceID   int64   `bun:"province_id"`
	ZoneID       int64   `bun:"zone_id"`
	Total        float64 `bun:"total"`
	IsOfficial   bool    `bun:"is_official"`
}

// Standing is an entry of the active snapshot with the contestant's name.
type Standing struct {
	ScoreSheetID int64   `bun:"score_sheet_id"`
	ContestantID int64   `bun:"contestant_id"`
	LastName     string  `bun:"last_name"`
	FirstName    string  `bun:"first_name"`
	Total        float64 `bun:"total"`
	RankingA     int     `bun:"ranking_a"`
	RankingB     int     `bun:"ranking_b"`
	ListRank     int     `bun:"list_rank"`
}
