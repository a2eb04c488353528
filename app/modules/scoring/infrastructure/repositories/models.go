package scoringdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Contest is one olympiad round with its own problem set.
type Contest struct {
	bun.BaseModel `bun:"table:contests,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Round       int       `bun:"round,notnull"`
	LevelID     int64     `bun:"level_id,notnull"`
	NextRoundID *int64    `bun:"next_round_id"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Problem belongs to a contest; ProblemOrder is 1-based.
type Problem struct {
	bun.BaseModel `bun:"table:problems,alias:p"`

	ID           int64   `bun:"id,pk,autoincrement"`
	ContestID    int64   `bun:"contest_id,notnull"`
	ProblemOrder int     `bun:"problem_order,notnull"`
	MaxScore     float64 `bun:"max_score,notnull"`
}

// Result is one graded answer. It is written by the import jobs and only read
// here.
type Result struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ContestantID int64     `bun:"contestant_id,notnull"`
	ContestID    int64     `bun:"contest_id,notnull"`
	ProblemID    int64     `bun:"problem_id,notnull"`
	Answer       string    `bun:"answer"`
	Score        *float64  `bun:"score"`
	State        int       `bun:"state,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Zone struct {
	bun.BaseModel `bun:"table:zones,alias:z"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type Province struct {
	bun.BaseModel `bun:"table:provinces,alias:pr"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name,notnull"`
	ZoneID int64  `bun:"zone_id,notnull"`
}

// School carries the contest levels it is registered to compete in
// officially.
type School struct {
	bun.BaseModel `bun:"table:schools,alias:sc"`

	ID               int64   `bun:"id,pk,autoincrement"`
	Name             string  `bun:"name,notnull"`
	ProvinceID       int64   `bun:"province_id,notnull"`
	OfficialLevelIDs []int64 `bun:"official_level_ids,array"`
}

// ContestantProfile links a user to their school and province.
type ContestantProfile struct {
	bun.BaseModel `bun:"table:contestant_profiles,alias:cp"`

	UserID     int64  `bun:"user_id,pk"`
	LastName   string `bun:"last_name,notnull"`
	FirstName  string `bun:"first_name,notnull"`
	SchoolID   *int64 `bun:"school_id"`
	ProvinceID *int64 `bun:"province_id"`
}

// ScoreSheet is the aggregated score of one contestant in one contest.
type ScoreSheet struct {
	bun.BaseModel `bun:"table:score_sheets,alias:ss"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ContestantID int64     `bun:"contestant_id,notnull"`
	ContestID    int64     `bun:"contest_id,notnull"`
	SchoolID     *int64    `bun:"school_id"`
	Scores       []float64 `bun:"scores,type:jsonb,notnull"`
	Total        float64   `bun:"total,notnull"`
	IsOfficial   bool      `bun:"is_official,notnull"`
	Prizes       string    `bun:"prizes,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ResultRow is a result joined with its problem order.
type ResultRow struct {
	ContestantID int64    `bun:"contestant_id"`
	ProblemOrder int      `bun:"problem_order"`
	Score        *float64 `bun:"score"`
}

// ProfileRow is the region association of one contestant.
type ProfileRow struct {
	UserID     int64  `bun:"user_id"`
	SchoolID   *int64 `bun:"school_id"`
	ProvinceID *int64 `bun:"province_id"`
}
