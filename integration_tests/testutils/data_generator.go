package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Contest is a contests row.
type Contest struct {
	ID          int64
	Name        string
	Round       int
	LevelID     int64
	NextRoundID *int64
}

// Contestant is a profile plus the per-problem scores to record for it.
type Contestant struct {
	UserID     int64
	LastName   string
	FirstName  string
	SchoolID   int64
	ProvinceID int64
	Scores     []float64
}

// Total is the sum of the contestant's scores.
func (c Contestant) Total() float64 {
	var sum float64
	for _, s := range c.Scores {
		sum += s
	}
	return sum
}

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed returns the seed, for reproducing a failing run.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// SchoolName returns a plausible school name.
func (g *TestDataGenerator) SchoolName() string {
	return g.faker.City() + " School No." + g.faker.Numerify("##")
}

// Contestants creates one contestant per score row with fake names and
// consecutive user ids starting at firstID.
func (g *TestDataGenerator) Contestants(firstID, schoolID, provinceID int64, scores [][]float64) []Contestant {
	out := make([]Contestant, len(scores))
	for i, row := range scores {
		out[i] = Contestant{
			UserID:     firstID + int64(i),
			LastName:   g.faker.LastName(),
			FirstName:  g.faker.FirstName(),
			SchoolID:   schoolID,
			ProvinceID: provinceID,
			Scores:     row,
		}
	}
	return out
}

// RandomScores returns count rows of problems scores in [0, maxScore] whole
// points.
func (g *TestDataGenerator) RandomScores(count, problems int, maxScore int) [][]float64 {
	out := make([][]float64, count)
	for i := range out {
		row := make([]float64, problems)
		for j := range row {
			row[j] = float64(g.faker.IntRange(0, maxScore))
		}
		out[i] = row
	}
	return out
}
