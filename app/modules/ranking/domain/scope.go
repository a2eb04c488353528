package rankingdomain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ScopeKind string

const (
	KindNational ScopeKind = "national"
	KindProvince ScopeKind = "province"
	KindZone     ScopeKind = "zone"
)

type Population string

const (
	PopulationOfficial   Population = "official"
	PopulationAll        Population = "all"
	PopulationUnofficial Population = "unofficial"
)

// NationalID is the scope id used for the national scope.
const NationalID int64 = 0

var (
	kindOrder       = []ScopeKind{KindNational, KindProvince, KindZone}
	populationOrder = []Population{PopulationOfficial, PopulationAll, PopulationUnofficial}

	ErrInvalidScope = errors.New("invalid scope")
)

// Scope is one independently numbered ranking table.
type Scope struct {
	Kind       ScopeKind
	ID         int64
	Population Population
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d:%s", s.Kind, s.ID, s.Population)
}

// ParseScope reads the "kind:id:population" form produced by String. The id
// may be omitted for the national scope ("national::all" or "national:all").
func ParseScope(raw string) (Scope, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	var kind, id, pop string
	switch len(parts) {
	case 2:
		kind, pop = parts[0], parts[1]
	case 3:
		kind, id, pop = parts[0], parts[1], parts[2]
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}

	s := Scope{Kind: ScopeKind(kind), Population: Population(pop)}
	if !validKind(s.Kind) || !validPopulation(s.Population) {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	if id != "" {
		v, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %q: %v", ErrInvalidScope, raw, err)
		}
		s.ID = v
	}
	if s.Kind == KindNational && s.ID != NationalID {
		return Scope{}, fmt.Errorf("%w: national scope takes id 0", ErrInvalidScope)
	}
	if s.Kind != KindNational && id == "" {
		return Scope{}, fmt.Errorf("%w: %s scope needs an id", ErrInvalidScope, s.Kind)
	}
	return s, nil
}

func validKind(k ScopeKind) bool {
	for _, v := range kindOrder {
		if v == k {
			return true
		}
	}
	return false
}

func validPopulation(p Population) bool {
	for _, v := range populationOrder {
		if v == p {
			return true
		}
	}
	return false
}

// Member is a score sheet with the region data scope selection needs.
type Member struct {
	SheetID      int64
	ContestantID int64
	ProvinceID   int64
	ZoneID       int64
	Total        float64
	IsOfficial   bool
}

func (p Population) includes(m Member) bool {
	switch p {
	case PopulationOfficial:
		return m.IsOfficial
	case PopulationUnofficial:
		return !m.IsOfficial
	default:
		return true
	}
}

func (k ScopeKind) idOf(m Member) int64 {
	switch k {
	case KindProvince:
		return m.ProvinceID
	case KindZone:
		return m.ZoneID
	default:
		return NationalID
	}
}

// Scopes lists every scope with at least one member, ordered by kind, id and
// population.
func Scopes(members []Member) []Scope {
	groups := groupByScope(members)
	out := make([]Scope, 0, len(groups))
	for s := range groups {
		out = append(out, s)
	}
	sortScopes(out)
	return out
}

// ScopedRank is one row of a ranking table.
type ScopedRank struct {
	Scope        Scope
	ContestantID int64
	Ranked
}

// RankAll ranks every non-empty scope of a contest. Rows come out grouped by
// scope in Scopes order and by list rank within a scope.
func RankAll(members []Member) ([]ScopedRank, []Scope) {
	groups := groupByScope(members)
	scopes := make([]Scope, 0, len(groups))
	for s := range groups {
		scopes = append(scopes, s)
	}
	sortScopes(scopes)

	contestantOf := make(map[int64]int64, len(members))
	for _, m := range members {
		contestantOf[m.SheetID] = m.ContestantID
	}

	var out []ScopedRank
	for _, s := range scopes {
		for _, r := range AssignRanks(groups[s]) {
			out = append(out, ScopedRank{Scope: s, ContestantID: contestantOf[r.SheetID], Ranked: r})
		}
	}
	return out, scopes
}

func groupByScope(members []Member) map[Scope][]Entry {
	groups := make(map[Scope][]Entry)
	for _, m := range members {
		for _, kind := range kindOrder {
			for _, pop := range populationOrder {
				if !pop.includes(m) {
					continue
				}
				s := Scope{Kind: kind, ID: kind.idOf(m), Population: pop}
				groups[s] = append(groups[s], Entry{SheetID: m.SheetID, Total: m.Total})
			}
		}
	}
	return groups
}

func sortScopes(scopes []Scope) {
	rank := func(s Scope) (int, int) {
		var k, p int
		for i, v := range kindOrder {
			if v == s.Kind {
				k = i
			}
		}
		for i, v := range populationOrder {
			if v == s.Population {
				p = i
			}
		}
		return k, p
	}
	sort.Slice(scopes, func(i, j int) bool {
		ki, pi := rank(scopes[i])
		kj, pj := rank(scopes[j])
		if ki != kj {
			return ki < kj
		}
		if scopes[i].ID != scopes[j].ID {
			return scopes[i].ID < scopes[j].ID
		}
		return pi < pj
	})
}
