// Package matching computes compatibility scores between two profiles'
// skill sets. The score ranks discovery results only; it has no authority
// over whether a swap may be created.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Candidate carries the profile fields the scorer reads. Skill names are
// free text, so all comparisons are case-insensitive.
type Candidate struct {
	ID            uuid.UUID
	Name          string
	OfferedSkills []string
	WantedSkills  []string
	RatingAverage float64
}

// Match pairs a candidate with its compatibility score for the viewer.
type Match struct {
	Candidate Candidate
	Score     int
}

// Score returns the symmetric compatibility percentage in [0, 100].
//
// Let offersAtoB be the count of a's offered skills present in b's wanted
// set and offersBtoA the reverse. With denom = max(|a.wanted|, |b.wanted|):
//
//	score = round(100 * (offersAtoB + offersBtoA) / (2 * denom))
//
// The symmetric form rewards mutually useful pairings and keeps a candidate
// with zero wants from scoring artificially high. Both wanted sets empty
// yields 0, never an error.
func Score(a, b Candidate) int {
	wantedA := normalize(a.WantedSkills)
	wantedB := normalize(b.WantedSkills)

	denom := len(wantedA)
	if len(wantedB) > denom {
		denom = len(wantedB)
	}
	if denom == 0 {
		return 0
	}

	overlap := countIn(a.OfferedSkills, wantedB) + countIn(b.OfferedSkills, wantedA)
	score := int(math.Round(100 * float64(overlap) / float64(2*denom)))

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rank scores every candidate against the viewer and returns them sorted by
// score desc, rating average desc, name asc, id asc. The tiebreak chain is
// total, so the ordering is deterministic for any input permutation.
func Rank(viewer Candidate, pool []Candidate) []Match {
	matches := make([]Match, 0, len(pool))
	for _, c := range pool {
		if c.ID == viewer.ID {
			continue
		}
		matches = append(matches, Match{Candidate: c, Score: Score(viewer, c)})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.RatingAverage != b.Candidate.RatingAverage {
			return a.Candidate.RatingAverage > b.Candidate.RatingAverage
		}
		if a.Candidate.Name != b.Candidate.Name {
			return a.Candidate.Name < b.Candidate.Name
		}
		return a.Candidate.ID.String() < b.Candidate.ID.String()
	})

	return matches
}

// normalize folds a skill list into a lowercase set, dropping blanks and
// duplicates so "Guitar " and "guitar" count once.
func normalize(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

func countIn(skills []string, wanted map[string]struct{}) int {
	count := 0
	for s := range normalize(skills) {
		if _, ok := wanted[s]; ok {
			count++
		}
	}
	return count
}
