package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func candidate(name string, offered, wanted []string) Candidate {
	return Candidate{
		ID:            uuid.New(),
		Name:          name,
		OfferedSkills: offered,
		WantedSkills:  wanted,
	}
}

func TestScorePerfectMutualMatch(t *testing.T) {
	a := candidate("ana", []string{"Guitar"}, []string{"Photography"})
	b := candidate("bo", []string{"Photography"}, []string{"Guitar"})

	assert.Equal(t, 100, Score(a, b))
}

func TestScoreOneDirectionalMatch(t *testing.T) {
	a := candidate("ana", []string{"Guitar"}, []string{"Photography"})
	b := candidate("bo", []string{"Photography"}, []string{"Cooking"})

	// b satisfies a's single want, a satisfies none of b's: 1 of 2.
	assert.Equal(t, 50, Score(a, b))
}

func TestScoreIsCaseInsensitive(t *testing.T) {
	a := candidate("ana", []string{"gUiTaR"}, []string{" PHOTOGRAPHY "})
	b := candidate("bo", []string{"photography"}, []string{"Guitar"})

	assert.Equal(t, 100, Score(a, b))
}

func TestScoreEmptyWantedSetsIsZero(t *testing.T) {
	a := candidate("ana", []string{"Guitar"}, nil)
	b := candidate("bo", []string{"Photography"}, nil)

	assert.Equal(t, 0, Score(a, b))
}

func TestScoreCandidateWithZeroWantsIsNotInflated(t *testing.T) {
	a := candidate("ana", []string{"Guitar"}, []string{"Photography", "Cooking"})
	b := candidate("bo", []string{"Photography"}, nil)

	// Only one of four directional slots is filled.
	assert.Equal(t, 25, Score(a, b))
}

func TestScoreIgnoresDuplicateSkillEntries(t *testing.T) {
	a := candidate("ana", []string{"Guitar", "guitar", "GUITAR"}, []string{"Photography"})
	b := candidate("bo", []string{"Photography"}, []string{"Guitar"})

	assert.Equal(t, 100, Score(a, b))
}

func TestRankOrdersByScoreThenRatingThenName(t *testing.T) {
	viewer := candidate("viewer", []string{"Guitar"}, []string{"Photography"})

	strong := candidate("zed", []string{"Photography"}, []string{"Guitar"})
	weak := candidate("amy", []string{"Cooking"}, []string{"Welding"})
	tiedHighRating := candidate("mia", []string{"Photography"}, []string{"Guitar"})
	tiedHighRating.RatingAverage = 4.5

	matches := Rank(viewer, []Candidate{weak, strong, tiedHighRating})

	assert.Len(t, matches, 3)
	assert.Equal(t, "mia", matches[0].Candidate.Name) // same score as zed, better rating
	assert.Equal(t, "zed", matches[1].Candidate.Name)
	assert.Equal(t, "amy", matches[2].Candidate.Name)
}

func TestRankExcludesViewer(t *testing.T) {
	viewer := candidate("viewer", []string{"Guitar"}, []string{"Photography"})

	matches := Rank(viewer, []Candidate{viewer, candidate("bo", nil, nil)})

	assert.Len(t, matches, 1)
	assert.Equal(t, "bo", matches[0].Candidate.Name)
}
