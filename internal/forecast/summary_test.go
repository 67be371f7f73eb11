package forecast

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocksim/internal/simulation"
)

func TestBuildSummary(t *testing.T) {
	id := uuid.New()
	outcomes := simulation.Outcomes{
		day(time.January, 3): {Date: day(time.January, 3), Runs: 3, Missing: 2.0 / 3},
		day(time.January, 1): {Date: day(time.January, 1), Runs: 3},
		day(time.January, 2): {Date: day(time.January, 2), Runs: 3, Expired: 1.0 / 3, NoSpace: 0.5},
	}

	s := BuildSummary(id, day(time.March, 1), day(time.March, 9), outcomes)

	assert.Equal(t, id, s.ProductID)
	assert.Equal(t, "0.667", s.ProbabilityMissing.String())
	assert.Equal(t, "0.5", s.ProbabilityNoSpace.String())
	assert.Equal(t, "0.333", s.ProbabilityExpired.String())
	// the period comes from the outcomes, not the requested window
	assert.Equal(t, day(time.January, 1), s.StartDate)
	assert.Equal(t, day(time.January, 3), s.EndDate)
	require.NotNil(t, s.FirstDateWithLosses)
	assert.Equal(t, day(time.January, 2), *s.FirstDateWithLosses)

	require.Len(t, s.Days, 3)
	for i, d := range s.Days {
		assert.Equal(t, day(time.January, 1+i), d.Date)
	}
	assert.True(t, s.Days[0].ProbabilityMissing.IsZero())
	assert.Equal(t, "0.667", s.Days[2].ProbabilityMissing.String())
	assert.True(t, s.HasLoss())
}

func TestBuildSummary_Empty(t *testing.T) {
	s := BuildSummary(uuid.Nil, day(time.March, 1), day(time.March, 9), nil)

	assert.Equal(t, day(time.March, 1), s.StartDate)
	assert.Equal(t, day(time.March, 9), s.EndDate)
	assert.Nil(t, s.FirstDateWithLosses)
	assert.Empty(t, s.Days)
	assert.False(t, s.HasLoss())
}
