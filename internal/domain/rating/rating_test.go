package rating

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ktc/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func ballotsAt(start time.Time, outcomes ...model.Outcome) []model.Ballot {
	out := make([]model.Ballot, len(outcomes))
	for i, o := range outcomes {
		out[i] = model.Ballot{
			ID:        string(rune('a' + i)),
			ItemID:    "item",
			Outcome:   o,
			CreatedAt: start.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		e, err := NewEngine()
		require.NoError(t, err)
		assert.Equal(t, DefaultParams(), e.Params())
		assert.Equal(t, 50.0, e.BaseRating())
	})

	t.Run("options override defaults", func(t *testing.T) {
		e, err := NewEngine(WithKFactor(4), WithFullConfidenceVotes(10), WithBaseRating(60))
		require.NoError(t, err)
		assert.Equal(t, 4.0, e.Params().KFactor)
		assert.Equal(t, 10, e.Params().FullConfidenceVotes)
		assert.Equal(t, 60.0, e.BaseRating())
	})

	invalid := map[string]Option{
		"inverted bounds":   WithBounds(100, 0),
		"base out of range": WithBaseRating(150),
		"zero k-factor":     WithKFactor(0),
		"zero confidence":   WithFullConfidenceVotes(0),
		"factor above one":  WithDiminishing(70, 30, 1.5),
		"crossed threshold": WithDiminishing(20, 80, 0.5),
	}
	for name, opt := range invalid {
		t.Run(name, func(t *testing.T) {
			e, err := NewEngine(opt)
			assert.Nil(t, e)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestConfidence(t *testing.T) {
	e := Default()

	assert.Equal(t, 0.0, e.Confidence(0))
	assert.Equal(t, 0.0, e.Confidence(-3))
	assert.InDelta(t, 0.05, e.Confidence(1), tolerance)
	assert.InDelta(t, 0.5, e.Confidence(10), tolerance)
	assert.Equal(t, 1.0, e.Confidence(20))
	for n := 20; n < 200; n += 7 {
		assert.Equal(t, e.Confidence(20), e.Confidence(n))
	}

	prev := e.Confidence(0)
	for n := 1; n <= 40; n++ {
		c := e.Confidence(n)
		assert.GreaterOrEqual(t, c, prev, "confidence must not decrease at n=%d", n)
		prev = c
	}
}

func TestDiminish(t *testing.T) {
	e := Default()

	tests := []struct {
		name    string
		current float64
		impact  float64
		want    float64
	}{
		{"keep at ceiling threshold is halved", 70, 1.0, 0.5},
		{"keep above ceiling is halved", 85, 1.0, 0.5},
		{"cut above ceiling is unchanged", 85, -1.0, -1.0},
		{"cut at floor threshold is halved", 30, -1.0, -0.5},
		{"trade below floor is halved", 10, -0.3, -0.15},
		{"keep below floor is unchanged", 10, 1.0, 1.0},
		{"mid range is unchanged", 50, -1.0, -1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Diminish(tt.current, tt.impact), tolerance)
		})
	}
}

func TestNextRating(t *testing.T) {
	e := Default()

	t.Run("unknown outcome is rejected", func(t *testing.T) {
		r, err := e.NextRating(50, model.Outcome("love"), 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOutcome))
		assert.Equal(t, 50.0, r)
	})

	t.Run("no confidence means no movement", func(t *testing.T) {
		r, err := e.NextRating(50, model.Keep, 0)
		require.NoError(t, err)
		assert.Equal(t, 50.0, r)
	})

	t.Run("results stay within bounds", func(t *testing.T) {
		for r := 0.0; r <= 100; r += 2.5 {
			for _, o := range model.Outcomes {
				for _, n := range []int{0, 1, 10, 20, 100} {
					got, err := e.NextRating(r, o, n)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, got, 0.0)
					assert.LessOrEqual(t, got, 100.0)
				}
			}
		}
	})

	t.Run("repeated keep from 95 converges to 100", func(t *testing.T) {
		r := 95.0
		for i := 0; i < 10; i++ {
			next, err := e.NextRating(r, model.Keep, 20)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, next, r)
			r = next
		}
		assert.Equal(t, 100.0, r)
	})

	t.Run("repeated cut from 5 stops at 0", func(t *testing.T) {
		r := 5.0
		for i := 0; i < 10; i++ {
			next, err := e.NextRating(r, model.Cut, 20)
			require.NoError(t, err)
			r = next
		}
		assert.Equal(t, 0.0, r)
	})

	t.Run("diminishing returns near the ceiling and floor", func(t *testing.T) {
		for _, n := range []int{1, 10, 20} {
			high, err := e.NextRating(80, model.Keep, n)
			require.NoError(t, err)
			mid, err := e.NextRating(50, model.Keep, n)
			require.NoError(t, err)
			assert.Less(t, high-80, mid-50)

			low, err := e.NextRating(20, model.Cut, n)
			require.NoError(t, err)
			midCut, err := e.NextRating(50, model.Cut, n)
			require.NoError(t, err)
			assert.Greater(t, low-20, midCut-50)
		}
	})
}

func TestRecompute(t *testing.T) {
	e := Default()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("keep trade cut sequence", func(t *testing.T) {
		progression, err := e.Progression([]model.Outcome{model.Keep, model.Trade, model.Cut}, e.BaseRating())
		require.NoError(t, err)
		require.Len(t, progression, 4)
		assert.InDelta(t, 50.0, progression[1], tolerance)
		assert.InDelta(t, 49.97, progression[2], tolerance)
		assert.InDelta(t, 49.77, progression[3], tolerance)

		res, err := e.Recompute(ballotsAt(start, model.Keep, model.Trade, model.Cut))
		require.NoError(t, err)
		assert.Equal(t, 3, res.Votes)
		assert.Equal(t, progression[3], res.Rating)
	})

	t.Run("empty log yields the base rating", func(t *testing.T) {
		res, err := e.Recompute(nil)
		require.NoError(t, err)
		assert.Equal(t, Result{Rating: 50, Votes: 0}, res)
	})

	t.Run("replay is idempotent", func(t *testing.T) {
		log := ballotsAt(start,
			model.Keep, model.Keep, model.Trade, model.Keep, model.Cut,
			model.Keep, model.Trade, model.Keep, model.Keep, model.Cut)
		first, err := e.Recompute(log)
		require.NoError(t, err)
		second, err := e.Recompute(log)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("replay orders by timestamp without mutating input", func(t *testing.T) {
		log := ballotsAt(start, model.Keep, model.Cut, model.Keep, model.Trade)
		shuffled := []model.Ballot{log[3], log[1], log[0], log[2]}

		want, err := e.Recompute(log)
		require.NoError(t, err)
		got, err := e.Recompute(shuffled)
		require.NoError(t, err)

		assert.Equal(t, want, got)
		assert.Equal(t, log[3].ID, shuffled[0].ID)
	})

	t.Run("invalid ballot aborts the replay", func(t *testing.T) {
		log := ballotsAt(start, model.Keep, model.Outcome("meh"))
		_, err := e.Recompute(log)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOutcome))
	})
}

func TestTally(t *testing.T) {
	e := Default()
	log := ballotsAt(time.Now(), model.Keep, model.Keep, model.Trade, model.Cut)

	s := e.Tally(log)
	assert.Equal(t, Stats{Keep: 2, Trade: 1, Cut: 1, Total: 4, Confidence: 0.2}, s)
}
