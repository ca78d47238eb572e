package livability

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casaviva/server/internal/models"
)

// fakeGraph is an in-memory GraphStore for scorer tests. Safe for
// concurrent workers.
type fakeGraph struct {
	mu         sync.Mutex
	aggregates []models.POIAggregate
	readErr    error
	writeErr   error
	scores     map[string]float64
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{scores: make(map[string]float64)}
}

func (f *fakeGraph) POIAggregates(ctx context.Context, propertyID string) ([]models.POIAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.aggregates, nil
}

func (f *fakeGraph) SetLivabilityScore(ctx context.Context, propertyID string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.scores[propertyID] = score
	return nil
}

func TestScore_Empty(t *testing.T) {
	// No NEAR edges at all: every category defaults to count 0, so x = 0
	// and the score is exactly 0.
	assert.Equal(t, 0.0, Score(nil))
}

func TestScore_Formula(t *testing.T) {
	aggregates := []models.POIAggregate{
		{Type: "hospital", Count: 1, MinDistance: 100},
		{Type: "park", Count: 2, MinDistance: 250},
	}

	x := 1*0.5*math.Exp(-100.0/1000) + 2*0.3*math.Exp(-250.0/1000)
	expected := 100 * (1 - math.Exp(-x))

	assert.InDelta(t, expected, Score(aggregates), 1e-9)
}

func TestScore_StrictlyBelowHundred(t *testing.T) {
	// Amenity-only neighbourhoods saturate toward 100 but never reach it.
	aggregates := []models.POIAggregate{
		{Type: "hospital", Count: 5, MinDistance: 0},
		{Type: "school", Count: 5, MinDistance: 0},
		{Type: "park", Count: 5, MinDistance: 0},
		{Type: "police", Count: 5, MinDistance: 0},
		{Type: "supermarket", Count: 5, MinDistance: 0},
		{Type: "kindergarten", Count: 5, MinDistance: 0},
	}

	score := Score(aggregates)
	assert.Less(t, score, 100.0)
	assert.Greater(t, score, 99.0)
}

func TestScore_NegativeNotClamped(t *testing.T) {
	// A neighbourhood with only nuisances drives the score below zero.
	aggregates := []models.POIAggregate{
		{Type: "prison", Count: 3, MinDistance: 50},
		{Type: "landfill", Count: 2, MinDistance: 100},
	}

	assert.Less(t, Score(aggregates), 0.0)
}

func TestScore_NormalizesAndIgnoresUnknownTypes(t *testing.T) {
	known := []models.POIAggregate{{Type: "hospital", Count: 1, MinDistance: 100}}
	messy := []models.POIAggregate{
		{Type: "  Hospital ", Count: 1, MinDistance: 100},
		{Type: "bowling_alley", Count: 10, MinDistance: 10},
	}

	assert.Equal(t, Score(known), Score(messy))
}

func TestNormalize(t *testing.T) {
	c, ok := Normalize("  Grave_Yard ")
	assert.True(t, ok)
	assert.Equal(t, GraveYard, c)

	_, ok = Normalize("casino")
	assert.False(t, ok)
}

func TestScorer_Recompute(t *testing.T) {
	g := newFakeGraph()
	g.aggregates = []models.POIAggregate{{Type: "supermarket", Count: 1, MinDistance: 300}}
	scorer := NewScorer(g, logrus.New())

	score, err := scorer.Recompute(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, Score(g.aggregates), score)
	assert.Equal(t, score, g.scores["prop-1"])
}

func TestScorer_RecomputeFailsToNeutral(t *testing.T) {
	// A query error mid-aggregation assigns score 0 instead of leaving the
	// stored value stale.
	g := newFakeGraph()
	g.scores["prop-1"] = 42.0
	g.readErr = errors.New("connection reset")
	scorer := NewScorer(g, logrus.New())

	score, err := scorer.Recompute(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0.0, g.scores["prop-1"])
}

func TestScorer_RecomputePersistFailure(t *testing.T) {
	g := newFakeGraph()
	g.writeErr = errors.New("connection reset")
	scorer := NewScorer(g, logrus.New())

	_, err := scorer.Recompute(context.Background(), "prop-1")
	assert.Error(t, err)
}
