package livability

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"casaviva/server/internal/models"
)

// GraphStore is the slice of the graph the scorer needs.
type GraphStore interface {
	POIAggregates(ctx context.Context, propertyID string) ([]models.POIAggregate, error)
	SetLivabilityScore(ctx context.Context, propertyID string, score float64) error
}

// Scorer recomputes the livability score of properties from their NEAR
// edges and persists it on the property node.
type Scorer struct {
	graph  GraphStore
	logger *logrus.Logger
}

func NewScorer(graph GraphStore, logger *logrus.Logger) *Scorer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Scorer{graph: graph, logger: logger}
}

// Recompute reads the per-category NEAR aggregates of a property, evaluates
// the livability formula and overwrites the score attribute on the node.
// A query error mid-aggregation logs and assigns score 0 rather than leaving
// a stale value behind.
func (s *Scorer) Recompute(ctx context.Context, propertyID string) (float64, error) {
	aggregates, err := s.graph.POIAggregates(ctx, propertyID)
	score := 0.0
	if err != nil {
		s.logger.WithError(err).WithField("property_id", propertyID).
			Error("Failed to aggregate NEAR edges, assigning neutral score")
	} else {
		score = Score(aggregates)
	}

	if err := s.graph.SetLivabilityScore(ctx, propertyID, score); err != nil {
		s.logger.WithError(err).WithField("property_id", propertyID).Error("Failed to persist livability score")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"property_id": propertyID,
		"score":       score,
	}).Debug("Livability score recomputed")
	return score, nil
}

// Score evaluates the livability formula over per-type aggregates.
// Categories with no nearby POI default to count 0 and DefaultDistance.
// Aggregate types outside the fixed category set are ignored.
//
//	x = Σ count · weight · exp(-minDistance / 1000)
//	score = 100 · (1 - exp(-x))
//
// The transform saturates toward 100 with amenity density. Negative-weight
// categories can pull the result below 0; the value is deliberately not
// clamped.
func Score(aggregates []models.POIAggregate) float64 {
	counts := make(map[Category]int, len(Weights))
	distances := make(map[Category]float64, len(Weights))
	for category := range Weights {
		counts[category] = 0
		distances[category] = DefaultDistance
	}

	for _, agg := range aggregates {
		category, ok := Normalize(agg.Type)
		if !ok {
			continue
		}
		counts[category] = agg.Count
		distances[category] = agg.MinDistance
	}

	x := 0.0
	for category, weight := range Weights {
		x += float64(counts[category]) * weight * math.Exp(-distances[category]/1000)
	}
	return 100 * (1 - math.Exp(-x))
}
