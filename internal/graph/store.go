package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"casaviva/server/internal/models"
)

// Store wraps the Neo4j driver holding the spatial graph: City,
// Neighbourhood, PropertyOnSale and POI nodes plus proximity edges.
type Store struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

// NewStore connects to the graph store and verifies connectivity.
func NewStore(ctx context.Context, uri, username, password string, logger *logrus.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph store unreachable: %w", err)
	}
	return &Store{driver: driver, logger: logger}, nil
}

// EnsureSchema creates uniqueness constraints so id lookups are O(1).
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT property_id_unique IF NOT EXISTS FOR (p:PropertyOnSale) REQUIRE p.id IS UNIQUE`,
		`CREATE CONSTRAINT neighbourhood_name_unique IF NOT EXISTS FOR (n:Neighbourhood) REQUIRE n.name IS UNIQUE`,
		`CREATE CONSTRAINT city_name_unique IF NOT EXISTS FOR (c:City) REQUIRE c.name IS UNIQUE`,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, query := range constraints {
			if _, err := tx.Run(ctx, query, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Ping reports whether the graph store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// NearPOIs returns the NEAR edges of a property: every point of interest
// within the proximity radius, with the measured distance.
func (s *Store) NearPOIs(ctx context.Context, propertyID string) ([]models.NearPOI, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:PropertyOnSale {id: $id})-[r:NEAR]->(poi:POI)
			RETURN poi.name AS name, poi.type AS type, r.distance AS distance
			ORDER BY r.distance
		`
		res, err := tx.Run(ctx, query, map[string]any{"id": propertyID})
		if err != nil {
			return nil, err
		}

		var pois []models.NearPOI
		for res.Next(ctx) {
			rec := res.Record()
			name, _ := rec.Get("name")
			poiType, _ := rec.Get("type")
			distance, _ := rec.Get("distance")
			pois = append(pois, models.NearPOI{
				Name:     asString(name),
				Type:     asString(poiType),
				Distance: asFloat(distance),
			})
		}
		return pois, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.NearPOI), nil
}

// POIAggregates groups the NEAR edges of a property by normalized POI type,
// returning the count and minimum distance per type. This is the raw input
// of the livability formula.
func (s *Store) POIAggregates(ctx context.Context, propertyID string) ([]models.POIAggregate, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:PropertyOnSale {id: $id})-[r:NEAR]->(poi:POI)
			RETURN toLower(trim(poi.type)) AS type, count(r) AS count, min(r.distance) AS minDistance
		`
		res, err := tx.Run(ctx, query, map[string]any{"id": propertyID})
		if err != nil {
			return nil, err
		}

		var aggregates []models.POIAggregate
		for res.Next(ctx) {
			rec := res.Record()
			poiType, _ := rec.Get("type")
			count, _ := rec.Get("count")
			minDistance, _ := rec.Get("minDistance")
			aggregates = append(aggregates, models.POIAggregate{
				Type:        asString(poiType),
				Count:       int(asInt(count)),
				MinDistance: asFloat(minDistance),
			})
		}
		return aggregates, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.POIAggregate), nil
}

// SetLivabilityScore overwrites the score attribute of a property node.
func (s *Store) SetLivabilityScore(ctx context.Context, propertyID string, score float64) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `MATCH (p:PropertyOnSale {id: $id}) SET p.score = $score`
		_, err := tx.Run(ctx, query, map[string]any{"id": propertyID, "score": score})
		return nil, err
	})
	return err
}

// PropertyIDs returns a page of property identifiers, ordered by id, for
// bulk scoring runs.
func (s *Store) PropertyIDs(ctx context.Context, skip, limit int) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (p:PropertyOnSale)
			RETURN p.id AS id
			ORDER BY p.id
			SKIP $skip LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]any{"skip": skip, "limit": limit})
		if err != nil {
			return nil, err
		}

		var ids []string
		for res.Next(ctx) {
			id, _ := res.Record().Get("id")
			ids = append(ids, asString(id))
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// RemoveProperty detaches and deletes a property node together with all of
// its edges. Used when a property is sold or withdrawn.
func (s *Store) RemoveProperty(ctx context.Context, propertyID string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `MATCH (p:PropertyOnSale {id: $id}) DETACH DELETE p`
		_, err := tx.Run(ctx, query, map[string]any{"id": propertyID})
		return nil, err
	})
	return err
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
