package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"casaviva/server/internal/models"
)

// ErrSpatialWrite marks a failed spatial upsert. The enclosing transaction
// has been rolled back; no partial edges remain.
var ErrSpatialWrite = errors.New("spatial write failed")

// cypherRunner is the slice of neo4j.ManagedTransaction the upsert steps
// need. Narrowed so the step sequence can be driven without a live session.
type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

// UpsertProperty merges a property node and rebuilds its spatial
// relationships inside a single write transaction:
//
//  1. merge the node and set its attributes (and point geometry, when
//     coordinates are supplied)
//  2. re-attach its LOCATED_IN edge to the named neighbourhood
//  3. drop every other edge touching the property
//  4. create a NEAR edge to each POI within radius meters
//  5. create NEAR_PROPERTY edges, both directions with the same distance,
//     to each other property within radius meters
//
// Steps 3-5 only run when coordinates are supplied; a coordinate-less update
// leaves existing spatial edges untouched. Any query failure rolls back the
// whole transaction and surfaces ErrSpatialWrite.
func (s *Store) UpsertProperty(ctx context.Context, prop models.Property, radius float64) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, s.applyProximity(ctx, tx, prop, radius)
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"property_id": prop.ID,
			"radius":      radius,
		}).Error("Spatial upsert rolled back")
		if errors.Is(err, ErrSpatialWrite) {
			return err
		}
		// Session-level failure (begin/commit), not a step failure.
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	return nil
}

// applyProximity runs the upsert steps on one transaction. The first failing
// step aborts the sequence; later steps do not run.
func (s *Store) applyProximity(ctx context.Context, tx cypherRunner, prop models.Property, radius float64) error {
	hasCoordinates := prop.Latitude != nil && prop.Longitude != nil

	if err := mergeNode(ctx, tx, prop, hasCoordinates); err != nil {
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	if err := attachNeighbourhood(ctx, tx, prop.ID, prop.Neighbourhood); err != nil {
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	if !hasCoordinates {
		return nil
	}
	if err := dropSpatialEdges(ctx, tx, prop.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	if err := linkNearPOIs(ctx, tx, prop.ID, radius); err != nil {
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	if err := linkNearProperties(ctx, tx, prop.ID, radius); err != nil {
		return fmt.Errorf("%w: %v", ErrSpatialWrite, err)
	}
	return nil
}

func mergeNode(ctx context.Context, tx cypherRunner, prop models.Property, hasCoordinates bool) error {
	query := `
		MERGE (p:PropertyOnSale {id: $id})
		SET p.price = $price, p.type = $type, p.thumbnail = $thumbnail
	`
	params := map[string]any{
		"id":        prop.ID,
		"price":     prop.Price,
		"type":      prop.PropertyType,
		"thumbnail": prop.Thumbnail,
	}
	if hasCoordinates {
		query += `, p.coordinates = point({latitude: $lat, longitude: $lon})`
		params["lat"] = *prop.Latitude
		params["lon"] = *prop.Longitude
	}
	_, err := tx.Run(ctx, query, params)
	return err
}

func attachNeighbourhood(ctx context.Context, tx cypherRunner, propertyID, neighbourhood string) error {
	// Replace rather than accumulate: a property belongs to exactly one
	// neighbourhood.
	query := `
		MATCH (p:PropertyOnSale {id: $id})
		OPTIONAL MATCH (p)-[old:LOCATED_IN]->(:Neighbourhood)
		DELETE old
		WITH DISTINCT p
		MERGE (n:Neighbourhood {name: $neighbourhood})
		MERGE (p)-[:LOCATED_IN]->(n)
	`
	_, err := tx.Run(ctx, query, map[string]any{"id": propertyID, "neighbourhood": neighbourhood})
	return err
}

func dropSpatialEdges(ctx context.Context, tx cypherRunner, propertyID string) error {
	query := `
		MATCH (p:PropertyOnSale {id: $id})-[r]-()
		WHERE type(r) <> 'LOCATED_IN'
		DELETE r
	`
	_, err := tx.Run(ctx, query, map[string]any{"id": propertyID})
	return err
}

func linkNearPOIs(ctx context.Context, tx cypherRunner, propertyID string, radius float64) error {
	query := `
		MATCH (p:PropertyOnSale {id: $id}), (poi:POI)
		WHERE poi.coordinates IS NOT NULL
		  AND point.distance(p.coordinates, poi.coordinates) <= $radius
		WITH p, poi, point.distance(p.coordinates, poi.coordinates) AS d
		CREATE (p)-[:NEAR {distance: d}]->(poi)
	`
	_, err := tx.Run(ctx, query, map[string]any{"id": propertyID, "radius": radius})
	return err
}

func linkNearProperties(ctx context.Context, tx cypherRunner, propertyID string, radius float64) error {
	// Both directions carry the same distance so the edge stays symmetric.
	query := `
		MATCH (p:PropertyOnSale {id: $id}), (q:PropertyOnSale)
		WHERE q.id <> p.id
		  AND q.coordinates IS NOT NULL
		  AND point.distance(p.coordinates, q.coordinates) <= $radius
		WITH p, q, point.distance(p.coordinates, q.coordinates) AS d
		CREATE (p)-[:NEAR_PROPERTY {distance: d}]->(q)
		CREATE (q)-[:NEAR_PROPERTY {distance: d}]->(p)
	`
	_, err := tx.Run(ctx, query, map[string]any{"id": propertyID, "radius": radius})
	return err
}
