package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"casaviva/server/internal/models"
)

const (
	buyersCollection   = "buyers"
	listingsCollection = "properties_on_sale"
)

var (
	// ErrInvalidID marks a buyer or property id that is not a valid hex
	// object id.
	ErrInvalidID = errors.New("malformed identifier")

	// ErrNotFound marks a missing buyer profile or property listing.
	ErrNotFound = errors.New("not found")
)

// Client reads the marketplace database this core collaborates with: buyer
// profiles and property listings. The marketplace CRUD itself lives in
// another service; this client is read-only.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logrus.Logger
}

// NewClient connects to the marketplace database and verifies connectivity.
func NewClient(ctx context.Context, uri, database string, logger *logrus.Logger) (*Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to marketplace database: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("marketplace database unreachable: %w", err)
	}
	return &Client{client: client, db: client.Database(database), logger: logger}, nil
}

// Close disconnects from the marketplace database.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Ping reports whether the marketplace database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// ContactInfo returns the contact fields of a buyer profile.
func (c *Client) ContactInfo(ctx context.Context, buyerID string) (*models.ContactInfo, error) {
	oid, err := primitive.ObjectIDFromHex(buyerID)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer id %q", ErrInvalidID, buyerID)
	}

	var contact models.ContactInfo
	err = c.db.Collection(buyersCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&contact)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: buyer %s", ErrNotFound, buyerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read buyer profile: %w", err)
	}
	return &contact, nil
}

type listingDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	Price         int                `bson:"price"`
	PropertyType  string             `bson:"type"`
	Thumbnail     string             `bson:"thumbnail"`
	Address       string             `bson:"address"`
	Neighbourhood string             `bson:"neighbourhood"`
	Area          int                `bson:"area"`
	Day           string             `bson:"day"`
	Time          string             `bson:"time"`
	Latitude      *float64           `bson:"latitude"`
	Longitude     *float64           `bson:"longitude"`
}

// Listing returns the marketplace document of a property on sale.
func (c *Client) Listing(ctx context.Context, propertyID string) (*models.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(propertyID)
	if err != nil {
		return nil, fmt.Errorf("%w: property id %q", ErrInvalidID, propertyID)
	}

	var doc listingDoc
	err = c.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: property %s", ErrNotFound, propertyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read property listing: %w", err)
	}

	return &models.Listing{
		ID:            doc.ID.Hex(),
		Price:         doc.Price,
		PropertyType:  doc.PropertyType,
		Thumbnail:     doc.Thumbnail,
		Address:       doc.Address,
		Neighbourhood: doc.Neighbourhood,
		Area:          doc.Area,
		Day:           doc.Day,
		Time:          doc.Time,
		Latitude:      doc.Latitude,
		Longitude:     doc.Longitude,
	}, nil
}
