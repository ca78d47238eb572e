package models

// Property is the graph-side view of a property on sale. Coordinates are
// nullable because upstream listing events may omit them, in which case the
// spatial edges of an existing node are left untouched.
type Property struct {
	ID            string   `json:"id"`
	Price         int      `json:"price"`
	PropertyType  string   `json:"property_type"`
	Thumbnail     string   `json:"thumbnail"`
	Neighbourhood string   `json:"neighbourhood"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Score         *float64 `json:"score"`
}

// Listing is the marketplace-side document a property event carries. Area
// drives the open-house capacity, day/time the open-house schedule.
type Listing struct {
	ID            string   `json:"id" bson:"_id"`
	Price         int      `json:"price" bson:"price"`
	PropertyType  string   `json:"property_type" bson:"type"`
	Thumbnail     string   `json:"thumbnail" bson:"thumbnail"`
	Address       string   `json:"address" bson:"address"`
	Neighbourhood string   `json:"neighbourhood" bson:"neighbourhood"`
	Area          int      `json:"area" bson:"area"`
	Day           string   `json:"day" bson:"day"`
	Time          string   `json:"time" bson:"time"`
	Latitude      *float64 `json:"latitude" bson:"latitude"`
	Longitude     *float64 `json:"longitude" bson:"longitude"`
}

// NearPOI is a NEAR edge read back from the graph: a point of interest
// within the proximity radius of a property.
type NearPOI struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
}

// POIAggregate is the per-category aggregation the livability scorer
// consumes: how many POIs of a type are near a property and how close the
// nearest one is.
type POIAggregate struct {
	Type        string
	Count       int
	MinDistance float64
}
