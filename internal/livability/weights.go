package livability

import "strings"

// Category is a fixed POI category recognized by the livability formula.
// Keeping the set enumerated catches typos at compile time instead of
// silently scoring an unknown string as zero-weight.
type Category string

const (
	Hospital     Category = "hospital"
	School       Category = "school"
	Park         Category = "park"
	Police       Category = "police"
	Supermarket  Category = "supermarket"
	Kindergarten Category = "kindergarten"
	Factory      Category = "factory"
	Landfill     Category = "landfill"
	Prison       Category = "prison"
	GraveYard    Category = "grave_yard"
)

// Weights is the contribution of each category to the livability score.
// Positive weights are amenities, negative ones nuisances.
var Weights = map[Category]float64{
	Hospital:     0.5,
	School:       0.2,
	Park:         0.3,
	Police:       0.2,
	Supermarket:  0.3,
	Kindergarten: 0.1,
	Factory:      -0.2,
	Landfill:     -0.3,
	Prison:       -0.4,
	GraveYard:    -0.1,
}

// DefaultDistance is assumed for categories with no POI within the
// proximity radius.
const DefaultDistance = 500.0

// Normalize maps a raw POI type string to a Category. The second return is
// false for types outside the fixed set, which the formula ignores.
func Normalize(raw string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := Weights[c]
	return c, ok
}
