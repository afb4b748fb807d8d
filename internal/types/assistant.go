package types

// AssistRequest is the single inbound shape of the assistant API. Latitude and
// longitude are pointers so "absent" and "zero" stay distinguishable.
type AssistRequest struct {
	Message   string   `json:"message" validate:"required"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Lang      string   `json:"lang,omitempty"`
}

// HasLocation reports whether both coordinates were supplied.
func (r AssistRequest) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type AssistResponse struct {
	Reply string `json:"reply"`
}

// Category is one of the safety-place kinds the assistant can search for.
type Category string

const (
	CategoryHospital      Category = "hospital"
	CategoryPharmacy      Category = "pharmacy"
	CategoryPoliceStation Category = "police_station"
)

type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// PlaceResult is the best match returned by the place-search provider.
// Coordinates is nil when the provider omitted a usable position.
type PlaceResult struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Coordinates *GeoPoint `json:"coordinates,omitempty"`
}

// RouteResult carries the planned route facts for the reply. Duration is
// already converted to whole minutes.
type RouteResult struct {
	DurationMinutes int      `json:"duration_minutes"`
	Steps           []string `json:"steps"`
}

// AssistContext is everything the response synthesizer gets to work with.
// Place and Route are optional on purpose: a missing Route means the reply
// degrades to place facts only, it is never an error signal.
type AssistContext struct {
	Message  string
	Category Category
	Place    *PlaceResult
	Route    *RouteResult
}
