package models

// Coordinate is a map marker position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultMarker is where the marker sits until the customer drags it.
var DefaultMarker = Coordinate{Lat: 14.5995, Lng: 120.9842}
