// internal/models/common.go
package models

// Location is a driver's position reported with a route update.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// RouteItem is one parcel line listed on a routing-sheet stop.
type RouteItem struct {
	Code        string  `bson:"code,omitempty" json:"code,omitempty"`
	Name        string  `bson:"name,omitempty" json:"name,omitempty"`
	Quantity    float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Unit        string  `bson:"unit,omitempty" json:"unit,omitempty"`
	LabelCode   string  `bson:"labelCode,omitempty" json:"labelCode,omitempty"`
	PlacesCount int     `bson:"placesCount,omitempty" json:"placesCount,omitempty"`
}
