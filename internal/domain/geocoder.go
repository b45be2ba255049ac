package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves street addresses to coordinates.
type Geocoder interface {
	// ForwardGeocode converts an address and its area (neighborhood or
	// commune) to coordinates.
	ForwardGeocode(ctx context.Context, address, area string) (GeocodingResult, error)
}
