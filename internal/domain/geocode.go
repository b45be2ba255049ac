package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills the coordinates of a place with an unknown
// location (0,0) from its address. Places that already have coordinates, have
// no address, or are processed without a geocoder are returned unchanged.
// Failures leave the coordinates at 0,0 and mark GeoSource as failed.
func EnrichWithGeocoding(ctx context.Context, place Place, geocoder Geocoder, logger *slog.Logger) Place {
	if geocoder == nil || place.HasLocation() || place.Address == "" {
		return place
	}

	area := place.Neighborhood
	if area == "" {
		area = place.Commune
	}

	result, err := geocoder.ForwardGeocode(ctx, place.Address, area)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"place_id", place.ID,
			"address", place.Address,
			"area", area,
			"error", err,
		)
		place.GeoSource = GeoSourceFailed
		return place
	}
	if result.Lat == 0 && result.Lng == 0 {
		place.GeoSource = GeoSourceFailed
		return place
	}

	place.Lat = result.Lat
	place.Lng = result.Lng
	place.GeoSource = GeoSourceGeocoded
	return place
}
