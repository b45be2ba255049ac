package pipeline

import (
	"context"
	"log/slog"

	"github.com/feriando/places-etl/internal/domain"
)

// Enricher fills in coordinates for places whose source carried none.
type Enricher struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. Pass a nil geocoder to disable geocoding.
func NewEnricher(geocoder domain.Geocoder, logger *slog.Logger) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Enrich returns places with unknown locations geocoded where possible. The
// input slice is not modified.
func (e *Enricher) Enrich(ctx context.Context, places []domain.Place) []domain.Place {
	if e == nil || e.geocoder == nil {
		return places
	}

	out := make([]domain.Place, len(places))
	var geocoded, failed int
	for i := range places {
		out[i] = domain.EnrichWithGeocoding(ctx, places[i], e.geocoder, e.logger)
		if out[i].GeoSource == places[i].GeoSource {
			continue
		}
		switch out[i].GeoSource {
		case domain.GeoSourceGeocoded:
			geocoded++
		case domain.GeoSourceFailed:
			failed++
		}
	}
	if geocoded > 0 || failed > 0 {
		e.logger.Info("geocoding enrichment complete", "geocoded", geocoded, "failed", failed)
	}
	return out
}
