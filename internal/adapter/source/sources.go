package source

import (
	"fmt"

	"github.com/feriando/places-etl/internal/adapter/xlsx"
	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/pipeline"
)

// Source names, used as log fields and metric labels.
const (
	Markets = "markets"
	Fairs   = "fairs"
	Culture = "culture"
	GeoJSON = "ferias_geojson"
)

// FromConfig returns the configured sources in union order: markets, fairs,
// cultural spaces, then the optional fairs GeoJSON feed.
func FromConfig(cfg *config.Config) []pipeline.Source {
	sources := []pipeline.Source{
		{Name: Markets, Location: cfg.MarketsSource, Parse: Tabular(domain.ParseMarketsCSV, domain.MarketsFromTable)},
		{Name: Fairs, Location: cfg.FairsSource, Parse: Tabular(domain.ParseFairsCSV, domain.FairsFromTable)},
		{Name: Culture, Location: cfg.CultureSource, Parse: domain.ParseCulturalSpaces},
	}
	if cfg.GeoJSONSource != "" {
		sources = append(sources, pipeline.Source{Name: GeoJSON, Location: cfg.GeoJSONSource, Parse: domain.ParseGeoJSON})
	}
	return sources
}

// Tabular parses either a delimited text export or an XLSX workbook with the
// same columns, detected from the document contents.
func Tabular(parseText pipeline.ParseFunc, fromTable func(domain.Table) domain.Batch) pipeline.ParseFunc {
	return func(data []byte) (domain.Batch, error) {
		if !xlsx.IsWorkbook(data) {
			return parseText(data)
		}
		t, err := xlsx.ReadTable(data)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("parse workbook: %w", err)
		}
		return fromTable(t), nil
	}
}
