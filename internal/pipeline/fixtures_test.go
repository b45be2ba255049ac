package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/feriando/places-etl/internal/domain"
	"github.com/feriando/places-etl/internal/observability"
	"github.com/feriando/places-etl/internal/pipeline"
)

const (
	marketsCSV = "NOMBRE;NOMBRE_MAP;UBICACION;BARRIO;LON;LAT\n" +
		"Mercado X;MERCADO X;Av. Siempreviva 742;Palermo;-58,38;-34,60\n" +
		"Mercado Y;;Calle 1;Boedo;;\n"

	fairsCSV = "LAT;LNG;ID;OBJETO;TIPO;NOMBRE;DIAS;OBSERVACIO;DIRECCION;CALLE;CRUCE;DIREC_NORM;DIREC_ARCG;BARRIO;COMUNA\n" +
		"-34,6211;-58,3736;;FERIA;FERIA ARTESANAL;Feria de San Telmo;DOMINGOS;de 10:00 a 17:00;Plaza Dorrego;;;;;San Telmo;Comuna 1\n" +
		"-34,6560;-58,5020;;FERIA;FERIA DE LAS NACIONES;Feria de Mataderos;Un domingo por mes;;;;;;;Mataderos;Comuna 9\n"

	culturalJSON = `[
	  {"id":"c-1","nombre":"Usina del Arte","direccion":"Agustín R. Caffarena 1","lat":-34.6283,"lng":-58.3572},
	  {"id":"market_1","nombre":"Casa de la Cultura","direccion":"Av. de Mayo 575","lat":-34.6088,"lng":-58.3760}
	]`
)

// mapFetcher serves documents from memory keyed by location.
type mapFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	calls int
}

func (f *mapFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[location]; ok {
		return nil, err
	}
	doc, ok := f.docs[location]
	if !ok {
		return nil, fmt.Errorf("no document at %s", location)
	}
	return []byte(doc), nil
}

func newFixtureFetcher() *mapFetcher {
	return &mapFetcher{
		docs: map[string]string{
			"markets.csv":  marketsCSV,
			"fairs.csv":    fairsCSV,
			"culture.json": culturalJSON,
		},
		errs: map[string]error{},
	}
}

func fixtureSources() []pipeline.Source {
	return []pipeline.Source{
		{Name: "markets", Location: "markets.csv", Parse: domain.ParseMarketsCSV},
		{Name: "fairs", Location: "fairs.csv", Parse: domain.ParseFairsCSV},
		{Name: "culture", Location: "culture.json", Parse: domain.ParseCulturalSpaces},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}
