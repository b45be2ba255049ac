package source

import (
	"bytes"
	"testing"

	"github.com/feriando/places-etl/internal/config"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{MarketsSource: "m.csv", FairsSource: "f.xlsx", CultureSource: "c.json"}

	sources := FromConfig(cfg)
	require.Len(t, sources, 3)
	assert.Equal(t, Markets, sources[0].Name)
	assert.Equal(t, "m.csv", sources[0].Location)
	assert.Equal(t, Fairs, sources[1].Name)
	assert.Equal(t, Culture, sources[2].Name)

	cfg.GeoJSONSource = "ferias.geojson"
	sources = FromConfig(cfg)
	require.Len(t, sources, 4)
	assert.Equal(t, GeoJSON, sources[3].Name)
}

func TestTabular_Text(t *testing.T) {
	parse := Tabular(domain.ParseMarketsCSV, domain.MarketsFromTable)
	b, err := parse([]byte("NOMBRE;LAT;LON\nMercado X;-34,6;-58,4\n"))
	require.NoError(t, err)
	require.Len(t, b.Places, 1)
	assert.Equal(t, "Mercado X", b.Places[0].Name)
}

func TestTabular_Workbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"NOMBRE", "LAT", "LON"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Mercado X", "-34,6", "-58,4"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	parse := Tabular(domain.ParseMarketsCSV, domain.MarketsFromTable)
	b, err := parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, b.Places, 1)
	assert.Equal(t, "Mercado X", b.Places[0].Name)
	assert.InDelta(t, -34.6, b.Places[0].Lat, 1e-9)
}
