package domain

import (
	"fmt"
	"strings"
)

// fairTypes is the closed mapping from the TIPO column to a place type.
// Anything else becomes TypeFair.
var fairTypes = map[string]string{
	"FERIA ARTESANAL":                            TypeCrafts,
	"FERIA DE ARTESANOS":                         TypeCrafts,
	"PASEO DE ARTESANOS":                         TypeCrafts,
	"FERIA ITINERANTE DE ABASTECIMIENTO BARRIAL": TypeMarket,
	"FERIA DE ABASTECIMIENTO":                    TypeMarket,
	"MERCADO":                                    TypeMarket,
	"FERIA FOLCLORICA":                           TypeFolklore,
	"FERIA FOLKLORICA":                           TypeFolklore,
	"FERIA GASTRONOMICA":                         TypeGastronomic,
	"PASEO GASTRONOMICO":                         TypeGastronomic,
}

// fairProducts seeds the product list of a fair from its type, since the
// fairs export has no products column.
var fairProducts = map[string][]string{
	TypeCrafts:      {"Artesanías"},
	TypeMarket:      {"Frutas y Verduras"},
	TypeFolklore:    {"Artesanías", "Música", "Danza"},
	TypeGastronomic: {"Comida"},
}

// fairDayPhrases is the closed mapping from the DIAS column to weekdays.
var fairDayPhrases = map[string][]string{
	"SABADOS Y DOMINGOS":           {"Sábado", "Domingo"},
	"SABADOS, DOMINGOS Y FERIADOS": {"Sábado", "Domingo"},
	"FINES DE SEMANA":              {"Sábado", "Domingo"},
	"FINES DE SEMANA Y FERIADOS":   {"Sábado", "Domingo"},
	"SABADOS":                      {"Sábado"},
	"DOMINGOS":                     {"Domingo"},
	"DOMINGOS Y FERIADOS":          {"Domingo"},
	"VIERNES, SABADOS Y DOMINGOS":  {"Viernes", "Sábado", "Domingo"},
	"LUNES A VIERNES":              {"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"},
	"LUNES A SABADOS":              {"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"},
	"MARTES A DOMINGOS":            {"Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"},
	"TODOS LOS DIAS":               Weekdays,
}

// weekendDays is the fallback for day phrases missing from fairDayPhrases.
var weekendDays = []string{"Sábado", "Domingo"}

// ParseFairsCSV adapts the ";"-delimited fairs export.
func ParseFairsCSV(data []byte) (Batch, error) {
	t, err := ParseDelimited(data, ';')
	if err != nil {
		return Batch{}, fmt.Errorf("parse fairs csv: %w", err)
	}
	return FairsFromTable(t), nil
}

// FairsFromTable converts fair rows (LAT, LNG, ID, OBJETO, TIPO, NOMBRE, DIAS,
// OBSERVACIO, DIRECCION, CALLE, CRUCE, DIREC_NORM, DIREC_ARCG, BARRIO, COMUNA)
// into places. Unknown types and day phrases are reported in the diagnostics.
func FairsFromTable(t Table) Batch {
	var b Batch
	for i := 0; i < t.Len(); i++ {
		if t.blank(i) {
			continue
		}

		rawType := t.Value(i, "TIPO")
		if rawType == "" {
			rawType = t.Value(i, "OBJETO")
		}
		placeType, known := FairType(rawType)
		if !known && rawType != "" {
			b.Diagnostics.UnknownTypes = append(b.Diagnostics.UnknownTypes, rawType)
		}

		rawDays := t.Value(i, "DIAS")
		days, known := FairDays(rawDays)
		if !known {
			b.Diagnostics.UnmappedDays = append(b.Diagnostics.UnmappedDays, rawDays)
		}

		name := t.Value(i, "NOMBRE")
		notes := t.Value(i, "OBSERVACIO")
		neighborhood := t.Value(i, "BARRIO")
		commune := t.Value(i, "COMUNA")

		id := t.Value(i, "ID")
		if id == "" {
			id = fmt.Sprintf("fair_%d", len(b.Places)+1)
		}

		products := fairProducts[placeType]
		if len(products) == 0 {
			products = []string{DefaultProduct}
		}

		p := Place{
			ID:           id,
			Name:         name,
			Address:      fairAddress(t, i),
			Lat:          ParseCoordinate(t.Value(i, "LAT")),
			Lng:          ParseCoordinate(t.Value(i, "LNG")),
			Type:         placeType,
			Category:     CategoryFairs,
			DaysOpen:     days,
			Hours:        ParseHourRange(notes),
			Products:     append([]string(nil), products...),
			Description:  describe(name, neighborhood, commune, notes),
			Neighborhood: neighborhood,
			Commune:      commune,
			Notes:        notes,
		}
		if !p.HasLocation() {
			b.Diagnostics.ZeroCoordinates++
		}
		b.Places = append(b.Places, finalize(p))
	}
	return b
}

// FairType maps a TIPO value to a place type. The second result is false
// when the value is not in the table and TypeFair was substituted.
func FairType(raw string) (string, bool) {
	if t, ok := fairTypes[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t, true
	}
	return TypeFair, false
}

// FairDays maps a DIAS phrase to weekdays. Unrecognized phrases fall back to
// Saturday and Sunday with the second result false.
func FairDays(raw string) ([]string, bool) {
	key := strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
	if days, ok := fairDayPhrases[key]; ok {
		return append([]string(nil), days...), true
	}
	return append([]string(nil), weekendDays...), false
}

// fairAddress prefers the free-text address, then the normalized one, then
// street and cross street.
func fairAddress(t Table, row int) string {
	for _, col := range []string{"DIRECCION", "DIREC_NORM", "DIREC_ARCG"} {
		if v := t.Value(row, col); v != "" {
			return v
		}
	}
	street, cross := t.Value(row, "CALLE"), t.Value(row, "CRUCE")
	if street != "" && cross != "" {
		return street + " y " + cross
	}
	return street
}
