package domain

import "fmt"

// Source exports carry no schedule or product data for markets; these are
// the domain defaults every market receives.
var (
	marketDays     = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}
	marketHours    = Hours{Open: "08:00", Close: "18:00"}
	marketProducts = []string{"Frutas y Verduras", "Carnes", "Fiambres y Lácteos", "Panadería"}
)

// ParseMarketsCSV adapts the ";"-delimited markets export.
func ParseMarketsCSV(data []byte) (Batch, error) {
	t, err := ParseDelimited(data, ';')
	if err != nil {
		return Batch{}, fmt.Errorf("parse markets csv: %w", err)
	}
	return MarketsFromTable(t), nil
}

// MarketsFromTable converts rows with the NOMBRE, NOMBRE_MAP, UBICACION,
// BARRIO, LON, and LAT columns into market places.
func MarketsFromTable(t Table) Batch {
	var b Batch
	for i := 0; i < t.Len(); i++ {
		if t.blank(i) {
			continue
		}

		name := t.Value(i, "NOMBRE")
		if name == "" {
			name = t.Value(i, "NOMBRE_MAP")
		}
		address := t.Value(i, "UBICACION")
		neighborhood := t.Value(i, "BARRIO")

		p := Place{
			ID:           fmt.Sprintf("market_%d", len(b.Places)+1),
			Name:         name,
			Address:      address,
			Lat:          ParseCoordinate(t.Value(i, "LAT")),
			Lng:          ParseCoordinate(t.Value(i, "LON")),
			Category:     CategoryMarkets,
			DaysOpen:     append([]string(nil), marketDays...),
			Hours:        marketHours,
			Products:     append([]string(nil), marketProducts...),
			Description:  describe(name, neighborhood, "", ""),
			Neighborhood: neighborhood,
		}
		if !p.HasLocation() {
			b.Diagnostics.ZeroCoordinates++
		}
		b.Places = append(b.Places, finalize(p))
	}
	return b
}

// describe composes "name - neighborhood, commune - notes", skipping empty parts.
func describe(name, neighborhood, commune, notes string) string {
	out := name
	area := neighborhood
	if commune != "" {
		if area != "" {
			area += ", "
		}
		area += commune
	}
	if area != "" {
		out += " - " + area
	}
	if notes != "" {
		out += " - " + notes
	}
	return out
}
