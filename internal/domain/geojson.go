package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Name     string           `json:"name"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Properties geoJSONProperties `json:"properties"`
	Geometry   struct {
		Type        string      `json:"type"`
		Coordinates []flexFloat `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
}

type geoJSONProperties struct {
	ID           flexString `json:"id"`
	Name         string     `json:"nombre"`
	Day          string     `json:"dia"`
	Schedule     string     `json:"horario"`
	Number       flexString `json:"numero"`
	Location     string     `json:"ubicacion"`
	Neighborhood string     `json:"barrio"`
	Commune      string     `json:"comuna"`
	Products     *string    `json:"productos"`
	Address      string     `json:"direccion"`
	Notes        *string    `json:"observacio"`
}

// ParseGeoJSON adapts the fairs GeoJSON FeatureCollection. Each feature is a
// single weekly fair; its coordinates arrive in [lng, lat] order.
func ParseGeoJSON(data []byte) (Batch, error) {
	var fc geoJSONCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return Batch{}, fmt.Errorf("parse geojson: %w", err)
	}

	b := Batch{Places: make([]Place, 0, len(fc.Features))}
	for _, f := range fc.Features {
		props := f.Properties

		var lat, lng float64
		if coords := f.Geometry.Coordinates; len(coords) >= 2 {
			lng, lat = float64(coords[0]), float64(coords[1])
		}

		products := NormalizeProductList(deref(props.Products))
		notes := strings.TrimSpace(deref(props.Notes))

		var days []string
		if day := strings.TrimSpace(props.Day); day != "" {
			days = []string{NormalizeWeekday(day)}
		}

		id := string(props.ID)
		if id == "" && props.Number != "" {
			id = "feria_" + string(props.Number)
		}

		address := props.Address
		if address == "" {
			address = props.Location
		}

		p := Place{
			ID:           id,
			Name:         props.Name,
			Address:      address,
			Lat:          lat,
			Lng:          lng,
			Type:         ClassifyType(products),
			Category:     CategoryMarkets,
			DaysOpen:     days,
			Hours:        ParseHourRange(props.Schedule),
			Products:     products,
			Description:  fmt.Sprintf("%s - %s, %s", props.Name, props.Neighborhood, props.Commune),
			Neighborhood: props.Neighborhood,
			Commune:      props.Commune,
			Notes:        notes,
		}
		if notes != "" {
			p.Description += " - " + notes
		}
		if !p.HasLocation() {
			b.Diagnostics.ZeroCoordinates++
		}
		b.Places = append(b.Places, finalize(p))
	}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
