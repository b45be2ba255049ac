package domain

import (
	"encoding/json"
	"fmt"
)

// Cultural spaces always receive these specialties and the all_day bucket,
// whatever hours the source lists.
var culturalSpecialties = []string{"Cultural", "Historical"}

// TypeCulturalSpace is used when a cultural space has no type of its own.
const TypeCulturalSpace = "Cultural Space"

// culturalRecord is the JSON shape of the cultural spaces export.
type culturalRecord struct {
	ID       flexString `json:"id"`
	Name     string     `json:"nombre"`
	Address  string     `json:"direccion"`
	Lat      flexFloat  `json:"lat"`
	Lng      flexFloat  `json:"lng"`
	Type     string     `json:"tipo"`
	DaysOpen []string   `json:"diasFuncionamiento"`
	Hours    struct {
		Open  string `json:"apertura"`
		Close string `json:"cierre"`
	} `json:"horarios"`
	Products     []string `json:"productos"`
	Description  string   `json:"descripcion"`
	Phone        string   `json:"telefono"`
	Neighborhood string   `json:"barrio"`
	Commune      string   `json:"comuna"`
	Notes        string   `json:"observaciones"`
}

// ParseCulturalSpaces adapts the cultural spaces JSON array.
func ParseCulturalSpaces(data []byte) (Batch, error) {
	var records []culturalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return Batch{}, fmt.Errorf("parse cultural spaces: %w", err)
	}

	b := Batch{Places: make([]Place, 0, len(records))}
	for _, rec := range records {
		placeType := rec.Type
		if placeType == "" {
			placeType = TypeCulturalSpace
		}

		var days []string
		for _, d := range rec.DaysOpen {
			if d != "" {
				days = append(days, NormalizeWeekday(d))
			}
		}

		p := Place{
			ID:             string(rec.ID),
			Name:           rec.Name,
			Address:        rec.Address,
			Lat:            float64(rec.Lat),
			Lng:            float64(rec.Lng),
			Type:           placeType,
			Category:       CategoryCulture,
			DaysOpen:       days,
			Hours:          Hours{Open: rec.Hours.Open, Close: rec.Hours.Close},
			Products:       rec.Products,
			Description:    rec.Description,
			Phone:          rec.Phone,
			Neighborhood:   rec.Neighborhood,
			Commune:        rec.Commune,
			Notes:          rec.Notes,
			ScheduleBucket: BucketAllDay,
			Specialties:    append([]string(nil), culturalSpecialties...),
		}
		if p.Description == "" {
			p.Description = describe(p.Name, p.Neighborhood, p.Commune, p.Notes)
		}
		if !p.HasLocation() {
			b.Diagnostics.ZeroCoordinates++
		}
		b.Places = append(b.Places, finalize(p))
	}
	return b, nil
}

// flexFloat accepts a JSON number or a string coordinate, including comma
// decimals. Anything unparsable decodes to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexFloat(ParseCoordinate(s))
		return nil
	}
	*f = 0
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = flexString(n.String())
		return nil
	}
	*s = ""
	return nil
}
