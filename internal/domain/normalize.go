package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultProduct is the product list used when a source lists none.
const DefaultProduct = "Various products"

// Default hours applied when an hour range cannot be parsed.
const (
	DefaultOpen  = "08:00"
	DefaultClose = "14:00"
)

// hourRangeRe matches ranges like "de 8:00 a 14:00" anywhere in free text.
var hourRangeRe = regexp.MustCompile(`de (\d{1,2}):(\d{2}) a (\d{1,2}):(\d{2})`)

// hhmmRe validates an already normalized "HH:MM" value within 00:00-23:59.
var hhmmRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Weekdays in canonical order.
var Weekdays = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

var weekdayCodes = map[string]string{
	"LUNES":     "Lunes",
	"MARTES":    "Martes",
	"MIERCOLES": "Miércoles",
	"MIÉRCOLES": "Miércoles",
	"JUEVES":    "Jueves",
	"VIERNES":   "Viernes",
	"SABADO":    "Sábado",
	"SÁBADO":    "Sábado",
	"DOMINGO":   "Domingo",
}

// productSynonyms maps spelling variants found in the exports to canonical
// product categories. Lookups are case-sensitive.
var productSynonyms = map[string]string{
	"Frutihorticolas":      "Frutas y Verduras",
	"frutihorticolas":      "Frutas y Verduras",
	"pescadería":           "Pescadería",
	"pescaderia":           "Pescadería",
	"panadería":            "Panadería",
	"panaderia":            "Panadería",
	"especies y legumbres": "Especias y Legumbres",
	"granja y carnes":      "Carnes",
	"granja y carne":       "Carnes",
	"fiambres y lácteos":   "Fiambres y Lácteos",
	"fiambre y lácteos":    "Fiambres y Lácteos",
	"plantas":              "Plantas",
	"mascotas":             "Mascotas",
	"limpieza":             "Limpieza",
}

// NormalizeWeekday maps a source day code such as "LUNES" to its canonical
// name. Unknown codes are returned unchanged.
func NormalizeWeekday(code string) string {
	if day, ok := weekdayCodes[code]; ok {
		return day
	}
	return code
}

// NormalizeProductList splits a comma-separated product field and maps each
// token through the synonym table. An empty field yields [DefaultProduct].
func NormalizeProductList(raw string) []string {
	if raw == "" {
		return []string{DefaultProduct}
	}

	var out []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if canonical, ok := productSynonyms[token]; ok {
			token = canonical
		}
		out = append(out, token)
	}
	if len(out) == 0 {
		return []string{DefaultProduct}
	}
	return out
}

// ParseHourRange extracts opening hours from text like "de 8:00 a 14:00".
// Text without a range, or with a bound outside 00:00-23:59, yields the
// 08:00-14:00 default; callers cannot tell these apart.
func ParseHourRange(raw string) Hours {
	m := hourRangeRe.FindStringSubmatch(raw)
	if m == nil {
		return Hours{Open: DefaultOpen, Close: DefaultClose}
	}
	h := Hours{
		Open:  padHour(m[1]) + ":" + m[2],
		Close: padHour(m[3]) + ":" + m[4],
	}
	if !hhmmRe.MatchString(h.Open) || !hhmmRe.MatchString(h.Close) {
		return Hours{Open: DefaultOpen, Close: DefaultClose}
	}
	return h
}

// normalizeHours keeps well-formed values and replaces anything else with the
// default range, so every place ends up with valid "HH:MM" bounds.
func normalizeHours(h Hours) Hours {
	if hhmmRe.MatchString(h.Open) && hhmmRe.MatchString(h.Close) {
		return h
	}
	return ParseHourRange(fmt.Sprintf("de %s a %s", strings.TrimSpace(h.Open), strings.TrimSpace(h.Close)))
}

func padHour(h string) string {
	if len(h) == 1 {
		return "0" + h
	}
	return h
}

// ParseCoordinate parses a WGS-84 coordinate that may use a comma as decimal
// separator ("-34,6037"). Returns 0 on failure.
func ParseCoordinate(raw string) float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// hourOf returns the integer hour of an "HH:MM" value, or -1 when malformed.
func hourOf(hhmm string) int {
	head, _, _ := strings.Cut(hhmm, ":")
	h, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return h
}

// dedupe returns values without repeats, preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
