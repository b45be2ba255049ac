package domain

import "strings"

// Place types produced by the classifiers and the fair type table.
const (
	TypeMarket      = "Market"
	TypeCrafts      = "Crafts"
	TypeFolklore    = "Folklore"
	TypeGastronomic = "Gastronomic"
	TypeFair        = "Fair"
)

type keywordRule struct {
	label    string
	keywords []string
}

// typeRules are checked in order; the first rule with a keyword present wins.
var typeRules = []keywordRule{
	{TypeMarket, []string{"frutas", "verduras", "hortícolas", "horticolas"}},
	{TypeCrafts, []string{"artesanías", "artesanias"}},
	{TypeFolklore, []string{"folclore", "folklore"}},
	{TypeGastronomic, []string{"gastronómico", "gastronomico"}},
}

var specialtyRules = []keywordRule{
	{"Organic", []string{"orgánic", "organic", "agroecológic", "agroecologic"}},
	{"Local", []string{"local", "productores", "productor"}},
	{"Traditional", []string{"tradicional", "artesanal", "folclore", "criollo"}},
	{"Sustainable", []string{"sustentable", "reciclad", "reutilizable", "agroecológic", "agroecologic"}},
}

var serviceRules = []keywordRule{
	{"Rest area", []string{"descanso", "bancos", "plaza"}},
	{"Parking", []string{"estacionamiento"}},
	{"Workshops", []string{"taller"}},
	{"Digital payment", []string{"mercado pago", "tarjeta", "qr", "pago digital", "transferencia"}},
	{"Restrooms", []string{"baño", "sanitarios"}},
	{"Accessible", []string{"accesible", "rampa"}},
}

// tagProducts and tagServices restrict which products and services may
// become tags.
var (
	tagProducts = setOf(
		"Frutas y Verduras", "Pescadería", "Panadería", "Especias y Legumbres",
		"Carnes", "Fiambres y Lácteos", "Plantas", "Mascotas", "Limpieza",
		"Artesanías", "Antigüedades", "Libros", "Comida", "Frutas", "Verduras",
		"Lácteos", "Joyería", "Cuero", "Textiles", "Especias", "Música", "Danza",
	)
	tagServices = setOf("Rest area", "Parking", "Workshops", "Digital payment")
)

// ClassifyType infers a place type from its product list.
func ClassifyType(products []string) string {
	text := strings.ToLower(strings.Join(products, " "))
	for _, rule := range typeRules {
		if containsAny(text, rule.keywords) {
			return rule.label
		}
	}
	return TypeMarket
}

// ClassifyScheduleBucket maps opening hours to a time-of-day bucket using
// whole hours only.
func ClassifyScheduleBucket(h Hours) ScheduleBucket {
	opens, closes := hourOf(h.Open), hourOf(h.Close)

	switch {
	case opens >= 6 && opens < 14 && closes <= 14:
		return BucketMorning
	case opens >= 14 && opens < 20 && closes <= 20:
		return BucketAfternoon
	case opens >= 20 || closes <= 6:
		return BucketNight
	default:
		return BucketAllDay
	}
}

// DeriveSpecialties matches specialty keywords against products and notes.
// Each rule checks both inputs, so a rule may fire twice; the result is
// deduplicated.
func DeriveSpecialties(products []string, notes string) []string {
	productText := strings.ToLower(strings.Join(products, " "))
	notesText := strings.ToLower(notes)

	var out []string
	for _, rule := range specialtyRules {
		if containsAny(productText, rule.keywords) {
			out = append(out, rule.label)
		}
		if containsAny(notesText, rule.keywords) {
			out = append(out, rule.label)
		}
	}
	return dedupe(out)
}

// DeriveServices matches service keywords against notes and name.
func DeriveServices(notes, name string) []string {
	text := strings.ToLower(notes + " " + name)

	out := []string{}
	for _, rule := range serviceRules {
		if containsAny(text, rule.keywords) {
			out = append(out, rule.label)
		}
	}
	return out
}

// BuildTags combines type, up to three known products, all specialties, and
// up to two known services into a duplicate-free tag list.
func BuildTags(products []string, placeType string, specialties, services []string) []string {
	tags := []string{placeType}
	for _, p := range firstN(products, 3) {
		if _, ok := tagProducts[p]; ok {
			tags = append(tags, p)
		}
	}
	tags = append(tags, specialties...)
	for _, s := range firstN(services, 2) {
		if _, ok := tagServices[s]; ok {
			tags = append(tags, s)
		}
	}
	return dedupe(tags)
}

// finalize fills every derived attribute of a place whose source fields are
// already set. Type, bucket, and specialties are only derived when the
// adapter left them empty.
func finalize(p Place) Place {
	p.Hours = normalizeHours(p.Hours)
	if len(p.Products) == 0 {
		p.Products = []string{DefaultProduct}
	}
	if len(p.DaysOpen) == 0 {
		p.DaysOpen = append([]string(nil), Weekdays...)
	}
	if p.Type == "" {
		p.Type = ClassifyType(p.Products)
	}
	if p.ScheduleBucket == "" {
		p.ScheduleBucket = ClassifyScheduleBucket(p.Hours)
	}
	if p.Frequency == "" {
		p.Frequency = FrequencyWeekly
	}
	if p.Specialties == nil {
		p.Specialties = DeriveSpecialties(p.Products, p.Notes)
	}
	if p.Services == nil {
		p.Services = DeriveServices(p.Notes, p.Name)
	}
	p.Tags = BuildTags(p.Products, p.Type, p.Specialties, p.Services)
	if p.GeoSource == "" && p.HasLocation() {
		p.GeoSource = GeoSourceOriginal
	}
	return p
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func setOf(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
