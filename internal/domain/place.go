package domain

import "time"

// ScheduleBucket is a coarse time-of-day classification derived from hours.
type ScheduleBucket string

const (
	BucketMorning   ScheduleBucket = "morning"
	BucketAfternoon ScheduleBucket = "afternoon"
	BucketNight     ScheduleBucket = "night"
	BucketAllDay    ScheduleBucket = "all_day"
)

// Frequency describes how often a place operates.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Categories set by the adapter that produced a place.
const (
	CategoryMarkets = "Markets"
	CategoryFairs   = "Fairs"
	CategoryCulture = "Culture"
)

// Geo sources recorded on a place.
const (
	GeoSourceOriginal = "source"
	GeoSourceGeocoded = "geocoded"
	GeoSourceFailed   = "failed"
)

// Hours holds opening and closing times as zero-padded "HH:MM" strings.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Place is the canonical normalized record for a market, fair, or cultural venue.
type Place struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Address        string         `json:"address"`
	Lat            float64        `json:"lat"`
	Lng            float64        `json:"lng"`
	Type           string         `json:"type"`
	Category       string         `json:"category"`
	DaysOpen       []string       `json:"daysOpen"`
	Hours          Hours          `json:"hours"`
	Products       []string       `json:"products"`
	Description    string         `json:"description"`
	Phone          string         `json:"phone"`
	Neighborhood   string         `json:"neighborhood"`
	Commune        string         `json:"commune"`
	Notes          string         `json:"notes"`
	ScheduleBucket ScheduleBucket `json:"scheduleBucket"`
	Frequency      Frequency      `json:"frequency"`
	Specialties    []string       `json:"specialties"`
	Services       []string       `json:"services"`
	Tags           []string       `json:"tags"`
	GeoSource      string         `json:"geoSource,omitempty"`

	// Distance in meters from the user. Set by consumers on copies, never by
	// the adapters.
	Distance *float64 `json:"distance,omitempty"`
}

// HasLocation reports whether the place carries usable coordinates.
// 0,0 is the sentinel for an unknown location.
func (p Place) HasLocation() bool {
	return p.Lat != 0 || p.Lng != 0
}

// Diagnostics collects lenient fallbacks applied while adapting a source.
type Diagnostics struct {
	UnmappedDays    []string `json:"unmappedDays,omitempty"`
	UnknownTypes    []string `json:"unknownTypes,omitempty"`
	ZeroCoordinates int      `json:"zeroCoordinates,omitempty"`
}

// Merge folds other into d.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.UnmappedDays = append(d.UnmappedDays, other.UnmappedDays...)
	d.UnknownTypes = append(d.UnknownTypes, other.UnknownTypes...)
	d.ZeroCoordinates += other.ZeroCoordinates
}

// Batch is the output of a single adapter run.
type Batch struct {
	Places      []Place
	Diagnostics Diagnostics
}

// Run identifies one refresh of the unified collection.
type Run struct {
	ID        string
	StartedAt time.Time
}
