// Command validate checks a unified places collection against the guarantees
// every consumer relies on: unique IDs, canonical weekdays and hours, schedule
// buckets consistent with hours, known categories, and plausible coordinates.
// With -snapshot it also compares the collection against the SQLite snapshot
// the service last persisted.
//
// Usage:
//
//	go run ./cmd/validate -json data/places.json -snapshot data/places.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"

	"github.com/feriando/places-etl/internal/adapter/sqlite"
	"github.com/feriando/places-etl/internal/domain"
)

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var (
	categories = map[string]bool{domain.CategoryMarkets: true, domain.CategoryFairs: true, domain.CategoryCulture: true}
	buckets    = map[domain.ScheduleBucket]bool{domain.BucketMorning: true, domain.BucketAfternoon: true, domain.BucketNight: true, domain.BucketAllDay: true}
	frequency  = map[domain.Frequency]bool{domain.FrequencyWeekly: true, domain.FrequencyBiweekly: true, domain.FrequencyMonthly: true}
	geoSources = map[string]bool{"": true, domain.GeoSourceOriginal: true, domain.GeoSourceGeocoded: true, domain.GeoSourceFailed: true}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "", "path to a unified places JSON array")
	snapshotPath := flag.String("snapshot", "", "optional SQLite snapshot to compare against")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*jsonPath, *snapshotPath))
}

func run(jsonPath, snapshotPath string) int {
	fmt.Println("=== Places Integrity Validation ===")
	fmt.Println()

	places, err := loadPlaces(jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load places: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateIdentity(places),
		validateSchedule(places),
		validateClassification(places),
		validateLocation(places),
	}
	if snapshotPath != "" {
		phases = append(phases, validateSnapshot(places, snapshotPath))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d places\n", len(places))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadPlaces(path string) ([]domain.Place, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var places []domain.Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return places, nil
}

func validateIdentity(places []domain.Place) *phase {
	p := &phase{name: "Identity (non-empty, unique IDs)"}
	seen := make(map[string]int, len(places))
	for i, pl := range places {
		if pl.ID == "" {
			p.errorf("place %d (%q): empty id", i, pl.Name)
			continue
		}
		if prev, dup := seen[pl.ID]; dup {
			p.errorf("places %d and %d share id %q", prev, i, pl.ID)
		}
		seen[pl.ID] = i
		if pl.Name == "" {
			p.errorf("%s: empty name", pl.ID)
		}
	}
	return p
}

func validateSchedule(places []domain.Place) *phase {
	p := &phase{name: "Schedule (weekdays, hours, buckets)"}
	weekdays := make(map[string]bool, len(domain.Weekdays))
	for _, d := range domain.Weekdays {
		weekdays[d] = true
	}
	for _, pl := range places {
		if len(pl.DaysOpen) == 0 {
			p.errorf("%s: no open days", pl.ID)
		}
		for _, d := range pl.DaysOpen {
			if !weekdays[d] {
				p.errorf("%s: non-canonical weekday %q", pl.ID, d)
			}
		}
		if !hhmm.MatchString(pl.Hours.Open) || !hhmm.MatchString(pl.Hours.Close) {
			p.errorf("%s: malformed hours %q-%q", pl.ID, pl.Hours.Open, pl.Hours.Close)
			continue
		}
		if !buckets[pl.ScheduleBucket] {
			p.errorf("%s: unknown schedule bucket %q", pl.ID, pl.ScheduleBucket)
		} else if pl.Category != domain.CategoryCulture {
			if want := domain.ClassifyScheduleBucket(pl.Hours); want != pl.ScheduleBucket {
				p.errorf("%s: bucket %q, hours %s-%s classify as %q", pl.ID, pl.ScheduleBucket, pl.Hours.Open, pl.Hours.Close, want)
			}
		}
		if !frequency[pl.Frequency] {
			p.errorf("%s: unknown frequency %q", pl.ID, pl.Frequency)
		}
	}
	return p
}

func validateClassification(places []domain.Place) *phase {
	p := &phase{name: "Classification (category, type, tags)"}
	for _, pl := range places {
		if !categories[pl.Category] {
			p.errorf("%s: unknown category %q", pl.ID, pl.Category)
		}
		if pl.Type == "" {
			p.errorf("%s: empty type", pl.ID)
		}
		if len(pl.Products) == 0 {
			p.errorf("%s: no products", pl.ID)
		}
		if pl.Specialties == nil || pl.Services == nil || pl.Tags == nil {
			p.errorf("%s: nil derived list", pl.ID)
		}
		seen := map[string]bool{}
		for _, tag := range pl.Tags {
			if seen[tag] {
				p.errorf("%s: duplicate tag %q", pl.ID, tag)
			}
			seen[tag] = true
		}
	}
	return p
}

func validateLocation(places []domain.Place) *phase {
	p := &phase{name: "Location (ranges, geo source)"}
	for _, pl := range places {
		if pl.Lat < -90 || pl.Lat > 90 || pl.Lng < -180 || pl.Lng > 180 {
			p.errorf("%s: coordinates out of range (%f, %f)", pl.ID, pl.Lat, pl.Lng)
		}
		if !geoSources[pl.GeoSource] {
			p.errorf("%s: unknown geo source %q", pl.ID, pl.GeoSource)
			continue
		}
		located := pl.HasLocation()
		switch pl.GeoSource {
		case domain.GeoSourceOriginal, domain.GeoSourceGeocoded:
			if !located {
				p.errorf("%s: geo source %q without coordinates", pl.ID, pl.GeoSource)
			}
		default:
			if located {
				p.errorf("%s: coordinates present but geo source %q", pl.ID, pl.GeoSource)
			}
		}
		if pl.Distance != nil {
			p.errorf("%s: stored collection carries a distance", pl.ID)
		}
	}
	return p
}

func validateSnapshot(places []domain.Place, path string) *phase {
	p := &phase{name: "Snapshot parity (SQLite)"}
	store, err := sqlite.Open(path)
	if err != nil {
		p.errorf("open snapshot: %v", err)
		return p
	}
	defer store.Close()

	run, stored, err := store.Latest(context.Background())
	if err != nil {
		p.errorf("read snapshot: %v", err)
		return p
	}
	fmt.Printf("Snapshot run %s started %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05Z07:00"))

	if len(stored) != len(places) {
		p.errorf("snapshot has %d places, collection has %d", len(stored), len(places))
	}
	n := min(len(stored), len(places))
	for i := 0; i < n; i++ {
		if stored[i].ID != places[i].ID {
			p.errorf("position %d: snapshot id %q, collection id %q", i, stored[i].ID, places[i].ID)
		}
	}
	return p
}
