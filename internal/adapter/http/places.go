package httpadapter

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/feriando/places-etl/internal/domain"
	"github.com/gorilla/mux"
)

type placesResponse struct {
	RunID  string         `json:"runId,omitempty"`
	Total  int            `json:"total"`
	Places []domain.Place `json:"places"`
}

type statsResponse struct {
	RunID     string     `json:"runId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	domain.Stats
}

// handleListPlaces answers GET /api/places. Filters: type, day, q, product
// (repeatable), category, bucket, tag. With lat and lng every result carries
// its distance; k additionally keeps only the k closest.
func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap := s.catalog.Snapshot()

	origin, err := parseOrigin(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	k, err := parseK(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if k > 0 && origin == nil {
		writeError(w, http.StatusBadRequest, "k requires lat and lng")
		return
	}

	places := snap.Places
	if origin != nil {
		places = domain.WithDistances(places, origin[0], origin[1])
	}

	filter := domain.Filter{
		Type:     q.Get("type"),
		Day:      q.Get("day"),
		Query:    q.Get("q"),
		Products: q["product"],
		Category: q.Get("category"),
		Bucket:   domain.ScheduleBucket(q.Get("bucket")),
		Tag:      q.Get("tag"),
	}
	places = filter.Apply(places)
	if k > 0 {
		places = domain.KClosest(places, k)
	}

	sharedobs.WriteJSON(w, http.StatusOK, placesResponse{
		RunID:  snap.Run.ID,
		Total:  len(places),
		Places: places,
	})
}

func (s *Server) handleGetPlace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	place, ok := s.catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("place %q not found", id))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, place)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.catalog.Snapshot()
	resp := statsResponse{RunID: snap.Run.ID, Stats: snap.Stats}
	if !snap.Run.StartedAt.IsZero() {
		started := snap.Run.StartedAt
		resp.StartedAt = &started
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// parseOrigin returns the user position, or nil when neither lat nor lng is set.
func parseOrigin(q url.Values) (*[2]float64, error) {
	rawLat, rawLng := q.Get("lat"), q.Get("lng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, errors.New("lat and lng must be given together")
	}
	lat, err := parseCoordinate(rawLat, 90)
	if err != nil {
		return nil, errors.New("invalid lat")
	}
	lng, err := parseCoordinate(rawLng, 180)
	if err != nil {
		return nil, errors.New("invalid lng")
	}
	return &[2]float64{lat, lng}, nil
}

// parseCoordinate accepts finite values within [-limit, limit].
func parseCoordinate(raw string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, fmt.Errorf("coordinate %q out of range", raw)
	}
	return v, nil
}

func parseK(q url.Values) (int, error) {
	raw := q.Get("k")
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 {
		return 0, errors.New("invalid k")
	}
	return k, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
