package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mvdmakesthings/Ephemeris-sub002/internal/frame"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/metrics"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/orbit"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/tle"
	"github.com/mvdmakesthings/Ephemeris-sub002/internal/track"
)

const (
	// maxPositions bounds the per-request propagation series so a single
	// query cannot consume unbounded CPU.
	maxPositions = 10000

	// maxPassSatellites bounds an unfiltered pass-prediction request.
	maxPassSatellites = 100

	fetchTimeout = 60 * time.Second
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleTLEMetadata reports the current dataset's provenance and epoch range.
// GET /api/v1/tle/metadata
func (s *Server) handleTLEMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no element dataset loaded")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"source":          ds.Source,
		"fetched_at":      ds.FetchedAt.UTC().Format(time.RFC3339),
		"age_seconds":     int(time.Since(ds.FetchedAt).Seconds()),
		"satellite_count": len(ds.Satellites),
		"epoch_range": map[string]string{
			"min": ds.EpochRange.Min.UTC().Format(time.RFC3339),
			"max": ds.EpochRange.Max.UTC().Format(time.RFC3339),
		},
	})
}

// handleTLERefresh fetches fresh element sets from the configured sources
// and swaps them into the store. A fresh-enough dataset short-circuits
// unless force=true.
// POST /api/v1/tle/refresh
func (s *Server) handleTLERefresh(w http.ResponseWriter, r *http.Request) {
	if !s.tleCfg.EnableFetch {
		writeError(w, http.StatusForbidden, "element fetching is disabled")
		return
	}

	// Serialize concurrent refreshes; the second caller sees the first
	// caller's dataset as fresh and returns immediately.
	s.store.Lock()
	defer s.store.Unlock()

	force := r.URL.Query().Get("force") == "true"
	if ds := s.store.Get(); ds != nil && !force && time.Since(ds.FetchedAt) < s.tleCfg.MaxAge {
		writeJSON(w, http.StatusOK, map[string]any{
			"refreshed":       false,
			"satellite_count": len(ds.Satellites),
			"fetched_at":      ds.FetchedAt.UTC().Format(time.RFC3339),
			"age_seconds":     int(time.Since(ds.FetchedAt).Seconds()),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	raw, err := s.fetchAllSources(ctx)
	if err != nil {
		metrics.RecordTLEFetch("error")
		s.logger.Error("element fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("fetch failed: %v", err))
		return
	}

	now := time.Now()
	sets, err := tle.ParseCatalog(bytes.NewReader(raw), now, s.logger)
	if err != nil || len(sets) == 0 {
		metrics.RecordTLEFetch("error")
		s.logger.Error("element parse failed", "error", err, "parsed", len(sets))
		writeError(w, http.StatusBadGateway, "fetched data contained no valid element sets")
		return
	}

	ds := tle.NewDataset(s.tleCfg.SourceURL, now, sets)
	s.store.Set(ds)
	metrics.RecordTLEFetch("success")
	metrics.SetTLEDatasetCount(len(sets))

	if err := s.tleCache.Write(raw, now); err != nil {
		s.logger.Warn("could not write element cache file", "error", err)
	}

	s.logger.Info("element dataset refreshed",
		"satellite_count", len(sets),
		"epoch_min", ds.EpochRange.Min.UTC().Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.UTC().Format(time.RFC3339),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed":       true,
		"satellite_count": len(sets),
		"fetched_at":      now.UTC().Format(time.RFC3339),
	})
}

// fetchAllSources retrieves the primary source plus any extras and
// concatenates the raw catalogs. Extra-source failures are logged and
// skipped; the primary source must succeed.
func (s *Server) fetchAllSources(ctx context.Context) ([]byte, error) {
	primary := tle.NewFetcher(s.tleCfg.SourceURL)
	raw, err := primary.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(raw)
	for _, u := range s.tleCfg.ExtraSourceURLs {
		extra, err := tle.NewFetcher(u).Fetch(ctx)
		if err != nil {
			s.logger.Warn("extra source fetch failed", "url", u, "error", err)
			continue
		}
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.Write(extra)
	}
	return buf.Bytes(), nil
}

// positionSample is one propagated instant in a position response.
type positionSample struct {
	Time         string             `json:"time"`
	PositionECEF frame.ECEF         `json:"position_ecef"`
	VelocityECEF frame.ECEF         `json:"velocity_ecef"`
	SubPoint     frame.Geodetic     `json:"sub_point"`
	Look         *track.Topocentric `json:"look,omitempty"`
}

// handlePosition propagates one satellite over an optional horizon and
// returns ECEF states with sub-points, plus look angles when an observer
// is given.
// GET /api/v1/position/{catalog_number}?at=&horizon=&step=&lat=&lon=&alt_m=&refraction=
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	catalogNumber, err := strconv.Atoi(r.PathValue("catalog_number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog number")
		return
	}

	entry := s.store.Find(catalogNumber)
	if entry == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("satellite %d not in dataset", catalogNumber))
		return
	}

	q := r.URL.Query()

	at := time.Now().UTC()
	if v := q.Get("at"); v != "" {
		at, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at parameter, must be RFC3339")
			return
		}
	}

	horizon := 0
	if v := q.Get("horizon"); v != "" {
		horizon, err = strconv.Atoi(v)
		if err != nil || horizon < 0 {
			writeError(w, http.StatusBadRequest, "invalid horizon parameter, must be seconds >= 0")
			return
		}
	}

	step := 5
	if v := q.Get("step"); v != "" {
		step, err = strconv.Atoi(v)
		if err != nil || step < 1 {
			writeError(w, http.StatusBadRequest, "invalid step parameter, must be seconds >= 1")
			return
		}
	}

	count := horizon/step + 1
	if count > maxPositions {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":         fmt.Sprintf("horizon/step yields %d positions, exceeding the budget", count),
			"max_positions": maxPositions,
		})
		return
	}

	observer, err := parseObserver(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	obsOpts := track.ObserveOptions{Refraction: q.Get("refraction") == "true"}

	o := s.prop.Orbit(catalogNumber)
	if o == nil {
		if o, err = orbit.New(entry); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	samples := make([]positionSample, 0, count)
	for i := 0; i < count; i++ {
		t := at.Add(time.Duration(i*step) * time.Second)

		pos, vel, err := o.StateECEF(t)
		if err != nil {
			var sing *orbit.SingularityError
			if errors.As(err, &sing) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		sp, err := o.SubPoint(t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		sample := positionSample{
			Time:         t.UTC().Format(time.RFC3339),
			PositionECEF: pos,
			VelocityECEF: vel,
			SubPoint:     sp,
		}
		if observer != nil {
			tp, err := track.Observe(o, *observer, t, obsOpts)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			sample.Look = &tp
		}
		samples = append(samples, sample)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"catalog_number": entry.CatalogNumber,
		"name":           entry.Name,
		"epoch":          entry.Epoch.UTC().Format(time.RFC3339),
		"positions":      samples,
	})
}

// handlePasses predicts visibility passes over an observer for the
// requested satellites (or the whole catalog, bounded).
// GET /api/v1/passes?lat=&lon=&alt_m=&start=&hours=&min_elevation=&catalog=&refraction=&max_passes=
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no element dataset loaded")
		return
	}

	q := r.URL.Query()

	observer, err := parseObserver(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if observer == nil {
		writeError(w, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}

	start := time.Now().UTC()
	if v := q.Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start parameter, must be RFC3339")
			return
		}
	}

	hours := 24
	if v := q.Get("hours"); v != "" {
		hours, err = strconv.Atoi(v)
		if err != nil || hours < 1 || hours > 72 {
			writeError(w, http.StatusBadRequest, "invalid hours parameter, must be 1-72")
			return
		}
	}

	minElevation := 10.0
	if v := q.Get("min_elevation"); v != "" {
		minElevation, err = strconv.ParseFloat(v, 64)
		if err != nil || minElevation < 0 || minElevation > 90 {
			writeError(w, http.StatusBadRequest, "invalid min_elevation parameter, must be 0-90")
			return
		}
	}

	maxPasses := 0
	if v := q.Get("max_passes"); v != "" {
		maxPasses, err = strconv.Atoi(v)
		if err != nil || maxPasses < 0 {
			writeError(w, http.StatusBadRequest, "invalid max_passes parameter")
			return
		}
	}

	entries, err := selectEntries(ds, q.Get("catalog"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "no requested satellites in dataset")
		return
	}
	if len(entries) > maxPassSatellites {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          fmt.Sprintf("%d satellites requested, narrow with the catalog parameter", len(entries)),
			"max_satellites": maxPassSatellites,
		})
		return
	}

	end := start.Add(time.Duration(hours) * time.Hour)
	results := track.Predict(r.Context(), track.Request{
		Observer: *observer,
		Entries:  entries,
		Start:    start,
		End:      end,
		Options: track.PredictOptions{
			MinElevationDeg: minElevation,
			Refraction:      q.Get("refraction") == "true",
			MaxPasses:       maxPasses,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"observer": map[string]float64{
			"latitude":   observer.LatDeg,
			"longitude":  observer.LonDeg,
			"altitude_m": observer.AltM,
		},
		"start":         start.Format(time.RFC3339),
		"end":           end.Format(time.RFC3339),
		"min_elevation": minElevation,
		"satellites":    results,
	})
}

// selectEntries resolves a comma-separated catalog-number filter against
// the dataset. An empty filter selects the whole catalog.
func selectEntries(ds *tle.Dataset, filter string) ([]tle.ElementSet, error) {
	if filter == "" {
		return ds.Satellites, nil
	}

	wanted := make(map[int]bool)
	for _, part := range strings.Split(filter, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid catalog parameter %q", part)
		}
		wanted[n] = true
	}

	var entries []tle.ElementSet
	for _, sat := range ds.Satellites {
		if wanted[sat.CatalogNumber] {
			entries = append(entries, sat)
		}
	}
	return entries, nil
}

// parseObserver extracts an optional observer from lat/lon/alt_m query
// parameters. Returns nil when neither lat nor lon is present.
func parseObserver(q url.Values) (*frame.Observer, error) {
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("lat and lon parameters must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid lat parameter, must be -90 to 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid lon parameter, must be -180 to 180")
	}

	var altM float64
	if v := q.Get("alt_m"); v != "" {
		altM, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid alt_m parameter")
		}
	}

	obs := frame.NewObserver(lat, lon, altM)
	return &obs, nil
}

// handleCacheLatest returns the most recent cached keyframe.
// GET /api/v1/cache/keyframes/latest
func (s *Server) handleCacheLatest(w http.ResponseWriter, r *http.Request) {
	kf := s.kfCache.GetLatest()
	if kf == nil {
		writeError(w, http.StatusNotFound, "no keyframe cached")
		return
	}
	writeJSON(w, http.StatusOK, kf)
}

// handleCacheAt returns the cached keyframe at a given timestamp.
// GET /api/v1/cache/keyframes/at?t=RFC3339
func (s *Server) handleCacheAt(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("t")
	if v == "" {
		writeError(w, http.StatusBadRequest, "t parameter is required")
		return
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid t parameter, must be RFC3339")
		return
	}

	kf := s.kfCache.Get(t)
	if kf == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no keyframe cached for %s", s.kfCache.RoundToStep(t).Format(time.RFC3339)))
		return
	}
	writeJSON(w, http.StatusOK, kf)
}

// handleCacheStats returns keyframe cache statistics.
// GET /api/v1/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.kfCache.Stats())
}
