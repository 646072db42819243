// Package locator is the HTTP surface of the program finder: the home page, a JSON API over the
// catalog and resolver, and one mapview.Synchronizer per mounted browser map.
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"programfinder/internal/config"
	"programfinder/internal/export"
	"programfinder/internal/filter"
	"programfinder/internal/geocode"
	"programfinder/internal/mapview"
	"programfinder/internal/programs"
	"programfinder/internal/programs/types"
	"programfinder/internal/regions"
	"programfinder/internal/templates"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

const (
	sessionCookie = "programfinder_session"
	// markerWait bounds how long a session call waits for its marker batch before answering.
	markerWait = 5 * time.Second
)

type catalogSource interface {
	Current() *programs.Catalog
}

type Server struct {
	catalog  catalogSource
	resolver geocode.Resolver
	factory  mapview.MapFactory
	org      mapview.Org
	style    string
	workers  int
	sessions *sessions
}

func NewServer(cfg *config.Config, catalog catalogSource, resolver geocode.Resolver) *Server {
	return &Server{
		catalog:  catalog,
		resolver: resolver,
		factory:  mapview.SceneFactory,
		org:      mapview.Org{Name: cfg.Org.Name, Phone: cfg.Org.Phone, Website: cfg.Org.Website},
		style:    cfg.Mapbox.Style,
		workers:  cfg.Markers.Concurrency,
		sessions: newSessions(cfg.Sessions.Max, cfg.Sessions.TTL),
	}
}

// Collectors exposes the session gauge for the metrics registry.
func (s *Server) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.sessions.collector()}
}

// Close unmounts every session.
func (s *Server) Close() {
	s.sessions.purge()
}

func (s *Server) Ready(_ context.Context) error {
	if s.catalog.Current() == nil {
		return errors.New("catalog not loaded")
	}
	return nil
}

func (s *Server) records() []types.ProgramRecord {
	return s.catalog.Current().All()
}

type listItem struct {
	types.ProgramRecord
	Hidden bool
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /popup/{key}", s.handlePopup)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)

	mux.HandleFunc("GET /api/regions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, regions.All())
	})
	mux.HandleFunc("GET /api/programs", s.handlePrograms)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.session(func(_ *http.Request, _ *mapview.Synchronizer) error { return nil }))
	mux.HandleFunc("POST /api/sessions/{id}/region", s.session(func(r *http.Request, m *mapview.Synchronizer) error {
		var body struct {
			Region string `json:"region"`
		}
		if err := readBody(r, &body, "region", &body.Region); err != nil {
			return err
		}
		return m.SelectRegion(body.Region)
	}))
	mux.HandleFunc("POST /api/sessions/{id}/search", s.session(func(r *http.Request, m *mapview.Synchronizer) error {
		var body struct {
			Text string `json:"text"`
		}
		if err := readBody(r, &body, "text", &body.Text); err != nil {
			return err
		}
		return m.Search(r.Context(), body.Text)
	}))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.session(func(_ *http.Request, m *mapview.Synchronizer) error {
		return m.Reset()
	}))
	mux.HandleFunc("POST /api/sessions/{id}/click/{key}", s.session(func(r *http.Request, m *mapview.Synchronizer) error {
		return m.Click(r.Context(), r.PathValue("key"))
	}))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)
	// sendBeacon can only POST.
	mux.HandleFunc("POST /api/sessions/{id}/close", s.handleCloseSession)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region == "" {
		region = regions.DefaultName
	}
	query := r.URL.Query().Get("q")

	all := s.records()
	visible := lo.SliceToMap(filter.Apply(all, region, query), func(p types.ProgramRecord) (string, bool) {
		return p.Key, true
	})
	items := lo.Map(all, func(p types.ProgramRecord, _ int) listItem {
		return listItem{ProgramRecord: p, Hidden: !visible[p.Key]}
	})

	data := struct {
		Regions  []string
		Region   string
		Query    string
		Count    int
		Programs []listItem
	}{
		Regions:  regions.Names(),
		Region:   region,
		Query:    query,
		Count:    len(visible),
		Programs: items,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Home.Execute(w, data); err != nil {
		slog.ErrorContext(ctx, "failed to render home page", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	record, ok := s.catalog.Current().ByKey(key)
	if !ok {
		http.Error(w, "unknown program", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Popup.Execute(w, mapview.NewPopup(s.org, record)); err != nil {
		slog.ErrorContext(r.Context(), "failed to render popup", "key", key, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	query := r.URL.Query().Get("q")
	mode := filter.ModeFor(region, query)
	records := filter.Apply(s.records(), region, query)
	slog.DebugContext(r.Context(), "filtered programs", "region", region, "q", query, "mode", mode, "count", len(records))

	w.Header().Set("X-Filter-Mode", string(mode))
	writeJSON(w, r, http.StatusOK, struct {
		Region   string                `json:"region"`
		Query    string                `json:"q"`
		Mode     filter.Mode           `json:"mode"`
		Count    int                   `json:"count"`
		Programs []types.ProgramRecord `json:"programs"`
	}{region, query, mode, len(records), records})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "provide an address with ?q=")
		return
	}
	c, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		if geocode.IsNotFound(err) {
			writeError(w, r, http.StatusNotFound, "no match for "+query)
			return
		}
		slog.ErrorContext(ctx, "geocode failed", "q", query, "error", err)
		writeError(w, r, http.StatusBadGateway, "geocoder unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, struct {
		Query      string             `json:"q"`
		Coordinate geocode.Coordinate `json:"coordinate"`
	}{query, c})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	query := r.URL.Query().Get("q")
	records := filter.Apply(s.records(), region, query)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="programs.xlsx"`)
	if err := export.Write(w, records, mapview.DirectionsURL); err != nil {
		slog.ErrorContext(r.Context(), "failed to export programs", "count", len(records), "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}

type sessionView struct {
	ID       string           `json:"id"`
	State    mapview.State    `json:"state"`
	Snapshot mapview.Snapshot `json:"snapshot"`
}

func (s *Server) newSynchronizer() *mapview.Synchronizer {
	return mapview.NewSynchronizer(mapview.Options{
		Catalog:     func() mapview.Catalog { return s.catalog.Current() },
		Resolver:    s.resolver,
		Factory:     s.factory,
		Style:       s.style,
		Org:         s.org,
		Concurrency: s.workers,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := s.newSynchronizer()
	if err := m.Mount(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to mount map", "error", err)
		writeError(w, r, http.StatusInternalServerError, "unable to create map")
		return
	}
	id := s.sessions.add(m)
	slog.InfoContext(ctx, "session created", "session", id, "sessions", s.sessions.len())

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.respond(w, r, http.StatusCreated, id, m)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		writeError(w, r, http.StatusNotFound, ErrNoSession.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session adapts an operation on one synchronizer into a handler that answers with the
// resulting state and scene.
func (s *Server) session(op func(r *http.Request, m *mapview.Synchronizer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := r.PathValue("id")
		m, err := s.sessions.get(id)
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		if err := op(r, m); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				slog.ErrorContext(ctx, "session operation failed", "session", id, "path", r.URL.Path, "error", err)
			} else {
				slog.InfoContext(ctx, "session operation rejected", "session", id, "path", r.URL.Path, "error", err)
			}
			writeError(w, r, status, err.Error())
			return
		}
		s.respond(w, r, http.StatusOK, id, m)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, id string, m *mapview.Synchronizer) {
	ctx, cancel := context.WithTimeout(r.Context(), markerWait)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		slog.WarnContext(r.Context(), "answering before markers finished", "session", id, "error", err)
	}
	snap, _ := m.Snapshot()
	writeJSON(w, r, status, sessionView{ID: id, State: m.State(), Snapshot: snap})
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoSession), errors.Is(err, mapview.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, mapview.ErrNotMounted):
		return http.StatusGone
	case geocode.IsNotFound(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// readBody accepts either a JSON object or a form with a single named field.
func readBody(r *http.Request, v any, field string, dst *string) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: invalid form: %v", errBadRequest, err)
	}
	*dst = r.FormValue(field)
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to write json response", "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}
