package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"programfinder/internal/filter"
	"programfinder/internal/geocode"
	"programfinder/internal/programs/types"
	"programfinder/internal/regions"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotMounted    = errors.New("map is not mounted")
	ErrUnknownRecord = errors.New("unknown program record")
)

// Catalog is the read side of the program catalog.
type Catalog interface {
	All() []types.ProgramRecord
	ByKey(key string) (types.ProgramRecord, bool)
}

// State is what the user has asked for and what the map should show because of it.
type State struct {
	SelectedRegion string                `json:"selectedRegion"`
	SearchText     string                `json:"searchText"`
	Filtered       []types.ProgramRecord `json:"filtered"`
	SearchFocus    *geocode.Coordinate   `json:"searchFocus,omitempty"`
	ClickFocus     *geocode.Coordinate   `json:"clickFocus,omitempty"`
}

func (s State) clone() State {
	s.Filtered = slices.Clone(s.Filtered)
	if s.SearchFocus != nil {
		c := *s.SearchFocus
		s.SearchFocus = &c
	}
	if s.ClickFocus != nil {
		c := *s.ClickFocus
		s.ClickFocus = &c
	}
	return s
}

type Options struct {
	// Catalog is consulted on every operation so reloads are picked up.
	Catalog     func() Catalog
	Resolver    geocode.Resolver
	Factory     MapFactory
	Style       string
	Org         Org
	Concurrency int
}

// Synchronizer owns one map and its UI state. All methods are safe for concurrent use;
// geocoding happens outside the lock and operations overtaken by newer ones are dropped.
type Synchronizer struct {
	opts Options

	mu         sync.Mutex
	m          Map
	mounted    bool
	unmounted  bool
	state      State
	markers    []MarkerID
	generation uint64
	seq        uint64 // bumped by operations that replace the filter
	clicks     uint64

	base       context.Context
	baseCancel context.CancelFunc
	cancel     context.CancelFunc
	batchDone  chan struct{}
}

func NewSynchronizer(opts Options) *Synchronizer {
	if opts.Style == "" {
		opts.Style = DefaultStyle
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Factory == nil {
		opts.Factory = SceneFactory
	}
	done := make(chan struct{})
	close(done)
	return &Synchronizer{opts: opts, batchDone: done}
}

// Mount creates the map and shows the whole catalog. Mounting twice is a no-op.
func (s *Synchronizer) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return ErrNotMounted
	}
	if s.mounted {
		return nil
	}

	def := regions.Default()
	m, err := s.opts.Factory(MapOptions{
		Style:   s.opts.Style,
		Center:  def.Center,
		Zoom:    def.Zoom,
		MinZoom: MinZoom,
		MaxZoom: MaxZoom,
	})
	if err != nil {
		return fmt.Errorf("failed to create map: %w", err)
	}
	m.AddNavigationControl(TopRight)

	s.m = m
	s.mounted = true
	s.base, s.baseCancel = context.WithCancel(context.WithoutCancel(ctx))
	s.state = State{SelectedRegion: regions.DefaultName}
	s.state.Filtered = filter.Apply(s.records(), s.state.SelectedRegion, "")
	s.updateCamera()
	s.refreshMarkers()
	return nil
}

// Unmount cancels outstanding lookups, removes every marker and destroys the map.
func (s *Synchronizer) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.baseCancel()
	s.clearMarkers()
	s.generation++
	s.m.Destroy()
	s.m = nil
	s.mounted = false
	s.unmounted = true
	return nil
}

// SelectRegion switches the dropdown. Search text and both focuses are cleared.
func (s *Synchronizer) SelectRegion(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	s.seq++
	s.state.SelectedRegion = name
	s.state.SearchText = ""
	s.state.SearchFocus = nil
	s.state.ClickFocus = nil
	s.state.Filtered = filter.Apply(s.records(), name, "")
	s.updateCamera()
	s.refreshMarkers()
	return nil
}

// Reset returns to the initial view.
func (s *Synchronizer) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	s.seq++
	s.state = State{SelectedRegion: regions.DefaultName}
	s.state.Filtered = filter.Apply(s.records(), regions.DefaultName, "")
	s.updateCamera()
	s.refreshMarkers()
	return nil
}

// Search filters by address text and centers on the first match, or on the query itself
// when nothing matches. Whitespace-only text is ignored.
func (s *Synchronizer) Search(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	s.seq++
	seq, clicks := s.seq, s.clicks
	region := s.state.SelectedRegion
	records := s.records()
	s.mu.Unlock()

	filtered := filter.Apply(records, region, text)

	var focus *geocode.Coordinate
	query, err := s.opts.Resolver.Resolve(ctx, text)
	if err != nil {
		slog.InfoContext(ctx, "search text did not geocode", "error", err)
	} else {
		focus = &query
	}
	if len(filtered) > 0 {
		first := filtered[0]
		if c, err := s.opts.Resolver.Resolve(ctx, first.FullAddress()); err != nil {
			slog.InfoContext(ctx, "first match did not geocode, using query location", "key", first.Key, "error", err)
		} else {
			focus = &c
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	if s.seq != seq {
		slog.DebugContext(ctx, "dropping superseded search", "text", text)
		return nil
	}
	s.state.SearchText = text
	s.state.SearchFocus = focus
	if s.clicks == clicks {
		s.state.ClickFocus = nil
	}
	s.state.Filtered = filtered
	s.updateCamera()
	s.refreshMarkers()
	return nil
}

// Click focuses the map on one record. The previous click focus is dropped first, so a
// record that cannot be located leaves the camera on the search, region or default view.
func (s *Synchronizer) Click(ctx context.Context, key string) error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	record, ok := s.opts.Catalog().ByKey(key)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownRecord, key)
	}
	s.clicks++
	seq, clicks := s.seq, s.clicks
	if s.state.ClickFocus != nil {
		s.state.ClickFocus = nil
		s.updateCamera()
	}
	s.mu.Unlock()

	c, err := s.opts.Resolver.Resolve(ctx, record.FullAddress())
	if err != nil {
		slog.WarnContext(ctx, "clicked record did not geocode", "key", key, "error", err)
		return fmt.Errorf("failed to locate %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return ErrNotMounted
	}
	if s.seq != seq || s.clicks != clicks {
		return nil
	}
	s.state.ClickFocus = &c
	s.updateCamera()
	return nil
}

// State returns a copy of the current UI state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Mounted reports whether the map is live.
func (s *Synchronizer) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Snapshot returns the scene when the map records one.
func (s *Synchronizer) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scene, ok := s.m.(interface{ Snapshot() Snapshot })
	if !ok {
		return Snapshot{}, false
	}
	return scene.Snapshot(), true
}

// Wait blocks until the current marker batch has finished or ctx is done.
func (s *Synchronizer) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.batchDone
	s.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) records() []types.ProgramRecord {
	return s.opts.Catalog().All()
}

// updateCamera flies to the highest priority target: a clicked record, then an active
// search, then the selected region, then the default view. Callers hold s.mu.
func (s *Synchronizer) updateCamera() {
	center, zoom := s.target()
	s.m.FlyTo(center, zoom, FlyDuration)
}

func (s *Synchronizer) target() (geocode.Coordinate, float64) {
	if s.state.ClickFocus != nil {
		return *s.state.ClickFocus, ClickZoom
	}
	if strings.TrimSpace(s.state.SearchText) != "" && s.state.SearchFocus != nil {
		return *s.state.SearchFocus, SearchZoom
	}
	if v, ok := regions.Lookup(s.state.SelectedRegion); ok {
		return v.Center, v.Zoom
	}
	def := regions.Default()
	return def.Center, def.Zoom
}

func (s *Synchronizer) clearMarkers() {
	for _, id := range s.markers {
		s.m.RemoveMarker(id)
	}
	s.markers = nil
}

// refreshMarkers starts a new generation: old markers go, outstanding lookups are cancelled
// and each filtered record is geocoded with bounded concurrency. Callers hold s.mu.
func (s *Synchronizer) refreshMarkers() {
	s.clearMarkers()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation

	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	done := make(chan struct{})
	s.batchDone = done
	records := slices.Clone(s.state.Filtered)

	go func() {
		defer close(done)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for _, r := range records {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				c, err := s.opts.Resolver.Resolve(gctx, r.FullAddress())
				if err != nil {
					if gctx.Err() == nil {
						slog.WarnContext(gctx, "skipping marker, address did not geocode", "key", r.Key, "error", err)
					}
					return nil
				}
				s.place(gen, r, c)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (s *Synchronizer) place(gen uint64, r types.ProgramRecord, c geocode.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.m == nil {
		return
	}
	id := s.m.AddMarker(Marker{
		Key:      r.Key,
		Position: c,
		Anchor:   MarkerAnchor,
		Popup:    NewPopup(s.opts.Org, r),
	})
	s.markers = append(s.markers, id)
}
