package mapview

import (
	"slices"
	"sync"
	"time"

	"programfinder/internal/geocode"
)

// Scene is a Map that records what it was told to draw.
type Scene struct {
	mu        sync.Mutex
	opts      MapOptions
	controls  []ControlPosition
	camera    Camera
	flights   int
	markers   map[MarkerID]Marker
	nextID    MarkerID
	destroyed bool
	version   uint64
}

var _ Map = (*Scene)(nil)

// Snapshot is a point-in-time copy of a Scene. Version increases on every change.
type Snapshot struct {
	Version   uint64            `json:"version"`
	Options   MapOptions        `json:"options"`
	Controls  []ControlPosition `json:"controls"`
	Camera    Camera            `json:"camera"`
	Flights   int               `json:"flights"`
	Markers   []Marker          `json:"markers"`
	Destroyed bool              `json:"destroyed"`
}

func NewScene(opts MapOptions) *Scene {
	return &Scene{
		opts:    opts,
		camera:  Camera{Center: opts.Center, Zoom: opts.Zoom},
		markers: make(map[MarkerID]Marker),
	}
}

// SceneFactory is the MapFactory used by the server.
func SceneFactory(opts MapOptions) (Map, error) {
	return NewScene(opts), nil
}

func (s *Scene) AddNavigationControl(pos ControlPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, pos)
	s.version++
}

func (s *Scene) FlyTo(center geocode.Coordinate, zoom float64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zoom = min(max(zoom, s.opts.MinZoom), s.opts.MaxZoom)
	s.camera = Camera{Center: center, Zoom: zoom, Duration: duration, DurationMS: duration.Milliseconds()}
	s.flights++
	s.version++
}

func (s *Scene) AddMarker(m Marker) MarkerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	s.markers[m.ID] = m
	s.version++
	return m.ID
}

func (s *Scene) RemoveMarker(id MarkerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[id]; ok {
		delete(s.markers, id)
		s.version++
	}
}

func (s *Scene) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = make(map[MarkerID]Marker)
	s.destroyed = true
	s.version++
}

func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	markers := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		markers = append(markers, m)
	}
	slices.SortFunc(markers, func(a, b Marker) int { return int(a.ID - b.ID) })
	return Snapshot{
		Version:   s.version,
		Options:   s.opts,
		Controls:  slices.Clone(s.controls),
		Camera:    s.camera,
		Flights:   s.flights,
		Markers:   markers,
		Destroyed: s.destroyed,
	}
}
