// Package mapview keeps a map in step with the dropdown, the search box and marker clicks.
//
// The map itself sits behind the Map interface. Scene is the in-process implementation whose
// snapshots the browser replays onto mapbox-gl.
package mapview

import (
	"time"

	"programfinder/internal/geocode"
)

const (
	DefaultStyle = "mapbox://styles/mapbox/streets-v12"
	MinZoom      = 3
	MaxZoom      = 15

	ClickZoom  = 14
	SearchZoom = 12

	FlyDuration = 2 * time.Second

	PopupOffset  = 25
	MarkerAnchor = "bottom"
)

type ControlPosition string

const TopRight ControlPosition = "top-right"

type MapOptions struct {
	Style   string             `json:"style"`
	Center  geocode.Coordinate `json:"center"`
	Zoom    float64            `json:"zoom"`
	MinZoom float64            `json:"minZoom"`
	MaxZoom float64            `json:"maxZoom"`
}

type Camera struct {
	Center   geocode.Coordinate `json:"center"`
	Zoom     float64            `json:"zoom"`
	Duration time.Duration      `json:"-"`
	// DurationMS mirrors Duration for the browser.
	DurationMS int64 `json:"duration"`
}

type MarkerID int64

type Marker struct {
	ID       MarkerID           `json:"id"`
	Key      string             `json:"key"`
	Position geocode.Coordinate `json:"position"`
	Anchor   string             `json:"anchor"`
	Popup    Popup              `json:"popup"`
}

// Map is the rendering surface the synchronizer drives.
type Map interface {
	AddNavigationControl(pos ControlPosition)
	FlyTo(center geocode.Coordinate, zoom float64, duration time.Duration)
	AddMarker(m Marker) MarkerID
	RemoveMarker(id MarkerID)
	Destroy()
}

type MapFactory func(opts MapOptions) (Map, error)
