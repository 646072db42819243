package mapview

import (
	"testing"

	"programfinder/internal/programs/types"
)

func TestNewPopup(t *testing.T) {
	t.Parallel()

	r := types.ProgramRecord{Address: "1 A St", Address2: "Suite 2", City: "Vienna", State: "VA", Zip: "22180", Region: "NoVA"}
	p := NewPopup(Org{Name: "Girls on the Run", Phone: "(555)-55555", Website: "http://girlsingear.org/"}, r)

	if p.Title != "Girls on the Run NoVA" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Address != "1 A St, Vienna, VA 22180" {
		t.Fatalf("unexpected address %q", p.Address)
	}
	if p.Phone != "(555)-55555" || p.Website != "http://girlsingear.org/" {
		t.Fatalf("unexpected contact %+v", p)
	}
	want := "https://www.google.com/maps/dir/?api=1&destination=1%20A%20St%20Suite%202%20Vienna%20VA%2022180"
	if p.Directions != want {
		t.Fatalf("unexpected directions url\n got %s\nwant %s", p.Directions, want)
	}
	if p.Offset != 25 {
		t.Fatalf("unexpected offset %d", p.Offset)
	}
}

func TestDirectionsURLEscapesPunctuation(t *testing.T) {
	t.Parallel()

	got := DirectionsURL(types.ProgramRecord{Address: "1 A St #4", City: "O'Fallon", State: "MO", Zip: "63366"})
	want := "https://www.google.com/maps/dir/?api=1&destination=1%20A%20St%20%234%20O%27Fallon%20MO%2063366"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestSceneClampsZoom(t *testing.T) {
	t.Parallel()

	s := NewScene(MapOptions{MinZoom: MinZoom, MaxZoom: MaxZoom})
	s.FlyTo(vienna, 20, FlyDuration)
	if got := s.Snapshot().Camera.Zoom; got != MaxZoom {
		t.Fatalf("zoom not clamped to max: %v", got)
	}
	s.FlyTo(vienna, 1, FlyDuration)
	if got := s.Snapshot().Camera.Zoom; got != MinZoom {
		t.Fatalf("zoom not clamped to min: %v", got)
	}
	before := s.Snapshot().Version
	id := s.AddMarker(Marker{Key: "a"})
	s.RemoveMarker(id)
	s.RemoveMarker(id)
	if got := s.Snapshot().Version; got != before+2 {
		t.Fatalf("expected two version bumps, got %d -> %d", before, got)
	}
}
