package static

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
)

func TestAssetPathsAreHashed(t *testing.T) {
	re := regexp.MustCompile(`^/static/app\.[0-9a-f]{12}\.(js|css)$`)
	for _, name := range []string{"app.js", "app.css"} {
		if p := AssetPath(name); !re.MatchString(p) {
			t.Fatalf("unexpected asset path for %s: %q", name, p)
		}
	}
	if AssetPath("missing.js") != "" {
		t.Fatal("unknown asset should have no path")
	}
}

func TestRegisterServesAssets(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux)

	req := httptest.NewRequest(http.MethodGet, AssetPath("app.css"), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/css; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=31536000, immutable" {
		t.Fatalf("unexpected cache control %q", got)
	}
	if rr.Body.Len() != len(appCSS) {
		t.Fatalf("expected %d bytes, got %d", len(appCSS), rr.Body.Len())
	}
}

func TestScriptReplaysEveryFlight(t *testing.T) {
	// a repeated fly to the same camera must still move a map the user panned away.
	script := string(appJS)
	if !strings.Contains(script, "syncCamera(view.snapshot.camera, view.snapshot.flights)") {
		t.Fatal("camera replay should be keyed on the snapshot flight count")
	}
	if strings.Contains(script, "JSON.stringify(camera)") {
		t.Fatal("camera replay must not dedupe on the camera value")
	}
}
