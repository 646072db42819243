package locator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"programfinder/internal/config"
	"programfinder/internal/filter"
	"programfinder/internal/geocode"
	"programfinder/internal/mapview"
	"programfinder/internal/programs"
	"programfinder/internal/programs/types"
	"programfinder/internal/regions"
	"programfinder/internal/static"
	"programfinder/internal/templates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testCatalog = `{"programs":[
	{"programType":"Elementary","address":"100 Main Street","city":"Fairfax","state":"VA","zip":"22030","region":"NoVA"},
	{"programType":"Middle School","address":"8500 Georgia Avenue","city":"Silver Spring","state":"MD","zip":"20910","region":"MoCo"},
	{"programType":"Elementary","address":"1100 Congress Avenue","city":"Austin","state":"TX","zip":"78701","region":"Central Texas"},
	{"programType":"Elementary","address":"9 Nowhere Lane","city":"Ghost Town","state":"VA","zip":"00000","region":"NoVA"}
]}`

var (
	fairfax = geocode.Coordinate{Lon: -77.3412, Lat: 38.8348}
	austin  = geocode.Coordinate{Lon: -97.7437, Lat: 30.27129}
)

var (
	initTemplates sync.Once
	hiddenProgram = regexp.MustCompile(`data-key="[^"]+" hidden>`)
)

func testConfig() *config.Config {
	return &config.Config{
		Mapbox:   config.MapboxConfig{PublicToken: "pk.test", Style: mapview.DefaultStyle},
		Markers:  config.MarkerConfig{Concurrency: 4},
		Sessions: config.SessionConfig{TTL: time.Minute, Max: 10},
		Org:      config.OrgConfig{Name: "Girls on the Run", Phone: "(555)-55555", Website: "http://girlsingear.org/"},
	}
}

type harness struct {
	server *Server
	store  *programs.Store
	http   *httptest.Server
}

func newHarness(t *testing.T, cfg *config.Config, resolver geocode.Resolver) *harness {
	t.Helper()
	initTemplates.Do(func() {
		require.NoError(t, templates.Init(testConfig(), static.AssetPath))
	})

	store, err := programs.NewStore(context.Background(), func(context.Context) (*programs.Catalog, error) {
		return programs.Load([]byte(testCatalog))
	})
	require.NoError(t, err)

	if resolver == nil {
		centroids, err := geocode.NewCentroidResolver()
		require.NoError(t, err)
		resolver = geocode.NewMemo(centroids, nil, 1000)
	}

	s := NewServer(cfg, store, resolver)
	mux := http.NewServeMux()
	s.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return &harness{server: s, store: store, http: ts}
}

func (h *harness) keyFor(t *testing.T, address string) string {
	t.Helper()
	for _, p := range h.store.Current().All() {
		if p.Address == address {
			return p.Key
		}
	}
	t.Fatalf("no record with address %q", address)
	return ""
}

func (h *harness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, h.http.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHomeRendersCatalog(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)
	assert.Contains(t, body, `<span id="result-count">4</span> Local Chapters Found`)
	assert.Contains(t, body, `data-token="pk.test"`)
	assert.Empty(t, hiddenProgram.FindAllString(body, -1))

	resp = h.do(t, http.MethodGet, "/?region=Texas", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = readAll(t, resp)
	assert.Contains(t, body, `<span id="result-count">1</span>`)
	assert.Contains(t, body, `<option value="Texas" selected>Texas</option>`)
	assert.Len(t, hiddenProgram.FindAllString(body, -1), 3)
	assert.Contains(t, body, `data-key="`+h.keyFor(t, "1100 Congress Avenue")+`">`)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	resp := h.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegionsAPI(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/api/regions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	views := decode[[]regions.View](t, resp)
	require.NotEmpty(t, views)
	assert.Equal(t, regions.DefaultName, views[0].Name)
	assert.Len(t, views, len(regions.Names()))
}

func TestProgramsAPI(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	tests := []struct {
		query string
		mode  filter.Mode
		count int
	}{
		{"", filter.ModeAll, 4},
		{"?region=DMV", filter.ModeRegion, 3},
		{"?region=Texas", filter.ModeRegion, 1},
		{"?region=Atlantis", filter.ModeNone, 0},
		{"?region=Texas&q=avenue", filter.ModeSearch, 2},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := h.do(t, http.MethodGet, "/api/programs"+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, string(tt.mode), resp.Header.Get("X-Filter-Mode"))

			body := decode[struct {
				Count    int                   `json:"count"`
				Programs []types.ProgramRecord `json:"programs"`
			}](t, resp)
			assert.Equal(t, tt.count, body.Count)
			assert.Len(t, body.Programs, tt.count)
		})
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (geocode.Coordinate, error) {
	return geocode.Coordinate{}, &geocode.StatusError{Operation: "forward geocode", StatusCode: http.StatusServiceUnavailable}
}

func TestGeocodeAPI(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/api/geocode?q=Vienna,+VA+22181", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Coordinate geocode.Coordinate `json:"coordinate"`
	}](t, resp)
	assert.InDelta(t, -77.29461, body.Coordinate.Lon, 1e-6)
	assert.InDelta(t, 38.90312, body.Coordinate.Lat, 1e-6)

	resp = h.do(t, http.MethodGet, "/api/geocode?q=somewhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/geocode?q=++", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	broken := newHarness(t, testConfig(), failingResolver{})
	resp = broken.do(t, http.MethodGet, "/api/geocode?q=anything", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestPopup(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/popup/"+h.keyFor(t, "8500 Georgia Avenue"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)
	assert.Contains(t, body, "<h3>Girls on the Run MoCo</h3>")
	assert.Contains(t, body, "8500 Georgia Avenue, Silver Spring, MD 20910")
	assert.Contains(t, body, "View Directions")

	resp = h.do(t, http.MethodGet, "/popup/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodGet, "/export.xlsx?region=DMV", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "programs.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Programs")
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header plus three DMV programs")
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, testConfig(), nil)

	resp := h.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decode[sessionView](t, resp)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, regions.DefaultName, view.State.SelectedRegion)
	assert.Len(t, view.State.Filtered, 4)
	assert.Len(t, view.Snapshot.Markers, 3, "the record without a known location gets no marker")
	assert.Equal(t, []mapview.ControlPosition{mapview.TopRight}, view.Snapshot.Controls)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, view.ID, cookie.Value)

	base := "/api/sessions/" + view.ID

	resp = h.do(t, http.MethodPost, base+"/region", map[string]string{"region": "Texas"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, resp)
	assert.Equal(t, "Texas", view.State.SelectedRegion)
	require.Len(t, view.State.Filtered, 1)
	assert.Len(t, view.Snapshot.Markers, 1)
	texas, _ := regions.Lookup("Texas")
	assert.Equal(t, texas.Center, view.Snapshot.Camera.Center)
	assert.Equal(t, texas.Zoom, view.Snapshot.Camera.Zoom)
	assert.EqualValues(t, 2000, view.Snapshot.Camera.DurationMS)

	resp = h.do(t, http.MethodPost, base+"/search", map[string]string{"text": "Main Street"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, resp)
	assert.Equal(t, "Main Street", view.State.SearchText)
	require.Len(t, view.State.Filtered, 1)
	require.NotNil(t, view.State.SearchFocus)
	assert.InDelta(t, fairfax.Lon, view.State.SearchFocus.Lon, 1e-6)
	assert.InDelta(t, fairfax.Lat, view.State.SearchFocus.Lat, 1e-6)
	assert.EqualValues(t, mapview.SearchZoom, view.Snapshot.Camera.Zoom)

	resp = h.do(t, http.MethodPost, base+"/click/"+h.keyFor(t, "1100 Congress Avenue"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, resp)
	require.NotNil(t, view.State.ClickFocus)
	assert.InDelta(t, austin.Lon, view.Snapshot.Camera.Center.Lon, 1e-6)
	assert.EqualValues(t, mapview.ClickZoom, view.Snapshot.Camera.Zoom)

	resp = h.do(t, http.MethodPost, base+"/click/"+h.keyFor(t, "9 Nowhere Lane"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = h.do(t, http.MethodPost, base+"/click/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, resp)
	assert.Nil(t, view.State.ClickFocus, "failed click drops the previous click focus")
	assert.InDelta(t, fairfax.Lon, view.Snapshot.Camera.Center.Lon, 1e-6, "camera falls back to the search")
	assert.EqualValues(t, mapview.SearchZoom, view.Snapshot.Camera.Zoom)

	resp = h.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, resp)
	assert.Equal(t, regions.DefaultName, view.State.SelectedRegion)
	assert.Empty(t, view.State.SearchText)
	assert.Nil(t, view.State.ClickFocus)
	assert.Nil(t, view.State.SearchFocus)
	assert.Len(t, view.State.Filtered, 4)

	resp = h.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionAcceptsFormBodies(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	view := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))

	req, err := http.NewRequest(http.MethodPost, h.http.URL+"/api/sessions/"+view.ID+"/region", strings.NewReader("region=Maryland"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[sessionView](t, resp)
	assert.Equal(t, "Maryland", got.State.SelectedRegion)
	assert.Len(t, got.State.Filtered, 1)
}

func TestSessionRejectsMalformedJSON(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	view := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))

	req, err := http.NewRequest(http.MethodPost, h.http.URL+"/api/sessions/"+view.ID+"/search", strings.NewReader(`{"text":`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionsAreEvicted(t *testing.T) {
	cfg := testConfig()
	cfg.Sessions.Max = 1
	h := newHarness(t, cfg, nil)

	first := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))
	second := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/sessions/"+first.ID, nil).StatusCode)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/sessions/"+second.ID, nil).StatusCode)
	assert.Equal(t, 1, h.server.sessions.len())
}

func TestSessionsExpire(t *testing.T) {
	cfg := testConfig()
	cfg.Sessions.TTL = 20 * time.Millisecond
	h := newHarness(t, cfg, nil)

	view := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/sessions/"+view.ID, nil).StatusCode)
}

func TestCloseUnmountsSessions(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	view := decode[sessionView](t, h.do(t, http.MethodPost, "/api/sessions", nil))

	m, err := h.server.sessions.get(view.ID)
	require.NoError(t, err)

	h.server.Close()
	assert.False(t, m.Mounted())
	_, err = h.server.sessions.get(view.ID)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestReady(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	assert.NoError(t, h.server.Ready(context.Background()))
	assert.Len(t, h.server.Collectors(), 1)
}
