package static

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed app.js
var appJS []byte

//go:embed app.css
var appCSS []byte

type asset struct {
	path        string
	contentType string
	body        []byte
}

var assets = map[string]*asset{
	"app.js":  {contentType: "application/javascript; charset=utf-8", body: appJS},
	"app.css": {contentType: "text/css; charset=utf-8", body: appCSS},
}

func init() {
	for name, a := range assets {
		a.path = hashedPath(name, a.body)
	}
}

func hashedPath(name string, body []byte) string {
	hash := fmt.Sprintf("%x", sha256.Sum256(body))
	ext := path.Ext(name)
	return fmt.Sprintf("/static/%s.%s%s", strings.TrimSuffix(name, ext), hash[:12], ext)
}

// AssetPath returns the content addressed URL for name, or "" when there is no such asset.
func AssetPath(name string) string {
	a, ok := assets[name]
	if !ok {
		return ""
	}
	return a.path
}

// Register serves the embedded assets under their hashed paths.
func Register(mux *http.ServeMux) {
	for name, a := range assets {
		mux.HandleFunc("GET "+a.path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", a.contentType)
			// hashed names never change content, cache aggressively.
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			if _, err := w.Write(a.body); err != nil {
				slog.ErrorContext(r.Context(), "failed to write static asset", "name", name, "error", err)
			}
		})
	}
}
