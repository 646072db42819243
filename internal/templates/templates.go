package templates

import (
	"embed"
	"html/template"

	"programfinder/internal/config"
)

//go:embed *.html
var htmlFiles embed.FS

var Home,
	Popup *template.Template

// Init parses the embedded pages. assetPath maps a static file name to its versioned URL.
func Init(cfg *config.Config, assetPath func(name string) string) error {
	funcs := template.FuncMap{
		"MapboxToken": func() string { return cfg.Mapbox.PublicToken },
		"MapStyle":    func() string { return cfg.Mapbox.Style },
		"OrgName":     func() string { return cfg.Org.Name },
		"Asset":       assetPath,
	}
	tmpls, err := template.New("all").Funcs(funcs).ParseFS(htmlFiles, "*.html")
	if err != nil {
		return err
	}
	Home = ensure(tmpls, "home.html")
	Popup = ensure(tmpls, "popup.html")
	return nil
}

func ensure(templates *template.Template, name string) *template.Template {
	tmpl := templates.Lookup(name)
	if tmpl == nil {
		panic("template " + name + " not found")
	}
	return tmpl
}
