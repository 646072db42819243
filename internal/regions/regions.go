// Package regions holds the named camera presets offered in the location dropdown and the
// state abbreviations the catalog is filtered by.
package regions

import (
	"sort"

	"programfinder/internal/geocode"
)

// DefaultName is the "no selection" entry of the dropdown.
const DefaultName = "Select Location"

// DMV is the composite region covering the District, Maryland and Virginia.
const DMV = "DMV"

// View is a named camera preset.
type View struct {
	Name   string             `json:"name"`
	Center geocode.Coordinate `json:"center"`
	Zoom   float64            `json:"zoom"`
}

type preset struct {
	lon, lat, zoom float64
}

var presets = map[string]preset{
	DefaultName:            {-98.5795, 39.8283, 4.5},
	DMV:                    {-77.0369, 38.9072, 8},
	"Alabama":              {-86.9023, 32.3182, 6},
	"Alaska":               {-152.4044, 61.3707, 4},
	"Arizona":              {-111.0937, 34.0489, 6},
	"Arkansas":             {-92.3731, 34.9697, 6},
	"California":           {-119.4179, 36.7783, 5},
	"Colorado":             {-105.7821, 39.5501, 6},
	"Connecticut":          {-72.7554, 41.6032, 7},
	"Delaware":             {-75.5277, 38.9108, 7},
	"District of Columbia": {-77.0369, 38.9072, 11},
	"Florida":              {-81.5158, 27.6648, 6},
	"Georgia":              {-82.9001, 32.1656, 6},
	"Hawaii":               {-157.5828, 20.8968, 6},
	"Idaho":                {-114.742, 44.0682, 6},
	"Illinois":             {-89.3985, 40.6331, 6},
	"Indiana":              {-86.1349, 40.2672, 6},
	"Iowa":                 {-93.0977, 41.878, 6},
	"Kansas":               {-98.4842, 39.0119, 6},
	"Kentucky":             {-84.27, 37.8393, 6},
	"Louisiana":            {-91.9623, 30.9843, 6},
	"Maine":                {-69.4455, 45.2538, 7},
	"Maryland":             {-76.6413, 39.0458, 7},
	"Massachusetts":        {-71.3824, 42.4072, 7},
	"Michigan":             {-85.6024, 44.3148, 6},
	"Minnesota":            {-94.6859, 46.7296, 6},
	"Mississippi":          {-89.3985, 32.3547, 6},
	"Missouri":             {-91.8318, 37.9643, 6},
	"Montana":              {-110.3626, 46.8797, 6},
	"Nebraska":             {-99.9018, 41.4925, 6},
	"Nevada":               {-116.4194, 38.8026, 6},
	"New Hampshire":        {-71.5724, 43.1939, 7},
	"New Jersey":           {-74.4057, 40.0583, 7},
	"New Mexico":           {-105.8701, 34.5199, 6},
	"New York":             {-74.2179, 43.2994, 6},
	"North Carolina":       {-79.0193, 35.7596, 6},
	"North Dakota":         {-101.002, 47.5515, 6},
	"Ohio":                 {-82.9071, 40.4173, 6},
	"Oklahoma":             {-97.0929, 35.0078, 6},
	"Oregon":               {-120.5542, 43.8041, 6},
	"Pennsylvania":         {-77.1945, 41.2033, 6},
	"Rhode Island":         {-71.4774, 41.5801, 7},
	"South Carolina":       {-81.1637, 33.8361, 6},
	"South Dakota":         {-99.9018, 43.9695, 6},
	"Tennessee":            {-86.5804, 35.5175, 6},
	"Texas":                {-99.9018, 31.9686, 5},
	"Utah":                 {-111.0937, 39.321, 6},
	"Vermont":              {-72.5778, 44.5588, 7},
	"Virginia":             {-78.6569, 37.4316, 6},
	"Washington":           {-120.7401, 47.7511, 6},
	"West Virginia":        {-80.4549, 38.5976, 6},
	"Wisconsin":            {-88.7879, 43.7844, 6},
	"Wyoming":              {-107.2903, 43.0759, 6},
}

var abbreviations = map[string]string{
	"Alabama":              "AL",
	"Alaska":               "AK",
	"Arizona":              "AZ",
	"Arkansas":             "AR",
	"California":           "CA",
	"Colorado":             "CO",
	"Connecticut":          "CT",
	"Delaware":             "DE",
	"District of Columbia": "DC",
	"Florida":              "FL",
	"Georgia":              "GA",
	"Hawaii":               "HI",
	"Idaho":                "ID",
	"Illinois":             "IL",
	"Indiana":              "IN",
	"Iowa":                 "IA",
	"Kansas":               "KS",
	"Kentucky":             "KY",
	"Louisiana":            "LA",
	"Maine":                "ME",
	"Maryland":             "MD",
	"Massachusetts":        "MA",
	"Michigan":             "MI",
	"Minnesota":            "MN",
	"Mississippi":          "MS",
	"Missouri":             "MO",
	"Montana":              "MT",
	"Nebraska":             "NE",
	"Nevada":               "NV",
	"New Hampshire":        "NH",
	"New Jersey":           "NJ",
	"New Mexico":           "NM",
	"New York":             "NY",
	"North Carolina":       "NC",
	"North Dakota":         "ND",
	"Ohio":                 "OH",
	"Oklahoma":             "OK",
	"Oregon":               "OR",
	"Pennsylvania":         "PA",
	"Rhode Island":         "RI",
	"South Carolina":       "SC",
	"South Dakota":         "SD",
	"Tennessee":            "TN",
	"Texas":                "TX",
	"Utah":                 "UT",
	"Vermont":              "VT",
	"Virginia":             "VA",
	"Washington":           "WA",
	"West Virginia":        "WV",
	"Wisconsin":            "WI",
	"Wyoming":              "WY",
}

// composites are regions that span several states.
var composites = map[string][]string{
	DMV: {"DC", "MD", "VA"},
}

// Lookup returns the camera preset for a dropdown entry.
func Lookup(name string) (View, bool) {
	p, ok := presets[name]
	if !ok {
		return View{}, false
	}
	return View{Name: name, Center: geocode.Coordinate{Lon: p.lon, Lat: p.lat}, Zoom: p.zoom}, true
}

// Default is the whole-country view used before anything is selected.
func Default() View {
	v, _ := Lookup(DefaultName)
	return v
}

// Abbreviation returns the postal abbreviation for a state name.
func Abbreviation(name string) (string, bool) {
	abbr, ok := abbreviations[name]
	return abbr, ok
}

// Members returns the state abbreviations a region covers: the member set of a composite,
// or the single abbreviation of a state. Unknown names report false.
func Members(name string) ([]string, bool) {
	if members, ok := composites[name]; ok {
		return append([]string(nil), members...), true
	}
	if abbr, ok := abbreviations[name]; ok {
		return []string{abbr}, true
	}
	return nil, false
}

// Names lists the dropdown entries: the default first, then alphabetical.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		if name == DefaultName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{DefaultName}, names...)
}

// All returns every preset in dropdown order.
func All() []View {
	names := Names()
	views := make([]View, 0, len(names))
	for _, name := range names {
		v, _ := Lookup(name)
		views = append(views, v)
	}
	return views
}
