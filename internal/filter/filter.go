// Package filter narrows the catalog to what the dropdown and search box ask for.
//
// Search text and the region dropdown are exclusive modes: while search text is present the
// region is ignored. Apply never mutates its input and keeps catalog order.
package filter

import (
	"strings"

	"programfinder/internal/programs/types"
	"programfinder/internal/regions"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// Mode names the branch Apply took.
type Mode string

const (
	ModeAll    Mode = "all"
	ModeRegion Mode = "region"
	ModeSearch Mode = "search"
	ModeNone   Mode = "none" // unknown region
)

// ModeFor reports which branch Apply will take for the inputs.
func ModeFor(region, text string) Mode {
	if strings.TrimSpace(text) != "" {
		return ModeSearch
	}
	if region == "" || region == regions.DefaultName {
		return ModeAll
	}
	if _, ok := regions.Members(region); ok {
		return ModeRegion
	}
	return ModeNone
}

// Apply returns the records matching the region or search text.
func Apply(records []types.ProgramRecord, region, text string) []types.ProgramRecord {
	switch ModeFor(region, text) {
	case ModeSearch:
		return bySearch(records, strings.TrimSpace(text))
	case ModeAll:
		return append([]types.ProgramRecord{}, records...)
	case ModeRegion:
		members, _ := regions.Members(region)
		return byStates(records, members)
	default:
		return []types.ProgramRecord{}
	}
}

func byStates(records []types.ProgramRecord, states []string) []types.ProgramRecord {
	return lo.Filter(records, func(p types.ProgramRecord, _ int) bool {
		state := strings.TrimSpace(p.State)
		return lo.ContainsBy(states, func(s string) bool { return strings.EqualFold(s, state) })
	})
}

func bySearch(records []types.ProgramRecord, text string) []types.ProgramRecord {
	fold := cases.Fold()
	needle := fold.String(text)
	return lo.Filter(records, func(p types.ProgramRecord, _ int) bool {
		return strings.Contains(fold.String(p.Address), needle) ||
			strings.Contains(fold.String(p.Address2), needle)
	})
}
