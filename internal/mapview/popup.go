package mapview

import (
	"net/url"
	"strings"

	"programfinder/internal/programs/types"
)

// Org supplies the contact placeholders shown in every popup.
type Org struct {
	Name    string
	Phone   string
	Website string
}

type Popup struct {
	Title      string `json:"title"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Directions string `json:"directions"`
	Offset     int    `json:"offset"`
}

func NewPopup(org Org, r types.ProgramRecord) Popup {
	return Popup{
		Title:      strings.TrimSpace(org.Name + " " + r.Region),
		Address:    r.DisplayAddress(),
		Phone:      org.Phone,
		Website:    org.Website,
		Directions: DirectionsURL(r),
		Offset:     PopupOffset,
	}
}

// DirectionsURL links to Google Maps directions for the record's full address.
func DirectionsURL(r types.ProgramRecord) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" + encodeComponent(r.FullAddress())
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
