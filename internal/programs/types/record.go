package types

import (
	"strings"
)

// ProgramRecord is one chapter entry from the catalog. Field names follow the bundled JSON.
type ProgramRecord struct {
	Key                 string `json:"key,omitempty"`
	ProgramType         string `json:"programType"`
	Address             string `json:"address"`
	Address2            string `json:"address2"`
	City                string `json:"city"`
	State               string `json:"state"`
	Zip                 string `json:"zip"`
	AgeRange            string `json:"ageRange"`
	MeetingDay          string `json:"meetingDay"`
	MeetingTime         string `json:"meetingTime"`
	Region              string `json:"region"`
	RegistrationStatus  string `json:"registrationStatus"`
	AcceptingVolunteers string `json:"acceptingVolunteers"`
}

// FullAddress is the text handed to the geocoder and the directions link.
func (p ProgramRecord) FullAddress() string {
	return strings.Join(strings.Fields(strings.Join([]string{p.Address, p.Address2, p.City, p.State, p.Zip}, " ")), " ")
}

// DisplayAddress is the one line address shown in the list and popups.
func (p ProgramRecord) DisplayAddress() string {
	return strings.TrimSpace(p.Address + ", " + p.City + ", " + p.State + " " + p.Zip)
}
