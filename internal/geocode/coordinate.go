package geocode

import (
	"encoding/json"
	"fmt"
)

// Coordinate is a WGS84 point. It marshals as a [lon, lat] pair, the order map libraries use.
type Coordinate struct {
	Lon float64
	Lat float64
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lon, c.Lat})
}

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("coordinate must be a [lon, lat] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must be a [lon, lat] pair, got %d values", len(pair))
	}
	c.Lon, c.Lat = pair[0], pair[1]
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lon, c.Lat)
}
