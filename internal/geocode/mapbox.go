package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const defaultMapboxBaseURL = "https://api.mapbox.com"

// MapboxClient calls the Mapbox v6 forward geocoding endpoint.
type MapboxClient struct {
	baseURL string
	token   string
	client  *retryablehttp.Client
}

var _ Resolver = (*MapboxClient)(nil)

func NewMapboxClient(baseURL, token string, maxRetries int, timeout time.Duration) *MapboxClient {
	if baseURL == "" {
		baseURL = defaultMapboxBaseURL
	}
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.HTTPClient.Timeout = timeout
	// request URLs carry the access token
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &MapboxClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

type forwardResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			FullAddress string `json:"full_address"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *MapboxClient) Resolve(ctx context.Context, text string) (Coordinate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Coordinate{}, ErrNotFound
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("access_token", c.token)
	endpoint := c.baseURL + "/search/geocode/v6/forward?" + params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("build forward geocode request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Coordinate{}, fmt.Errorf("forward geocode: %w", ctxErr)
		}
		return Coordinate{}, fmt.Errorf("forward geocode: %s", c.redact(err.Error()))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, 1<<20)); err != nil {
		return Coordinate{}, fmt.Errorf("read forward geocode response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body := strings.TrimSpace(buf.String())
		// mapbox errors are {"message": "..."}
		if msg := gjson.GetBytes(buf.Bytes(), "message"); msg.Type == gjson.String {
			body = msg.String()
		}
		slog.WarnContext(ctx, "received mapbox geocode response", "status", resp.StatusCode, "body", body)
		return Coordinate{}, &StatusError{
			Operation:  "forward geocode",
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var decoded forwardResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		return Coordinate{}, fmt.Errorf("decode forward geocode response: %w", err)
	}
	if len(decoded.Features) == 0 {
		return Coordinate{}, ErrNotFound
	}
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return Coordinate{}, ErrNotFound
	}
	return Coordinate{Lon: coords[0], Lat: coords[1]}, nil
}

func (c *MapboxClient) redact(s string) string {
	if c.token == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(c.token), "REDACTED")
	return strings.ReplaceAll(s, c.token, "REDACTED")
}

// IsNotFound reports whether err means "no such place" rather than a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
