package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wxcache/weather-service/internal/weather"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider fetches current weather from the OpenWeatherMap API.
// Units are fixed to metric.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker

	now func() time.Time
}

// NewOpenWeatherProvider creates a provider client. baseURL may be empty to
// use the public OpenWeatherMap endpoint.
func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
		now:     time.Now,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch retrieves the current reading for city. The returned Reading's
// Timestamp is the parse time on our side, not the provider's own reading
// time, so the freshness window is measured against our clock.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstream)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return weather.Reading{}, &weather.NotFoundError{City: city}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return weather.Reading{}, fmt.Errorf("%w: unexpected status %d", weather.ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Name string `json:"name"`
		Sys  *struct {
			Country string `json:"country"`
			Sunrise int64  `json:"sunrise"`
			Sunset  int64  `json:"sunset"`
		} `json:"sys"`
		Main *struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   int     `json:"deg"`
		} `json:"wind"`
		Visibility int `json:"visibility"`
		Clouds     struct {
			All int `json:"all"`
		} `json:"clouds"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	if payload.Name == "" || payload.Sys == nil || payload.Main == nil || len(payload.Weather) == 0 {
		return weather.Reading{}, fmt.Errorf("%w: missing required fields", weather.ErrMalformedResponse)
	}

	r := weather.Reading{
		City:          payload.Name,
		Country:       payload.Sys.Country,
		Temperature:   payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		Description:   payload.Weather[0].Description,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Visibility:    payload.Visibility,
		Clouds:        payload.Clouds.All,
		Timestamp:     p.now().UTC(),
	}

	// Sunrise/sunset are optional in the payload; keep them absent rather
	// than zero-valued when the provider omits them.
	if payload.Sys.Sunrise > 0 {
		sunrise := time.Unix(payload.Sys.Sunrise, 0).UTC()
		r.Sunrise = &sunrise
	}
	if payload.Sys.Sunset > 0 {
		sunset := time.Unix(payload.Sys.Sunset, 0).UTC()
		r.Sunset = &sunset
	}

	return r, nil
}

// Close releases idle connections held by the underlying HTTP client.
// Safe to call more than once.
func (p *OpenWeatherProvider) Close() error {
	if p.httpCfg.Client != nil {
		p.httpCfg.Client.CloseIdleConnections()
	}
	return nil
}
