package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// CurrentWeather is the subset of the current-conditions response we display.
type CurrentWeather struct {
	Temp        float64
	Description string
}

type owmCondition struct {
	Description string `json:"description"`
}

type owmMain struct {
	Temp *float64 `json:"temp"`
}

type owmCurrentResponse struct {
	Main    owmMain        `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastResponse struct {
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

// WeatherClient talks to an OpenWeatherMap compatible API.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	lang       string
}

func NewWeatherClient(baseURL, apiKey, lang string, timeout time.Duration) *WeatherClient {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WeatherClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		lang:       lang,
	}
}

// Current fetches the present conditions at lat/lon.
func (c *WeatherClient) Current(ctx context.Context, lat, lon float64) (CurrentWeather, error) {
	var resp owmCurrentResponse
	if err := c.get(ctx, "/weather", lat, lon, &resp); err != nil {
		return CurrentWeather{}, err
	}
	if resp.Main.Temp == nil {
		return CurrentWeather{}, fmt.Errorf("%w: weather response has no temperature", models.ErrUnavailable)
	}
	cw := CurrentWeather{Temp: *resp.Main.Temp}
	if len(resp.Weather) > 0 {
		cw.Description = resp.Weather[0].Description
	}
	return cw, nil
}

// Forecast returns the raw 3-hourly forecast list in upstream order.
func (c *WeatherClient) Forecast(ctx context.Context, lat, lon float64) ([]models.ForecastEntry, error) {
	var resp owmForecastResponse
	if err := c.get(ctx, "/forecast", lat, lon, &resp); err != nil {
		return nil, err
	}
	entries := make([]models.ForecastEntry, 0, len(resp.List))
	for _, item := range resp.List {
		e := models.ForecastEntry{Date: time.Unix(item.Dt, 0).UTC()}
		if item.Main.Temp != nil {
			e.Temp = *item.Main.Temp
		}
		if len(item.Weather) > 0 {
			e.Description = item.Weather[0].Description
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *WeatherClient) get(ctx context.Context, path string, lat, lon float64, dest any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: weather api key not configured", models.ErrUnavailable)
	}
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	if c.lang != "" {
		params.Set("lang", c.lang)
	}
	return getJSON(ctx, c.httpClient, c.baseURL+path+"?"+params.Encode(), dest)
}

// getJSON performs a GET and decodes the body. Every failure is reported as ErrUnavailable.
func getJSON(ctx context.Context, client *http.Client, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", models.ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fishspots/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to fetch %s: %v", models.ErrUnavailable, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned status %d: %s", models.ErrUnavailable, req.URL.Path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", models.ErrUnavailable, req.URL.Path, err)
	}
	return nil
}
