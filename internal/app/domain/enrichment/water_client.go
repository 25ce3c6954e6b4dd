package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

const defaultWaterBaseURL = "https://api-v3.thaiwater.net/api/v1/thaiwater30"

type damDailyResponse struct {
	Data struct {
		Dam []struct {
			DamName struct {
				TH string `json:"th"`
			} `json:"dam_name"`
			// The API sends the percentage as either a number or a string.
			StoragePercent json.RawMessage `json:"dam_storage_percent"`
		} `json:"dam"`
	} `json:"data"`
}

// WaterClient reads daily reservoir storage levels.
type WaterClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewWaterClient(baseURL string, timeout time.Duration) *WaterClient {
	if baseURL == "" {
		baseURL = defaultWaterBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WaterClient{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// Dams returns every reservoir reading in upstream order.
func (c *WaterClient) Dams(ctx context.Context) ([]models.DamReading, error) {
	var resp damDailyResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/get_dam_daily", &resp); err != nil {
		return nil, err
	}
	dams := make([]models.DamReading, 0, len(resp.Data.Dam))
	for _, d := range resp.Data.Dam {
		dams = append(dams, models.DamReading{
			Name:           d.DamName.TH,
			StoragePercent: percentString(d.StoragePercent),
		})
	}
	return dams, nil
}

func percentString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
