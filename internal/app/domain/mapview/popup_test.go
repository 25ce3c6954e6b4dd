package mapview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

func TestPopup(t *testing.T) {
	tests := []struct {
		name        string
		data        PopupData
		contains    []string
		notContains []string
	}{
		{
			name: "full popup",
			data: PopupData{
				Name: "Bang Pu", Latitude: 13.5, Longitude: 100.6,
				FishTypes: []string{"Catfish", "Tilapia"},
				ImageURL:  "https://img/a.jpg",
				Weather:   "31.2°C, light rain", Water: "52.3%",
			},
			contains: []string{
				`<img src="https://img/a.jpg"`,
				"<h4 style=\"margin:0;\">Bang Pu</h4>",
				"Catfish, Tilapia",
				"31.2°C, light rain",
				"52.3%",
				`href="google.navigation:q=13.5,100.6"`,
				`https://www.google.com/maps/dir/?api=1&amp;destination=13.5,100.6`,
			},
		},
		{
			name:        "no image",
			data:        PopupData{Name: "Canal", Weather: models.SentinelUnavailable, Water: models.SentinelNoData},
			contains:    []string{"unavailable", "no data"},
			notContains: []string{"<img"},
		},
		{
			name:        "user text is escaped",
			data:        PopupData{Name: `<script>alert(1)</script>`, FishTypes: []string{`"><b>`}},
			contains:    []string{"&lt;script&gt;alert(1)&lt;/script&gt;", "&#34;&gt;&lt;b&gt;"},
			notContains: []string{"<script>"},
		},
		{
			name:        "javascript image url is neutralized",
			data:        PopupData{Name: "x", ImageURL: "javascript:alert(1)"},
			notContains: []string{"javascript:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := renderHTML(context.Background(), Popup(tt.data))
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, html, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, html, unwanted)
			}
		})
	}
}

func TestPopupFor_UsesFirstImage(t *testing.T) {
	spot := models.Spot{Name: "Bang Pu", ImageURLs: []string{"https://img/1.jpg", "https://img/2.jpg"}}
	p := PopupFor(spot, models.EnrichmentRecord{})
	assert.Equal(t, "https://img/1.jpg", p.ImageURL)
}
