package mapview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

// PopupData is everything shown in a spot's map popup.
type PopupData struct {
	Name      string
	Latitude  float64
	Longitude float64
	FishTypes []string
	ImageURL  string
	Weather   string
	Water     string
}

// NavigationURL opens turn-by-turn navigation in the Maps app on Android.
func NavigationURL(lat, lon float64) templ.SafeURL {
	return templ.SafeURL("google.navigation:q=" + coord(lat) + "," + coord(lon))
}

// DirectionsURL is the web fallback for devices without the navigation intent.
func DirectionsURL(lat, lon float64) templ.SafeURL {
	return templ.URL("https://www.google.com/maps/dir/?api=1&destination=" + coord(lat) + "," + coord(lon))
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Popup renders the marker popup. All user-supplied text is escaped.
func Popup(p PopupData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="spot-popup" style="width:220px;font-family:sans-serif;">`)
		if p.ImageURL != "" {
			fmt.Fprintf(&b, `<img src="%s" alt="%s" style="width:100%%;border-radius:8px;margin-bottom:5px;">`,
				templ.EscapeString(string(templ.URL(p.ImageURL))), templ.EscapeString(p.Name))
		}
		fmt.Fprintf(&b, `<h4 style="margin:0;">%s</h4><hr style="margin:5px 0;">`, templ.EscapeString(p.Name))
		fmt.Fprintf(&b, `<b>Fish:</b> %s<br>`, templ.EscapeString(strings.Join(p.FishTypes, ", ")))
		fmt.Fprintf(&b, `<b>Weather:</b> %s<br>`, templ.EscapeString(p.Weather))
		fmt.Fprintf(&b, `<b>Water:</b> %s<br>`, templ.EscapeString(p.Water))
		fmt.Fprintf(&b, `<a class="spot-nav" href="%s" target="_blank" rel="noopener">Navigate</a> `,
			templ.EscapeString(string(NavigationURL(p.Latitude, p.Longitude))))
		fmt.Fprintf(&b, `<a class="spot-directions" href="%s" target="_blank" rel="noopener">Directions</a>`,
			templ.EscapeString(string(DirectionsURL(p.Latitude, p.Longitude))))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PopupFor builds the popup data of a spot from its enrichment.
func PopupFor(spot models.Spot, rec models.EnrichmentRecord) PopupData {
	p := PopupData{
		Name:      spot.Name,
		Latitude:  spot.Coordinates.Latitude,
		Longitude: spot.Coordinates.Longitude,
		FishTypes: spot.FishTypes,
		Weather:   rec.Weather.Current,
		Water:     rec.Water.Level,
	}
	if len(spot.ImageURLs) > 0 {
		p.ImageURL = spot.ImageURLs[0]
	}
	return p
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
