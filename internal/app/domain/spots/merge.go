package spots

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
	"github.com/FACorreiaa/go-fishspots/internal/pkg/geo"
)

const (
	// MergeRadiusMeters is the inclusive proximity radius for treating two reports as one place.
	MergeRadiusMeters = 100.0

	descriptionSeparator = "\n--------------------\n"
	descriptionTimestamp = "02/01/2006 15:04"
)

// Resolver decides whether a report updates an existing spot or creates a new one.
// It never writes; the caller applies the returned decision.
type Resolver struct {
	RadiusMeters float64
	Location     *time.Location
}

func NewResolver(location *time.Location) *Resolver {
	if location == nil {
		location = time.Local
	}
	return &Resolver{RadiusMeters: MergeRadiusMeters, Location: location}
}

// Resolve matches candidate against the snapshot existing. An exact name match wins
// outright; otherwise the nearest spot within the radius (inclusive) is chosen.
func (r *Resolver) Resolve(candidate models.NewSpotReport, existing []models.Spot, now time.Time) models.MergeDecision {
	match, how, distance := r.findMatch(candidate, existing)
	if match == nil {
		return models.MergeDecision{
			Action: models.MergeInsert,
			Spot: models.Spot{
				Name:        candidate.Name,
				Coordinates: candidate.Coordinates,
				FishTypes:   uniqueInOrder(SplitFishTypes(candidate.FishTypes)),
				Description: candidate.Description,
				ImageURLs:   uniqueInOrder(candidate.ImageURLs),
			},
		}
	}

	merged := *match
	merged.FishTypes = unionSorted(match.FishTypes, SplitFishTypes(candidate.FishTypes))
	merged.ImageURLs = uniqueInOrder(append(append([]string{}, match.ImageURLs...), candidate.ImageURLs...))
	merged.Description = appendDescription(match.Description, candidate.Description, now.In(r.Location))

	return models.MergeDecision{
		Action:   models.MergeUpdate,
		Match:    how,
		Distance: distance,
		Spot:     merged,
	}
}

func (r *Resolver) findMatch(candidate models.NewSpotReport, existing []models.Spot) (*models.Spot, models.MergeMatch, float64) {
	for i := range existing {
		if existing[i].Name == candidate.Name {
			return &existing[i], models.MatchName, geo.HaversineMeters(candidate.Coordinates, existing[i].Coordinates)
		}
	}

	var nearest *models.Spot
	best := 0.0
	for i := range existing {
		d := geo.HaversineMeters(candidate.Coordinates, existing[i].Coordinates)
		if d <= r.RadiusMeters && (nearest == nil || d < best) {
			nearest, best = &existing[i], d
		}
	}
	if nearest == nil {
		return nil, models.MatchNone, 0
	}
	return nearest, models.MatchProximity, best
}

// SplitFishTypes splits a comma separated species string, trimming whitespace and
// dropping empty entries.
func SplitFishTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList is the display and storage form of fish types and image URLs.
func JoinList(items []string, sep string) string {
	return strings.Join(items, sep)
}

func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func uniqueInOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func appendDescription(existing, addition string, at time.Time) string {
	if addition == "" || strings.Contains(existing, addition) {
		return existing
	}
	entry := fmt.Sprintf("[%s] %s", at.Format(descriptionTimestamp), addition)
	if existing == "" {
		return entry
	}
	return existing + descriptionSeparator + entry
}
