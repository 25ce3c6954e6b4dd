package models

import (
	"time"

	"github.com/google/uuid"
)

// Spot is a user-reported fishing location.
type Spot struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Coordinates Coordinates `json:"coordinates"`
	FishTypes   []string    `json:"fish_types" db:"fish_type"`
	Description string      `json:"description" db:"description"`
	ImageURLs   []string    `json:"image_urls" db:"image_url"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// NewSpotReport is a spot as submitted by the add-spot form, before any merge.
type NewSpotReport struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
	FishTypes   string      `json:"fish_types"` // comma separated, as typed
	Description string      `json:"description"`
	ImageURLs   []string    `json:"image_urls"`
}

type MergeAction string

const (
	MergeInsert MergeAction = "insert"
	MergeUpdate MergeAction = "update"
)

// MergeMatch records why a report was attached to an existing spot.
type MergeMatch string

const (
	MatchNone      MergeMatch = ""
	MatchName      MergeMatch = "name"
	MatchProximity MergeMatch = "proximity"
)

// MergeDecision is the outcome of resolving a report against the stored spots.
// For MergeUpdate, Spot is the full merged record carrying the existing ID.
// For MergeInsert, Spot has no ID yet.
type MergeDecision struct {
	Action   MergeAction `json:"action"`
	Match    MergeMatch  `json:"match,omitempty"`
	Distance float64     `json:"distance_meters,omitempty"`
	Spot     Spot        `json:"spot"`
}

// UploadResult is the per-file outcome of the image pipeline.
type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReportResult is returned to the client after a spot report is saved.
type ReportResult struct {
	Action  MergeAction    `json:"action"`
	Match   MergeMatch     `json:"match,omitempty"`
	Spot    Spot           `json:"spot"`
	Uploads []UploadResult `json:"uploads"`
}
