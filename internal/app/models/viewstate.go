package models

// ViewState is the per-session map camera kept stable across renders.
type ViewState struct {
	Initialized  bool         `json:"initialized"`
	Center       Coordinates  `json:"center"`
	Zoom         int          `json:"zoom"`
	UserPosition *Coordinates `json:"user_position,omitempty"`
}

// CameraUpdate is the pan/zoom feedback sent by the map widget. Every field is
// required; a missing center must not bind to (0,0).
type CameraUpdate struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Zoom      int      `json:"zoom" binding:"required"`
}
