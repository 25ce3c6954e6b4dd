package viewstate

import "github.com/FACorreiaa/go-fishspots/internal/app/models"

const (
	MinZoom = 1
	MaxZoom = 20
)

// Event is an input to the view-state reducer.
type Event interface {
	event()
}

// Render is an ordinary re-render of the map surface.
type Render struct {
	Sample *models.LocationSample
}

// Recenter is the explicit "go to my location" action.
type Recenter struct {
	Sample *models.LocationSample
}

// CameraMoved is pan/zoom feedback from the map widget.
type CameraMoved struct {
	Center models.Coordinates
	Zoom   int
}

// Unrelated covers re-renders triggered by other widgets (form input, filters).
type Unrelated struct {
	Reason string
}

func (Render) event()      {}
func (Recenter) event()    {}
func (CameraMoved) event() {}
func (Unrelated) event()   {}

// Stabilizer keeps the map camera where the user left it. Once initialized, only
// camera feedback or an explicit recenter moves it.
type Stabilizer struct {
	DefaultCenter models.Coordinates
	DefaultZoom   int
	RecenterZoom  int
}

func NewStabilizer(center models.Coordinates, zoom, recenterZoom int) *Stabilizer {
	return &Stabilizer{
		DefaultCenter: center,
		DefaultZoom:   clampZoom(zoom),
		RecenterZoom:  clampZoom(recenterZoom),
	}
}

// Next is a pure function of the previous state and the event.
func (s *Stabilizer) Next(prev models.ViewState, ev Event) models.ViewState {
	switch e := ev.(type) {
	case Render:
		if prev.Initialized {
			return prev
		}
		return s.initial(e.Sample)

	case Recenter:
		if e.Sample == nil || !e.Sample.Coordinates().Valid() {
			if prev.Initialized {
				return prev
			}
			return s.initial(nil)
		}
		pos := e.Sample.Coordinates()
		return models.ViewState{
			Initialized:  true,
			Center:       pos,
			Zoom:         s.RecenterZoom,
			UserPosition: &pos,
		}

	case CameraMoved:
		next := prev
		if !next.Initialized {
			next = s.initial(nil)
		}
		if e.Center.Valid() {
			next.Center = e.Center
		}
		next.Zoom = clampZoom(e.Zoom)
		return next

	default:
		return prev
	}
}

func (s *Stabilizer) initial(sample *models.LocationSample) models.ViewState {
	vs := models.ViewState{Initialized: true, Center: s.DefaultCenter, Zoom: s.DefaultZoom}
	if sample != nil && sample.Coordinates().Valid() {
		pos := sample.Coordinates()
		vs.Center = pos
		vs.UserPosition = &pos
	}
	return vs
}

func clampZoom(z int) int {
	switch {
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}
