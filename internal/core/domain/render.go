package domain

import "encoding/json"

// RenderOp identifies one instruction for the browser-side map renderer.
type RenderOp string

const (
	OpMount        RenderOp = "mount"
	OpUnmount      RenderOp = "unmount"
	OpAddSource    RenderOp = "add_source"
	OpSetData      RenderOp = "set_data"
	OpAddLayer     RenderOp = "add_layer"
	OpRemoveLayer  RenderOp = "remove_layer"
	OpRemoveSource RenderOp = "remove_source"
	OpAddMarker    RenderOp = "add_marker"
	OpRemoveMarker RenderOp = "remove_marker"
	OpFitBounds    RenderOp = "fit_bounds"
	OpFlyTo        RenderOp = "fly_to"
	OpShowPopup    RenderOp = "show_popup"
	OpSetCursor    RenderOp = "set_cursor"
)

// LayerTier is one paint layer drawn from a shared source.
type LayerTier struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"` // line | circle
	Paint       map[string]any `json:"paint,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Interactive bool           `json:"interactive"`
}

// LayerStyle is the paint definition of a named layer. Tiers are drawn bottom-up.
type LayerStyle struct {
	Tiers []LayerTier `json:"tiers"`
}

// MarkerStyle describes a point marker.
type MarkerStyle struct {
	Kind  string `json:"kind"`
	Color string `json:"color"`
	Popup string `json:"popup,omitempty"`
}

// RenderCommand is the wire form of a single surface mutation.
type RenderCommand struct {
	Op       RenderOp        `json:"op"`
	Surface  string          `json:"surface"`
	Source   string          `json:"source,omitempty"`
	Layer    *LayerTier      `json:"layer,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Marker   string          `json:"marker,omitempty"`
	Style    *MarkerStyle    `json:"style,omitempty"`
	Position *GeoPoint       `json:"position,omitempty"`
	Bounds   *Bounds         `json:"bounds,omitempty"`
	Padding  int             `json:"padding,omitempty"`
	Zoom     float64         `json:"zoom,omitempty"`
	Text     string          `json:"text,omitempty"`
	Cursor   string          `json:"cursor,omitempty"`
}

// Interaction event types reported by the renderer.
const (
	EventReady       = "ready"
	EventClick       = "click"
	EventMouseEnter  = "mouseenter"
	EventMouseLeave  = "mouseleave"
	EventMarkerClick = "marker_click"
)

// InteractionEvent is a user interaction or lifecycle signal from the renderer.
type InteractionEvent struct {
	Type       string         `json:"type"`
	Layer      string         `json:"layer,omitempty"`
	Marker     string         `json:"marker,omitempty"`
	Position   *GeoPoint      `json:"position,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}
