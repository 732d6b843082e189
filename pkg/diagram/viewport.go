package diagram

import "math"

// Zoom limits for interactive viewports.
const (
	MinViewportZoom = 0.1
	MaxViewportZoom = 8.0
)

// Viewport is the pan/zoom state of an interactive view. It maps document
// coordinates to screen coordinates as screen = doc·Zoom + Offset. Viewports
// are values; every method returns a new one.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Zoom    float64 `json:"zoom"`
}

// IdentityViewport returns a viewport without pan or zoom.
func IdentityViewport() Viewport { return Viewport{Zoom: 1} }

// Normalized returns the viewport with a zero zoom replaced by 1 and the
// zoom clamped to the supported range.
func (v Viewport) Normalized() Viewport {
	if v.Zoom == 0 || math.IsNaN(v.Zoom) {
		v.Zoom = 1
	}
	v.Zoom = clamp(v.Zoom, MinViewportZoom, MaxViewportZoom)
	return v
}

// Pan returns the viewport shifted by (dx, dy) screen units.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v = v.Normalized()
	v.OffsetX += dx
	v.OffsetY += dy
	return v
}

// ZoomAt returns the viewport zoomed by factor around the screen point
// (px, py), which stays fixed on screen.
func (v Viewport) ZoomAt(factor, px, py float64) Viewport {
	v = v.Normalized()
	wx, wy := v.Invert(px, py)
	v.Zoom = clamp(v.Zoom*factor, MinViewportZoom, MaxViewportZoom)
	v.OffsetX = px - wx*v.Zoom
	v.OffsetY = py - wy*v.Zoom
	return v
}

// Apply maps a document point to screen coordinates.
func (v Viewport) Apply(x, y float64) (float64, float64) {
	v = v.Normalized()
	return x*v.Zoom + v.OffsetX, y*v.Zoom + v.OffsetY
}

// Invert maps a screen point back to document coordinates.
func (v Viewport) Invert(x, y float64) (float64, float64) {
	v = v.Normalized()
	return (x - v.OffsetX) / v.Zoom, (y - v.OffsetY) / v.Zoom
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
