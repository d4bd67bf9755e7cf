package scene

import "math"

// ClickThreshold is the largest pointer travel, in pixels, between down and
// click that still counts as a click rather than a drag.
const ClickThreshold = 5.0

// PointerTracker separates clicks from camera drags.
type PointerTracker struct {
	downX, downY float64
}

// Down records the pointer-down position.
func (p *PointerTracker) Down(x, y float64) {
	p.downX, p.downY = x, y
}

// Click reports whether a click at (x, y) is a real selection.
func (p *PointerTracker) Click(x, y float64) bool {
	return p.Distance(x, y) <= ClickThreshold
}

// Distance is the travel since the last pointer-down.
func (p *PointerTracker) Distance(x, y float64) float64 {
	return math.Hypot(p.downX-x, p.downY-y)
}
