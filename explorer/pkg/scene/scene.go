package scene

import (
	"math"
	"time"
)

// DefaultTransition is how long a layout change animates.
const DefaultTransition = time.Second

// MatrixSize is the number of floats per instance transform.
const MatrixSize = 16

// TransformBuffer holds one column-major 4x4 transform per point. Version
// increases on every push so renderers know to re-upload.
type TransformBuffer struct {
	Matrices []float32 `json:"matrices"`
	Version  uint64    `json:"version"`
}

// pointTilt stands the cylinder markers up toward the camera.
var (
	tiltCos = float32(math.Cos(0.5 * math.Pi))
	tiltSin = float32(math.Sin(0.5 * math.Pi))
)

// Push writes the transforms for positions.
func (b *TransformBuffer) Push(positions []Vec3) {
	n := len(positions) * MatrixSize
	if cap(b.Matrices) < n {
		b.Matrices = make([]float32, n)
	}
	b.Matrices = b.Matrices[:n]
	for i, p := range positions {
		m := b.Matrices[i*MatrixSize : (i+1)*MatrixSize]
		m[0], m[1], m[2], m[3] = 1, 0, 0, 0
		m[4], m[5], m[6], m[7] = 0, tiltCos, tiltSin, 0
		m[8], m[9], m[10], m[11] = 0, -tiltSin, tiltCos, 0
		m[12], m[13], m[14], m[15] = float32(p.X), float32(p.Y), float32(p.Z), 1
	}
	b.Version++
}

// Animator interpolates between two position sets.
type Animator struct {
	from, to []Vec3
	duration time.Duration
	elapsed  time.Duration
	active   bool
}

// Start begins a transition. Points without a previous position start at
// their target.
func (a *Animator) Start(from, to []Vec3, duration time.Duration) {
	src := make([]Vec3, len(to))
	for i := range to {
		if i < len(from) {
			src[i] = from[i]
		} else {
			src[i] = to[i]
		}
	}
	a.from, a.to = src, to
	a.duration = duration
	a.elapsed = 0
	a.active = duration > 0
}

func (a *Animator) Active() bool { return a.active }

// Progress is the eased completion in [0, 1].
func (a *Animator) Progress() float64 {
	if !a.active || a.duration <= 0 {
		return 1
	}
	return easeCubicInOut(math.Min(1, float64(a.elapsed)/float64(a.duration)))
}

// Step advances the transition and returns the interpolated positions.
func (a *Animator) Step(dt time.Duration) []Vec3 {
	if a.active {
		a.elapsed += dt
		if a.elapsed >= a.duration {
			a.active = false
		}
	}
	t := a.Progress()
	out := make([]Vec3, len(a.to))
	for i := range a.to {
		out[i] = lerp(a.from[i], a.to[i], t)
	}
	return out
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Frame is the scene as last pushed to its buffer.
type Frame struct {
	Layout    Layout  `json:"layout"`
	Animating bool    `json:"animating"`
	Progress  float64 `json:"progress"`
	Positions []Vec3  `json:"positions"`
	Version   uint64  `json:"version"`
}

// Scene owns point positions and pushes transforms when they change. It is
// driven by Tick once per rendered frame and is not safe for concurrent use.
type Scene struct {
	layout     Layout
	transition time.Duration
	positions  []Vec3
	animator   Animator
	buffer     TransformBuffer
	dirty      bool
}

func New(layout Layout, transition time.Duration) *Scene {
	if layout == "" {
		layout = LayoutGrid
	}
	if transition < 0 {
		transition = 0
	}
	return &Scene{layout: layout, transition: transition}
}

func (s *Scene) Layout() Layout { return s.layout }

// SetData lays out n points immediately.
func (s *Scene) SetData(n int) {
	s.positions = Positions(s.layout, n)
	s.animator = Animator{}
	s.dirty = true
}

// SetLayout starts an animated transition to a new layout. It reports false
// when the layout is unchanged.
func (s *Scene) SetLayout(layout Layout) bool {
	if layout == s.layout {
		return false
	}
	s.layout = layout
	target := Positions(layout, len(s.positions))
	s.animator.Start(s.positions, target, s.transition)
	if !s.animator.Active() {
		s.positions = target
	}
	s.dirty = true
	return true
}

func (s *Scene) Animating() bool { return s.animator.Active() }

// Tick advances one frame. Transforms are pushed on every frame of a
// transition and once after a data or layout change; it reports whether a
// push happened.
func (s *Scene) Tick(dt time.Duration) bool {
	if s.animator.Active() {
		s.positions = s.animator.Step(dt)
		s.buffer.Push(s.positions)
		s.dirty = false
		return true
	}
	if s.dirty {
		s.buffer.Push(s.positions)
		s.dirty = false
		return true
	}
	return false
}

// Buffer returns the transform buffer.
func (s *Scene) Buffer() *TransformBuffer { return &s.buffer }

// Frame snapshots the current positions.
func (s *Scene) Frame() Frame {
	pos := make([]Vec3, len(s.positions))
	copy(pos, s.positions)
	return Frame{
		Layout:    s.layout,
		Animating: s.animator.Active(),
		Progress:  s.animator.Progress(),
		Positions: pos,
		Version:   s.buffer.Version,
	}
}

// Position returns a point's current position.
func (s *Scene) Position(i int) (Vec3, bool) {
	if i < 0 || i >= len(s.positions) {
		return Vec3{}, false
	}
	return s.positions[i], true
}
