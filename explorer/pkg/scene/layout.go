package scene

import (
	"errors"
	"fmt"
	"math"
)

type Layout string

const (
	LayoutGrid   Layout = "grid"
	LayoutSpiral Layout = "spiral"
)

const gridSpacing = 1.05

var ErrUnknownLayout = errors.New("unknown layout")

func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case LayoutGrid, LayoutSpiral:
		return Layout(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayout, s)
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// Positions places n points for a layout.
func Positions(layout Layout, n int) []Vec3 {
	if layout == LayoutSpiral {
		return spiral(n)
	}
	return grid(n)
}

// grid centers a square grid on the origin.
func grid(n int) []Vec3 {
	out := make([]Vec3, n)
	if n == 0 {
		return out
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := cols
	for i := range out {
		col := float64(i%cols) - float64(cols)/2
		row := float64(i/cols) - float64(rows)/2
		out[i] = Vec3{X: col * gridSpacing, Y: row * gridSpacing}
	}
	return out
}

// spiral places points at roughly equal spacing along an outward spiral.
func spiral(n int) []Vec3 {
	out := make([]Vec3, n)
	theta := 0.0
	for i := range out {
		radius := math.Max(1, math.Sqrt(float64(i+1))*0.8)
		theta += math.Asin(1 / radius)
		out[i] = Vec3{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)}
	}
	return out
}
