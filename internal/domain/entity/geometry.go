package entity

import (
	"fmt"
	"math"
)

// BoundingBox is an axis-aligned box in image-pixel space. The zero value is
// not a valid box; build one with NewBoundingBox.
type BoundingBox struct {
	x1, y1, x2, y2 float64
}

func NewBoundingBox(x1, y1, x2, y2 float64) (BoundingBox, error) {
	for _, v := range []float64{x1, y1, x2, y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("bounding box coordinate is not finite: (%v,%v,%v,%v)", x1, y1, x2, y2)
		}
	}
	if x1 >= x2 || y1 >= y2 {
		return BoundingBox{}, fmt.Errorf("bounding box requires x1<x2 and y1<y2: (%v,%v,%v,%v)", x1, y1, x2, y2)
	}
	return BoundingBox{x1: x1, y1: y1, x2: x2, y2: y2}, nil
}

// MustBoundingBox panics on invalid coordinates. Intended for literals.
func MustBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	b, err := NewBoundingBox(x1, y1, x2, y2)
	if err != nil {
		panic(err)
	}
	return b
}

func (b BoundingBox) X1() float64 { return b.x1 }
func (b BoundingBox) Y1() float64 { return b.y1 }
func (b BoundingBox) X2() float64 { return b.x2 }
func (b BoundingBox) Y2() float64 { return b.y2 }

func (b BoundingBox) Width() float64  { return b.x2 - b.x1 }
func (b BoundingBox) Height() float64 { return b.y2 - b.y1 }
func (b BoundingBox) Area() float64   { return b.Width() * b.Height() }

func (b BoundingBox) IsZero() bool { return b == BoundingBox{} }

// Center returns the point an automation backend should target.
func (b BoundingBox) Center() (float64, float64) {
	return (b.x1 + b.x2) / 2, (b.y1 + b.y2) / 2
}

// Union returns the smallest box covering both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		x1: math.Min(b.x1, o.x1),
		y1: math.Min(b.y1, o.y1),
		x2: math.Max(b.x2, o.x2),
		y2: math.Max(b.y2, o.y2),
	}
}

// Scale multiplies every coordinate by f. f must be positive.
func (b BoundingBox) Scale(f float64) BoundingBox {
	return BoundingBox{x1: b.x1 * f, y1: b.y1 * f, x2: b.x2 * f, y2: b.y2 * f}
}

// Clip intersects b with the rectangle [0,w]x[0,h]. It fails when nothing
// of b is left inside.
func (b BoundingBox) Clip(w, h float64) (BoundingBox, error) {
	return NewBoundingBox(math.Max(b.x1, 0), math.Max(b.y1, 0), math.Min(b.x2, w), math.Min(b.y2, h))
}

// IoU is the intersection-over-union of two boxes, in [0,1].
func (b BoundingBox) IoU(o BoundingBox) float64 {
	ix := math.Min(b.x2, o.x2) - math.Max(b.x1, o.x1)
	iy := math.Min(b.y2, o.y2) - math.Max(b.y1, o.y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.1f,%.1f,%.1f,%.1f]", b.x1, b.y1, b.x2, b.y2)
}

// MarshalJSON encodes the box as [x1,y1,x2,y2].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("[%g,%g,%g,%g]", b.x1, b.y1, b.x2, b.y2)), nil
}

// MarshalYAML encodes the box as a flow sequence.
func (b BoundingBox) MarshalYAML() (any, error) {
	return []float64{b.x1, b.y1, b.x2, b.y2}, nil
}

// ClampConfidence maps any reported score into [0,1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
