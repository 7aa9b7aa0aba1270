package coord

import "math"

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Point

	empty bool
}

// NewBox returns an empty box; the first call to Expand seeds Min/Max.
func NewBox() Box {
	return Box{empty: true}
}

// Expand grows the box, if needed, to contain p.
func (b Box) Expand(p Point) Box {
	if b.empty {
		return Box{Min: p, Max: p}
	}
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
	return b
}

// Empty reports whether the box has never been expanded.
func (b Box) Empty() bool { return b.empty }
