package dem

import (
	"math"
	"testing"

	"github.com/arsf-go/hyperspec/rotation"
)

func TestTriangularFacetIntersectInsideHits(t *testing.T) {
	p1 := rotation.Vector3{X: 0, Y: 0, Z: 0}
	p2 := rotation.Vector3{X: 1, Y: 0, Z: 0}
	p3 := rotation.Vector3{X: 0, Y: 1, Z: 0}
	f := NewTriangularFacet(p1, p2, p3)

	v1 := rotation.Vector3{X: 0.2, Y: 0.2, Z: 1}
	v2 := rotation.Vector3{X: 0.2, Y: 0.2, Z: -1}
	point, hit := f.Intersect(v1, v2)
	if !hit {
		t.Fatalf("expected the vertical line through (0.2,0.2) to hit the facet")
	}
	if math.Abs(point.X-0.2) > 1e-9 || math.Abs(point.Y-0.2) > 1e-9 || math.Abs(point.Z) > 1e-9 {
		t.Fatalf("unexpected intersection point: %+v", point)
	}
}

func TestTriangularFacetIntersectOutsideMisses(t *testing.T) {
	p1 := rotation.Vector3{X: 0, Y: 0, Z: 0}
	p2 := rotation.Vector3{X: 1, Y: 0, Z: 0}
	p3 := rotation.Vector3{X: 0, Y: 1, Z: 0}
	f := NewTriangularFacet(p1, p2, p3)

	v1 := rotation.Vector3{X: 5, Y: 5, Z: 1}
	v2 := rotation.Vector3{X: 5, Y: 5, Z: -1}
	_, hit := f.Intersect(v1, v2)
	if hit {
		t.Fatalf("a line well outside the triangle's footprint should not hit")
	}
}

func TestTriangularFacetIntersectParallelMisses(t *testing.T) {
	p1 := rotation.Vector3{X: 0, Y: 0, Z: 0}
	p2 := rotation.Vector3{X: 1, Y: 0, Z: 0}
	p3 := rotation.Vector3{X: 0, Y: 1, Z: 0}
	f := NewTriangularFacet(p1, p2, p3)

	v1 := rotation.Vector3{X: 0.2, Y: 0.2, Z: 1}
	v2 := rotation.Vector3{X: 0.3, Y: 0.3, Z: 1}
	if _, hit := f.Intersect(v1, v2); hit {
		t.Fatalf("a line parallel to the facet's plane should never hit")
	}
}

func TestCalculateSlopeFlat(t *testing.T) {
	p1 := rotation.Vector3{X: 0, Y: 0, Z: 0}
	p2 := rotation.Vector3{X: 1, Y: 0, Z: 0}
	p3 := rotation.Vector3{X: 0, Y: 1, Z: 0}
	s := NewPlanarSurface(p1, p2, p3)
	s.AssignLocalUp(rotation.Vector3{X: 0, Y: 0, Z: 1})
	if slope := s.CalculateSlope(); math.Abs(slope) > 1e-9 {
		t.Fatalf("a plane in the XY-plane with up=Z should have zero slope, got %v", slope)
	}
}

func TestAssignLocalUpFlipsDownwardNormal(t *testing.T) {
	// winding order gives a normal pointing -Z; AssignLocalUp with
	// up=+Z must flip it so slope still reads as flat, not vertical.
	p1 := rotation.Vector3{X: 0, Y: 0, Z: 0}
	p2 := rotation.Vector3{X: 0, Y: 1, Z: 0}
	p3 := rotation.Vector3{X: 1, Y: 0, Z: 0}
	s := NewPlanarSurface(p1, p2, p3)
	s.AssignLocalUp(rotation.Vector3{X: 0, Y: 0, Z: 1})
	if slope := s.CalculateSlope(); math.Abs(slope) > 1e-9 {
		t.Fatalf("AssignLocalUp should have flipped the normal to face up, slope=%v", slope)
	}
}
