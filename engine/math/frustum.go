package math

func NewPlane(normal Vec3, constant float32) Plane {
	return Plane{Normal: normal, Constant: constant}
}

/**
 * @brief Creates a plane from the coefficients a*x + b*y + c*z + d = 0 and normalizes it.
 */
func NewPlaneFromComponents(a, b, c, d float32) Plane {
	return Plane{Normal: Vec3{a, b, c}, Constant: d}.Normalized()
}

func (p Plane) Normalized() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	inv := 1.0 / l
	return Plane{Normal: p.Normal.MulScalar(inv), Constant: p.Constant * inv}
}

/** @brief Signed distance from the plane, positive on the normal side. */
func (p Plane) DistanceToPoint(point Vec3) float32 {
	return p.Normal.Dot(point) + p.Constant
}

/**
 * @brief Extracts the six clip planes from a combined projection * view matrix.
 * Plane normals point into the volume.
 */
func NewFrustumFromMatrix(projView Mat4) Frustum {
	me := &projView.Data
	var f Frustum
	f.Planes[FrustumRight] = NewPlaneFromComponents(me[3]-me[0], me[7]-me[4], me[11]-me[8], me[15]-me[12])
	f.Planes[FrustumLeft] = NewPlaneFromComponents(me[3]+me[0], me[7]+me[4], me[11]+me[8], me[15]+me[12])
	f.Planes[FrustumBottom] = NewPlaneFromComponents(me[3]+me[1], me[7]+me[5], me[11]+me[9], me[15]+me[13])
	f.Planes[FrustumTop] = NewPlaneFromComponents(me[3]-me[1], me[7]-me[5], me[11]-me[9], me[15]-me[13])
	f.Planes[FrustumFar] = NewPlaneFromComponents(me[3]-me[2], me[7]-me[6], me[11]-me[10], me[15]-me[14])
	f.Planes[FrustumNear] = NewPlaneFromComponents(me[3]+me[2], me[7]+me[6], me[11]+me[10], me[15]+me[14])
	return f
}

/**
 * @brief True when any part of the sphere lies inside the frustum. Conservative:
 * spheres near a corner may pass even though they are outside.
 */
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	if s.IsEmpty() {
		return false
	}
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

/**
 * @brief True when any part of the box lies inside the frustum, tested with the
 * vertex furthest along each plane normal.
 */
func (f *Frustum) IntersectsBox(box Extents3D) bool {
	if box.IsEmpty() {
		return false
	}
	for i := range f.Planes {
		p := &f.Planes[i]
		v := box.Min
		if p.Normal.X > 0 {
			v.X = box.Max.X
		}
		if p.Normal.Y > 0 {
			v.Y = box.Max.Y
		}
		if p.Normal.Z > 0 {
			v.Z = box.Max.Z
		}
		if p.DistanceToPoint(v) < 0 {
			return false
		}
	}
	return true
}

func (f *Frustum) ContainsPoint(point Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(point) < 0 {
			return false
		}
	}
	return true
}
