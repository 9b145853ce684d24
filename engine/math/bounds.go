package math

func NewSphereEmpty() Sphere {
	return Sphere{Radius: -1}
}

func (s Sphere) IsEmpty() bool {
	return s.Radius < 0
}

/**
 * @brief Transforms the sphere by an affine matrix. The radius grows by the
 * largest axis scale so the result still encloses the source volume.
 */
func (s Sphere) ApplyMat4(mt Mat4) Sphere {
	if s.IsEmpty() {
		return s
	}
	return Sphere{
		Center: s.Center.Transform(mt),
		Radius: s.Radius * mt.MaxScaleOnAxis(),
	}
}

func (s Sphere) ContainsPoint(point Vec3) bool {
	return point.DistanceSquared(s.Center) <= s.Radius*s.Radius
}

func NewExtents3DEmpty() Extents3D {
	return Extents3D{
		Min: Vec3{K_INFINITY, K_INFINITY, K_INFINITY},
		Max: Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY},
	}
}

func (e Extents3D) IsEmpty() bool {
	return e.Max.X < e.Min.X || e.Max.Y < e.Min.Y || e.Max.Z < e.Min.Z
}

func (e Extents3D) ExpandByPoint(point Vec3) Extents3D {
	return Extents3D{Min: e.Min.Min(point), Max: e.Max.Max(point)}
}

func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

/**
 * @brief Builds the tightest box around a packed array of xyz triples.
 */
func NewExtents3DFromPoints(points []float32, itemSize int) Extents3D {
	box := NewExtents3DEmpty()
	if itemSize < 3 {
		return box
	}
	for i := 0; i+2 < len(points); i += itemSize {
		box = box.ExpandByPoint(Vec3{points[i], points[i+1], points[i+2]})
	}
	return box
}

/**
 * @brief Builds a sphere centered on the bounding box of the points with the
 * radius of the furthest point. Returns an empty sphere for no points.
 */
func NewSphereFromPoints(points []float32, itemSize int) Sphere {
	box := NewExtents3DFromPoints(points, itemSize)
	if box.IsEmpty() {
		return NewSphereEmpty()
	}
	center := box.Center()
	var maxDistSq float32
	for i := 0; i+2 < len(points); i += itemSize {
		d := center.DistanceSquared(Vec3{points[i], points[i+1], points[i+2]})
		if d > maxDistSq {
			maxDistSq = d
		}
	}
	return Sphere{Center: center, Radius: ksqrt(maxDistSq)}
}

/**
 * @brief Transforms the eight corners of the box and returns their bounds.
 */
func (e Extents3D) ApplyMat4(mt Mat4) Extents3D {
	if e.IsEmpty() {
		return e
	}
	out := NewExtents3DEmpty()
	for i := 0; i < 8; i++ {
		corner := Vec3{e.Min.X, e.Min.Y, e.Min.Z}
		if i&1 != 0 {
			corner.X = e.Max.X
		}
		if i&2 != 0 {
			corner.Y = e.Max.Y
		}
		if i&4 != 0 {
			corner.Z = e.Max.Z
		}
		out = out.ExpandByPoint(corner.Transform(mt))
	}
	return out
}
