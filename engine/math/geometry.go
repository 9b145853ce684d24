package math

/**
 * @brief Generates smooth per-vertex normals for a packed xyz position array.
 * Face normals of every triangle touching a vertex are summed and normalized.
 * When indices is empty the positions are treated as a triangle soup.
 */
func GeometryGenerateNormals(positions []float32, indices []uint32) []float32 {
	vertexCount := len(positions) / 3
	normals := make([]float32, vertexCount*3)

	vertex := func(i uint32) Vec3 {
		return Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}
	accumulate := func(i uint32, n Vec3) {
		normals[i*3] += n.X
		normals[i*3+1] += n.Y
		normals[i*3+2] += n.Z
	}
	face := func(i0, i1, i2 uint32) {
		if int(i0) >= vertexCount || int(i1) >= vertexCount || int(i2) >= vertexCount {
			return
		}
		p0 := vertex(i0)
		edge1 := vertex(i1).Sub(p0)
		edge2 := vertex(i2).Sub(p0)
		// Unnormalized, so larger faces weigh more.
		n := edge1.Cross(edge2)
		accumulate(i0, n)
		accumulate(i1, n)
		accumulate(i2, n)
	}

	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			face(indices[i], indices[i+1], indices[i+2])
		}
	} else {
		for i := 0; i+2 < vertexCount; i += 3 {
			face(uint32(i), uint32(i+1), uint32(i+2))
		}
	}

	for i := 0; i < vertexCount; i++ {
		n := Vec3{normals[i*3], normals[i*3+1], normals[i*3+2]}.Normalized()
		normals[i*3], normals[i*3+1], normals[i*3+2] = n.X, n.Y, n.Z
	}
	return normals
}
