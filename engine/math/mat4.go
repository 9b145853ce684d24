package math

// ------------------------------------------
// Matrix 4
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 */
func NewMat4Identity() Mat4 {
	return Mat4{Data: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

/**
 * @brief Returns mt * other. Applied to a vector, other acts first.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	a := &mt.Data
	b := &other.Data
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out.Data[c*4+r] = a[r]*b[c*4] +
				a[4+r]*b[c*4+1] +
				a[8+r]*b[c*4+2] +
				a[12+r]*b[c*4+3]
		}
	}
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

func NewMat4EulerX(angleRadians float32) Mat4 {
	return NewQuatFromAxisAngle(Vec3{1, 0, 0}, angleRadians, false).ToMat4()
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	return NewQuatFromAxisAngle(Vec3{0, 1, 0}, angleRadians, false).ToMat4()
}

func NewMat4EulerZ(angleRadians float32) Mat4 {
	return NewQuatFromAxisAngle(Vec3{0, 0, 1}, angleRadians, false).ToMat4()
}

/**
 * @brief Builds translation * rotation * scale from its components.
 */
func NewMat4Compose(position Vec3, rotation Quaternion, scale Vec3) Mat4 {
	x, y, z, w := rotation.X, rotation.Y, rotation.Z, rotation.W
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	var out Mat4
	e := &out.Data
	e[0] = (1 - (yy + zz)) * scale.X
	e[1] = (xy + wz) * scale.X
	e[2] = (xz - wy) * scale.X
	e[3] = 0

	e[4] = (xy - wz) * scale.Y
	e[5] = (1 - (xx + zz)) * scale.Y
	e[6] = (yz + wx) * scale.Y
	e[7] = 0

	e[8] = (xz + wy) * scale.Z
	e[9] = (yz - wx) * scale.Z
	e[10] = (1 - (xx + yy)) * scale.Z
	e[11] = 0

	e[12] = position.X
	e[13] = position.Y
	e[14] = position.Z
	e[15] = 1
	return out
}

/**
 * @brief Splits an affine matrix into position, rotation and scale.
 *
 * Only well defined for matrices without shear. A negative determinant is
 * attributed to the X axis, so a mirrored matrix decomposes with sx < 0.
 */
func (mt Mat4) Decompose() (position Vec3, rotation Quaternion, scale Vec3) {
	e := mt.Data
	sx := Vec3{e[0], e[1], e[2]}.Length()
	sy := Vec3{e[4], e[5], e[6]}.Length()
	sz := Vec3{e[8], e[9], e[10]}.Length()

	if mt.Determinant() < 0 {
		sx = -sx
	}

	position = Vec3{e[12], e[13], e[14]}
	scale = Vec3{sx, sy, sz}

	if sx == 0 || sy == 0 || sz == 0 {
		// Degenerate axis, no rotation can be recovered.
		return position, NewQuatIdentity(), scale
	}

	invSX, invSY, invSZ := 1/sx, 1/sy, 1/sz
	r := mt
	r.Data[0] *= invSX
	r.Data[1] *= invSX
	r.Data[2] *= invSX
	r.Data[4] *= invSY
	r.Data[5] *= invSY
	r.Data[6] *= invSY
	r.Data[8] *= invSZ
	r.Data[9] *= invSZ
	r.Data[10] *= invSZ

	rotation = NewQuatFromRotationMatrix(r).Normalize()
	return position, rotation, scale
}

func (mt Mat4) Determinant() float32 {
	e := &mt.Data
	n11, n12, n13, n14 := e[0], e[4], e[8], e[12]
	n21, n22, n23, n24 := e[1], e[5], e[9], e[13]
	n31, n32, n33, n34 := e[2], e[6], e[10], e[14]
	n41, n42, n43, n44 := e[3], e[7], e[11], e[15]

	return n41*(n14*n23*n32-n13*n24*n32-n14*n22*n33+n12*n24*n33+n13*n22*n34-n12*n23*n34) +
		n42*(n11*n23*n34-n11*n24*n33+n14*n21*n33-n13*n21*n34+n13*n24*n31-n14*n23*n31) +
		n43*(n11*n24*n32-n11*n22*n34-n14*n21*n32+n12*n21*n34+n14*n22*n31-n12*n24*n31) +
		n44*(-n13*n22*n31-n11*n23*n32+n11*n22*n33+n13*n21*n32-n12*n21*n33+n12*n23*n31)
}

/**
 * @brief Creates and returns an inverse of the provided matrix. A singular
 * matrix yields the zero matrix.
 */
func (mt Mat4) Inverse() Mat4 {
	m := &mt.Data
	var inv [16]float32

	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det == 0 {
		return Mat4{}
	}
	invDet := 1.0 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return Mat4{Data: inv}
}

func (mt Mat4) Transposed() Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out.Data[c*4+r] = mt.Data[r*4+c]
		}
	}
	return out
}

/**
 * @brief Creates and returns an orthographic projection matrix. Typically used to
 * render flat or 2D scenes.
 */
func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	out := NewMat4Identity()
	lr := 1.0 / (right - left)
	bt := 1.0 / (top - bottom)
	nf := 1.0 / (farClip - nearClip)

	out.Data[0] = 2.0 * lr
	out.Data[5] = 2.0 * bt
	out.Data[10] = -2.0 * nf

	out.Data[12] = -(right + left) * lr
	out.Data[13] = -(top + bottom) * bt
	out.Data[14] = -(farClip + nearClip) * nf
	return out
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to render 3d scenes.
 *
 * @param fovRadians The vertical field of view in radians.
 * @param aspectRatio The aspect ratio.
 */
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	f := 1.0 / ktan(fovRadians*0.5)
	var out Mat4
	out.Data[0] = f / aspectRatio
	out.Data[5] = f
	out.Data[10] = (farClip + nearClip) / (nearClip - farClip)
	out.Data[11] = -1.0
	out.Data[14] = (2.0 * farClip * nearClip) / (nearClip - farClip)
	return out
}

/**
 * @brief Creates a world matrix positioned at position whose -Z axis points at target.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := position.Sub(target).Normalized()
	if zAxis.LengthSquared() == 0 {
		zAxis = Vec3{0, 0, 1}
	}
	xAxis := up.Cross(zAxis).Normalized()
	if xAxis.LengthSquared() == 0 {
		// up and the view direction are parallel, nudge the view direction.
		zAxis.X += 0.0001
		zAxis = zAxis.Normalized()
		xAxis = up.Cross(zAxis).Normalized()
	}
	yAxis := zAxis.Cross(xAxis)

	return Mat4{Data: [16]float32{
		xAxis.X, xAxis.Y, xAxis.Z, 0,
		yAxis.X, yAxis.Y, yAxis.Z, 0,
		zAxis.X, zAxis.Y, zAxis.Z, 0,
		position.X, position.Y, position.Z, 1,
	}}
}

func (mt Mat4) Position() Vec3 {
	return Vec3{mt.Data[12], mt.Data[13], mt.Data[14]}
}

/**
 * @brief Returns the largest axis scale, used to grow bounding spheres.
 */
func (mt Mat4) MaxScaleOnAxis() float32 {
	e := &mt.Data
	sx := e[0]*e[0] + e[1]*e[1] + e[2]*e[2]
	sy := e[4]*e[4] + e[5]*e[5] + e[6]*e[6]
	sz := e[8]*e[8] + e[9]*e[9] + e[10]*e[10]
	return ksqrt(max(sx, sy, sz))
}

/**
 * @brief Returns a forward vector relative to the provided matrix (its -Z axis).
 */
func (mt Mat4) Forward() Vec3 {
	return Vec3{-mt.Data[8], -mt.Data[9], -mt.Data[10]}.Normalized()
}

func (mt Mat4) Up() Vec3 {
	return Vec3{mt.Data[4], mt.Data[5], mt.Data[6]}.Normalized()
}

func (mt Mat4) Right() Vec3 {
	return Vec3{mt.Data[0], mt.Data[1], mt.Data[2]}.Normalized()
}

func (mt Mat4) Compare(other Mat4, tolerance float32) bool {
	for i := range mt.Data {
		if kabs(mt.Data[i]-other.Data[i]) > tolerance {
			return false
		}
	}
	return true
}

// Equals is an exact element-wise comparison.
func (mt Mat4) Equals(other Mat4) bool {
	return mt.Data == other.Data
}
