package math

/**
 * @brief Represents the local pose of an object: position, rotation and scale.
 * The composed matrix is cached until one of the components changes.
 */
type Transform struct {
	/** @brief The position. */
	Position Vec3
	/** @brief The rotation. */
	Rotation Quaternion
	/** @brief The scale. */
	Scale Vec3
	/** @brief Indicates if the position, rotation or scale have changed, thus
	 * indicating the local matrix needs to be recalculated. */
	IsDirty bool
	/** @brief The local transformation matrix, updated whenever the components change. */
	Local Mat4
}

func TransformCreate() Transform {
	return TransformFromPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func TransformFromPosition(position Vec3) Transform {
	return TransformFromPositionRotationScale(position, NewQuatIdentity(), NewVec3One())
}

func TransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) Transform {
	t := Transform{Local: NewMat4Identity()}
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.Rotation = rotation
	t.IsDirty = true
}

// Rotate applies rotation in local space, after the current rotation.
func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = t.Rotation.Mul(rotation)
	t.IsDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

/**
 * @brief Overwrites the components from a matrix. The matrix must be free of shear.
 */
func (t *Transform) SetFromMatrix(m Mat4) {
	t.Position, t.Rotation, t.Scale = m.Decompose()
	t.Local = m
	t.IsDirty = false
}

/**
 * @brief Returns the composed local matrix, rebuilding it if a component changed.
 * The second value reports whether a rebuild happened.
 */
func (t *Transform) GetLocal() (Mat4, bool) {
	if !t.IsDirty {
		return t.Local, false
	}
	t.Local = NewMat4Compose(t.Position, t.Rotation, t.Scale)
	t.IsDirty = false
	return t.Local, true
}
