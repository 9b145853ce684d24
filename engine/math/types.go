package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix, typically used to represent object transformations.
 * Elements are stored column-major and the matrix multiplies column vectors,
 * so element (row r, column c) lives at Data[c*4+r] and the translation
 * occupies Data[12], Data[13] and Data[14].
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the extents of a 3d object, an axis aligned box.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/** @brief A bounding sphere. A negative radius marks an empty sphere. */
type Sphere struct {
	Center Vec3
	Radius float32
}

/**
 * @brief A plane in Hessian normal form: points p with Normal.Dot(p) + Constant == 0.
 * The positive half-space is the side the normal points to.
 */
type Plane struct {
	Normal   Vec3
	Constant float32
}

// FrustumPlane indices.
const (
	FrustumRight = iota
	FrustumLeft
	FrustumBottom
	FrustumTop
	FrustumFar
	FrustumNear
)

/** @brief Six planes bounding a camera volume, normals pointing inwards. */
type Frustum struct {
	Planes [6]Plane
}
