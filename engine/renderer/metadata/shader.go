package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/math"
	"golang.org/x/exp/slices"
)

/**
 * @brief Represents the current state of a given shader program.
 */
type ShaderState int

const (
	/** @brief The program has not yet gone through the creation process, and is unusable.*/
	SHADER_STATE_NOT_CREATED ShaderState = iota
	/** @brief The program failed to compile and is replaced by a stand-in that draws nothing.*/
	SHADER_STATE_FAILED
	/** @brief The program is created and ready for use.*/
	SHADER_STATE_INITIALIZED
)

/** @brief Available uniform types. */
type ShaderUniformType uint

const (
	ShaderUniformTypeFloat32   ShaderUniformType = 0
	ShaderUniformTypeFloat32_2 ShaderUniformType = 1
	ShaderUniformTypeFloat32_3 ShaderUniformType = 2
	ShaderUniformTypeFloat32_4 ShaderUniformType = 3
	ShaderUniformTypeInt32     ShaderUniformType = 4
	ShaderUniformTypeBool      ShaderUniformType = 5
	ShaderUniformTypeMatrix3   ShaderUniformType = 6
	ShaderUniformTypeMatrix4   ShaderUniformType = 7
	ShaderUniformTypeSampler   ShaderUniformType = 8
	ShaderUniformTypeCustom    ShaderUniformType = 255
)

var shaderUniformTypeNames = map[string]ShaderUniformType{
	"float":   ShaderUniformTypeFloat32,
	"vec2":    ShaderUniformTypeFloat32_2,
	"vec3":    ShaderUniformTypeFloat32_3,
	"vec4":    ShaderUniformTypeFloat32_4,
	"int":     ShaderUniformTypeInt32,
	"bool":    ShaderUniformTypeBool,
	"mat3":    ShaderUniformTypeMatrix3,
	"mat4":    ShaderUniformTypeMatrix4,
	"sampler": ShaderUniformTypeSampler,
	"custom":  ShaderUniformTypeCustom,
}

func ShaderUniformTypeFromString(s string) (ShaderUniformType, error) {
	if t, ok := shaderUniformTypeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("string %s is not a valid ShaderUniformType", s)
}

/**
 * @brief Defines uniform scope, which indicates how
 * often it gets updated.
 */
type ShaderScope int

const (
	/** @brief Global scope, updated once per frame (camera, lights). */
	ShaderScopeGlobal ShaderScope = 0
	/** @brief Instance scope, updated per material. */
	ShaderScopeInstance ShaderScope = 1
	/** @brief Local scope, updated per object. */
	ShaderScopeLocal ShaderScope = 2
)

/** @brief Declares a vertex attribute a program consumes. */
type ShaderAttributeConfig struct {
	/** @brief The semantic name of the attribute. */
	Name string
	/** @brief The number of components. */
	Size uint8
}

/** @brief Declares a uniform a program consumes. */
type ShaderUniformConfig struct {
	Name  string
	Type  ShaderUniformType
	Scope ShaderScope
	/** @brief Element count for arrays, zero for plain values. */
	ArraySize uint16
}

/**
 * @brief Everything needed to build a program: the chunk names the templates are
 * assembled from, the defines toggling features inside them and the interface
 * the program exposes. No shading language text lives here, backends resolve
 * chunk names against their own library.
 */
type ProgramSource struct {
	/** @brief The template name (material type or custom shader name). */
	Name string
	/** @brief A human readable, unique label used in diagnostics. */
	Label          string
	VertexChunks   []string
	FragmentChunks []string
	/** @brief Sorted "NAME value" define lines. */
	Defines    []string
	Attributes []ShaderAttributeConfig
	Uniforms   []ShaderUniformConfig
}

/** @brief Adds a define line, keeping the list sorted. */
func (ps *ProgramSource) Define(name string, value interface{}) {
	line := name
	if value != nil {
		line = fmt.Sprintf("%s %v", name, value)
	}
	i, found := slices.BinarySearch(ps.Defines, line)
	if !found {
		ps.Defines = slices.Insert(ps.Defines, i, line)
	}
}

func (ps *ProgramSource) HasDefine(name string) bool {
	for _, d := range ps.Defines {
		if d == name || strings.HasPrefix(d, name+" ") {
			return true
		}
	}
	return false
}

/**
 * @brief Represents a single shader vertex attribute after linking.
 */
type ShaderAttribute struct {
	/** @brief The attribute Name. */
	Name string
	/** @brief The location the attribute is bound to. */
	Location uint32
	/** @brief The number of components the program reads. */
	Size uint8
}

/**
 * @brief Represents a single entry in the program uniform table after linking.
 */
type ShaderUniform struct {
	Name string
	/** @brief The Location to be used as a lookup for uploads. */
	Location int32
	Type     ShaderUniformType
	Scope    ShaderScope
	/** @brief Element count for arrays, zero for plain values. */
	ArraySize uint16
}

/**
 * @brief A typed uniform value. Scalars and vectors use Floats (or Ints for
 * integer, bool and sampler types), matrices store their column-major elements.
 */
type UniformValue struct {
	Type   ShaderUniformType
	Floats []float32
	Ints   []int32
}

func UniformFloat(v float32) UniformValue {
	return UniformValue{Type: ShaderUniformTypeFloat32, Floats: []float32{v}}
}

func UniformVec2(v math.Vec2) UniformValue {
	return UniformValue{Type: ShaderUniformTypeFloat32_2, Floats: []float32{v.X, v.Y}}
}

func UniformVec3(v math.Vec3) UniformValue {
	return UniformValue{Type: ShaderUniformTypeFloat32_3, Floats: []float32{v.X, v.Y, v.Z}}
}

func UniformVec4(v math.Vec4) UniformValue {
	return UniformValue{Type: ShaderUniformTypeFloat32_4, Floats: []float32{v.X, v.Y, v.Z, v.W}}
}

func UniformMat4(m math.Mat4) UniformValue {
	data := make([]float32, 16)
	copy(data, m.Data[:])
	return UniformValue{Type: ShaderUniformTypeMatrix4, Floats: data}
}

/** @brief The upper 3x3 of the inverse transpose of m, used to transform normals. */
func UniformNormalMatrix(m math.Mat4) UniformValue {
	n := m.Inverse().Transposed()
	return UniformValue{Type: ShaderUniformTypeMatrix3, Floats: []float32{
		n.Data[0], n.Data[1], n.Data[2],
		n.Data[4], n.Data[5], n.Data[6],
		n.Data[8], n.Data[9], n.Data[10],
	}}
}

func UniformInt(v int32) UniformValue {
	return UniformValue{Type: ShaderUniformTypeInt32, Ints: []int32{v}}
}

func UniformBool(v bool) UniformValue {
	i := int32(0)
	if v {
		i = 1
	}
	return UniformValue{Type: ShaderUniformTypeBool, Ints: []int32{i}}
}

/** @brief A sampler bound to the given texture unit. */
func UniformSampler(unit int32) UniformValue {
	return UniformValue{Type: ShaderUniformTypeSampler, Ints: []int32{unit}}
}

/** @brief An array of floats, typically packed light or matrix arrays. */
func UniformFloats(t ShaderUniformType, values []float32) UniformValue {
	return UniformValue{Type: t, Floats: values}
}

/**
 * @brief Element-wise equality. Values of different types never match.
 */
func (uv UniformValue) Equal(other UniformValue) bool {
	return uv.Type == other.Type &&
		slices.Equal(uv.Floats, other.Floats) &&
		slices.Equal(uv.Ints, other.Ints)
}

/**
 * @brief Copies other into uv reusing uv's storage where it is large enough.
 */
func (uv *UniformValue) CopyFrom(other UniformValue) {
	uv.Type = other.Type
	if other.Floats == nil {
		uv.Floats = uv.Floats[:0]
	} else {
		uv.Floats = append(uv.Floats[:0], other.Floats...)
	}
	if other.Ints == nil {
		uv.Ints = uv.Ints[:0]
	} else {
		uv.Ints = append(uv.Ints[:0], other.Ints...)
	}
}
