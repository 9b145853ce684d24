package testbed

import (
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// newBoxGeometry builds an axis aligned box centred on the origin with one
// quad per face, so every face gets flat normals and its own uv space.
func newBoxGeometry(name string, width, height, depth, tileX, tileY float32) *metadata.Geometry {
	hw, hh, hd := width*0.5, height*0.5, depth*0.5

	type face struct {
		normal  [3]float32
		corners [4][3]float32
	}
	faces := []face{
		// Front
		{[3]float32{0, 0, 1}, [4][3]float32{{-hw, -hh, hd}, {hw, -hh, hd}, {hw, hh, hd}, {-hw, hh, hd}}},
		// Back
		{[3]float32{0, 0, -1}, [4][3]float32{{hw, -hh, -hd}, {-hw, -hh, -hd}, {-hw, hh, -hd}, {hw, hh, -hd}}},
		// Left
		{[3]float32{-1, 0, 0}, [4][3]float32{{-hw, -hh, -hd}, {-hw, -hh, hd}, {-hw, hh, hd}, {-hw, hh, -hd}}},
		// Right
		{[3]float32{1, 0, 0}, [4][3]float32{{hw, -hh, hd}, {hw, -hh, -hd}, {hw, hh, -hd}, {hw, hh, hd}}},
		// Bottom
		{[3]float32{0, -1, 0}, [4][3]float32{{hw, -hh, hd}, {-hw, -hh, hd}, {-hw, -hh, -hd}, {hw, -hh, -hd}}},
		// Top
		{[3]float32{0, 1, 0}, [4][3]float32{{-hw, hh, hd}, {hw, hh, hd}, {hw, hh, -hd}, {-hw, hh, -hd}}},
	}
	uvs := [4][2]float32{{0, 0}, {tileX, 0}, {tileX, tileY}, {0, tileY}}

	positions := make([]float32, 0, len(faces)*4*3)
	normals := make([]float32, 0, len(faces)*4*3)
	texcoords := make([]float32, 0, len(faces)*4*2)
	indices := make([]uint32, 0, len(faces)*6)
	for i, f := range faces {
		for c := 0; c < 4; c++ {
			positions = append(positions, f.corners[c][:]...)
			normals = append(normals, f.normal[:]...)
			texcoords = append(texcoords, uvs[c][:]...)
		}
		base := uint32(i * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	g := metadata.NewGeometry(name)
	g.SetAttribute(metadata.ATTRIBUTE_POSITION, metadata.NewBufferAttribute(positions, 3))
	g.SetAttribute(metadata.ATTRIBUTE_NORMAL, metadata.NewBufferAttribute(normals, 3))
	g.SetAttribute(metadata.ATTRIBUTE_UV, metadata.NewBufferAttribute(texcoords, 2))
	g.SetIndex(indices)
	return g
}

// newPlaneGeometry builds a plane lying in XZ facing +Y.
func newPlaneGeometry(name string, width, depth, tile float32) *metadata.Geometry {
	hw, hd := width*0.5, depth*0.5
	g := metadata.NewGeometry(name)
	g.SetAttribute(metadata.ATTRIBUTE_POSITION, metadata.NewBufferAttribute([]float32{
		-hw, 0, hd, hw, 0, hd, hw, 0, -hd, -hw, 0, -hd,
	}, 3))
	g.SetAttribute(metadata.ATTRIBUTE_NORMAL, metadata.NewBufferAttribute([]float32{
		0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0,
	}, 3))
	g.SetAttribute(metadata.ATTRIBUTE_UV, metadata.NewBufferAttribute([]float32{
		0, 0, tile, 0, tile, tile, 0, tile,
	}, 2))
	g.SetIndex([]uint32{0, 1, 2, 0, 2, 3})
	return g
}
