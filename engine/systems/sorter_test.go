package systems

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func ids(items []*RenderItem) []uint32 {
	out := make([]uint32, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestSortRenderList(t *testing.T) {
	a := metadata.NewMaterial("a", metadata.MATERIAL_TYPE_BASIC)
	b := metadata.NewMaterial("b", metadata.MATERIAL_TYPE_BASIC)
	a.ID, b.ID = 1, 2

	list := &RenderList{
		Opaque: []*RenderItem{
			{ID: 0, Material: b, Z: 1},
			{ID: 1, Material: a, Z: 5},
			{ID: 2, Material: a, Z: 2},
			{ID: 3, Material: b, Z: 1, RenderOrder: -1},
			{ID: 4, Material: a, Z: 2},
		},
		Transparent: []*RenderItem{
			{ID: 5, Material: a, Z: 1},
			{ID: 6, Material: a, Z: 9},
			{ID: 7, Material: a, Z: 4, RenderOrder: 1},
			{ID: 8, Material: a, Z: 9},
		},
	}
	SortRenderList(list, nil, nil)

	// render order, material, front to back, id
	assert.Equal(t, []uint32{3, 2, 4, 1, 0}, ids(list.Opaque))
	// render order, back to front, id
	assert.Equal(t, []uint32{6, 8, 5, 7}, ids(list.Transparent))

	opaque := ids(list.Opaque)
	transparent := ids(list.Transparent)
	SortRenderList(list, nil, nil)
	assert.Equal(t, opaque, ids(list.Opaque))
	assert.Equal(t, transparent, ids(list.Transparent))
}

func TestSortRenderListCustomComparator(t *testing.T) {
	m := metadata.NewMaterial("m", metadata.MATERIAL_TYPE_BASIC)
	list := &RenderList{
		Opaque: []*RenderItem{
			{ID: 0, Material: m, Z: 1},
			{ID: 1, Material: m, Z: 3},
			{ID: 2, Material: m, Z: 2},
		},
	}
	backToFront := func(a, b *RenderItem) int { return compareFloat32(b.Z, a.Z) }
	SortRenderList(list, backToFront, nil)
	assert.Equal(t, []uint32{1, 2, 0}, ids(list.Opaque))
}

func TestBucketOf(t *testing.T) {
	opaque := metadata.NewMaterial("opaque", metadata.MATERIAL_TYPE_STANDARD)
	assert.Equal(t, RENDER_BUCKET_OPAQUE, BucketOf(opaque))

	transparent := metadata.NewMaterial("transparent", metadata.MATERIAL_TYPE_STANDARD)
	transparent.Transparent = true
	assert.Equal(t, RENDER_BUCKET_TRANSPARENT, BucketOf(transparent))

	glass := metadata.NewMaterial("glass", metadata.MATERIAL_TYPE_PHYSICAL)
	glass.Transparent = true
	glass.Transmission = 1
	assert.Equal(t, RENDER_BUCKET_TRANSMISSIVE, BucketOf(glass))
}

func TestReversedDepthOnlyReordersWithinRenderOrder(t *testing.T) {
	m := metadata.NewMaterial("m", metadata.MATERIAL_TYPE_BASIC)
	items := func(far float32) []*RenderItem {
		depth := func(z float32) float32 {
			if far > 0 {
				return far - z
			}
			return z
		}
		return []*RenderItem{
			{ID: 0, Material: m, Z: depth(1), RenderOrder: 1},
			{ID: 1, Material: m, Z: depth(3)},
			{ID: 2, Material: m, Z: depth(4), RenderOrder: 1},
			{ID: 3, Material: m, Z: depth(2)},
			{ID: 4, Material: m, Z: depth(5)},
			{ID: 5, Material: m, Z: depth(6), RenderOrder: -1},
		}
	}

	near := &RenderList{Opaque: items(0), Transparent: items(0)}
	far := &RenderList{Opaque: items(10), Transparent: items(10)}
	SortRenderList(near, nil, nil)
	SortRenderList(far, nil, nil)

	assert.Equal(t, []uint32{5, 3, 1, 4, 0, 2}, ids(near.Opaque))
	assert.Equal(t, []uint32{5, 4, 1, 3, 2, 0}, ids(far.Opaque))
	assert.Equal(t, []uint32{5, 4, 1, 3, 2, 0}, ids(near.Transparent))
	assert.Equal(t, []uint32{5, 3, 1, 4, 0, 2}, ids(far.Transparent))

	for _, pair := range [][2][]*RenderItem{{near.Opaque, far.Opaque}, {near.Transparent, far.Transparent}} {
		a, b := pair[0], pair[1]
		for i := range a {
			assert.Equal(t, a[i].RenderOrder, b[i].RenderOrder, "position %d", i)
		}
	}
}
