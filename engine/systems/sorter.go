package systems

import (
	"golang.org/x/exp/slices"
)

/**
 * @brief Orders two render items, negative when a draws first.
 */
type RenderItemComparator func(a, b *RenderItem) int

func compareInt32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat32(a, b float32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

/**
 * @brief The default opaque and transmissive order: render order, then material
 * so program and texture changes are grouped, then front to back, then item id.
 */
func OpaqueSortStable(a, b *RenderItem) int {
	if c := compareInt32(a.RenderOrder, b.RenderOrder); c != 0 {
		return c
	}
	if c := compareUint32(a.Material.ID, b.Material.ID); c != 0 {
		return c
	}
	if c := compareFloat32(a.Z, b.Z); c != 0 {
		return c
	}
	return compareUint32(a.ID, b.ID)
}

/**
 * @brief The default transparent order: render order, then back to front, then item id.
 */
func TransparentSortStable(a, b *RenderItem) int {
	if c := compareInt32(a.RenderOrder, b.RenderOrder); c != 0 {
		return c
	}
	if c := compareFloat32(b.Z, a.Z); c != 0 {
		return c
	}
	return compareUint32(a.ID, b.ID)
}

/**
 * @brief Stable sorts the buckets of a list. Nil comparators select the defaults,
 * the transmissive bucket uses the opaque comparator.
 */
func SortRenderList(list *RenderList, opaque, transparent RenderItemComparator) {
	if opaque == nil {
		opaque = OpaqueSortStable
	}
	if transparent == nil {
		transparent = TransparentSortStable
	}
	slices.SortStableFunc(list.Opaque, opaque)
	slices.SortStableFunc(list.Transmissive, opaque)
	slices.SortStableFunc(list.Transparent, transparent)
}
