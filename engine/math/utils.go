package math

import "golang.org/x/exp/constraints"

/** @brief f limited to [low, high]. */
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

/** @brief f limited to [0, 1], the range of factors such as opacity or roughness. */
func Saturate[T constraints.Float](f T) T {
	return Clamp(f, 0, 1)
}
