package mathx

import "cmp"

func Clip[X cmp.Ordered](x, lo, hi X) X {
	return min(max(x, lo), hi)
}

func CentralDifference(plusY, minusY, h float32) float32 {
	return (plusY - minusY) / (2.0 * h)
}
