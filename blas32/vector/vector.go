package vector

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/blas/blas32"
)

func NewZeros(n int) blas32.Vector {
	return blas32.Vector{
		N:    n,
		Inc:  1,
		Data: make([]float32, n),
	}
}

// Max は要素の最大値を返します。空のベクトルでは -Inf です。
func Max(vec blas32.Vector) float32 {
	m := math32.Inf(-1)
	for i := 0; i < vec.N; i++ {
		e := vec.Data[i*vec.Inc]
		if e > m {
			m = e
		}
	}
	return m
}

func Sum(vec blas32.Vector) float32 {
	var sum float32
	for i := 0; i < vec.N; i++ {
		sum += vec.Data[i*vec.Inc]
	}
	return sum
}
