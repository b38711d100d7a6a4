package tensor2d

import (
	"github.com/pkg/errors"
	"github.com/sw965/grader/blas32/vector"
	"gonum.org/v1/gonum/blas/blas32"
)

func NewZeros(rows, cols int) blas32.General {
	return blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   make([]float32, rows*cols),
	}
}

func NewZerosLike(gen blas32.General) blas32.General {
	return NewZeros(gen.Rows, gen.Cols)
}

// NewIdentity は n×n の単位行列を返します。one-hot の符号表として使います。
func NewIdentity(n int) blas32.General {
	gen := NewZeros(n, n)
	for i := 0; i < n; i++ {
		gen.Data[At(gen, i, i)] = 1.0
	}
	return gen
}

func N(gen blas32.General) int {
	return gen.Rows * gen.Cols
}

func At(gen blas32.General, row, col int) int {
	return row*gen.Stride + col
}

// Row は row 行目を元データと共有するスライスとして返します。
func Row(gen blas32.General, row int) []float32 {
	offset := row * gen.Stride
	return gen.Data[offset : offset+gen.Cols]
}

func RowVector(gen blas32.General, row int) blas32.Vector {
	return blas32.Vector{
		N:    gen.Cols,
		Inc:  1,
		Data: Row(gen, row),
	}
}

// SliceRows は [start, end) 行のビューを返します。データはコピーしません。
func SliceRows(gen blas32.General, start, end int) (blas32.General, error) {
	if start < 0 || end < start || end > gen.Rows {
		return blas32.General{}, errors.Errorf("tensor2d: invalid row range [%d:%d] (rows=%d)", start, end, gen.Rows)
	}

	if start == end {
		return blas32.General{Rows: 0, Cols: gen.Cols, Stride: gen.Stride, Data: []float32{}}, nil
	}

	begin := start * gen.Stride
	last := (end-1)*gen.Stride + gen.Cols
	return blas32.General{
		Rows:   end - start,
		Cols:   gen.Cols,
		Stride: gen.Stride,
		Data:   gen.Data[begin:last],
	}, nil
}

// Clone は Stride を Cols に詰めた複製を返します。
func Clone(gen blas32.General) blas32.General {
	clone := NewZerosLike(gen)
	for r := 0; r < gen.Rows; r++ {
		copy(Row(clone, r), Row(gen, r))
	}
	return clone
}

func ToVector(gen blas32.General) blas32.Vector {
	if gen.Stride != gen.Cols {
		gen = Clone(gen)
	}
	return blas32.Vector{
		N:    N(gen),
		Inc:  1,
		Data: gen.Data[:N(gen)],
	}
}

func SameShape(a, b blas32.General) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols
}

func Scal(alpha float32, gen blas32.General) {
	for r := 0; r < gen.Rows; r++ {
		blas32.Scal(alpha, RowVector(gen, r))
	}
}

func Axpy(alpha float32, x, y blas32.General) error {
	if !SameShape(x, y) {
		return errors.Errorf("tensor2d: shape mismatch: (%d, %d) != (%d, %d)", x.Rows, x.Cols, y.Rows, y.Cols)
	}
	for r := 0; r < x.Rows; r++ {
		blas32.Axpy(alpha, RowVector(x, r), RowVector(y, r))
	}
	return nil
}

func Sub(x, y blas32.General) (blas32.General, error) {
	z := Clone(x)
	err := Axpy(-1.0, y, z)
	return z, err
}

// Max1 は各行の最大値を返します。列が無い行列では各行が -Inf になります。
func Max1(gen blas32.General) blas32.Vector {
	maxs := vector.NewZeros(gen.Rows)
	for r := 0; r < gen.Rows; r++ {
		maxs.Data[r] = vector.Max(RowVector(gen, r))
	}
	return maxs
}

// Sum1 は各行の和を返します。
func Sum1(gen blas32.General) blas32.Vector {
	sums := vector.NewZeros(gen.Rows)
	for r := 0; r < gen.Rows; r++ {
		sums.Data[r] = vector.Sum(RowVector(gen, r))
	}
	return sums
}
