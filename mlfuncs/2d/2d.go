package mlfuncs2d

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/sw965/grader/blas32/tensor/2d"
	"github.com/sw965/grader/mathx"
	"github.com/sw965/omw/parallel"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	SigmoidClip         = 100.0
	CrossEntropyEpsilon = 1e-7
	NumericalGradientH  = 1e-3
)

// Sigmoid は x の各要素を [-SigmoidClip, SigmoidClip] に丸めてからロジスティック関数を適用します。
// 丸めは x 自体を書き換えます。
func Sigmoid(x blas32.General) blas32.General {
	y := tensor2d.NewZerosLike(x)
	for r := 0; r < x.Rows; r++ {
		xRow := tensor2d.Row(x, r)
		yRow := tensor2d.Row(y, r)
		for c, e := range xRow {
			e = mathx.Clip(e, -SigmoidClip, SigmoidClip)
			xRow[c] = e
			// float32 の exp は 88 付近で溢れるので float64 で計算する
			yRow[c] = float32(1.0 / (1.0 + math.Exp(-float64(e))))
		}
	}
	return y
}

// Softmax は行ごとのソフトマックスです。列が無い行列はそのままの形で返します。
func Softmax(x blas32.General) blas32.General {
	y := tensor2d.NewZerosLike(x)
	if x.Cols == 0 {
		return y
	}

	maxs := tensor2d.Max1(x) // オーバーフロー対策
	for r := 0; r < x.Rows; r++ {
		yRow := tensor2d.Row(y, r)
		maxX := maxs.Data[r]
		for c, e := range tensor2d.Row(x, r) {
			yRow[c] = math32.Exp(e - maxX)
		}
	}

	sums := tensor2d.Sum1(y)
	for r := 0; r < y.Rows; r++ {
		blas32.Scal(1.0/sums.Data[r], tensor2d.RowVector(y, r))
	}
	return y
}

func MeanSquaredError(y, t blas32.General) (float32, error) {
	diff, err := tensor2d.Sub(y, t)
	if err != nil {
		return 0.0, err
	}
	n := tensor2d.N(diff)
	if n == 0 {
		return 0.0, errors.New("mlfuncs2d: mean squared error of an empty matrix")
	}
	v := tensor2d.ToVector(diff)
	return blas32.Dot(v, v) / float32(n), nil
}

// CrossEntropyError はバッチ平均の交差エントロピー誤差です。log(0) を避ける為に CrossEntropyEpsilon を足します。
func CrossEntropyError(y, t blas32.General) (float32, error) {
	if !tensor2d.SameShape(y, t) {
		return 0.0, errors.Errorf("mlfuncs2d: shape mismatch: (%d, %d) != (%d, %d)", y.Rows, y.Cols, t.Rows, t.Cols)
	}
	if y.Rows == 0 {
		return 0.0, errors.New("mlfuncs2d: cross entropy error of an empty batch")
	}

	loss := float32(0.0)
	for r := 0; r < y.Rows; r++ {
		tRow := tensor2d.Row(t, r)
		for c, ye := range tensor2d.Row(y, r) {
			loss -= tRow[c] * math32.Log(ye+CrossEntropyEpsilon)
		}
	}
	return loss / float32(y.Rows), nil
}

// argmax は最大値の位置を返します。同じ値が並んだ時は最初の位置です。
func argmax(row []float32) int {
	idx := 0
	for i, e := range row {
		if e > row[idx] {
			idx = i
		}
	}
	return idx
}

// ArgmaxRows は各行の最大値の位置を p 個のワーカーで求めます。同じ値が並んだ時は最初の位置を選びます。
func ArgmaxRows(x blas32.General, p int) ([]int, error) {
	if x.Cols == 0 {
		return nil, errors.Errorf("mlfuncs2d: argmax of a matrix with no columns (rows=%d)", x.Rows)
	}

	n := x.Rows
	idxs := make([]int, n)
	if n == 0 {
		return idxs, nil
	}
	p = min(max(p, 1), n)

	err := parallel.For(n, p, func(_, idx int) error {
		idxs[idx] = argmax(tensor2d.Row(x, idx))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idxs, nil
}

// Accuracy は y と t の各行で最大値の位置が一致した割合を返します。p はワーカー数です。
func Accuracy(y, t blas32.General, p int) (float32, error) {
	if !tensor2d.SameShape(y, t) {
		return 0.0, errors.Errorf("mlfuncs2d: shape mismatch: (%d, %d) != (%d, %d)", y.Rows, y.Cols, t.Rows, t.Cols)
	}
	if y.Rows == 0 {
		return 0.0, errors.New("mlfuncs2d: accuracy of an empty batch")
	}

	yIdxs, err := ArgmaxRows(y, p)
	if err != nil {
		return 0.0, err
	}
	tIdxs, err := ArgmaxRows(t, p)
	if err != nil {
		return 0.0, err
	}

	correct := 0
	for i, yIdx := range yIdxs {
		if yIdx == tIdxs[i] {
			correct++
		}
	}
	return float32(correct) / float32(len(yIdxs)), nil
}

// NumericalGradient は中心差分で f の x に関する勾配を求めます。
// 評価中に x を一時的に書き換えますが、戻る前に元の値へ戻します。
func NumericalGradient(x blas32.General, f func(blas32.General) float32) blas32.General {
	h := float32(NumericalGradientH)
	grad := tensor2d.NewZerosLike(x)
	for r := 0; r < x.Rows; r++ {
		xRow := tensor2d.Row(x, r)
		gradRow := tensor2d.Row(grad, r)
		for c := range xRow {
			tmp := xRow[c]

			xRow[c] = tmp + h
			y1 := f(x)

			xRow[c] = tmp - h
			y2 := f(x)

			gradRow[c] = mathx.CentralDifference(y1, y2, h)
			xRow[c] = tmp
		}
	}
	return grad
}
