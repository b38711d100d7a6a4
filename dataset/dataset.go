package dataset

import (
	"github.com/pkg/errors"
	"github.com/sw965/grader/blas32/tensor/2d"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	ImageRows  = 28
	ImageCols  = 28
	ImageSize  = ImageRows * ImageCols
	NumClasses = 10
)

var ErrEmpty = errors.New("dataset: empty")

// Dataset は画像とone-hotラベルを行で対応付けて保持します。
// Images は (N, ImageSize)、Labels は (N, NumClasses) です。
type Dataset struct {
	Images blas32.General
	Labels blas32.General
}

func New(images, labels blas32.General) (Dataset, error) {
	d := Dataset{Images: images, Labels: labels}
	return d, d.Validate()
}

func (d *Dataset) Validate() error {
	if d.Images.Rows != d.Labels.Rows {
		return errors.Errorf("dataset: images has %d rows but labels has %d", d.Images.Rows, d.Labels.Rows)
	}
	return nil
}

// ValidateMNIST は Validate に加えて、列数が MNIST の画素数とクラス数に一致するかを確かめます。
func (d *Dataset) ValidateMNIST() error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Images.Cols != ImageSize || d.Labels.Cols != NumClasses {
		return errors.Errorf("dataset: want (N, %d) images and (N, %d) labels, got (%d, %d) and (%d, %d)",
			ImageSize, NumClasses, d.Images.Rows, d.Images.Cols, d.Labels.Rows, d.Labels.Cols)
	}
	return nil
}

func (d *Dataset) Size() int {
	return d.Images.Rows
}

// BatchRange は epoch 番目のバッチの行範囲 [start, end) を返します。
// 開始位置はデータ数で巡回し、終端はデータ数で打ち切られます。
func BatchRange(epoch, batchSize, size int) (int, int) {
	start := (epoch * batchSize) % size
	end := min(start+batchSize, size)
	return start, end
}

// Batch は epoch 番目のバッチを返します。戻り値は Dataset とデータを共有するビューです。
func (d *Dataset) Batch(epoch, batchSize int) (blas32.General, blas32.General, error) {
	if batchSize <= 0 {
		return blas32.General{}, blas32.General{}, errors.Errorf("dataset: batch size must be > 0 (got %d)", batchSize)
	}
	if epoch < 0 {
		return blas32.General{}, blas32.General{}, errors.Errorf("dataset: epoch must be >= 0 (got %d)", epoch)
	}
	if d.Size() == 0 {
		return blas32.General{}, blas32.General{}, ErrEmpty
	}

	start, end := BatchRange(epoch, batchSize, d.Size())
	x, err := tensor2d.SliceRows(d.Images, start, end)
	if err != nil {
		return blas32.General{}, blas32.General{}, errors.Wrap(err, "dataset: images")
	}
	t, err := tensor2d.SliceRows(d.Labels, start, end)
	if err != nil {
		return blas32.General{}, blas32.General{}, errors.Wrap(err, "dataset: labels")
	}
	return x, t, nil
}

// Encoding は n クラスの one-hot 符号表 (単位行列) を返します。
func Encoding(n int) blas32.General {
	return tensor2d.NewIdentity(n)
}

// OneHot は labels[i] 行目の符号を i 行目に並べた行列を返します。
func OneHot(labels []uint8, encoding blas32.General) (blas32.General, error) {
	t := tensor2d.NewZeros(len(labels), encoding.Cols)
	for i, label := range labels {
		if int(label) >= encoding.Rows {
			return blas32.General{}, errors.Errorf("dataset: label out of range at index %d: %d", i, label)
		}
		copy(tensor2d.Row(t, i), tensor2d.Row(encoding, int(label)))
	}
	return t, nil
}
