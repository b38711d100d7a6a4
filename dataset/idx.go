package dataset

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/sw965/grader/blas32/tensor/2d"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049

	// MaxIDXCount はヘッダに書かれた件数の上限です。MNIST の訓練データ (60000件) より十分大きい値にしています。
	MaxIDXCount = 1 << 20
)

type idxImagesHeader struct {
	Magic uint32
	Count uint32
	Rows  uint32
	Cols  uint32
}

type idxLabelsHeader struct {
	Magic uint32
	Count uint32
}

// readIDXBody は n バイトを読みます。
// バッファは実際に届いたバイト数に応じて伸びるので、ヘッダの件数が嘘でも先に巨大な領域を確保しません。
func readIDXBody(r io.Reader, n int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	read, err := io.CopyN(buf, r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(err, "idx: got %d of %d bytes", read, n)
	}
	return buf.Bytes(), nil
}

// ReadIDXImages は IDX 形式の画像を (枚数, 縦×横) の行列として読み込み、画素値を 255 で割って [0, 1] にします。
// 画像の大きさは ImageRows×ImageCols だけを受け付けます。
func ReadIDXImages(r io.Reader) (blas32.General, error) {
	var header idxImagesHeader
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return blas32.General{}, errors.Wrap(err, "idx: read images header")
	}
	if header.Magic != idxImagesMagic {
		return blas32.General{}, errors.Errorf("idx: invalid images magic number: got %d, want %d", header.Magic, idxImagesMagic)
	}
	if header.Rows != ImageRows || header.Cols != ImageCols {
		return blas32.General{}, errors.Errorf("idx: invalid image size: got %dx%d, want %dx%d", header.Rows, header.Cols, ImageRows, ImageCols)
	}
	if header.Count > MaxIDXCount {
		return blas32.General{}, errors.Errorf("idx: too many images: %d (max %d)", header.Count, MaxIDXCount)
	}

	count := int(header.Count)
	pixels, err := readIDXBody(r, int64(count)*ImageSize)
	if err != nil {
		return blas32.General{}, errors.Wrapf(err, "idx: read %d images", count)
	}

	images := tensor2d.NewZeros(count, ImageSize)
	for i, b := range pixels {
		images.Data[i] = float32(b)
	}
	tensor2d.Scal(1.0/255.0, images)
	return images, nil
}

func ReadIDXLabels(r io.Reader) ([]uint8, error) {
	var header idxLabelsHeader
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "idx: read labels header")
	}
	if header.Magic != idxLabelsMagic {
		return nil, errors.Errorf("idx: invalid labels magic number: got %d, want %d", header.Magic, idxLabelsMagic)
	}
	if header.Count > MaxIDXCount {
		return nil, errors.Errorf("idx: too many labels: %d (max %d)", header.Count, MaxIDXCount)
	}

	labels, err := readIDXBody(r, int64(header.Count))
	if err != nil {
		return nil, errors.Wrapf(err, "idx: read %d labels", header.Count)
	}
	return labels, nil
}
