package trainer_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw965/grader/blas32/tensor/2d"
	"github.com/sw965/grader/dataset"
	"github.com/sw965/grader/model"
	"github.com/sw965/grader/trainer"
	"gonum.org/v1/gonum/blas/blas32"
)

// 呼び出し順と受け取ったバッチを記録するだけのモデル
type recorder struct {
	*model.ModelBase
	calls       []string
	batchStarts []float32
	steps       int
}

func newRecorder() *recorder {
	return &recorder{ModelBase: model.NewModelBase(0.1)}
}

func (r *recorder) Forward(x blas32.General) (blas32.General, error) {
	r.calls = append(r.calls, "forward")
	r.batchStarts = append(r.batchStarts, x.Data[0])
	y := tensor2d.NewZeros(x.Rows, dataset.NumClasses)
	for i := 0; i < x.Rows; i++ {
		tensor2d.Row(y, i)[int(tensor2d.Row(x, i)[0])%dataset.NumClasses] = 1
	}
	return y, nil
}

func (r *recorder) GetLoss(t blas32.General) (float32, error) {
	r.calls = append(r.calls, "loss")
	r.Error = 1.0 / float32(r.steps+1)
	return r.Error, nil
}

func (r *recorder) Backward() error {
	r.calls = append(r.calls, "backward")
	r.steps++
	return nil
}

func newIndexedDataset(t *testing.T, n int) *dataset.Dataset {
	images := tensor2d.NewZeros(n, 1)
	labels := make([]uint8, n)
	for i := 0; i < n; i++ {
		images.Data[i] = float32(i)
		labels[i] = uint8(i % dataset.NumClasses)
	}
	oneHot, err := dataset.OneHot(labels, dataset.Encoding(dataset.NumClasses))
	require.NoError(t, err)
	d, err := dataset.New(images, oneHot)
	require.NoError(t, err)
	return &d
}

func TestRun(t *testing.T) {
	d := newIndexedDataset(t, 10)
	m := newRecorder()
	cfg := trainer.Config{Epochs: 4, InnerEpochs: 3, BatchSize: 4, Parallelism: 2}
	out := &bytes.Buffer{}

	losses, err := trainer.Run(context.Background(), m, d, cfg, out)
	require.NoError(t, err)

	assert.Equal(t, 12, m.steps)
	assert.Equal(t, []string{"forward", "loss", "backward"}, m.calls[:3])
	assert.Len(t, m.calls, 36)

	// 0, 4, 8 (端で打ち切り), 12%10=2 の順に、各バッチを3回ずつ
	expectedStarts := []float32{0, 0, 0, 4, 4, 4, 8, 8, 8, 2, 2, 2}
	assert.Equal(t, expectedStarts, m.batchStarts)

	require.Len(t, losses, 4)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("Epoch : %d/4, loss : %.7f", i+1, losses[i]), line)
	}
	assert.Equal(t, "Epoch : 1/4, loss : 0.3333333", lines[0])
	assert.Equal(t, "Epoch : 4/4, loss : 0.0833333", lines[3])
}

func TestRunStopsOnNotImplemented(t *testing.T) {
	d := newIndexedDataset(t, 10)
	m := model.NewModelBase(0.1)
	out := &bytes.Buffer{}

	_, err := trainer.Run(context.Background(), m, d, trainer.DefaultConfig(), out)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotImplemented)
	assert.Contains(t, err.Error(), "Not implemented forward")
	assert.Empty(t, out.String())
}

func TestRunCanceled(t *testing.T) {
	d := newIndexedDataset(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newRecorder()
	_, err := trainer.Run(ctx, m, d, trainer.Config{Epochs: 1, InnerEpochs: 1, BatchSize: 1}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.calls)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, trainer.DefaultConfig().Validate())
	assert.Error(t, trainer.Config{Epochs: 0, InnerEpochs: 1, BatchSize: 1}.Validate())
	assert.Error(t, trainer.Config{Epochs: 1, InnerEpochs: 0, BatchSize: 1}.Validate())
	assert.Error(t, trainer.Config{Epochs: 1, InnerEpochs: 1, BatchSize: 0}.Validate())
}
