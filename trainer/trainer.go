package trainer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sw965/grader/blas32/tensor/2d"
	"github.com/sw965/grader/dataset"
	"github.com/sw965/grader/metrics"
	"github.com/sw965/grader/mlfuncs/2d"
	"github.com/sw965/grader/model"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	DefaultEpochs      = 120
	DefaultInnerEpochs = 100
	DefaultBatchSize   = 1000
)

// Config は訓練ループの回数とバッチサイズです。
type Config struct {
	Epochs      int
	InnerEpochs int
	BatchSize   int
	// Parallelism はバッチ正解率の集計に使うワーカー数です。
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		Epochs:      DefaultEpochs,
		InnerEpochs: DefaultInnerEpochs,
		BatchSize:   DefaultBatchSize,
		Parallelism: 1,
	}
}

func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return errors.Errorf("trainer: epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.InnerEpochs <= 0 {
		return errors.Errorf("trainer: inner epochs must be > 0 (got %d)", c.InnerEpochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("trainer: batch size must be > 0 (got %d)", c.BatchSize)
	}
	return nil
}

// Run は epoch 毎にバッチを1つ選び、同じバッチで Forward, GetLoss, Backward を InnerEpochs 回繰り返します。
// 各 epoch の最後の損失を w に1行書き出し、損失の列を返します。
func Run(ctx context.Context, m model.Model, d *dataset.Dataset, cfg Config, w io.Writer) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	losses := make([]float32, 0, cfg.Epochs)
	var window metrics.Window

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		x, t, err := d.Batch(epoch, cfg.BatchSize)
		if err != nil {
			return losses, errors.Wrapf(err, "trainer: epoch %d", epoch+1)
		}

		start := time.Now()
		var hypothesis blas32.General
		var loss float32
		for innerEpoch := 0; innerEpoch < cfg.InnerEpochs; innerEpoch++ {
			if err := ctx.Err(); err != nil {
				return losses, err
			}

			hypothesis, err = m.Forward(x)
			if err != nil {
				return losses, errors.Wrapf(err, "trainer: epoch %d inner %d: forward", epoch+1, innerEpoch+1)
			}
			loss, err = m.GetLoss(t)
			if err != nil {
				return losses, errors.Wrapf(err, "trainer: epoch %d inner %d: loss", epoch+1, innerEpoch+1)
			}
			if err := m.Backward(); err != nil {
				return losses, errors.Wrapf(err, "trainer: epoch %d inner %d: backward", epoch+1, innerEpoch+1)
			}
		}
		window.Record(x.Rows*cfg.InnerEpochs, time.Since(start), loss)
		losses = append(losses, loss)

		if _, err := fmt.Fprintf(w, "Epoch : %d/%d, loss : %.7f\n", epoch+1, cfg.Epochs, loss); err != nil {
			return losses, errors.Wrap(err, "trainer: write progress")
		}

		snap := window.Snapshot()
		log.Printf("epoch=%d samples_per_sec=%.1f epoch_ms=%.2f loss=%.7f accuracy=%s",
			epoch+1,
			snap.SamplesPerSec,
			snap.AvgEpochMS,
			snap.LastLoss,
			batchAccuracy(hypothesis, t, cfg.Parallelism),
		)
	}
	return losses, nil
}

// 出力の形がラベルと違うモデルもあるので、その場合は n/a とする
func batchAccuracy(y, t blas32.General, p int) string {
	if !tensor2d.SameShape(y, t) {
		return "n/a"
	}
	acc, err := mlfuncs2d.Accuracy(y, t, p)
	if err != nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", acc)
}
