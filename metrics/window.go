package metrics

import "time"

// Window は複数エポック分の処理時間と損失を集計します。
type Window struct {
	samples  int
	compute  time.Duration
	epochs   int
	lastLoss float32
}

// Record は1エポック分の計測値を足し込みます。samples は内側ループで処理した延べ行数です。
func (w *Window) Record(samples int, computeTime time.Duration, loss float32) {
	w.samples += samples
	w.compute += computeTime
	w.epochs++
	w.lastLoss = loss
}

// Snapshot は集計値を返してウィンドウを空にします。
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.epochs > 0 {
		snap.AvgEpochMS = (w.compute.Seconds() * 1000) / float64(w.epochs)
	}
	snap.LastLoss = w.lastLoss

	*w = Window{}
	return snap
}

type Snapshot struct {
	SamplesPerSec float64
	AvgEpochMS    float64
	LastLoss      float32
}
