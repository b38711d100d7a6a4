package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/blas32"
)

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrNoLayers       = errors.New("model: no layers")
)

// NotImplementedError は具象実装が無いメソッドを呼んだ時に返ります。
// errors.Is(err, ErrNotImplemented) で判定できます。
type NotImplementedError struct {
	Method string
}

func (e *NotImplementedError) Error() string {
	return "Not implemented " + e.Method
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

func notImplemented(method string) error {
	return &NotImplementedError{Method: method}
}

// Neuron は1つの層です。
type Neuron interface {
	Forward(x blas32.General) (blas32.General, error)
	Loss(t blas32.General) (float32, error)
	Backward(dOut blas32.General, lr float32) (blas32.General, error)
}

// Model は訓練ループから呼ばれる側です。
// Forward の後に GetLoss、その後に Backward の順で呼ばれます。
type Model interface {
	Forward(x blas32.General) (blas32.General, error)
	GetLoss(t blas32.General) (float32, error)
	Backward() error
}

// NeuronBase は層の雛形です。埋め込んだ型が上書きしなかったメソッドは常に失敗します。
type NeuronBase struct{}

// NewNeuronBase は常に失敗します。層は具象型のコンストラクタで作ってください。
func NewNeuronBase() (*NeuronBase, error) {
	return nil, notImplemented("constructor")
}

func (NeuronBase) Forward(x blas32.General) (blas32.General, error) {
	return blas32.General{}, notImplemented("forward")
}

func (NeuronBase) Loss(t blas32.General) (float32, error) {
	return 0.0, notImplemented("loss")
}

func (NeuronBase) Backward(dOut blas32.General, lr float32) (blas32.General, error) {
	return blas32.General{}, notImplemented("backward")
}

// ModelBase は層の列と学習率、直近の誤差を持つモデルの雛形です。
// Forward と Backward は埋め込んだ型が実装します。
type ModelBase struct {
	Layers       []Neuron
	LearningRate float32
	Error        float32
}

func NewModelBase(learningRate float32) *ModelBase {
	return &ModelBase{
		Layers:       make([]Neuron, 0),
		LearningRate: learningRate,
	}
}

func (m *ModelBase) Add(layer Neuron) {
	m.Layers = append(m.Layers, layer)
}

// GetLoss は最後の層の Loss を Error に記録して返します。
func (m *ModelBase) GetLoss(t blas32.General) (float32, error) {
	if len(m.Layers) == 0 {
		return 0.0, ErrNoLayers
	}
	loss, err := m.Layers[len(m.Layers)-1].Loss(t)
	if err != nil {
		return 0.0, err
	}
	m.Error = loss
	return loss, nil
}

func (m *ModelBase) Forward(x blas32.General) (blas32.General, error) {
	return blas32.General{}, notImplemented("forward")
}

func (m *ModelBase) Backward() error {
	return notImplemented("backward")
}
