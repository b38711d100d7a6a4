package model

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var ErrUnknownModel = errors.New("model: unknown model")

// Factory は学習率を受け取って Model を作ります。
type Factory func(learningRate float32) (Model, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register は name でモデルを登録します。通常は具象モデルのパッケージの init から呼びます。
// 同じ名前を2回登録するか factory が nil の場合は panic します。
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if factory == nil {
		panic("model: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("model: Register called twice for model " + name)
	}
	factories[name] = factory
}

func New(name string, learningRate float32) (Model, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModel, "%q (registered: %v)", name, Names())
	}

	m, err := factory(learningRate)
	if err != nil {
		return nil, errors.Wrapf(err, "model: create %q", name)
	}
	return m, nil
}

func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
