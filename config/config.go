package config

import (
	"io"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"github.com/sw965/grader/dataset"
	"github.com/sw965/grader/trainer"
	"gopkg.in/yaml.v3"
)

const DefaultLearningRate = 0.01

// Config は1回の採点実行の設定です。YAML のキーはタグの通りです。
type Config struct {
	Model        string  `yaml:"model"`
	LearningRate float32 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	InnerEpochs  int     `yaml:"inner_epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Parallelism  int     `yaml:"parallelism"`
	DataDir      string  `yaml:"data_dir"`
	BaseURL      string  `yaml:"base_url"`
	NoDownload   bool    `yaml:"no_download"`
}

// Overrides はコマンドライン引数で与えられた値です。ゼロ値の項目は設定を変えません。
type Overrides struct {
	Model        string
	LearningRate float32
	Epochs       int
	InnerEpochs  int
	BatchSize    int
	Parallelism  int
	DataDir      string
	NoDownload   bool
}

// Default は既定値で埋めた設定を返します。並列数と MNIST の置き場所もここで決まります。
func Default() *Config {
	return &Config{
		LearningRate: DefaultLearningRate,
		Epochs:       trainer.DefaultEpochs,
		InnerEpochs:  trainer.DefaultInnerEpochs,
		BatchSize:    trainer.DefaultBatchSize,
		Parallelism:  DefaultParallelism(),
		DataDir:      dataset.DefaultDir,
		BaseURL:      dataset.DefaultBaseURL,
	}
}

// DefaultParallelism は論理コア数です。取得できない時は GOMAXPROCS を使います。
func DefaultParallelism() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// Load は Default の上に YAML ファイルを読み込みます。検証は上書きを適用した後に Validate で行います。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: open")
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

// Parse は Default の上に YAML を読み込みます。知らないキーはエラーにします。
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides はゼロ値でない上書きを反映します。
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.InnerEpochs > 0 {
		c.InnerEpochs = o.InnerEpochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Parallelism > 0 {
		c.Parallelism = o.Parallelism
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.NoDownload {
		c.NoDownload = true
	}
}

// Validate は実行できる設定かを確かめます。設定は書き換えません。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if c.Model == "" {
		return errors.New("config: model must be set")
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("config: learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Parallelism <= 0 {
		return errors.Errorf("config: parallelism must be > 0 (got %d)", c.Parallelism)
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir must be set")
	}
	return c.Trainer().Validate()
}

func (c *Config) Trainer() trainer.Config {
	return trainer.Config{
		Epochs:      c.Epochs,
		InnerEpochs: c.InnerEpochs,
		BatchSize:   c.BatchSize,
		Parallelism: c.Parallelism,
	}
}

func (c *Config) Dataset() dataset.Options {
	return dataset.Options{
		Dir:      c.DataDir,
		BaseURL:  c.BaseURL,
		Download: !c.NoDownload,
	}
}
