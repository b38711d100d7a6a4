package dataset

import (
	"compress/gzip"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sw965/omw/encoding/gobx"
)

const (
	DefaultDir     = "MNIST_data"
	DefaultBaseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

	trainImagesFile = "train-images-idx3-ubyte.gz"
	trainLabelsFile = "train-labels-idx1-ubyte.gz"
	testImagesFile  = "t10k-images-idx3-ubyte.gz"
	testLabelsFile  = "t10k-labels-idx1-ubyte.gz"

	trainCacheFile = "mnist_train.gob"
	testCacheFile  = "mnist_test.gob"
)

var ErrNotDownloaded = errors.New("dataset: file not found and download disabled")

// Options は MNIST の置き場所と取得方法です。ゼロ値は DefaultDir と DefaultBaseURL を使い、ダウンロードしません。
type Options struct {
	Dir      string
	BaseURL  string
	Download bool
	Client   *http.Client
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	return o
}

// LoadMNIST は訓練用の60000枚を読み込みます。
func LoadMNIST(ctx context.Context, opts Options) (Dataset, error) {
	return load(ctx, opts.withDefaults(), trainImagesFile, trainLabelsFile, trainCacheFile)
}

// LoadMNISTTest はテスト用の10000枚を読み込みます。
func LoadMNISTTest(ctx context.Context, opts Options) (Dataset, error) {
	return load(ctx, opts.withDefaults(), testImagesFile, testLabelsFile, testCacheFile)
}

func load(ctx context.Context, opts Options, imagesName, labelsName, cacheName string) (Dataset, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return Dataset{}, errors.Wrapf(err, "dataset: create %s", opts.Dir)
	}

	cachePath := filepath.Join(opts.Dir, cacheName)
	if _, err := os.Stat(cachePath); err == nil {
		d, err := gobx.Load[Dataset](cachePath)
		if err == nil {
			err = d.ValidateMNIST()
		}
		if err == nil {
			return d, nil
		}
		log.Printf("dataset: ignoring unreadable cache %s: %v", cachePath, err)
	}

	for _, name := range []string{imagesName, labelsName} {
		if err := ensureFile(ctx, opts, name); err != nil {
			return Dataset{}, err
		}
	}

	var d Dataset
	err := readGzip(filepath.Join(opts.Dir, imagesName), func(r io.Reader) error {
		var err error
		d.Images, err = ReadIDXImages(r)
		return err
	})
	if err != nil {
		return Dataset{}, err
	}

	var labels []uint8
	err = readGzip(filepath.Join(opts.Dir, labelsName), func(r io.Reader) error {
		var err error
		labels, err = ReadIDXLabels(r)
		return err
	})
	if err != nil {
		return Dataset{}, err
	}

	d.Labels, err = OneHot(labels, Encoding(NumClasses))
	if err != nil {
		return Dataset{}, err
	}
	if err := d.ValidateMNIST(); err != nil {
		return Dataset{}, err
	}

	if err := gobx.Save(d, cachePath); err != nil {
		log.Printf("dataset: failed to write cache %s: %v", cachePath, err)
	}
	log.Printf("dataset: loaded %s rows=%d cols=%d", imagesName, d.Images.Rows, d.Images.Cols)
	return d, nil
}

func readGzip(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "dataset: gunzip %s", path)
	}
	defer gr.Close()

	return errors.Wrapf(read(gr), "dataset: decode %s", path)
}

func ensureFile(ctx context.Context, opts Options, name string) error {
	path := filepath.Join(opts.Dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if !opts.Download {
		return errors.Wrap(ErrNotDownloaded, path)
	}

	url := opts.BaseURL + name
	log.Printf("dataset: downloading %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "dataset: request %s", url)
	}
	resp, err := opts.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "dataset: download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("dataset: download %s: bad status: %s", url, resp.Status)
	}

	// 途中で失敗した時に壊れたファイルが残らないよう一時ファイルに書いてから移す
	tmp, err := os.CreateTemp(opts.Dir, name+".*.part")
	if err != nil {
		return errors.Wrap(err, "dataset: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "dataset: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "dataset: write %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "dataset: rename %s", path)
}
