// grader は登録済みのモデルを MNIST で訓練し、エポック毎の損失を表示します。
//
// モデルは init で model.Register を呼ぶパッケージをブランクインポートして組み込みます。
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sw965/grader/config"
	"github.com/sw965/grader/dataset"
	"github.com/sw965/grader/model"
	"github.com/sw965/grader/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	modelName := flag.String("model", "", "Registered model name")
	lr := flag.Float64("lr", 0, "Learning rate")
	epochs := flag.Int("epochs", 0, "Number of outer epochs")
	innerEpochs := flag.Int("inner-epochs", 0, "Number of steps on each batch")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	parallelism := flag.Int("parallelism", 0, "Workers used for batch accuracy")
	dataDir := flag.String("data-dir", "", "Directory holding the MNIST files")
	noDownload := flag.Bool("no-download", false, "Fail instead of downloading missing MNIST files")

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(config.Overrides{
		Model:        *modelName,
		LearningRate: float32(*lr),
		Epochs:       *epochs,
		InnerEpochs:  *innerEpochs,
		BatchSize:    *batchSize,
		Parallelism:  *parallelism,
		DataDir:      *dataDir,
		NoDownload:   *noDownload,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v (registered models: %v)", err, model.Names())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := model.New(cfg.Model, cfg.LearningRate)
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}

	d, err := dataset.LoadMNIST(ctx, cfg.Dataset())
	if err != nil {
		log.Fatalf("failed to load MNIST: %v", err)
	}
	log.Printf("model=%s samples=%d epochs=%d inner_epochs=%d batch_size=%d",
		cfg.Model, d.Size(), cfg.Epochs, cfg.InnerEpochs, cfg.BatchSize)

	if _, err := trainer.Run(ctx, m, &d, cfg.Trainer(), os.Stdout); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}
