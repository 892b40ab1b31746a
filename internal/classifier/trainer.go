package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Encoder turns a word and its clues into a prompt
type Encoder interface {
	Encode(word string, clues []string) string
}

// Embedder turns prompts into vectors, one per prompt, in order
type Embedder interface {
	Embed(ctx context.Context, prompts []string) ([][]float64, error)
}

// TrainerConfig is the full search configuration, recorded with each model
type TrainerConfig struct {
	TestRatio float64 `json:"ratio_test" yaml:"test_ratio"`
	Seed      int64   `json:"seed" yaml:"seed"`
	Folds     int     `json:"num_folds" yaml:"folds"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	MaxIter   int     `json:"max_iter" yaml:"max_iter"`
	CacheRows int     `json:"-" yaml:"cache_rows"`
	Balance   bool    `json:"balance" yaml:"balance"`
	Workers   int     `json:"-" yaml:"workers"`
	Grid      Grid    `json:"svm_parameters" yaml:"grid"`
}

// DefaultTrainerConfig returns the stock training setup
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		TestRatio: 0.2,
		Seed:      42,
		Folds:     5,
		Tolerance: defaultTolerance,
		MaxIter:   -1,
		Balance:   true,
		Workers:   1,
		Grid:      DefaultGrid(),
	}
}

// Metadata describes one training run
type Metadata struct {
	RunID            string        `json:"run_id"`
	Search           TrainerConfig `json:"search_config"`
	BestParams       Params        `json:"best_parameters"`
	CVScore          float64       `json:"cv_score"`
	TestScore        float64       `json:"test_score"`
	SearchTime       float64       `json:"search_time_seconds"`
	TrainingDuration time.Duration `json:"training_duration"`
	TrainedAt        time.Time     `json:"trained_at"`
	TrainSize        int           `json:"train_size"`
	TestSize         int           `json:"test_size"`
	Approved         int           `json:"approved"`
	Rejected         int           `json:"rejected"`
}

// Result is a trained model that has not been persisted yet
type Result struct {
	Model    *Pipeline
	Metadata Metadata
}

// Trainer fits classifiers from labeled words
type Trainer struct {
	cfg     TrainerConfig
	encoder Encoder
	embed   Embedder
	logger  *slog.Logger
	now     func() time.Time
}

// NewTrainer creates a Trainer
func NewTrainer(cfg TrainerConfig, encoder Encoder, embed Embedder, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{cfg: cfg, encoder: encoder, embed: embed, logger: logger, now: time.Now}
}

// Train splits the labeled words, searches hyperparameters on the training
// part and reports accuracy on the held-out part. The maps go from word to
// clues. Nothing is persisted.
func (t *Trainer) Train(ctx context.Context, approved, rejected map[string][]string) (*Result, error) {
	if len(approved) == 0 || len(rejected) == 0 {
		return nil, fmt.Errorf("%w: %d approved, %d rejected", ErrEmptyClass, len(approved), len(rejected))
	}
	start := t.now()
	runID := uuid.New().String()
	log := t.logger.With("run", runID[:8])

	pos, neg := sortedKeys(approved), sortedKeys(rejected)
	if t.cfg.Balance {
		pos, neg = balance(pos, neg, t.cfg.Seed)
	}
	log.Info("training", "approved", len(pos), "rejected", len(neg))

	words := append(slices.Clone(pos), neg...)
	labels := make([]int, len(words))
	for i := range pos {
		labels[i] = 1
	}
	clues := func(w string) []string {
		if c, ok := approved[w]; ok {
			return c
		}
		return rejected[w]
	}

	trainIdx, testIdx, err := StratifiedSplit(labels, t.cfg.TestRatio, t.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	log.Info("embedding train set", "words", len(trainIdx))
	xTrain, err := t.vectors(ctx, take(words, trainIdx), clues)
	if err != nil {
		return nil, fmt.Errorf("embed train set: %w", err)
	}
	yTrain := take(labels, trainIdx)

	model, search, err := GridSearch(ctx, xTrain, yTrain, t.cfg.Grid, SearchOptions{
		Folds:     t.cfg.Folds,
		Tolerance: t.cfg.Tolerance,
		MaxIter:   t.cfg.MaxIter,
		CacheRows: t.cfg.CacheRows,
		Workers:   t.cfg.Workers,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	log.Info("embedding test set", "words", len(testIdx))
	xTest, err := t.vectors(ctx, take(words, testIdx), clues)
	if err != nil {
		return nil, fmt.Errorf("embed test set: %w", err)
	}
	testScore, err := model.Score(xTest, take(labels, testIdx))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	log.Info("held-out accuracy", "accuracy", testScore)

	end := t.now()
	return &Result{
		Model: model,
		Metadata: Metadata{
			RunID:            runID,
			Search:           t.cfg,
			BestParams:       search.Best,
			CVScore:          search.BestScore,
			TestScore:        testScore,
			SearchTime:       search.Duration.Seconds(),
			TrainingDuration: end.Sub(start),
			TrainedAt:        end,
			TrainSize:        len(trainIdx),
			TestSize:         len(testIdx),
			Approved:         len(pos),
			Rejected:         len(neg),
		},
	}, nil
}

// Assess returns the accuracy of model on labeled words
func (t *Trainer) Assess(ctx context.Context, model Model, approved, rejected map[string][]string) (float64, error) {
	pos, neg := sortedKeys(approved), sortedKeys(rejected)
	words := append(pos, neg...)
	if len(words) == 0 {
		return 0, fmt.Errorf("%w: nothing to assess", ErrTooFewSamples)
	}
	labels := make([]int, len(words))
	for i := range pos {
		labels[i] = 1
	}
	X, err := t.vectors(ctx, words, func(w string) []string {
		if c, ok := approved[w]; ok {
			return c
		}
		return rejected[w]
	})
	if err != nil {
		return 0, err
	}
	pred, err := model.Predict(X)
	if err != nil {
		return 0, err
	}
	return Accuracy(pred, labels), nil
}

func (t *Trainer) vectors(ctx context.Context, words []string, clues func(string) []string) ([][]float64, error) {
	prompts := make([]string, len(words))
	for i, w := range words {
		prompts[i] = t.encoder.Encode(w, clues(w))
	}
	return t.embed.Embed(ctx, prompts)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// balance truncates both classes to the smaller size after a seeded shuffle
func balance(pos, neg []string, seed int64) ([]string, []string) {
	n := min(len(pos), len(neg))
	rng := rand.New(rand.NewPCG(uint64(seed), 1))
	shuffle := func(s []string) []string {
		s = slices.Clone(s)
		rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		return s[:n]
	}
	return shuffle(pos), shuffle(neg)
}
