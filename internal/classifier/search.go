package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Grid lists the values tried for each hyperparameter
type Grid struct {
	Kernel []string  `json:"kernel" yaml:"kernel"`
	Degree []int     `json:"degree" yaml:"degree"`
	Gamma  []string  `json:"gamma" yaml:"gamma"`
	Coef0  []float64 `json:"coef0" yaml:"coef0"`
	C      []float64 `json:"C" yaml:"C"`
}

// DefaultGrid returns a small grid over the rbf and linear kernels
func DefaultGrid() Grid {
	return Grid{
		Kernel: []string{KernelRBF, KernelLinear},
		Degree: []int{3},
		Gamma:  []string{GammaScale},
		Coef0:  []float64{0},
		C:      []float64{0.1, 1, 10},
	}
}

// Candidates expands the grid. Parameters a kernel ignores are zeroed and
// the resulting duplicates dropped, keeping first-seen order.
func (g Grid) Candidates() ([]Params, error) {
	degrees := orDefault(g.Degree, 3)
	gammas := orDefault(g.Gamma, GammaScale)
	coefs := orDefault(g.Coef0, 0)
	if len(g.Kernel) == 0 || len(g.C) == 0 {
		return nil, fmt.Errorf("grid needs at least one kernel and one C")
	}

	seen := map[Params]bool{}
	var out []Params
	for _, k := range g.Kernel {
		for _, d := range degrees {
			for _, gm := range gammas {
				for _, c0 := range coefs {
					for _, c := range g.C {
						p := Params{Kernel: k, Degree: d, Gamma: gm, Coef0: c0, C: c}
						switch k {
						case KernelLinear:
							p.Degree, p.Gamma, p.Coef0 = 0, "", 0
						case KernelRBF:
							p.Degree, p.Coef0 = 0, 0
						case KernelSigmoid:
							p.Degree = 0
						}
						if err := p.Validate(); err != nil {
							return nil, err
						}
						if seen[p] {
							continue
						}
						seen[p] = true
						out = append(out, p)
					}
				}
			}
		}
	}
	return out, nil
}

func orDefault[T any](v []T, def T) []T {
	if len(v) == 0 {
		return []T{def}
	}
	return v
}

// SearchOptions control the cross-validated search
type SearchOptions struct {
	Folds     int
	Tolerance float64
	MaxIter   int
	CacheRows int
	Workers   int
	Logger    *slog.Logger
}

// CandidateScore is the mean validation accuracy of one candidate
type CandidateScore struct {
	Params    Params  `json:"params"`
	MeanScore float64 `json:"mean_score"`
}

// SearchResult summarizes a grid search
type SearchResult struct {
	Best      Params           `json:"best_parameters"`
	BestScore float64          `json:"best_score"`
	Folds     int              `json:"folds"`
	Scores    []CandidateScore `json:"scores"`
	Duration  time.Duration    `json:"duration"`
}

// GridSearch scores every grid candidate with stratified k-fold accuracy and
// refits the best one on all rows. Ties go to the earliest candidate.
func GridSearch(ctx context.Context, X [][]float64, y []int, grid Grid, opts SearchOptions) (*Pipeline, *SearchResult, error) {
	start := time.Now()
	if err := checkXY(X, y); err != nil {
		return nil, nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Folds == 0 {
		opts.Folds = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	candidates, err := grid.Candidates()
	if err != nil {
		return nil, nil, err
	}
	folds, err := StratifiedKFold(y, opts.Folds)
	if err != nil {
		return nil, nil, err
	}
	opts.Logger.Info("starting grid search", "candidates", len(candidates), "folds", len(folds), "rows", len(X))

	scores := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for ci, params := range candidates {
		g.Go(func() error {
			var total float64
			for _, f := range folds {
				if err := gctx.Err(); err != nil {
					return err
				}
				p := NewPipeline(params, opts.Tolerance, opts.MaxIter)
				p.SVC.CacheRows = opts.CacheRows
				if err := p.Fit(take(X, f.Train), take(y, f.Train)); err != nil {
					return fmt.Errorf("fit %s: %w", params, err)
				}
				acc, err := p.Score(take(X, f.Valid), take(y, f.Valid))
				if err != nil {
					return fmt.Errorf("score %s: %w", params, err)
				}
				total += acc
			}
			scores[ci] = total / float64(len(folds))
			opts.Logger.Debug("candidate scored", "params", params.String(), "accuracy", scores[ci])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	res := &SearchResult{Folds: len(folds), Scores: make([]CandidateScore, len(candidates))}
	best := -1
	for i, params := range candidates {
		res.Scores[i] = CandidateScore{Params: params, MeanScore: scores[i]}
		if best == -1 || scores[i] > scores[best] {
			best = i
		}
	}
	res.Best = candidates[best]
	res.BestScore = scores[best]

	model := NewPipeline(res.Best, opts.Tolerance, opts.MaxIter)
	model.SVC.CacheRows = opts.CacheRows
	if err := model.Fit(X, y); err != nil {
		return nil, nil, fmt.Errorf("refit best: %w", err)
	}
	res.Duration = time.Since(start)

	opts.Logger.Info("grid search complete", "best", res.Best.String(), "cv_accuracy", res.BestScore, "duration", res.Duration.Round(time.Millisecond))
	return model, res, nil
}
