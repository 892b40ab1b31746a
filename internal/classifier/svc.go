package classifier

import (
	"fmt"
	"math"
)

const (
	tau = 1e-12

	defaultTolerance = 1e-3
	defaultCacheRows = 2000
)

// SVC is a binary C-support vector classifier trained with sequential
// minimal optimization (second order working set selection).
type SVC struct {
	Params    Params  `json:"params"`
	Tolerance float64 `json:"tolerance"`
	// MaxIter caps solver iterations; -1 means no explicit cap
	MaxIter   int `json:"max_iter"`
	CacheRows int `json:"-"`

	GammaValue     float64     `json:"gamma_value"`
	SupportVectors [][]float64 `json:"support_vectors"`
	DualCoef       []float64   `json:"dual_coef"`
	Rho            float64     `json:"rho"`
	Iterations     int         `json:"iterations"`
	Fitted         bool        `json:"fitted"`

	kernel kernelFunc
}

// NewSVC creates an untrained SVC
func NewSVC(p Params, tolerance float64, maxIter int) *SVC {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	if maxIter == 0 {
		maxIter = -1
	}
	return &SVC{Params: p, Tolerance: tolerance, MaxIter: maxIter}
}

// Fit trains on rows X with labels y in {0, 1}
func (s *SVC) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	if err := s.Params.Validate(); err != nil {
		return err
	}

	n := len(X)
	ys := make([]float64, n)
	var pos, neg int
	for i, label := range y {
		switch label {
		case 1:
			ys[i] = 1
			pos++
		case 0:
			ys[i] = -1
			neg++
		default:
			return fmt.Errorf("label %d at row %d is not 0 or 1", label, i)
		}
	}
	if pos == 0 || neg == 0 {
		return ErrEmptyClass
	}

	s.GammaValue = 0
	if s.Params.Kernel != KernelLinear {
		s.GammaValue = resolveGamma(s.Params.Gamma, X)
	}
	s.kernel = newKernel(s.Params.Kernel, s.Params.Degree, s.GammaValue, s.Params.Coef0)

	sol := newSolver(X, ys, s.Params.C, s.Tolerance, s.kernel, s.CacheRows)
	maxIter := s.MaxIter
	if maxIter < 0 {
		maxIter = max(10000000, 100*n)
	}
	s.Iterations = sol.solve(maxIter)
	s.Rho = sol.rho()

	s.SupportVectors = s.SupportVectors[:0]
	s.DualCoef = s.DualCoef[:0]
	for i, a := range sol.alpha {
		if a > 0 {
			s.SupportVectors = append(s.SupportVectors, X[i])
			s.DualCoef = append(s.DualCoef, ys[i]*a)
		}
	}
	s.Fitted = true
	return nil
}

// DecisionFunction returns the signed margin of each row
func (s *SVC) DecisionFunction(X [][]float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	if s.kernel == nil {
		s.kernel = newKernel(s.Params.Kernel, s.Params.Degree, s.GammaValue, s.Params.Coef0)
	}
	width := -1
	if len(s.SupportVectors) > 0 {
		width = len(s.SupportVectors[0])
	}

	out := make([]float64, len(X))
	for i, row := range X {
		if width >= 0 && len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimension, i, len(row), width)
		}
		sum := -s.Rho
		for k, sv := range s.SupportVectors {
			sum += s.DualCoef[k] * s.kernel(sv, row)
		}
		out[i] = sum
	}
	return out, nil
}

// Predict returns 1 for rows with a positive margin and 0 otherwise
func (s *SVC) Predict(X [][]float64) ([]int, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return labels(dec), nil
}

func labels(dec []float64) []int {
	out := make([]int, len(dec))
	for i, d := range dec {
		if d > 0 {
			out[i] = 1
		}
	}
	return out
}

// solver holds the dual problem state:
// min 1/2 a'Qa - e'a, 0 <= a <= C, y'a = 0, with Q_ij = y_i y_j K(x_i, x_j)
type solver struct {
	x     [][]float64
	y     []float64
	c     float64
	eps   float64
	alpha []float64
	grad  []float64
	diag  []float64
	cache *rowCache
}

func newSolver(X [][]float64, y []float64, c, eps float64, k kernelFunc, cacheRows int) *solver {
	n := len(X)
	s := &solver{
		x:     X,
		y:     y,
		c:     c,
		eps:   eps,
		alpha: make([]float64, n),
		grad:  make([]float64, n),
		diag:  make([]float64, n),
	}
	s.cache = newRowCache(n, cacheRows, func(i int) []float64 {
		row := make([]float64, n)
		for j := range row {
			row[j] = y[i] * y[j] * k(X[i], X[j])
		}
		return row
	})
	for i := range X {
		s.grad[i] = -1
		s.diag[i] = k(X[i], X[i])
	}
	return s
}

func (s *solver) upper(i int) bool { return s.alpha[i] >= s.c }
func (s *solver) lower(i int) bool { return s.alpha[i] <= 0 }

// selectPair returns the maximal violating pair, or ok=false at optimality
func (s *solver) selectPair() (int, int, bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := range s.alpha {
		if s.y[t] > 0 {
			if !s.upper(t) && -s.grad[t] >= gmax {
				gmax, i = -s.grad[t], t
			}
		} else if !s.lower(t) && s.grad[t] >= gmax {
			gmax, i = s.grad[t], t
		}
	}
	if i == -1 {
		return 0, 0, false
	}

	qi := s.cache.row(i)
	j := -1
	objMin := math.Inf(1)
	for t := range s.alpha {
		var diff float64
		if s.y[t] > 0 {
			if s.lower(t) {
				continue
			}
			gmax2 = math.Max(gmax2, s.grad[t])
			diff = gmax + s.grad[t]
		} else {
			if s.upper(t) {
				continue
			}
			gmax2 = math.Max(gmax2, -s.grad[t])
			diff = gmax - s.grad[t]
		}
		if diff <= 0 {
			continue
		}
		quad := s.diag[i] + s.diag[t] - 2*s.y[i]*s.y[t]*qi[t]
		if quad <= 0 {
			quad = tau
		}
		if obj := -diff * diff / quad; obj <= objMin {
			j, objMin = t, obj
		}
	}

	if gmax+gmax2 < s.eps || j == -1 {
		return 0, 0, false
	}
	return i, j, true
}

func (s *solver) solve(maxIter int) int {
	iter := 0
	for ; iter < maxIter; iter++ {
		i, j, ok := s.selectPair()
		if !ok {
			break
		}
		qi, qj := s.cache.row(i), s.cache.row(j)
		oldI, oldJ := s.alpha[i], s.alpha[j]
		ai, aj := oldI, oldJ
		c := s.c

		if s.y[i] != s.y[j] {
			quad := s.diag[i] + s.diag[j] + 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (-s.grad[i] - s.grad[j]) / quad
			diff := ai - aj
			ai += delta
			aj += delta
			if diff > 0 {
				if aj < 0 {
					aj, ai = 0, diff
				}
			} else if ai < 0 {
				ai, aj = 0, -diff
			}
			if diff > 0 {
				if ai > c {
					ai, aj = c, c-diff
				}
			} else if aj > c {
				aj, ai = c, c+diff
			}
		} else {
			quad := s.diag[i] + s.diag[j] - 2*qi[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (s.grad[i] - s.grad[j]) / quad
			sum := ai + aj
			ai -= delta
			aj += delta
			if sum > c {
				if ai > c {
					ai, aj = c, sum-c
				}
			} else if aj < 0 {
				aj, ai = 0, sum
			}
			if sum > c {
				if aj > c {
					aj, ai = c, sum-c
				}
			} else if ai < 0 {
				ai, aj = 0, sum
			}
		}

		s.alpha[i], s.alpha[j] = ai, aj
		di, dj := ai-oldI, aj-oldJ
		for k := range s.grad {
			s.grad[k] += qi[k]*di + qj[k]*dj
		}
	}
	return iter
}

func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var free int
	var sumFree float64
	for i := range s.alpha {
		yg := s.y[i] * s.grad[i]
		switch {
		case s.upper(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.lower(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	if free > 0 {
		return sumFree / float64(free)
	}
	return (ub + lb) / 2
}

// rowCache keeps recently used Q rows, evicting the oldest when full
type rowCache struct {
	rows    [][]float64
	order   []int
	limit   int
	compute func(i int) []float64
}

func newRowCache(n, limit int, compute func(int) []float64) *rowCache {
	if limit <= 0 {
		limit = defaultCacheRows
	}
	return &rowCache{rows: make([][]float64, n), limit: limit, compute: compute}
}

func (c *rowCache) row(i int) []float64 {
	if r := c.rows[i]; r != nil {
		return r
	}
	if len(c.order) >= c.limit {
		c.rows[c.order[0]] = nil
		c.order = c.order[1:]
	}
	r := c.compute(i)
	c.rows[i] = r
	c.order = append(c.order, i)
	return r
}
