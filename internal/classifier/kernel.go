package classifier

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Supported kernels
const (
	KernelLinear  = "linear"
	KernelPoly    = "poly"
	KernelRBF     = "rbf"
	KernelSigmoid = "sigmoid"
)

// Gamma modes resolved from the training data
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

// Params are the SVC hyperparameters searched by the grid
type Params struct {
	Kernel string  `json:"kernel" yaml:"kernel"`
	Degree int     `json:"degree" yaml:"degree"`
	Gamma  string  `json:"gamma" yaml:"gamma"`
	Coef0  float64 `json:"coef0" yaml:"coef0"`
	C      float64 `json:"C" yaml:"C"`
}

func (p Params) String() string {
	switch p.Kernel {
	case KernelLinear:
		return fmt.Sprintf("kernel=linear C=%g", p.C)
	case KernelPoly:
		return fmt.Sprintf("kernel=poly degree=%d gamma=%s coef0=%g C=%g", p.Degree, p.Gamma, p.Coef0, p.C)
	case KernelRBF:
		return fmt.Sprintf("kernel=rbf gamma=%s C=%g", p.Gamma, p.C)
	}
	return fmt.Sprintf("kernel=%s gamma=%s coef0=%g C=%g", p.Kernel, p.Gamma, p.Coef0, p.C)
}

// Validate checks the parameter values
func (p Params) Validate() error {
	switch p.Kernel {
	case KernelLinear, KernelPoly, KernelRBF, KernelSigmoid:
	default:
		return fmt.Errorf("unknown kernel %q", p.Kernel)
	}
	if p.C <= 0 {
		return fmt.Errorf("C must be positive, got %g", p.C)
	}
	if p.Kernel == KernelPoly && p.Degree < 1 {
		return fmt.Errorf("poly degree must be at least 1, got %d", p.Degree)
	}
	if p.Kernel != KernelLinear {
		if _, err := parseGamma(p.Gamma); err != nil {
			return err
		}
	}
	return nil
}

// parseGamma returns a fixed gamma, or 0 for the data-dependent modes
func parseGamma(g string) (float64, error) {
	switch g {
	case GammaScale, GammaAuto, "":
		return 0, nil
	}
	v, err := strconv.ParseFloat(g, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid gamma %q", g)
	}
	return v, nil
}

// resolveGamma turns the gamma setting into a number for the scaled training data
func resolveGamma(g string, X [][]float64) float64 {
	width := float64(len(X[0]))
	switch g {
	case GammaAuto:
		return 1 / width
	case GammaScale, "":
		all := make([]float64, 0, len(X)*len(X[0]))
		for _, row := range X {
			all = append(all, row...)
		}
		mean := floats.Sum(all) / float64(len(all))
		var v float64
		for _, x := range all {
			v += (x - mean) * (x - mean)
		}
		v /= float64(len(all))
		if v == 0 {
			return 1
		}
		return 1 / (width * v)
	}
	v, _ := parseGamma(g)
	return v
}

type kernelFunc func(a, b []float64) float64

func newKernel(kernel string, degree int, gamma, coef0 float64) kernelFunc {
	switch kernel {
	case KernelPoly:
		return func(a, b []float64) float64 {
			return math.Pow(gamma*floats.Dot(a, b)+coef0, float64(degree))
		}
	case KernelRBF:
		return func(a, b []float64) float64 {
			d := floats.Distance(a, b, 2)
			return math.Exp(-gamma * d * d)
		}
	case KernelSigmoid:
		return func(a, b []float64) float64 {
			return math.Tanh(gamma*floats.Dot(a, b) + coef0)
		}
	}
	return floats.Dot
}
