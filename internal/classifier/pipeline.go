package classifier

import (
	"encoding/json"
	"fmt"
)

const artifactFormat = "standard-scaler+svc/v1"

// Pipeline standardizes features and then applies an SVC
type Pipeline struct {
	Scaler *StandardScaler `json:"scaler"`
	SVC    *SVC            `json:"svc"`
}

// NewPipeline creates an untrained pipeline
func NewPipeline(p Params, tolerance float64, maxIter int) *Pipeline {
	return &Pipeline{
		Scaler: &StandardScaler{},
		SVC:    NewSVC(p, tolerance, maxIter),
	}
}

// Fit trains the scaler and the classifier
func (p *Pipeline) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	scaled, err := p.Scaler.FitTransform(X)
	if err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}
	if err := p.SVC.Fit(scaled, y); err != nil {
		return fmt.Errorf("fit svc: %w", err)
	}
	return nil
}

// DecisionFunction returns the signed margin of each row
func (p *Pipeline) DecisionFunction(X [][]float64) ([]float64, error) {
	if p.Scaler == nil || p.SVC == nil || !p.SVC.Fitted {
		return nil, ErrNotFitted
	}
	scaled, err := p.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.SVC.DecisionFunction(scaled)
}

// Predict returns 1 (approved) or 0 (rejected) per row
func (p *Pipeline) Predict(X [][]float64) ([]int, error) {
	dec, err := p.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return labels(dec), nil
}

// Score returns the accuracy on labeled rows
func (p *Pipeline) Score(X [][]float64, y []int) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return Accuracy(pred, y), nil
}

type artifact struct {
	Format   string    `json:"format"`
	Pipeline *Pipeline `json:"pipeline"`
}

// MarshalBinary serializes the fitted pipeline
func (p *Pipeline) MarshalBinary() ([]byte, error) {
	if p.SVC == nil || !p.SVC.Fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(artifact{Format: artifactFormat, Pipeline: p})
}

// UnmarshalBinary restores a pipeline written by MarshalBinary
func (p *Pipeline) UnmarshalBinary(data []byte) error {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if a.Format != artifactFormat {
		return fmt.Errorf("unsupported model format %q", a.Format)
	}
	if a.Pipeline == nil || a.Pipeline.Scaler == nil || a.Pipeline.SVC == nil {
		return fmt.Errorf("decode model: incomplete pipeline")
	}
	*p = *a.Pipeline
	return nil
}
