package control

import (
	"encoding/json"
	"sync"

	"github.com/basalt-robotics/cortex/internal/store"
)

// Regressor is the MuscleMemory contract: §1 explicitly excludes a real
// Gaussian Process implementation, so this ships a minimal online linear
// regressor with a fixed-variance floor — enough to exercise
// predict/learn/save/load end to end without claiming GP fidelity.
type Regressor interface {
	Predict(features []float64) (mean, variance float64)
	Learn(features []float64, target, surprise float64)
	Save(st store.Store) error
	Load(st store.Store) error
}

// LinearRegressor is the shipped Regressor implementation: a running
// weighted-average linear model updated by gradient descent on each
// observation, with variance estimated from the surprise values recently
// passed to Learn.
type LinearRegressor struct {
	mu sync.Mutex

	weights      []float64
	bias         float64
	learningRate float64

	varianceFloor float64
	emaError      float64
}

const defaultLearningRate = 0.01
const defaultVarianceFloor = 0.05

func NewLinearRegressor(nFeatures int) *LinearRegressor {
	return &LinearRegressor{
		weights:       make([]float64, nFeatures),
		learningRate:  defaultLearningRate,
		varianceFloor: defaultVarianceFloor,
	}
}

func (r *LinearRegressor) Predict(features []float64) (mean, variance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mean = r.bias
	for i, f := range features {
		if i < len(r.weights) {
			mean += r.weights[i] * f
		}
	}
	variance = r.varianceFloor + r.emaError
	return mean, variance
}

// Learn performs one gradient step toward target, and folds the observed
// surprise into the running error estimate that feeds predicted variance
// — a noisier recent history widens future predicted variance, which is
// what drives the FEP controller's exploration behavior.
func (r *LinearRegressor) Learn(features []float64, target, surprise float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pred := r.bias
	for i, f := range features {
		if i < len(r.weights) {
			pred += r.weights[i] * f
		}
	}
	err := target - pred

	r.bias += r.learningRate * err
	for i, f := range features {
		if i < len(r.weights) {
			r.weights[i] += r.learningRate * err * f
		}
	}

	const emaAlpha = 0.1
	r.emaError = (1-emaAlpha)*r.emaError + emaAlpha*surprise
}

type persistedRegressor struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	LearningRate float64   `json:"learning_rate"`
	EMAError     float64   `json:"ema_error"`
}

func (r *LinearRegressor) Save(st store.Store) error {
	r.mu.Lock()
	data, err := json.Marshal(persistedRegressor{
		Weights:      r.weights,
		Bias:         r.bias,
		LearningRate: r.learningRate,
		EMAError:     r.emaError,
	})
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return st.Save(data)
}

func (r *LinearRegressor) Load(st store.Store) error {
	data, err := st.Load()
	if err != nil || len(data) == 0 {
		return err
	}
	var p persistedRegressor
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	r.mu.Lock()
	r.weights = p.Weights
	r.bias = p.Bias
	if p.LearningRate > 0 {
		r.learningRate = p.LearningRate
	}
	r.emaError = p.EMAError
	r.mu.Unlock()
	return nil
}

var _ Regressor = (*LinearRegressor)(nil)
