// Package control implements the gain-modulated predictive controller
// (FEPController) and its MuscleMemory regressor contract.
package control

import (
	"math"
	"sync/atomic"

	"github.com/basalt-robotics/cortex/internal/store"
)

const (
	minStability = 0.2
	recoveryRate = 0.01

	// uncertaintyThreshold: above this predicted variance, the
	// controller adds an exploration bonus and flags is_exploring.
	uncertaintyThreshold = 0.5
	explorationGain      = 2.0

	baseVelocityLimit = 1.0
)

// Solution is the output of one solve() call.
type Solution struct {
	Force        float64
	VelocityLimit float64
	IsExploring  bool
}

// Controller is the FEPController.
type Controller struct {
	memory Regressor

	// stabilityBits stores stability_factor as a float64 bit pattern in
	// an atomic so solve() can read it concurrently with
	// ReduceGainForStability/UpdateInternalState without a mutex on the
	// hot path, per the concurrency model.
	stabilityBits atomic.Uint64
}

func NewController(memory Regressor) *Controller {
	c := &Controller{memory: memory}
	c.setStability(1.0)
	return c
}

func (c *Controller) stability() float64 {
	return math.Float64frombits(c.stabilityBits.Load())
}

func (c *Controller) setStability(v float64) {
	c.stabilityBits.Store(math.Float64bits(v))
}

// Solve computes a force command and velocity limit from the predictive
// model's output, scaled by the current stability factor.
func (c *Controller) Solve(features []float64) Solution {
	mean, variance := c.memory.Predict(features)

	raw := mean
	isExploring := false
	if variance > uncertaintyThreshold {
		raw += explorationGain * variance
		isExploring = true
	}

	stability := c.stability()
	return Solution{
		Force:         raw * stability,
		VelocityLimit: baseVelocityLimit * stability,
		IsExploring:   isExploring,
	}
}

// ReduceGainForStability halves the stability factor (clamped at
// minStability), invoked on BLURRY frames — a fast multiplicative
// decay in response to perceptual degradation.
func (c *Controller) ReduceGainForStability() {
	current := c.stability()
	next := current * 0.5
	if next < minStability {
		next = minStability
	}
	c.setStability(next)
}

// UpdateInternalState recovers the stability factor slowly, additively,
// back toward 1.0. Called once every tick.
func (c *Controller) UpdateInternalState() {
	current := c.stability()
	if current < 1.0 {
		next := current + recoveryRate
		if next > 1.0 {
			next = 1.0
		}
		c.setStability(next)
	}
}

// StabilityFactor exposes the current value for diagnostics and tests.
func (c *Controller) StabilityFactor() float64 {
	return c.stability()
}

// Learn forwards an observation to the underlying regressor.
func (c *Controller) Learn(features []float64, target, surprise float64) {
	c.memory.Learn(features, target, surprise)
}

func (c *Controller) Save(st store.Store) error { return c.memory.Save(st) }
func (c *Controller) Load(st store.Store) error { return c.memory.Load(st) }
