// strategy.go

// Copyright (C) 2025  The toydrone authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package control

import "math"

// Strategy defines how one normalised axis command moves the raw stick
// values during a control tick.  Strategies are stateless with respect to
// tuning; all tuning lives on the Model so strategies can be swapped at
// runtime without losing it.
type Strategy interface {
	Name() string
	Update(m *Model, dt float64, ax Axes)
}

// DirectStrategy maps the normalised stick position straight onto the raw
// range every tick, optionally through the model's expo curve.  It is
// magnitude-faithful and latency-free, which is what gamepads and autonomous
// plugins want.
type DirectStrategy struct{}

// Name implements Strategy.
func (DirectStrategy) Name() string { return "direct" }

// Update implements Strategy.
func (DirectStrategy) Update(m *Model, _ float64, ax Axes) {
	expo := m.Tuning.ExpoFactor
	m.Throttle = m.ScaleNormalized(applyExpo(ax.Throttle, expo))
	m.Yaw = m.ScaleNormalized(applyExpo(ax.Yaw, expo))
	m.Pitch = m.ScaleNormalized(applyExpo(ax.Pitch, expo))
	m.Roll = m.ScaleNormalized(applyExpo(ax.Roll, expo))
}

// applyExpo suppresses small deflections relative to large ones:
// v' = sign(v) * |v|^(1+expo).  expo 0 is the identity.
func applyExpo(v, expo float64) float64 {
	if expo == 0 || v == 0 {
		return v
	}
	return math.Copysign(math.Pow(math.Abs(v), 1+expo), v)
}

// IncrementalStrategy treats each axis as discrete intent (<0, 0, >0) and
// nudges the raw value toward the corresponding extreme, or back to center
// when the axis is released.  The per-tick change is bounded by the model's
// accel/decel rates; the only exception is the immediate-response jump
// applied once when the pilot reverses direction on a boosted axis, which
// hides the ramp-up lag.  Suits keyboard (WASD-style) input.
type IncrementalStrategy struct{}

// Name implements Strategy.
func (IncrementalStrategy) Name() string { return "incremental" }

// Update implements Strategy.
func (IncrementalStrategy) Update(m *Model, dt float64, ax Axes) {
	// Pitch and roll get the reversal boost; throttle and yaw ramp only,
	// a throttle jump on reversal feels violent on these airframes.
	step(m, &m.Throttle, intent(ax.Throttle), &m.lastThrottleDir, false, dt)
	step(m, &m.Yaw, intent(ax.Yaw), &m.lastYawDir, false, dt)
	step(m, &m.Pitch, intent(ax.Pitch), &m.lastPitchDir, true, dt)
	step(m, &m.Roll, intent(ax.Roll), &m.lastRollDir, true, dt)
}

func intent(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func step(m *Model, cur *float64, dir int, lastDir *int, boost bool, dt float64) {
	v := *cur
	switch {
	case dir > 0:
		if boost && *lastDir <= 0 {
			v += math.Min(m.Range.Max-v, m.Tuning.ImmediateResponse)
		}
		v = math.Min(m.Range.Max, v+m.Tuning.AccelRate*dt)
	case dir < 0:
		if boost && *lastDir >= 0 {
			v -= math.Min(v-m.Range.Min, m.Tuning.ImmediateResponse)
		}
		v = math.Max(m.Range.Min, v-m.Tuning.AccelRate*dt)
	default:
		// released: decay back to center without overshooting it
		if v > m.Range.Center {
			v = math.Max(m.Range.Center, v-m.Tuning.DecelRate*dt)
		} else if v < m.Range.Center {
			v = math.Min(m.Range.Center, v+m.Tuning.DecelRate*dt)
		}
	}
	*lastDir = dir
	*cur = v
}
