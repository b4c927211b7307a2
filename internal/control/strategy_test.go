// strategy_test.go

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

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectStrategyLinear(t *testing.T) {
	m := testModel(t, "s2x")
	m.SetStrategy(&DirectStrategy{})
	m.Tuning.ExpoFactor = 0

	m.Update(0.0125, Axes{Yaw: 0.2})
	require.InDelta(t, 142.4, m.Yaw, 1e-9)

	// no accumulation across ticks
	m.Update(0.0125, Axes{Yaw: 0.2})
	require.InDelta(t, 142.4, m.Yaw, 1e-9)

	m.Update(0.0125, Axes{})
	require.Equal(t, m.Range.Center, m.Yaw)
}

func TestDirectStrategyExpo(t *testing.T) {
	m := testModel(t, "s2x")
	m.SetStrategy(&DirectStrategy{})
	m.Tuning.ExpoFactor = 1 // v' = v^2, sign preserved

	m.Update(0.0125, Axes{Pitch: 0.5, Roll: -0.5})
	require.InDelta(t, m.Range.Center+0.25*72, m.Pitch, 1e-9)
	require.InDelta(t, m.Range.Center-0.25*68, m.Roll, 1e-9)

	// full deflection is unaffected by expo
	m.Update(0.0125, Axes{Pitch: 1})
	require.Equal(t, m.Range.Max, m.Pitch)
}

func TestIncrementalStepBound(t *testing.T) {
	// With no reversal boost the per-tick change is bounded by
	// accel_rate*dt toward an extreme and decel_rate*dt toward center,
	// for any command sequence.
	m := testModel(t, "s2x")
	m.Tuning.ImmediateResponse = 0
	const dt = 1.0 / 80

	rng := rand.New(rand.NewSource(42))
	prev := Axes{}
	prevRaw := [4]float64{m.Throttle, m.Yaw, m.Pitch, m.Roll}
	bound := math.Max(m.Tuning.AccelRate, m.Tuning.DecelRate)*dt + 1e-9

	for i := 0; i < 2000; i++ {
		ax := Axes{
			Throttle: float64(rng.Intn(3) - 1),
			Yaw:      float64(rng.Intn(3) - 1),
			Pitch:    float64(rng.Intn(3) - 1),
			Roll:     float64(rng.Intn(3) - 1),
		}
		m.Update(dt, ax)
		raw := [4]float64{m.Throttle, m.Yaw, m.Pitch, m.Roll}
		for j := range raw {
			require.LessOrEqual(t, math.Abs(raw[j]-prevRaw[j]), bound,
				"tick %d axis %d: prev command %+v command %+v", i, j, prev, ax)
		}
		prev = ax
		prevRaw = raw
	}
}

func TestIncrementalRampAndDecay(t *testing.T) {
	m := testModel(t, "s2x")
	m.Tuning.ImmediateResponse = 0
	const dt = 0.0125

	m.Update(dt, Axes{Throttle: 1})
	require.InDelta(t, m.Range.Center+m.Tuning.AccelRate*dt, m.Throttle, 1e-9)

	// hold until saturated; never past max
	for i := 0; i < 1000; i++ {
		m.Update(dt, Axes{Throttle: 1})
	}
	require.Equal(t, m.Range.Max, m.Throttle)

	// released: decays to center and stops there exactly
	for i := 0; i < 1000; i++ {
		m.Update(dt, Axes{})
	}
	require.Equal(t, m.Range.Center, m.Throttle)
}

func TestIncrementalDecayNeverOvershootsCenter(t *testing.T) {
	m := testModel(t, "s2x")
	m.Tuning.DecelRate = 1e6 // absurdly fast decay must still stop at center
	m.Throttle = m.Range.Center + 1

	m.Update(0.0125, Axes{})
	require.Equal(t, m.Range.Center, m.Throttle)
}

func TestIncrementalReversalBoost(t *testing.T) {
	m := testModel(t, "s2x")
	m.Tuning.ImmediateResponse = 10
	const dt = 0.0125

	// establish forward pitch
	m.Update(dt, Axes{Pitch: 1})
	fwd := m.Pitch
	require.Greater(t, fwd, m.Range.Center)

	// reversal jumps by the immediate response on top of the ramp
	m.Update(dt, Axes{Pitch: -1})
	require.InDelta(t, fwd-10-m.Tuning.AccelRate*dt, m.Pitch, 1e-9)

	// throttle and yaw never get the jump
	m.Update(dt, Axes{Yaw: 1})
	yawUp := m.Yaw
	m.Update(dt, Axes{Yaw: -1})
	require.InDelta(t, yawUp-m.Tuning.AccelRate*dt, m.Yaw, 1e-9)
}
