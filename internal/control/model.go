// model.go

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

// Package control converts normalised axis commands into the raw stick values
// a drone family's wire protocol expects, over time and with human-perceptible
// control feel (acceleration ramps, expo curves, direction-reversal boost).
package control

import (
	"math"

	"github.com/openuav/toydrone/internal/profile"
)

// Axes is one normalised axis command.  Every field ranges -1..+1.
type Axes struct {
	Throttle float64 `json:"throttle"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
	Roll     float64 `json:"roll"`
}

// Clamped returns a copy with every axis limited to [-1,+1].
func (a Axes) Clamped() Axes {
	return Axes{
		Throttle: clamp1(a.Throttle),
		Yaw:      clamp1(a.Yaw),
		Pitch:    clamp1(a.Pitch),
		Roll:     clamp1(a.Roll),
	}
}

// Neutral reports whether every axis is within the given deadzone of zero.
func (a Axes) Neutral(deadzone float64) bool {
	return math.Abs(a.Throttle) <= deadzone && math.Abs(a.Yaw) <= deadzone &&
		math.Abs(a.Pitch) <= deadzone && math.Abs(a.Roll) <= deadzone
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Flags carries the discrete commands a control packet can encode.
// Takeoff, Land, Stop, Flip and Calibrate are one-shot: they are set by a
// command message, encoded into exactly one outgoing packet and then cleared.
// Headless and Recording are persistent toggles.
type Flags struct {
	Takeoff   bool
	Land      bool
	Stop      bool
	Flip      bool
	Calibrate bool
	Headless  bool
	Recording bool
}

// Tuning is a preset resolved into raw stick units for one session.
type Tuning struct {
	AccelRate         float64 // raw units per second toward an extreme
	DecelRate         float64 // raw units per second back toward center
	ExpoFactor        float64
	ImmediateResponse float64 // raw units applied instantly on direction reversal
}

// Model holds the current raw stick values and tuning for one drone session.
// It is not safe for concurrent use; the owning FlightController serialises
// access to it.
type Model struct {
	Range profile.StickRange

	// Raw stick values, always within [Range.Min, Range.Max].
	Throttle float64
	Yaw      float64
	Pitch    float64
	Roll     float64

	Flags Flags
	Speed byte // s2x speed byte, fixed 0x14 in every app capture

	Tuning Tuning

	presets   map[string]profile.ControlProfile
	presetSeq []string
	strategy  Strategy

	lastThrottleDir int
	lastYawDir      int
	lastPitchDir    int
	lastRollDir     int
}

// NewModel builds a Model for the given family profile with the named preset
// applied and all axes centred.  The default strategy is Incremental, which
// suits discrete keyboard input.
func NewModel(p profile.Profile, preset string) (*Model, error) {
	m := &Model{
		Range:     p.Sticks,
		Speed:     0x14,
		presets:   p.Presets,
		presetSeq: p.PresetSeq,
		strategy:  &IncrementalStrategy{},
	}
	m.Center()
	if err := m.ApplyPreset(preset); err != nil {
		return nil, err
	}
	return m, nil
}

// Center returns all four axes to the stick-range center.
func (m *Model) Center() {
	m.Throttle = m.Range.Center
	m.Yaw = m.Range.Center
	m.Pitch = m.Range.Center
	m.Roll = m.Range.Center
}

// ApplyPreset resolves the named preset's ratios into raw units and installs
// them.  Raw stick state and the active strategy are untouched.
func (m *Model) ApplyPreset(name string) error {
	cp, ok := m.presets[name]
	if !ok {
		return &UnknownPresetError{Name: name}
	}
	m.Tuning = Tuning{
		AccelRate:         cp.AccelRatio * m.Range.HalfRange(),
		DecelRate:         cp.DecelRatio * m.Range.HalfRange(),
		ExpoFactor:        cp.ExpoFactor,
		ImmediateResponse: cp.ImmediateRatio * m.Range.FullRange(),
	}
	return nil
}

// CycleSensitivity applies the n-th preset of the family's cycling order.
func (m *Model) CycleSensitivity(n int) {
	if len(m.presetSeq) == 0 {
		return
	}
	idx := n % len(m.presetSeq)
	if idx < 0 {
		idx += len(m.presetSeq)
	}
	// presetSeq only names presets that exist, so this cannot fail.
	_ = m.ApplyPreset(m.presetSeq[idx])
}

// UnknownPresetError reports a preset name absent from the family's table.
type UnknownPresetError struct{ Name string }

func (e *UnknownPresetError) Error() string { return "unknown control preset \"" + e.Name + "\"" }

// SetStrategy swaps the active control strategy.  Tuning lives on the model,
// so a swap never loses expo/accel/decel state.
func (m *Model) SetStrategy(s Strategy) { m.strategy = s }

// Strategy returns the active control strategy.
func (m *Model) Strategy() Strategy { return m.strategy }

// Update advances the raw stick values by one control tick.
func (m *Model) Update(dt float64, ax Axes) {
	m.strategy.Update(m, dt, ax.Clamped())
	m.ClampRaw()
}

// ClampRaw forces every raw value back inside the profile's stick range.
func (m *Model) ClampRaw() {
	m.Throttle = m.clampRaw(m.Throttle)
	m.Yaw = m.clampRaw(m.Yaw)
	m.Pitch = m.clampRaw(m.Pitch)
	m.Roll = m.clampRaw(m.Roll)
}

func (m *Model) clampRaw(v float64) float64 {
	if v < m.Range.Min {
		return m.Range.Min
	}
	if v > m.Range.Max {
		return m.Range.Max
	}
	return v
}

// ScaleNormalized maps a normalised value in [-1,+1] onto the raw stick
// range.  The mapping is exact at the boundaries: -1 -> Min, 0 -> Center,
// +1 -> Max.
func (m *Model) ScaleNormalized(v float64) float64 {
	v = clamp1(v)
	if v >= 0 {
		return m.Range.Center + v*(m.Range.Max-m.Range.Center)
	}
	return m.Range.Center + v*(m.Range.Center-m.Range.Min)
}

// ClearOneShots resets the one-shot command flags after they have been
// encoded into an outgoing packet.  Toggle flags persist.
func (m *Model) ClearOneShots() {
	m.Flags.Takeoff = false
	m.Flags.Land = false
	m.Flags.Stop = false
	m.Flags.Flip = false
	m.Flags.Calibrate = false
}
