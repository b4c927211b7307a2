// profile.go

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

// Package profile holds the static per-drone-family constants and the tuning
// presets that parameterise the control model.  A Profile is read-only,
// process-wide configuration selected once at startup.
package profile

import (
	"fmt"
	"time"
)

// StickRange is the raw numeric interval a drone family's protocol uses to
// represent one control axis.
type StickRange struct {
	Min    float64
	Center float64
	Max    float64
}

// HalfRange is the distance from center to an extreme.
func (r StickRange) HalfRange() float64 { return r.Max - r.Center }

// FullRange is the distance from Min to Max.
func (r StickRange) FullRange() float64 { return r.Max - r.Min }

// ControlProfile is one tuning preset, expressed as ratios of the stick range
// so the same preset names mean comparable behaviour across families.
type ControlProfile struct {
	Name           string
	AccelRatio     float64 // fraction of half-range per second toward an extreme
	DecelRatio     float64 // fraction of half-range per second back to center
	ExpoFactor     float64 // exponential response curve, 0 = linear
	ImmediateRatio float64 // fraction of full range applied instantly on direction reversal
}

// Profile is the static description of one drone family: stick limits,
// transport endpoints, rates and the family's preset table.  Immutable.
type Profile struct {
	Family      string
	Addr        string // drone's own IP on its WiFi network
	ControlPort int
	VideoPort   int

	Sticks   StickRange
	TickRate float64 // control packets per second

	Presets       map[string]ControlProfile
	PresetSeq     []string // sensitivity-cycling order
	DefaultPreset string

	HasVideo bool
	// Geometry for families whose stream omits the JPEG container headers.
	VideoWidth, VideoHeight, VideoComponents int
	// Modulus of the on-wire frame counter (256 for single-byte counters,
	// 65536 for 16-bit ones).
	FrameCounterWrap int

	StreamTimeout time.Duration // silence on the video socket before a stream restart
	FrameTimeout  time.Duration // window to complete one frame before it is discarded
}

// Preset returns the named tuning preset for this family.
func (p Profile) Preset(name string) (ControlProfile, error) {
	cp, ok := p.Presets[name]
	if !ok {
		return ControlProfile{}, fmt.Errorf("unknown preset %q for family %s", name, p.Family)
	}
	return cp, nil
}

var families = map[string]Profile{
	"s2x": {
		Family:      "s2x",
		Addr:        "172.16.10.1",
		ControlPort: 8080,
		VideoPort:   8888,
		Sticks:      StickRange{Min: 60, Center: 128, Max: 200},
		TickRate:    80,
		Presets: map[string]ControlProfile{
			"normal":     {"normal", 2.08, 4.86, 0.5, 0.02},
			"precise":    {"precise", 1.39, 5.56, 0.3, 0.01},
			"aggressive": {"aggressive", 4.17, 3.89, 1.5, 0.11},
		},
		PresetSeq:        []string{"normal", "precise", "aggressive"},
		DefaultPreset:    "normal",
		HasVideo:         true,
		FrameCounterWrap: 256,
		StreamTimeout:    2 * time.Second,
		FrameTimeout:     500 * time.Millisecond,
	},
	"wifiuav": {
		Family:      "wifiuav",
		Addr:        "192.168.169.1",
		ControlPort: 8800,
		VideoPort:   8800,
		Sticks:      StickRange{Min: 40, Center: 128, Max: 220},
		TickRate:    60, // the firmware misbehaves below ~50Hz and above ~80Hz
		Presets: map[string]ControlProfile{
			"normal":     {"normal", 2.0, 4.0, 0.5, 0.02},
			"precise":    {"precise", 1.2, 5.0, 0.3, 0.01},
			"aggressive": {"aggressive", 4.0, 3.0, 1.2, 0.10},
		},
		PresetSeq:        []string{"normal", "precise", "aggressive"},
		DefaultPreset:    "normal",
		HasVideo:         true,
		VideoWidth:       640,
		VideoHeight:      360,
		VideoComponents:  3,
		FrameCounterWrap: 65536,
		StreamTimeout:    2 * time.Second,
		FrameTimeout:     150 * time.Millisecond,
	},
	"cooingdv": {
		Family:      "cooingdv",
		Addr:        "192.168.1.1",
		ControlPort: 7099,
		VideoPort:   7070,
		Sticks:      StickRange{Min: 50, Center: 128, Max: 200},
		TickRate:    50,
		Presets: map[string]ControlProfile{
			"normal":     {"normal", 1.5, 2.5, 0.5, 0.02},
			"precise":    {"precise", 1.0, 3.0, 0.3, 0.01},
			"aggressive": {"aggressive", 3.0, 2.0, 1.5, 0.10},
		},
		PresetSeq:     []string{"normal", "precise", "aggressive"},
		DefaultPreset: "normal",
		// Video is a standard RTSP stream handled outside this module.
		HasVideo: false,
	},
}

// Families returns the names of all supported drone families.
func Families() []string {
	return []string{"s2x", "wifiuav", "cooingdv"}
}

// ForFamily returns the static profile for the named drone family.
// The preset table is copied so callers may layer overrides onto it.
func ForFamily(name string) (Profile, error) {
	p, ok := families[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown drone family %q (supported: s2x, wifiuav, cooingdv)", name)
	}
	presets := make(map[string]ControlProfile, len(p.Presets))
	for k, v := range p.Presets {
		presets[k] = v
	}
	p.Presets = presets
	return p, nil
}
