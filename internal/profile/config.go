// config.go

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

package profile

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the complete, immutable runtime configuration for one drone
// session.  It is resolved exactly once at startup (environment variables
// layered over the family defaults) and passed explicitly to the components
// that need it.  Resolution errors are fatal before any socket is opened.
type Config struct {
	Profile Profile
	Preset  string

	// Follow-plugin tuning.
	FollowYawDeadzone   float64
	FollowPitchDeadzone float64
	FollowMinBoxWidth   float64
	FollowMaxBoxWidth   float64
	FollowYawCmd        float64 // constant correction magnitude, 0..1
	FollowPitchCmd      float64
	FollowInvertYaw     bool
	FollowInvertPitch   bool
}

// Environment variables recognised by Resolve.  All are optional; the family
// profile supplies the documented defaults.
const (
	EnvDroneType   = "DRONE_TYPE"   // drone family: s2x | wifiuav | cooingdv
	EnvDroneIP     = "DRONE_IP"     // drone address override
	EnvControlPort = "CONTROL_PORT" // control UDP port override
	EnvVideoPort   = "VIDEO_PORT"   // video UDP port override
	EnvTickRate    = "TICK_RATE"    // control packets per second
	EnvPreset      = "CONTROL_PRESET"

	EnvAccelRatio     = "ACCEL_RATIO"
	EnvDecelRatio     = "DECEL_RATIO"
	EnvExpoFactor     = "EXPO_FACTOR"
	EnvImmediateRatio = "IMMEDIATE_RATIO"

	EnvFollowYawDeadzone   = "FOLLOW_CENTER_DEADZONE"
	EnvFollowPitchDeadzone = "FOLLOW_PITCH_DEADZONE"
	EnvFollowMinBoxWidth   = "FOLLOW_MIN_BOX_WIDTH"
	EnvFollowMaxBoxWidth   = "FOLLOW_MAX_BOX_WIDTH"
	EnvFollowYawSpeed      = "FOLLOW_YAW_SPEED"
	EnvFollowPitchSpeed    = "FOLLOW_PITCH_SPEED"
	EnvFollowInvertYaw     = "FOLLOW_INVERT_YAW"
	EnvFollowInvertPitch   = "FOLLOW_INVERT_PITCH"
)

// Resolve builds the runtime Config for the given family, applying any
// environment overrides and validating every numeric value.
func Resolve(family string) (Config, error) {
	if env := os.Getenv(EnvDroneType); family == "" {
		family = env
	}
	p, err := ForFamily(family)
	if err != nil {
		return Config{}, err
	}

	if v := os.Getenv(EnvDroneIP); v != "" {
		p.Addr = v
	}
	if p.ControlPort, err = intEnv(EnvControlPort, p.ControlPort); err != nil {
		return Config{}, err
	}
	if p.VideoPort, err = intEnv(EnvVideoPort, p.VideoPort); err != nil {
		return Config{}, err
	}
	if p.TickRate, err = floatEnv(EnvTickRate, p.TickRate); err != nil {
		return Config{}, err
	}
	if p.TickRate < 1 || p.TickRate > 200 {
		return Config{}, fmt.Errorf("tick rate %.1f out of range [1,200]", p.TickRate)
	}

	preset := p.DefaultPreset
	if v := os.Getenv(EnvPreset); v != "" {
		preset = v
	}
	if _, err = p.Preset(preset); err != nil {
		return Config{}, err
	}

	// Tuning overrides replace the preset's values for every preset of the
	// session, so cycling sensitivity keeps the operator's overrides.
	for name, cp := range p.Presets {
		if cp.AccelRatio, err = floatEnv(EnvAccelRatio, cp.AccelRatio); err != nil {
			return Config{}, err
		}
		if cp.DecelRatio, err = floatEnv(EnvDecelRatio, cp.DecelRatio); err != nil {
			return Config{}, err
		}
		if cp.ExpoFactor, err = floatEnv(EnvExpoFactor, cp.ExpoFactor); err != nil {
			return Config{}, err
		}
		if cp.ImmediateRatio, err = floatEnv(EnvImmediateRatio, cp.ImmediateRatio); err != nil {
			return Config{}, err
		}
		if cp.AccelRatio <= 0 || cp.DecelRatio <= 0 {
			return Config{}, fmt.Errorf("acceleration/deceleration ratios must be positive (got %.2f/%.2f)",
				cp.AccelRatio, cp.DecelRatio)
		}
		if cp.ExpoFactor < 0 {
			return Config{}, fmt.Errorf("expo factor must not be negative (got %.2f)", cp.ExpoFactor)
		}
		if cp.ImmediateRatio < 0 || cp.ImmediateRatio > 1 {
			return Config{}, fmt.Errorf("immediate ratio %.2f out of range [0,1]", cp.ImmediateRatio)
		}
		p.Presets[name] = cp
	}

	cfg := Config{
		Profile:             p,
		Preset:              preset,
		FollowYawDeadzone:   0.15,
		FollowPitchDeadzone: 0.02,
		FollowMinBoxWidth:   0.30,
		FollowMaxBoxWidth:   0.80,
		FollowYawCmd:        0.20,
		FollowPitchCmd:      0.20,
	}
	if cfg.FollowYawDeadzone, err = floatEnv(EnvFollowYawDeadzone, cfg.FollowYawDeadzone); err != nil {
		return Config{}, err
	}
	if cfg.FollowPitchDeadzone, err = floatEnv(EnvFollowPitchDeadzone, cfg.FollowPitchDeadzone); err != nil {
		return Config{}, err
	}
	if cfg.FollowMinBoxWidth, err = floatEnv(EnvFollowMinBoxWidth, cfg.FollowMinBoxWidth); err != nil {
		return Config{}, err
	}
	if cfg.FollowMaxBoxWidth, err = floatEnv(EnvFollowMaxBoxWidth, cfg.FollowMaxBoxWidth); err != nil {
		return Config{}, err
	}
	if cfg.FollowYawCmd, err = floatEnv(EnvFollowYawSpeed, cfg.FollowYawCmd); err != nil {
		return Config{}, err
	}
	if cfg.FollowPitchCmd, err = floatEnv(EnvFollowPitchSpeed, cfg.FollowPitchCmd); err != nil {
		return Config{}, err
	}
	cfg.FollowInvertYaw = boolEnv(EnvFollowInvertYaw)
	cfg.FollowInvertPitch = boolEnv(EnvFollowInvertPitch)
	if cfg.FollowMinBoxWidth >= cfg.FollowMaxBoxWidth {
		return Config{}, fmt.Errorf("follow box width band invalid: min %.2f >= max %.2f",
			cfg.FollowMinBoxWidth, cfg.FollowMaxBoxWidth)
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
