// config_test.go

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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve("s2x")
	require.NoError(t, err)
	require.Equal(t, "s2x", cfg.Profile.Family)
	require.Equal(t, "172.16.10.1", cfg.Profile.Addr)
	require.Equal(t, 8080, cfg.Profile.ControlPort)
	require.Equal(t, "normal", cfg.Preset)
	require.Equal(t, 0.15, cfg.FollowYawDeadzone)
}

func TestResolveFamilyFromEnv(t *testing.T) {
	t.Setenv(EnvDroneType, "cooingdv")
	cfg, err := Resolve("")
	require.NoError(t, err)
	require.Equal(t, "cooingdv", cfg.Profile.Family)
}

func TestResolveOverrides(t *testing.T) {
	t.Setenv(EnvDroneIP, "10.0.0.9")
	t.Setenv(EnvControlPort, "9000")
	t.Setenv(EnvTickRate, "100")
	t.Setenv(EnvPreset, "aggressive")
	t.Setenv(EnvExpoFactor, "0.7")

	cfg, err := Resolve("wifiuav")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.9", cfg.Profile.Addr)
	require.Equal(t, 9000, cfg.Profile.ControlPort)
	require.Equal(t, 100.0, cfg.Profile.TickRate)
	require.Equal(t, "aggressive", cfg.Preset)
	require.Equal(t, 0.7, cfg.Profile.Presets["aggressive"].ExpoFactor)
}

func TestResolveOverridesApplyToEveryPreset(t *testing.T) {
	// tuning overrides must survive sensitivity cycling: every preset of the
	// session carries them, not just the one active at startup
	t.Setenv(EnvAccelRatio, "9.99")
	t.Setenv(EnvExpoFactor, "0.25")

	cfg, err := Resolve("s2x")
	require.NoError(t, err)
	for _, name := range cfg.Profile.PresetSeq {
		cp := cfg.Profile.Presets[name]
		require.Equal(t, 9.99, cp.AccelRatio, "preset %s", name)
		require.Equal(t, 0.25, cp.ExpoFactor, "preset %s", name)
	}
	// untouched fields keep their per-preset values
	require.Equal(t, 5.56, cfg.Profile.Presets["precise"].DecelRatio)
}

func TestResolveRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		family string
		env    map[string]string
	}{
		{"unknown family", "phantom", nil},
		{"tick rate too high", "s2x", map[string]string{EnvTickRate: "500"}},
		{"tick rate zero", "s2x", map[string]string{EnvTickRate: "0"}},
		{"unparsable port", "s2x", map[string]string{EnvControlPort: "eighty"}},
		{"unknown preset", "s2x", map[string]string{EnvPreset: "ludicrous"}},
		{"negative accel", "s2x", map[string]string{EnvAccelRatio: "-1"}},
		{"negative expo", "s2x", map[string]string{EnvExpoFactor: "-0.5"}},
		{"immediate ratio above one", "s2x", map[string]string{EnvImmediateRatio: "1.5"}},
		{"inverted box band", "s2x", map[string]string{
			EnvFollowMinBoxWidth: "0.9",
			EnvFollowMaxBoxWidth: "0.3",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			_, err := Resolve(c.family)
			require.Error(t, err)
		})
	}
}

func TestResolveFollowTuning(t *testing.T) {
	t.Setenv(EnvFollowYawSpeed, "0.35")
	t.Setenv(EnvFollowInvertYaw, "true")

	cfg, err := Resolve("s2x")
	require.NoError(t, err)
	require.Equal(t, 0.35, cfg.FollowYawCmd)
	require.True(t, cfg.FollowInvertYaw)
	require.False(t, cfg.FollowInvertPitch)
}
