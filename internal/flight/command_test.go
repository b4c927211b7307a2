// command_test.go

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

package flight

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openuav/toydrone/internal/control"
)

func TestHandleCommandAxes(t *testing.T) {
	rig := newTestRig(t)

	msg := `{"type":"axes","mode":"abs","axes":{"yaw":0.2,"throttle":-0.5}}`
	require.NoError(t, rig.c.HandleCommand([]byte(msg)))
	require.IsType(t, &control.DirectStrategy{}, rig.c.model.Strategy())
	require.Equal(t, control.Axes{Yaw: 0.2, Throttle: -0.5}, rig.c.lastAxes)

	// axes omitted means neutral
	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"axes"}`)))
	require.Equal(t, control.Axes{}, rig.c.lastAxes)
}

func TestHandleCommandRejectedAxesIsNotAnError(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.c.StartPlugin("follow"))

	// neutral frontend frame while the plugin owns the sticks: swallowed
	msg := `{"type":"axes","axes":{"yaw":0.01}}`
	require.NoError(t, rig.c.HandleCommand([]byte(msg)))
	require.Equal(t, "follow", rig.c.Owner())
}

func TestHandleCommandDiscrete(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"takeoff"}`)))
	require.True(t, rig.c.model.Flags.Takeoff)

	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"headless","on":true}`)))
	require.True(t, rig.c.model.Flags.Headless)

	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"set_profile","name":"precise"}`)))
	require.InDelta(t, 1.39*72, rig.c.model.Tuning.AccelRate, 1e-9)
	require.Error(t, rig.c.HandleCommand([]byte(`{"type":"set_profile","name":"nope"}`)))
}

func TestHandleCommandPluginLifecycle(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"plugin_start","name":"follow"}`)))
	require.Equal(t, "follow", rig.c.Owner())
	require.NoError(t, rig.c.HandleCommand([]byte(`{"type":"plugin_stop","name":"follow"}`)))
	require.Equal(t, OwnerFrontend, rig.c.Owner())
}

func TestHandleCommandBadInput(t *testing.T) {
	rig := newTestRig(t)
	require.Error(t, rig.c.HandleCommand([]byte(`{"type":`)))
	require.Error(t, rig.c.HandleCommand([]byte(`{"type":"warp_drive"}`)))
}
