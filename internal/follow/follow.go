// follow.go

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

// Package follow is the target-follow autopilot plugin.  An external vision
// tracker feeds it normalised bounding boxes of the target; the controller
// turns each observation into bang-bang yaw/pitch corrections and drives the
// flight controller through the same stick interface a human uses.  The
// vision model itself lives outside this module.
package follow

import (
	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/flight"
	"github.com/openuav/toydrone/internal/profile"
)

// PluginName is the stick-ownership identity of this plugin.
const PluginName = "follow"

// Box is one tracked target observation.  CX is the box center's horizontal
// position and W the box width, both as fractions of the image width.
type Box struct {
	CX float64 `json:"cx"`
	W  float64 `json:"w"`
}

// Controller converts target observations into stick corrections.
//
// Yaw: when the target center leaves the horizontal deadzone around the
// image center, yaw toward it at a constant rate.  Pitch: hold the box width
// inside the configured band; a smaller box means the target is escaping, so
// pitch forward, a larger one means we are crowding it, so back off.
// Corrections are constant-magnitude rather than proportional: these
// airframes have so much latency and drift that a P-controller hunts.
type Controller struct {
	flight *flight.Controller

	yawDeadzone   float64
	pitchDeadzone float64
	minBoxWidth   float64
	maxBoxWidth   float64
	yawCmd        float64
	pitchCmd      float64
	invertYaw     bool
	invertPitch   bool
}

// New builds the follow controller against fc with cfg's tuning.
func New(cfg profile.Config, fc *flight.Controller) *Controller {
	return &Controller{
		flight:        fc,
		yawDeadzone:   cfg.FollowYawDeadzone,
		pitchDeadzone: cfg.FollowPitchDeadzone,
		minBoxWidth:   cfg.FollowMinBoxWidth,
		maxBoxWidth:   cfg.FollowMaxBoxWidth,
		yawCmd:        cfg.FollowYawCmd,
		pitchCmd:      cfg.FollowPitchCmd,
		invertYaw:     cfg.FollowInvertYaw,
		invertPitch:   cfg.FollowInvertPitch,
	}
}

// Start takes the sticks.  The flight controller switches to a direct,
// linear response for the duration.
func (c *Controller) Start() error { return c.flight.StartPlugin(PluginName) }

// Stop releases the sticks and restores the pilot's control feel.
func (c *Controller) Stop() { c.flight.StopPlugin(PluginName) }

// Observe handles one tracked box.  Returns flight.ErrNotOwner once the
// operator has preempted the plugin; callers should then Stop feeding it.
func (c *Controller) Observe(b Box) error {
	return c.flight.Submit(PluginName, c.correction(b))
}

// Lost handles a lost target: hover in place until the tracker reacquires.
func (c *Controller) Lost() error {
	return c.flight.Submit(PluginName, control.Axes{})
}

// correction maps one observation onto axis commands.
func (c *Controller) correction(b Box) control.Axes {
	var ax control.Axes

	err := b.CX - 0.5
	if err > c.yawDeadzone {
		ax.Yaw = c.yawCmd
	} else if err < -c.yawDeadzone {
		ax.Yaw = -c.yawCmd
	}
	if c.invertYaw {
		ax.Yaw = -ax.Yaw
	}

	if b.W < c.minBoxWidth-c.pitchDeadzone {
		ax.Pitch = c.pitchCmd
	} else if b.W > c.maxBoxWidth+c.pitchDeadzone {
		ax.Pitch = -c.pitchCmd
	}
	if c.invertPitch {
		ax.Pitch = -ax.Pitch
	}

	return ax
}
