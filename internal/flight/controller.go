// controller.go

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

// Package flight runs the fixed-rate control loop for one drone and
// arbitrates which command source currently owns the sticks.
package flight

import (
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/profile"
	"github.com/openuav/toydrone/internal/protocol"
)

// Stick ownership.  The sticks start unowned; the first frontend frame
// claims them.  A plugin takes them over explicitly via StartPlugin and
// the operator can always snatch them back by deflecting a stick.
const (
	OwnerNone     = ""
	OwnerFrontend = "frontend"
)

// neutralDeadzone is how far a frontend stick must deflect before a frame is
// treated as deliberate input rather than controller jitter.  Only consulted
// while a plugin owns the sticks.
const neutralDeadzone = 0.05

const keepalivePeriod = time.Second

var (
	// ErrSticksOwned reports a neutral frontend frame discarded because a
	// plugin owns the sticks.
	ErrSticksOwned = errors.New("sticks owned by a plugin")
	// ErrNotOwner reports a plugin frame from a plugin that does not own
	// the sticks.
	ErrNotOwner = errors.New("source does not own the sticks")
	// ErrPluginActive reports a StartPlugin while another plugin owns the
	// sticks.
	ErrPluginActive = errors.New("another plugin owns the sticks")
)

// Controller drives one drone: it owns the ControlModel, advances it at the
// family tick rate, encodes and sends one control packet per tick, and
// serialises every stick mutation behind one mutex so an ownership check and
// the write it guards can never interleave with a tick.
type Controller struct {
	mu       sync.Mutex
	model    *control.Model
	adapter  protocol.Adapter
	send     func([]byte) error
	tick     time.Duration
	owner    string
	lastAxes control.Axes

	presetSeq int

	// Strategy and expo saved when a plugin takes the sticks, restored when
	// it releases them (or the operator preempts it).
	savedStrategy control.Strategy
	savedExpo     float64

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Controller for the given profile.  send delivers one encoded
// control datagram to the drone; the session layer supplies it.
func New(p profile.Profile, m *control.Model, a protocol.Adapter, send func([]byte) error) *Controller {
	return &Controller{
		model:   m,
		adapter: a,
		send:    send,
		tick:    time.Duration(float64(time.Second) / p.TickRate),
		done:    make(chan struct{}),
	}
}

// Start launches the control loop, and the link keepalive when the family
// needs one beyond the stick stream itself.
func (c *Controller) Start() {
	c.wg.Add(1)
	go c.run()
	if ka := c.adapter.ControlKeepalive(); ka != nil {
		c.wg.Add(1)
		go c.keepalive(ka)
	}
}

// Close stops the control loop and waits for it to exit.  It does not land
// the drone; callers wanting a clean landing call Land and allow a few ticks
// before closing.
func (c *Controller) Close() {
	close(c.done)
	c.wg.Wait()
}

func (c *Controller) run() {
	defer c.wg.Done()
	tkr := time.NewTicker(c.tick)
	defer tkr.Stop()
	last := time.Now()
	for {
		select {
		case <-c.done:
			return
		case now := <-tkr.C:
			c.step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// step advances the model by dt seconds and sends the resulting packet.
// One-shot flags are cleared only once a packet carrying them went out, so a
// failed send retries them next tick.
func (c *Controller) step(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.Update(dt, c.lastAxes)
	pkt := c.adapter.EncodeControl(c.model)
	if err := c.send(pkt); err != nil {
		log.Printf("flight: control send failed: %v", err)
		return
	}
	c.model.ClearOneShots()
}

func (c *Controller) keepalive(pkt []byte) {
	defer c.wg.Done()
	tkr := time.NewTicker(keepalivePeriod)
	defer tkr.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-tkr.C:
			if err := c.send(pkt); err != nil {
				log.Printf("flight: keepalive send failed: %v", err)
			}
		}
	}
}

// Submit delivers one axis frame from the named source.  Frontend frames
// normally apply directly; while a plugin owns the sticks a neutral frontend
// frame is discarded and a deflected one preempts the plugin, taking the
// sticks back in the same call.  Plugin frames apply only while that plugin
// owns the sticks.
func (c *Controller) Submit(source string, ax control.Axes) error {
	ax = ax.Clamped()
	c.mu.Lock()
	defer c.mu.Unlock()

	if source == OwnerFrontend {
		if c.owner != OwnerNone && c.owner != OwnerFrontend {
			if ax.Neutral(neutralDeadzone) {
				return ErrSticksOwned
			}
			log.Printf("flight: operator preempts plugin %q", c.owner)
			c.releasePluginLocked()
		}
		c.owner = OwnerFrontend
		c.lastAxes = ax
		return nil
	}

	if c.owner != source {
		return ErrNotOwner
	}
	c.lastAxes = ax
	return nil
}

// StartPlugin hands the sticks to the named plugin.  The active strategy and
// expo are saved and replaced with a direct, linear response; autonomous
// corrections are magnitude-faithful commands, not pilot gestures.
func (c *Controller) StartPlugin(name string) error {
	if name == OwnerNone || name == OwnerFrontend {
		return errors.New("invalid plugin name " + strconv.Quote(name))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != OwnerNone && c.owner != OwnerFrontend && c.owner != name {
		return ErrPluginActive
	}
	if c.owner == name {
		return nil
	}
	c.savedStrategy = c.model.Strategy()
	c.savedExpo = c.model.Tuning.ExpoFactor
	c.model.SetStrategy(&control.DirectStrategy{})
	c.model.Tuning.ExpoFactor = 0
	c.owner = name
	c.lastAxes = control.Axes{}
	log.Printf("flight: plugin %q owns the sticks", name)
	return nil
}

// StopPlugin releases the sticks if the named plugin holds them.  Axes are
// neutralised so the drone hovers until the operator takes over.
func (c *Controller) StopPlugin(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != name {
		return
	}
	c.releasePluginLocked()
	c.owner = OwnerFrontend
	log.Printf("flight: plugin %q released the sticks", name)
}

// releasePluginLocked restores the pre-plugin strategy/expo and neutralises
// the commanded axes.  Caller holds c.mu.
func (c *Controller) releasePluginLocked() {
	if c.savedStrategy != nil {
		c.model.SetStrategy(c.savedStrategy)
		c.model.Tuning.ExpoFactor = c.savedExpo
		c.savedStrategy = nil
	}
	c.lastAxes = control.Axes{}
}

// Owner returns the current stick owner.
func (c *Controller) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Sticks returns the current raw stick values (throttle, yaw, pitch, roll).
func (c *Controller) Sticks() (float64, float64, float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.Throttle, c.model.Yaw, c.model.Pitch, c.model.Roll
}

// Takeoff requests an auto-takeoff on the next control packet.
func (c *Controller) Takeoff() { c.setFlag(func(f *control.Flags) { f.Takeoff = true }) }

// Land requests an auto-land on the next control packet.
func (c *Controller) Land() { c.setFlag(func(f *control.Flags) { f.Land = true }) }

// EmergencyStop cuts the motors on the next control packet.
func (c *Controller) EmergencyStop() { c.setFlag(func(f *control.Flags) { f.Stop = true }) }

// Flip requests a flip on the next control packet.  Families without a flip
// bit ignore it.
func (c *Controller) Flip() { c.setFlag(func(f *control.Flags) { f.Flip = true }) }

// Calibrate requests a gyro calibration on the next control packet.
func (c *Controller) Calibrate() { c.setFlag(func(f *control.Flags) { f.Calibrate = true }) }

// SetHeadless switches headless mode, a persistent toggle.
func (c *Controller) SetHeadless(on bool) { c.setFlag(func(f *control.Flags) { f.Headless = on }) }

func (c *Controller) setFlag(mut func(*control.Flags)) {
	c.mu.Lock()
	mut(&c.model.Flags)
	c.mu.Unlock()
}

// ApplyPreset switches the model to the named tuning preset.  Raw stick
// state is untouched.
func (c *Controller) ApplyPreset(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.ApplyPreset(name)
}

// CycleSensitivity advances to the next preset in the family's cycling
// order.
func (c *Controller) CycleSensitivity() {
	c.mu.Lock()
	c.presetSeq++
	c.model.CycleSensitivity(c.presetSeq)
	c.mu.Unlock()
}

// SetMode selects the frontend input style: "abs" for absolute gamepad-style
// positions, "inc" for discrete keyboard-style nudges.  Ignored while a
// plugin owns the sticks; plugins always run direct.
func (c *Controller) SetMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != OwnerNone && c.owner != OwnerFrontend {
		return ErrSticksOwned
	}
	switch mode {
	case "abs":
		c.model.SetStrategy(&control.DirectStrategy{})
	case "inc":
		c.model.SetStrategy(&control.IncrementalStrategy{})
	default:
		return errors.New("unknown control mode " + strconv.Quote(mode))
	}
	return nil
}
