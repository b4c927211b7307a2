// command.go

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
	"encoding/json"
	"fmt"

	"github.com/openuav/toydrone/internal/control"
)

// Command is one frontend message.  The axes frame is the hot path; the
// rest are occasional discrete requests.
type Command struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"` // defaults to "frontend"
	Mode   string `json:"mode,omitempty"`   // axes: "abs" or "inc"

	Axes *control.Axes `json:"axes,omitempty"`

	Name string `json:"name,omitempty"` // plugin_start/plugin_stop, set_profile
	On   bool   `json:"on,omitempty"`   // headless
}

// HandleCommand decodes and executes one JSON command message.  A rejected
// axes frame while a plugin owns the sticks is not an error to the caller;
// arbitration working as intended should not spam the operator log.
func (c *Controller) HandleCommand(raw []byte) error {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return fmt.Errorf("bad command message: %w", err)
	}
	if cmd.Source == "" {
		cmd.Source = OwnerFrontend
	}

	switch cmd.Type {
	case "axes":
		if cmd.Mode != "" {
			if err := c.SetMode(cmd.Mode); err != nil && err != ErrSticksOwned {
				return err
			}
		}
		var ax control.Axes
		if cmd.Axes != nil {
			ax = *cmd.Axes
		}
		if err := c.Submit(cmd.Source, ax); err == ErrSticksOwned {
			return nil
		} else if err != nil {
			return err
		}
		return nil
	case "takeoff":
		c.Takeoff()
	case "land":
		c.Land()
	case "stop":
		c.EmergencyStop()
	case "flip":
		c.Flip()
	case "calibrate":
		c.Calibrate()
	case "headless":
		c.SetHeadless(cmd.On)
	case "cycle_sensitivity":
		c.CycleSensitivity()
	case "set_profile":
		return c.ApplyPreset(cmd.Name)
	case "plugin_start":
		return c.StartPlugin(cmd.Name)
	case "plugin_stop":
		c.StopPlugin(cmd.Name)
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return nil
}
