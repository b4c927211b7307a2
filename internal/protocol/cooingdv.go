// cooingdv.go

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

package protocol

import (
	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/profile"
)

// Cooingdv drives the Cooingdv app family.
//
// Control packet (9 bytes, UDP to :7099):
//
//	[0]  0x03           packet type
//	[1]  0x66           start marker
//	[2..5] roll pitch throttle yaw, raw
//	[6]  command flags
//	[7]  XOR of bytes 2..6
//	[8]  0x99           end marker
//
// A two-byte heartbeat must reach the control port about once a second or
// the drone drops the link.  Video is a standard RTSP stream served by an
// onboard camera module, handled by off-the-shelf players rather than here.
type Cooingdv struct {
	sticks profile.StickRange
}

const (
	cooingdvPacketType  = 0x03
	cooingdvStartMarker = 0x66
	cooingdvEndMarker   = 0x99

	cooingdvFlagTakeoff   = 0x01
	cooingdvFlagLand      = 0x02
	cooingdvFlagStop      = 0x04
	cooingdvFlagFlip      = 0x08
	cooingdvFlagHeadless  = 0x10
	cooingdvFlagCalibrate = 0x80
)

var cooingdvHeartbeat = []byte{0x01, 0x01}

// NewCooingdv builds the Cooingdv adapter.
func NewCooingdv(p profile.Profile) *Cooingdv {
	return &Cooingdv{sticks: p.Sticks}
}

// Family implements Adapter.
func (a *Cooingdv) Family() string { return "cooingdv" }

// EncodeControl implements Adapter.
func (a *Cooingdv) EncodeControl(m *control.Model) []byte {
	pkt := make([]byte, 9)
	pkt[0] = cooingdvPacketType
	pkt[1] = cooingdvStartMarker
	pkt[2] = byte(int(m.Roll))
	pkt[3] = byte(int(m.Pitch))
	pkt[4] = byte(int(m.Throttle))
	pkt[5] = byte(int(m.Yaw))
	if m.Flags.Takeoff {
		pkt[6] |= cooingdvFlagTakeoff
	}
	if m.Flags.Land {
		pkt[6] |= cooingdvFlagLand
	}
	if m.Flags.Stop {
		pkt[6] |= cooingdvFlagStop
	}
	if m.Flags.Flip {
		pkt[6] |= cooingdvFlagFlip
	}
	if m.Flags.Headless {
		pkt[6] |= cooingdvFlagHeadless
	}
	if m.Flags.Calibrate {
		pkt[6] |= cooingdvFlagCalibrate
	}
	pkt[7] = xorChecksum(pkt[2:7])
	pkt[8] = cooingdvEndMarker
	return pkt
}

// ControlKeepalive implements Adapter.
func (a *Cooingdv) ControlKeepalive() []byte { return cooingdvHeartbeat }

// DecodeVideoHeader implements Adapter.  This family has no UDP video.
func (a *Cooingdv) DecodeVideoHeader([]byte) (FragmentHeader, error) {
	return FragmentHeader{}, ErrNoVideo
}

// StartStream implements Adapter.
func (a *Cooingdv) StartStream() [][]byte { return nil }

// FrameRequest implements Adapter.
func (a *Cooingdv) FrameRequest(int) [][]byte { return nil }

// FinalizeFrame implements Adapter.
func (a *Cooingdv) FinalizeFrame([]byte) ([]byte, error) { return nil, ErrNoVideo }
