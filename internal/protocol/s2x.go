// s2x.go

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
	"bytes"
	"net"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/profile"
)

// S2x drives the S20/S29 family.
//
// Control packet (20 bytes, UDP to :8080):
//
//	[0]     0x66            start marker
//	[1]     speed           0x14 in every app capture
//	[2..5]  roll pitch throttle yaw, remapped onto the full 0..255 range
//	[6]     command flags   bit0 takeoff, bit1 land, bit2 stop
//	[7]     0x0a
//	[8..17] zero filler
//	[18]    XOR of bytes 2..17
//	[19]    0x99            end marker
//
// Video: JPEG slices on UDP :8888, started (and kept alive) by sending
// 0x08 + our IPv4 address to the control port.
type S2x struct {
	sticks  profile.StickRange
	localIP net.IP
}

const (
	s2xStartMarker = 0x66
	s2xEndMarker   = 0x99

	s2xFlagTakeoff = 0x01
	s2xFlagLand    = 0x02
	s2xFlagStop    = 0x04

	s2xHeaderLen = 8 // long header variant; short variant is 6
)

var (
	s2xSyncBytes  = []byte{0x40, 0x40}
	s2xLongHdrTag = []byte{0x78, 0x05}
	s2xEOSMarker  = []byte{0x23, 0x23}

	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

// NewS2x builds the S20/S29 adapter.  localIP is embedded in the
// start-stream command so the drone knows where to send video.
func NewS2x(p profile.Profile, localIP net.IP) *S2x {
	return &S2x{sticks: p.Sticks, localIP: localIP.To4()}
}

// Family implements Adapter.
func (a *S2x) Family() string { return "s2x" }

// EncodeControl implements Adapter.
func (a *S2x) EncodeControl(m *control.Model) []byte {
	pkt := make([]byte, 20)
	pkt[0] = s2xStartMarker
	pkt[1] = m.Speed
	pkt[2] = a.remap(m.Roll)
	pkt[3] = a.remap(m.Pitch)
	pkt[4] = a.remap(m.Throttle)
	pkt[5] = a.remap(m.Yaw)
	if m.Flags.Takeoff {
		pkt[6] |= s2xFlagTakeoff
	}
	if m.Flags.Land {
		pkt[6] |= s2xFlagLand
	}
	if m.Flags.Stop {
		pkt[6] |= s2xFlagStop
	}
	pkt[7] = 0x0a
	// bytes 8..17 stay zero
	pkt[18] = xorChecksum(pkt[2:18])
	pkt[19] = s2xEndMarker
	return pkt
}

// remap widens the constrained internal raw range onto the protocol's full
// 0..255 byte range, linear about the center on each side.
func (a *S2x) remap(raw float64) byte {
	r := a.sticks
	var v float64
	if raw >= r.Center {
		v = 128 + (raw-r.Center)*(255-128)/(r.Max-r.Center)
	} else {
		v = (raw - r.Min) * 128 / (r.Center - r.Min)
	}
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return byte(v)
}

// ControlKeepalive implements Adapter.  The 80Hz stick stream is the
// keepalive for this family.
func (a *S2x) ControlKeepalive() []byte { return nil }

// DecodeVideoHeader implements Adapter.
//
// Header layout: 40 40 | frame | ?? ?? | slice | [78 05] — 6 bytes, or 8 when
// bytes 6..7 carry the 78 05 tag.  Bit 0x10 of the raw slice byte marks the
// final slice.  The raw slice byte is kept as the fragment index; the drone
// numbers slices so that the flagged last slice stays contiguous with the
// rest.
func (a *S2x) DecodeVideoHeader(dgram []byte) (FragmentHeader, error) {
	if len(dgram) <= s2xHeaderLen {
		return FragmentHeader{}, ErrShortDatagram
	}
	if !bytes.Equal(dgram[:2], s2xSyncBytes) {
		return FragmentHeader{}, ErrBadHeader
	}
	sliceRaw := dgram[5]
	hdrLen := 6
	if bytes.Equal(dgram[6:8], s2xLongHdrTag) {
		hdrLen = 8
	}
	payload := dgram[hdrLen:]
	payload = bytes.TrimSuffix(payload, s2xEOSMarker)
	return FragmentHeader{
		FrameNumber:   int(dgram[2]),
		FragmentIndex: int(sliceRaw),
		LastFragment:  sliceRaw&0x10 != 0,
		Payload:       payload,
	}, nil
}

// StartStream implements Adapter.  The command is 0x08 followed by our IPv4
// address; the drone streams to that address until it stops hearing it.
func (a *S2x) StartStream() [][]byte {
	cmd := make([]byte, 5)
	cmd[0] = 0x08
	copy(cmd[1:], a.localIP)
	return [][]byte{cmd}
}

// FrameRequest implements Adapter.  The stream free-runs.
func (a *S2x) FrameRequest(int) [][]byte { return nil }

// FinalizeFrame implements Adapter.  The slice stream wraps a real JPEG in
// junk bytes on both sides; emit exactly the FFD8..FFD9 span.
func (a *S2x) FinalizeFrame(data []byte) ([]byte, error) {
	start := bytes.Index(data, jpegSOI)
	end := bytes.LastIndex(data, jpegEOI)
	if start < 0 || end < 0 || end <= start {
		return nil, ErrNoImage
	}
	return data[start : end+2], nil
}
