// adapter.go

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

// Package protocol implements the reverse-engineered wire formats of the
// supported drone families.  Each family is one self-contained Adapter; the
// flight controller and the video reassembler never branch on drone type.
package protocol

import (
	"errors"
	"fmt"
	"net"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/profile"
)

// Decode errors.  All are recoverable: the offending datagram is dropped.
var (
	// ErrShortDatagram reports a datagram smaller than the family header.
	ErrShortDatagram = errors.New("datagram shorter than video header")
	// ErrBadHeader reports a datagram that fails the family's sync check.
	ErrBadHeader = errors.New("unrecognised video header")
	// ErrNoVideo reports a family without a UDP video stream.
	ErrNoVideo = errors.New("family has no UDP video stream")
	// ErrNoImage reports an assembled frame with no decodable image inside.
	ErrNoImage = errors.New("no image markers in assembled frame")
)

// FragmentHeader is the decoded per-datagram video header of a family.
type FragmentHeader struct {
	FrameNumber   int
	FragmentIndex int
	LastFragment  bool
	Payload       []byte // slice into the datagram, not a copy
}

// Adapter is the single source of truth for one drone family's wire format.
// Implementations must be byte-exact: real hardware silently ignores or
// misinterprets any deviation.
type Adapter interface {
	Family() string

	// EncodeControl fills the family's packet template from the model's raw
	// stick values and discrete flags and appends the family checksum.  The
	// caller clears the model's one-shot flags after the packet is sent.
	EncodeControl(m *control.Model) []byte

	// ControlKeepalive returns a datagram the control port must receive at
	// roughly one-second intervals to keep the link up, or nil when the
	// family needs none beyond the stick packets themselves.
	ControlKeepalive() []byte

	// DecodeVideoHeader parses one video datagram.  Undersized or malformed
	// datagrams yield an error, never a panic.
	DecodeVideoHeader(dgram []byte) (FragmentHeader, error)

	// StartStream returns the datagrams that make the drone begin (or
	// resume) sending video.  The protocols require this explicit trigger;
	// a listening socket alone produces nothing.
	StartStream() [][]byte

	// FrameRequest returns the datagrams that request the frame after
	// frameNo, for families that meter the stream one frame at a time.
	// Nil when the family free-runs.
	FrameRequest(frameNo int) [][]byte

	// FinalizeFrame turns the in-order concatenation of fragment payloads
	// into one directly decodable image, synthesising any container bytes
	// the wire format omits.
	FinalizeFrame(data []byte) ([]byte, error)
}

// New returns the Adapter for cfg's drone family.  localIP is this host's
// address on the drone's network; some families embed it in their
// start-stream command.
func New(p profile.Profile, localIP net.IP) (Adapter, error) {
	switch p.Family {
	case "s2x":
		return NewS2x(p, localIP), nil
	case "wifiuav":
		return NewWifiUav(p)
	case "cooingdv":
		return NewCooingdv(p), nil
	}
	return nil, fmt.Errorf("no protocol adapter for family %q", p.Family)
}

// xorChecksum folds a byte range with XOR, the checksum rule shared by every
// supported family.
func xorChecksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}
