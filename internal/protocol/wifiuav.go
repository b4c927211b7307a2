// wifiuav.go

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
	"encoding/binary"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/mjpeg"
	"github.com/openuav/toydrone/internal/profile"
)

// WifiUav drives the "WiFi UAV" app family (E58, LH-X20 and countless
// rebrands).  Everything below was lifted byte-for-byte from captures of the
// paired Android app; the firmware tolerates no variation.
//
// The control packet is a 124-byte template: a fixed header, three rolling
// little-endian 16-bit counters at fixed offsets, six live control bytes
// (roll, pitch, throttle, yaw, command, headless) with an XOR checksum over
// exactly those six, and fixed filler blocks whose meaning is unknown.
//
// Video shares the duplex control socket.  Each datagram carries a 56-byte
// proprietary header; the JPEG container bytes are absent from the payload
// and are synthesised on our side.  The drone sends nothing until it
// receives the start datagram, and it sends each frame only when asked:
// two request datagrams per frame, both embedding the frame counter.
type WifiUav struct {
	sticks profile.StickRange

	ctr1, ctr2, ctr3 uint16

	jpegHeader []byte
}

// Fixed template blocks, verbatim from app captures.
var (
	wifiUavHeader = []byte{
		0xef, 0x02, 0x7c, 0x00, 0x02, 0x02,
		0x00, 0x01, 0x02, 0x00, 0x00, 0x00,
	}
	wifiUavCounter1Suffix = []byte{0x00, 0x00, 0x14, 0x00, 0x66, 0x14}
	wifiUavChecksumSuffix = append(append([]byte{0x99}, make([]byte, 44)...),
		0x32, 0x4b, 0x14, 0x2d, 0x00, 0x00)
	wifiUavCounter2Suffix = []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00,
		0x00, 0x00, 0x14, 0x00, 0x00, 0x00,
		0xff, 0xff, 0xff, 0xff,
	}
	wifiUavCounter3Suffix = []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x00, 0x00,
	}

	// Stream bring-up datagram.  Sending it twice is harmless and is what
	// the app does.
	wifiUavStartStream = []byte{
		0xef, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x02, 0x00,
	}

	// Frame-request templates.  Request A carries the frame counter at
	// bytes 12..13; request B repeats it at 12..13, 88..89 and 107..108.
	wifiUavRequestA = []byte{
		0xef, 0x02, 0x10, 0x00, 0x02, 0x01, 0x00, 0x01,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	wifiUavRequestB = func() []byte {
		b := make([]byte, 112)
		copy(b, []byte{0xef, 0x02, 0x70, 0x00, 0x02, 0x01, 0x00, 0x01, 0x03, 0x00, 0x00, 0x00})
		b[86], b[87] = 0x01, 0x00
		b[105], b[106] = 0x02, 0x00
		return b
	}()
)

const (
	wifiUavVideoHeaderLen = 56
	wifiUavVideoTag       = 0x01 // byte 1 of every video datagram
	wifiUavMoreFragments  = 0x38 // byte 2; anything else marks the last fragment

	wifiUavFrameNumberOffset   = 16
	wifiUavFragmentIndexOffset = 32

	wifiUavCmdNone      = 0x00
	wifiUavCmdTakeoff   = 0x01
	wifiUavCmdLandStop  = 0x02
	wifiUavCmdCalibrate = 0x04

	wifiUavHeadlessOn  = 0x03
	wifiUavHeadlessOff = 0x02
)

// NewWifiUav builds the WiFi-UAV adapter, pre-rendering the JPEG header for
// the profile's stream geometry.
func NewWifiUav(p profile.Profile) (*WifiUav, error) {
	hdr, err := mjpeg.Header(p.VideoWidth, p.VideoHeight, p.VideoComponents)
	if err != nil {
		return nil, err
	}
	return &WifiUav{
		sticks:     p.Sticks,
		ctr1:       0x0000,
		ctr2:       0x0001,
		ctr3:       0x0002,
		jpegHeader: hdr,
	}, nil
}

// Family implements Adapter.
func (a *WifiUav) Family() string { return "wifiuav" }

// EncodeControl implements Adapter.
func (a *WifiUav) EncodeControl(m *control.Model) []byte {
	command := byte(wifiUavCmdNone)
	switch {
	case m.Flags.Takeoff:
		command = wifiUavCmdTakeoff
	case m.Flags.Stop, m.Flags.Land:
		command = wifiUavCmdLandStop
	case m.Flags.Calibrate:
		command = wifiUavCmdCalibrate
	}
	headless := byte(wifiUavHeadlessOff)
	if m.Flags.Headless {
		headless = wifiUavHeadlessOn
	}

	controls := []byte{
		byte(int(m.Roll)),
		byte(int(m.Pitch)),
		byte(int(m.Throttle)),
		byte(int(m.Yaw)),
		command,
		headless,
	}

	pkt := make([]byte, 0, 124)
	pkt = append(pkt, wifiUavHeader...)
	pkt = binary.LittleEndian.AppendUint16(pkt, a.ctr1)
	pkt = append(pkt, wifiUavCounter1Suffix...)
	pkt = append(pkt, controls...)
	pkt = append(pkt, make([]byte, 10)...)
	pkt = append(pkt, xorChecksum(controls))
	pkt = append(pkt, wifiUavChecksumSuffix...)
	pkt = binary.LittleEndian.AppendUint16(pkt, a.ctr2)
	pkt = append(pkt, wifiUavCounter2Suffix...)
	pkt = binary.LittleEndian.AppendUint16(pkt, a.ctr3)
	pkt = append(pkt, wifiUavCounter3Suffix...)

	a.ctr1++
	a.ctr2++
	a.ctr3++
	return pkt
}

// ControlKeepalive implements Adapter.  The stick stream suffices.
func (a *WifiUav) ControlKeepalive() []byte { return nil }

// DecodeVideoHeader implements Adapter.
func (a *WifiUav) DecodeVideoHeader(dgram []byte) (FragmentHeader, error) {
	if len(dgram) < wifiUavVideoHeaderLen {
		return FragmentHeader{}, ErrShortDatagram
	}
	if dgram[1] != wifiUavVideoTag {
		return FragmentHeader{}, ErrBadHeader
	}
	return FragmentHeader{
		FrameNumber:   int(binary.LittleEndian.Uint16(dgram[wifiUavFrameNumberOffset:])),
		FragmentIndex: int(binary.LittleEndian.Uint16(dgram[wifiUavFragmentIndexOffset:])),
		LastFragment:  dgram[2] != wifiUavMoreFragments,
		Payload:       dgram[wifiUavVideoHeaderLen:],
	}, nil
}

// StartStream implements Adapter.
func (a *WifiUav) StartStream() [][]byte {
	return [][]byte{wifiUavStartStream, wifiUavStartStream}
}

// FrameRequest implements Adapter.  Requesting frame n makes the drone send
// frame n+1; the reassembler requests the just-completed frame number to
// keep the stream moving at its native rate.
func (a *WifiUav) FrameRequest(frameNo int) [][]byte {
	n := uint16(frameNo)

	ra := make([]byte, len(wifiUavRequestA))
	copy(ra, wifiUavRequestA)
	binary.LittleEndian.PutUint16(ra[12:], n)

	rb := make([]byte, len(wifiUavRequestB))
	copy(rb, wifiUavRequestB)
	binary.LittleEndian.PutUint16(rb[12:], n)
	binary.LittleEndian.PutUint16(rb[88:], n)
	binary.LittleEndian.PutUint16(rb[107:], n)

	return [][]byte{ra, rb}
}

// FinalizeFrame implements Adapter.  The wire payload is bare scan data;
// wrap it in the synthesised container.
func (a *WifiUav) FinalizeFrame(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(a.jpegHeader)+len(data)+2)
	out = append(out, a.jpegHeader...)
	out = append(out, data...)
	out = append(out, mjpeg.EOI...)
	return out, nil
}
