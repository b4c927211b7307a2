// session.go

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

// Package session owns the UDP sockets of one drone connection and wires
// the flight controller and the video engine onto them.  Nothing else in
// the module touches a socket.
package session

import (
	"fmt"
	"log"
	"net"

	"github.com/google/uuid"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/flight"
	"github.com/openuav/toydrone/internal/profile"
	"github.com/openuav/toydrone/internal/protocol"
	"github.com/openuav/toydrone/internal/video"
)

// Session is one live connection to a drone.
type Session struct {
	ID  uuid.UUID
	cfg profile.Config

	adapter protocol.Adapter
	model   *control.Model

	ctrlConn  *net.UDPConn
	videoConn *net.UDPConn // nil when video shares ctrlConn or the family has none

	Flight *flight.Controller
	Engine *video.Engine // nil for families without UDP video
	queue  *video.Queue
}

// Open dials the drone and builds the full stack: protocol adapter, control
// model, flight controller, and (when the family streams UDP video) the
// reassembler and its engine.  Nothing runs until Start.
func Open(cfg profile.Config) (*Session, error) {
	p := cfg.Profile
	droneIP := net.ParseIP(p.Addr)
	if droneIP == nil {
		return nil, fmt.Errorf("bad drone address %q", p.Addr)
	}

	ctrlConn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: droneIP, Port: p.ControlPort})
	if err != nil {
		return nil, fmt.Errorf("dial control port: %w", err)
	}
	localIP := ctrlConn.LocalAddr().(*net.UDPAddr).IP

	adapter, err := protocol.New(p, localIP)
	if err != nil {
		ctrlConn.Close()
		return nil, err
	}
	model, err := control.NewModel(p, cfg.Preset)
	if err != nil {
		ctrlConn.Close()
		return nil, err
	}

	s := &Session{
		ID:       uuid.New(),
		cfg:      cfg,
		adapter:  adapter,
		model:    model,
		ctrlConn: ctrlConn,
	}
	s.Flight = flight.New(p, model, adapter, func(b []byte) error {
		_, err := ctrlConn.Write(b)
		return err
	})

	if p.HasVideo {
		if err := s.openVideo(); err != nil {
			ctrlConn.Close()
			return nil, err
		}
	}

	log.Printf("session %s: %s drone at %s:%d", s.ID, p.Family, p.Addr, p.ControlPort)
	return s, nil
}

// openVideo sets up the video socket.  Families whose video port equals the
// control port run video over the existing duplex control socket; the rest
// get a listener on the video port, with outbound stream commands still
// going to the drone's control endpoint.
func (s *Session) openVideo() error {
	p := s.cfg.Profile
	s.queue = video.NewQueue(4)
	r := video.NewReassembler(s.adapter, s.queue, p.FrameCounterWrap, p.FrameTimeout)

	send := func(b []byte) error {
		_, err := s.ctrlConn.Write(b)
		return err
	}
	if p.VideoPort != p.ControlPort {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: p.VideoPort})
		if err != nil {
			return fmt.Errorf("listen video port: %w", err)
		}
		s.videoConn = conn
	}
	s.Engine = video.NewEngine(r, s.adapter, send, p.StreamTimeout)
	return nil
}

// Frames is the stream of completed video frames, or nil when the family
// has no UDP video.
func (s *Session) Frames() <-chan video.Frame {
	if s.queue == nil {
		return nil
	}
	return s.queue.Frames()
}

// Start launches the control loop and, where present, the video engine.
func (s *Session) Start() {
	s.Flight.Start()
	if s.Engine == nil {
		return
	}
	read := s.ctrlConn.Read
	if s.videoConn != nil {
		read = func(b []byte) (int, error) {
			n, _, err := s.videoConn.ReadFromUDP(b)
			return n, err
		}
	}
	s.Engine.Start(read)
}

// Close tears the session down: control loop first so no packet is encoded
// against a closing socket, then the sockets so the blocked video read
// returns, then the engine.
func (s *Session) Close() {
	s.Flight.Close()
	if s.videoConn != nil {
		s.videoConn.Close()
	}
	s.ctrlConn.Close()
	if s.Engine != nil {
		s.Engine.Close()
	}
	log.Printf("session %s: closed", s.ID)
}
