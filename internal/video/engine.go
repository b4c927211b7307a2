// engine.go

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

package video

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openuav/toydrone/internal/protocol"
)

const (
	watchdogPeriod        = 100 * time.Millisecond
	streamKeepalivePeriod = time.Second

	startBackoffBase = time.Second
	startBackoffCap  = 16 * time.Second
	maxStartAttempts = 8
)

// Engine drives one video stream: it reads datagrams into the reassembler,
// re-sends the start command as the stream keepalive on free-running
// families, requests the next frame on metered ones, escalates to
// exponential-backoff restarts when the stream goes silent and gives up
// after repeated failures.
type Engine struct {
	r             *Reassembler
	adapter       protocol.Adapter
	send          func([]byte) error
	streamTimeout time.Duration
	keepalive     bool // free-running families need a periodic start command

	lastRx       atomic.Int64 // UnixNano of the last received datagram
	disconnected atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewEngine builds an Engine around r.  send delivers one datagram to the
// drone's video endpoint; the session layer supplies it.
func NewEngine(r *Reassembler, a protocol.Adapter, send func([]byte) error, streamTimeout time.Duration) *Engine {
	return &Engine{
		r:             r,
		adapter:       a,
		send:          send,
		streamTimeout: streamTimeout,
		keepalive:     a.FrameRequest(0) == nil,
		done:          make(chan struct{}),
	}
}

// Start primes the stream and launches the read loop and the watchdog.
// read blocks for the next datagram; it must return an error once the
// underlying socket is closed, which is how the read loop exits.
func (e *Engine) Start(read func([]byte) (int, error)) {
	e.lastRx.Store(time.Now().UnixNano())
	e.startStream()
	e.request(0) // metered families send frame 1 in response
	e.wg.Add(2)
	go e.readLoop(read)
	go e.watchdog()
}

// Close stops the watchdog and waits for both loops.  The caller closes the
// socket first so the blocked read returns.
func (e *Engine) Close() {
	close(e.done)
	e.wg.Wait()
}

// Disconnected reports whether the engine has given up restarting a dead
// stream.
func (e *Engine) Disconnected() bool { return e.disconnected.Load() }

// Stats returns the reassembly counters.
func (e *Engine) Stats() Stats { return e.r.Stats() }

func (e *Engine) startStream() {
	for _, d := range e.adapter.StartStream() {
		if err := e.send(d); err != nil {
			log.Printf("video: start-stream send failed: %v", err)
			return
		}
	}
}

// request asks for the frame after n on families that meter the stream.
func (e *Engine) request(n int) {
	for _, d := range e.adapter.FrameRequest(n) {
		if err := e.send(d); err != nil {
			log.Printf("video: frame-request send failed: %v", err)
			return
		}
	}
}

func (e *Engine) readLoop(read func([]byte) (int, error)) {
	defer e.wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := read(buf)
		if err != nil {
			select {
			case <-e.done:
			default:
				log.Printf("video: receive failed: %v", err)
			}
			return
		}
		now := time.Now()
		e.lastRx.Store(now.UnixNano())
		e.disconnected.Store(false)
		frameNo, completed, err := e.r.Ingest(buf[:n], now)
		if err != nil {
			continue // counted by the reassembler
		}
		if completed {
			e.request(frameNo)
		}
	}
}

func (e *Engine) watchdog() {
	defer e.wg.Done()
	tkr := time.NewTicker(watchdogPeriod)
	defer tkr.Stop()

	var lastStart time.Time
	attempts := 0

	for {
		select {
		case <-e.done:
			return
		case <-tkr.C:
		}
		now := time.Now()

		if reqNo, resend := e.r.Expire(now); resend {
			e.request(reqNo)
		}

		silence := now.Sub(time.Unix(0, e.lastRx.Load()))
		if silence < e.streamTimeout {
			attempts = 0
			// routine keepalive while the stream is healthy; metered
			// families stay alive through their frame requests instead
			if e.keepalive && now.Sub(lastStart) >= streamKeepalivePeriod {
				e.startStream()
				lastStart = now
			}
			continue
		}

		if attempts >= maxStartAttempts {
			if !e.disconnected.Swap(true) {
				log.Printf("video: stream silent for %v after %d restart attempts, giving up",
					silence.Round(time.Second), attempts)
			}
			continue
		}
		delay := startBackoffBase << attempts
		if delay > startBackoffCap {
			delay = startBackoffCap
		}
		if now.Sub(lastStart) >= delay {
			log.Printf("video: stream silent for %v, restarting (attempt %d)", silence.Round(time.Millisecond), attempts+1)
			e.startStream()
			lastStart = now
			attempts++
		}
	}
}
