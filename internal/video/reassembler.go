// reassembler.go

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

// Package video reassembles fragmented UDP video datagrams into complete
// frames and keeps the stream flowing: the reassembler does the pure
// fragments-to-frame work, the engine drives the socket, the stream
// keepalive and the per-frame watchdog.
package video

import (
	"sync"
	"time"

	"github.com/openuav/toydrone/internal/protocol"
)

// Stats counts reassembly outcomes since the session started.
type Stats struct {
	FramesOK      uint64
	FramesDropped uint64
	Retries       uint64
	BadDatagrams  uint64
	Stale         uint64
}

// Reassembler collects the fragments of one frame at a time and emits each
// completed frame, in order, onto its queue.  At most one frame is ever in
// flight: a fragment of a newer frame abandons the incomplete one, and
// fragments of frames at or behind the last emitted one are dropped, so
// frame numbers only ever move forward.
type Reassembler struct {
	mu      sync.Mutex
	adapter protocol.Adapter
	queue   *Queue

	frameTimeout time.Duration
	wrap         int // frame counter modulus

	cur       int // frame in flight, -1 when none
	fragments map[int][]byte
	first     int // lowest fragment index seen; some firmwares number from 1
	last      int // index of the flagged last fragment, -1 until seen
	started   time.Time
	retried   bool

	lastEmitted int // -1 before the first frame

	stats Stats
}

// NewReassembler builds a Reassembler emitting onto q.  wrap is the modulus
// of the family's on-wire frame counter; frameTimeout is how long one frame
// may stay incomplete before the watchdog intervenes.
func NewReassembler(a protocol.Adapter, q *Queue, wrap int, frameTimeout time.Duration) *Reassembler {
	return &Reassembler{
		adapter:      a,
		queue:        q,
		frameTimeout: frameTimeout,
		wrap:         wrap,
		cur:          -1,
		last:         -1,
		lastEmitted:  -1,
	}
}

// newer reports whether frame number a comes after b on the wrapping
// counter, reading a lead of less than half the counter space as "after".
func (r *Reassembler) newer(a, b int) bool {
	d := ((a-b)%r.wrap + r.wrap) % r.wrap
	return d != 0 && d < r.wrap/2
}

// Ingest processes one raw video datagram.  It returns the completed frame's
// number and true when this datagram finished a frame; malformed datagrams
// return the decode error and are otherwise ignored.
func (r *Reassembler) Ingest(dgram []byte, now time.Time) (int, bool, error) {
	hdr, err := r.adapter.DecodeVideoHeader(dgram)
	if err != nil {
		r.mu.Lock()
		r.stats.BadDatagrams++
		r.mu.Unlock()
		return 0, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.cur < 0:
		if r.lastEmitted >= 0 && !r.newer(hdr.FrameNumber, r.lastEmitted) {
			r.stats.Stale++
			return 0, false, nil
		}
		r.beginFrame(hdr.FrameNumber, now)
	case hdr.FrameNumber != r.cur:
		if !r.newer(hdr.FrameNumber, r.cur) {
			r.stats.Stale++
			return 0, false, nil
		}
		// a newer frame started before this one completed
		r.stats.FramesDropped++
		r.beginFrame(hdr.FrameNumber, now)
	}

	// The payload aliases the caller's read buffer; keep our own copy.
	p := make([]byte, len(hdr.Payload))
	copy(p, hdr.Payload)
	r.fragments[hdr.FragmentIndex] = p
	if hdr.FragmentIndex < r.first {
		r.first = hdr.FragmentIndex
	}
	if hdr.LastFragment {
		r.last = hdr.FragmentIndex
	}

	if !r.completeLocked() {
		return 0, false, nil
	}
	return r.emitLocked(), true, nil
}

func (r *Reassembler) beginFrame(n int, now time.Time) {
	r.cur = n
	r.fragments = make(map[int][]byte, 16)
	r.first = int(^uint(0) >> 1)
	r.last = -1
	r.started = now
	r.retried = false
}

// completeLocked reports whether the run from the lowest fragment index seen
// up to the flagged last one has no gaps.  Anchoring at the lowest index
// rather than zero tolerates firmwares that number slices from one.
func (r *Reassembler) completeLocked() bool {
	if r.last < 0 || len(r.fragments) < r.last-r.first+1 {
		return false
	}
	for i := r.first; i <= r.last; i++ {
		if _, ok := r.fragments[i]; !ok {
			return false
		}
	}
	return true
}

// emitLocked finalizes the in-flight frame and pushes it onto the queue.
// Returns the emitted frame number.
func (r *Reassembler) emitLocked() int {
	n := r.cur
	size := 0
	for i := r.first; i <= r.last; i++ {
		size += len(r.fragments[i])
	}
	data := make([]byte, 0, size)
	for i := r.first; i <= r.last; i++ {
		data = append(data, r.fragments[i]...)
	}
	r.cur = -1
	r.fragments = nil

	img, err := r.adapter.FinalizeFrame(data)
	if err != nil {
		// assembled bytes held no decodable image
		r.stats.FramesDropped++
		r.lastEmitted = n
		return n
	}
	r.queue.Push(Frame{Number: n, Data: img})
	r.stats.FramesOK++
	r.lastEmitted = n
	return n
}

// Expire applies the per-frame deadline.  When the in-flight frame has been
// incomplete for longer than the timeout it is re-requested once; on the
// second expiry it is abandoned so the stream can move on.  The returned
// value is the frame-request argument to send (the frame before the one
// wanted); resend is false when nothing needs doing.
func (r *Reassembler) Expire(now time.Time) (reqNo int, resend bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur < 0 || now.Sub(r.started) <= r.frameTimeout {
		return 0, false
	}
	if !r.retried {
		r.retried = true
		r.started = now
		r.stats.Retries++
		return r.cur - 1, true // ask for the in-flight frame again
	}
	n := r.cur
	r.stats.FramesDropped++
	r.lastEmitted = n
	r.cur = -1
	r.fragments = nil
	return n, true // skip it, ask for the next
}

// Stats returns a snapshot of the reassembly counters.
func (r *Reassembler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
