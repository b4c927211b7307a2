// engine_test.go

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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// capture records every datagram the engine sends.
type capture struct {
	mu   sync.Mutex
	sent [][]byte
}

func (c *capture) send(b []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, append([]byte{}, b...))
	c.mu.Unlock()
	return nil
}

func (c *capture) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte{}, c.sent...)
}

// freeRunAdapter streams continuously once started, with no frame metering.
type freeRunAdapter struct{ testAdapter }

func (freeRunAdapter) FrameRequest(int) [][]byte { return nil }

func TestEngineKeepaliveOnlyForFreeRunningFamilies(t *testing.T) {
	r, _ := newTestReassembler(4)
	tx := &capture{}

	// metered: the per-frame requests keep the stream alive, the start
	// command must go out exactly once
	e := NewEngine(r, testAdapter{}, tx.send, 2*time.Second)
	require.False(t, e.keepalive)

	// free-running: the stream dies without a periodic start command
	e = NewEngine(r, freeRunAdapter{}, tx.send, 2*time.Second)
	require.True(t, e.keepalive)
}

func TestEnginePrimesStreamOnStart(t *testing.T) {
	r, _ := newTestReassembler(4)
	tx := &capture{}
	e := NewEngine(r, testAdapter{}, tx.send, 2*time.Second)

	// a read that blocks until Close tears the engine down
	stop := make(chan struct{})
	e.Start(func([]byte) (int, error) {
		<-stop
		return 0, errors.New("closed")
	})
	close(stop)
	e.Close()

	sent := tx.snapshot()
	require.GreaterOrEqual(t, len(sent), 2)
	require.Equal(t, []byte{0xaa}, sent[0], "start-stream datagram")
	require.Equal(t, []byte{0x00}, sent[1], "priming request for frame 0")
}

func TestEngineRequestsNextFrameOnCompletion(t *testing.T) {
	r, q := newTestReassembler(4)
	tx := &capture{}
	e := NewEngine(r, testAdapter{}, tx.send, 2*time.Second)

	// feed one single-fragment frame, then block until Close
	datagrams := [][]byte{dgram(7, 0, true, "jpeg")}
	stop := make(chan struct{})
	e.Start(func(buf []byte) (int, error) {
		if len(datagrams) > 0 {
			d := datagrams[0]
			datagrams = datagrams[1:]
			copy(buf, d)
			return len(d), nil
		}
		<-stop
		return 0, errors.New("closed")
	})

	f := <-q.Frames()
	require.Equal(t, 7, f.Number)

	require.Eventually(t, func() bool {
		for _, d := range tx.snapshot() {
			if len(d) == 1 && d[0] == 7 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "completed frame 7 should trigger a request for the next frame")

	close(stop)
	e.Close()
	require.False(t, e.Disconnected())
}
