// reassembler_test.go

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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openuav/toydrone/internal/control"
	"github.com/openuav/toydrone/internal/protocol"
)

// testAdapter speaks a minimal fragment format for exercising the
// reassembler: [frame, fragment, lastFlag, payload...].
type testAdapter struct{}

func (testAdapter) Family() string                            { return "test" }
func (testAdapter) EncodeControl(*control.Model) []byte       { return nil }
func (testAdapter) ControlKeepalive() []byte                  { return nil }
func (testAdapter) StartStream() [][]byte                     { return [][]byte{{0xaa}} }
func (testAdapter) FrameRequest(n int) [][]byte               { return [][]byte{{byte(n)}} }
func (testAdapter) FinalizeFrame(data []byte) ([]byte, error) { return data, nil }
func (testAdapter) DecodeVideoHeader(d []byte) (protocol.FragmentHeader, error) {
	if len(d) < 3 {
		return protocol.FragmentHeader{}, protocol.ErrShortDatagram
	}
	return protocol.FragmentHeader{
		FrameNumber:   int(d[0]),
		FragmentIndex: int(d[1]),
		LastFragment:  d[2] != 0,
		Payload:       d[3:],
	}, nil
}

func dgram(frame, frag int, last bool, payload string) []byte {
	l := byte(0)
	if last {
		l = 1
	}
	return append([]byte{byte(frame), byte(frag), l}, payload...)
}

func newTestReassembler(qcap int) (*Reassembler, *Queue) {
	q := NewQueue(qcap)
	return NewReassembler(testAdapter{}, q, 256, 150*time.Millisecond), q
}

func ingest(t *testing.T, r *Reassembler, d []byte, now time.Time) (int, bool) {
	t.Helper()
	n, done, err := r.Ingest(d, now)
	require.NoError(t, err)
	return n, done
}

func TestReassembleInOrder(t *testing.T) {
	r, q := newTestReassembler(4)
	now := time.Now()

	_, done := ingest(t, r, dgram(1, 0, false, "ab"), now)
	require.False(t, done)
	_, done = ingest(t, r, dgram(1, 1, false, "cd"), now)
	require.False(t, done)
	n, done := ingest(t, r, dgram(1, 2, true, "ef"), now)
	require.True(t, done)
	require.Equal(t, 1, n)

	f := <-q.Frames()
	require.Equal(t, 1, f.Number)
	require.Equal(t, "abcdef", string(f.Data))
	require.Equal(t, uint64(1), r.Stats().FramesOK)
}

func TestReassembleOrderIndependent(t *testing.T) {
	perms := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}, {1, 0, 2}, {0, 2, 1}}
	payloads := []string{"aa", "bb", "cc"}
	for _, perm := range perms {
		r, q := newTestReassembler(4)
		now := time.Now()
		var completed bool
		for _, idx := range perm {
			_, completed = ingest(t, r, dgram(9, idx, idx == 2, payloads[idx]), now)
		}
		require.True(t, completed, "permutation %v", perm)
		f := <-q.Frames()
		require.Equal(t, "aabbcc", string(f.Data), "permutation %v", perm)
	}
}

func TestReassembleToleratesIndexBase(t *testing.T) {
	// some firmwares number slices from 1, not 0
	r, q := newTestReassembler(4)
	now := time.Now()

	ingest(t, r, dgram(3, 1, false, "xx"), now)
	ingest(t, r, dgram(3, 2, false, "yy"), now)
	_, done := ingest(t, r, dgram(3, 3, true, "zz"), now)
	require.True(t, done)
	require.Equal(t, "xxyyzz", string((<-q.Frames()).Data))
}

func TestNewerFrameDiscardsIncomplete(t *testing.T) {
	r, q := newTestReassembler(4)
	now := time.Now()

	ingest(t, r, dgram(5, 0, false, "old"), now)
	// frame 6 arrives before 5 completed
	_, done := ingest(t, r, dgram(6, 0, true, "new"), now)
	require.True(t, done)

	f := <-q.Frames()
	require.Equal(t, 6, f.Number)
	require.Equal(t, "new", string(f.Data))
	require.Equal(t, uint64(1), r.Stats().FramesDropped)

	select {
	case f := <-q.Frames():
		t.Fatalf("incomplete frame emitted: %+v", f)
	default:
	}
}

func TestStaleFragmentsIgnored(t *testing.T) {
	r, q := newTestReassembler(4)
	now := time.Now()

	_, done := ingest(t, r, dgram(10, 0, true, "a"), now)
	require.True(t, done)
	<-q.Frames()

	// late retransmission of an already-emitted frame
	_, done = ingest(t, r, dgram(10, 0, true, "a"), now)
	require.False(t, done)
	_, done = ingest(t, r, dgram(9, 0, true, "b"), now)
	require.False(t, done)

	require.Equal(t, uint64(2), r.Stats().Stale)
	require.Equal(t, uint64(1), r.Stats().FramesOK)
	select {
	case f := <-q.Frames():
		t.Fatalf("stale frame emitted: %+v", f)
	default:
	}
}

func TestFrameNumbersNeverRegress(t *testing.T) {
	r, q := newTestReassembler(16)
	now := time.Now()

	seq := []int{1, 2, 4, 3, 5, 5, 6} // 3 is late, 5 repeats
	for _, n := range seq {
		ingest(t, r, dgram(n, 0, true, "x"), now)
	}

	prev := -1
	for {
		select {
		case f := <-q.Frames():
			require.Greater(t, f.Number, prev)
			prev = f.Number
			continue
		default:
		}
		break
	}
	require.Equal(t, 6, prev)
}

func TestFrameCounterWrap(t *testing.T) {
	r, q := newTestReassembler(4)
	now := time.Now()

	ingest(t, r, dgram(255, 0, true, "end"), now)
	<-q.Frames()

	// 0 follows 255 on an 8-bit counter
	_, done := ingest(t, r, dgram(0, 0, true, "wrap"), now)
	require.True(t, done)
	require.Equal(t, 0, (<-q.Frames()).Number)
}

func TestExpireRetriesThenDrops(t *testing.T) {
	r, _ := newTestReassembler(4)
	now := time.Now()

	ingest(t, r, dgram(20, 0, false, "partial"), now)

	// inside the window: nothing to do
	_, resend := r.Expire(now.Add(100 * time.Millisecond))
	require.False(t, resend)

	// first expiry: re-request the in-flight frame (request arg is 19)
	reqNo, resend := r.Expire(now.Add(200 * time.Millisecond))
	require.True(t, resend)
	require.Equal(t, 19, reqNo)
	require.Equal(t, uint64(1), r.Stats().Retries)

	// second expiry: give up and move on (request arg is the dead frame)
	reqNo, resend = r.Expire(now.Add(400 * time.Millisecond))
	require.True(t, resend)
	require.Equal(t, 20, reqNo)
	require.Equal(t, uint64(1), r.Stats().FramesDropped)

	// the dropped frame may not come back
	_, done, err := r.Ingest(dgram(20, 1, true, "late"), now.Add(450*time.Millisecond))
	require.NoError(t, err)
	require.False(t, done)
}

func TestIngestBadDatagram(t *testing.T) {
	r, _ := newTestReassembler(4)
	_, _, err := r.Ingest([]byte{0x01}, time.Now())
	require.ErrorIs(t, err, protocol.ErrShortDatagram)
	require.Equal(t, uint64(1), r.Stats().BadDatagrams)
}
