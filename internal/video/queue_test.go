// queue_test.go

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

	"github.com/stretchr/testify/require"
)

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	q.Push(Frame{Number: 1})
	q.Push(Frame{Number: 2})
	q.Push(Frame{Number: 3}) // evicts 1

	require.Equal(t, 2, (<-q.Frames()).Number)
	require.Equal(t, 3, (<-q.Frames()).Number)
	require.Equal(t, uint64(1), q.Evicted())

	select {
	case f := <-q.Frames():
		t.Fatalf("unexpected frame %d", f.Number)
	default:
	}
}

func TestQueuePushNeverBlocks(t *testing.T) {
	q := NewQueue(1)
	for i := 0; i < 100; i++ {
		q.Push(Frame{Number: i})
	}
	require.Equal(t, 99, (<-q.Frames()).Number)
	require.Equal(t, uint64(99), q.Evicted())
}

func TestQueueMinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	q.Push(Frame{Number: 7})
	require.Equal(t, 7, (<-q.Frames()).Number)
}
