// queue.go

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

import "sync"

// Frame is one completed, directly decodable image.
type Frame struct {
	Number int
	Data   []byte
}

// Queue is a bounded frame queue that favours freshness: when a consumer
// falls behind, the oldest queued frame is evicted to make room for the new
// one.  Live video wants the latest frame, not a growing backlog.
type Queue struct {
	mu      sync.Mutex
	ch      chan Frame
	evicted uint64
}

// NewQueue returns a Queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Frame, capacity)}
}

// Push enqueues a frame, evicting the oldest queued frame if the queue is
// full.  Never blocks.
func (q *Queue) Push(f Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		select {
		case <-q.ch:
			q.evicted++
		default:
		}
	}
}

// Frames is the consumer side of the queue.
func (q *Queue) Frames() <-chan Frame { return q.ch }

// Evicted reports how many frames were displaced by newer ones.
func (q *Queue) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
