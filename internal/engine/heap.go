// Copyright 2025 uzqw
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"container/heap"

	"github.com/google/uuid"
)

// candidate is a scored shard record, pending attachment of its text.
// score is always "higher is better": cosine similarity directly, or
// negated Euclidean distance when the store is running in projected
// mode (see Search's doc comment for why the sign gets flipped).
type candidate struct {
	score  float32
	id     uuid.UUID
	vector []float32
}

// topKHeap is a min-heap on score, bounded to n entries: once full, a
// new candidate only displaces the current worst (root) if it scores
// higher. This keeps a concurrent shard scan from ever holding more
// than n candidates in memory per worker.
type topKHeap struct {
	n     int
	items []candidate
}

func newTopKHeap(n int) *topKHeap {
	return &topKHeap{n: n, items: make([]candidate, 0, n)}
}

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return h.items[i].score < h.items[j].score }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x interface{})  { h.items = append(h.items, x.(candidate)) }
func (h *topKHeap) Pop() interface{} {
	old := h.items
	last := old[len(old)-1]
	h.items = old[:len(old)-1]
	return last
}

// offer considers c for inclusion, evicting the current worst entry
// if the heap is already at capacity and c beats it.
func (h *topKHeap) offer(c candidate) {
	if h.n <= 0 {
		return
	}
	if h.Len() < h.n {
		heap.Push(h, c)
		return
	}
	if c.score > h.items[0].score {
		heap.Pop(h)
		heap.Push(h, c)
	}
}

// drainDescending empties the heap and returns its contents sorted by
// score descending (best first).
func (h *topKHeap) drainDescending() []candidate {
	out := make([]candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(candidate)
	}
	return out
}
