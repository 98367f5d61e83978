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

// Package similarity implements the pure vector-similarity kernels the
// engine scores retrieval candidates with: cosine (original-dimension
// mode) and Euclidean (projected mode).
package similarity

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of a and b: the dot product
// divided by the product of the magnitudes. Higher is more similar.
// Returns NaN if either vector has zero magnitude; callers must not
// feed zero vectors in cosine mode.
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("similarity: vector lengths do not match: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Euclidean returns the L2 distance between a and b. Lower means
// closer; callers scoring a max-heap must negate or otherwise invert
// this before comparison.
func Euclidean(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("similarity: vector lengths do not match: %d != %d", len(a), len(b))
	}

	var sumSquares float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sumSquares += diff * diff
	}

	return float32(math.Sqrt(sumSquares)), nil
}
