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

import "github.com/google/uuid"

// Item is one (text, vector) pair to insert.
type Item struct {
	Text   string
	Vector []float32
}

// Result is one search hit, sorted descending by Similarity by the
// caller-visible Search method.
type Result struct {
	Similarity float32
	ID         uuid.UUID
	Vector     []float32
	Text       string
}

// Config holds the engine's tunable thresholds. The zero value is not
// valid; use DefaultConfig and override as needed.
type Config struct {
	// FitThresholdBytes is the shard size, in bytes, that triggers the
	// auto-fit-and-reproject PCA pass. Reference default: 1,000,000.
	FitThresholdBytes int64

	// ProjectionDimensions is k, the target dimensionality of the PCA
	// projection. Reference default: 500. Clamped down to the source
	// dimensionality if smaller.
	ProjectionDimensions int

	// ContentCacheSize bounds the LRU cache of decoded UUID->text
	// entries kept in front of content.bin.
	ContentCacheSize int
}

// DefaultConfig returns the reference implementation's tunables.
func DefaultConfig() Config {
	return Config{
		FitThresholdBytes:    1_000_000,
		ProjectionDimensions: 500,
		ContentCacheSize:     4096,
	}
}
