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

package metrics

import (
	"encoding/json"
	"runtime"
	"sync/atomic"
	"time"
)

// Stats holds one engine's running counters using atomic operations
// for thread-safety. This design avoids mutex overhead and provides
// lock-free performance monitoring.
type Stats struct {
	totalEmbeddings     atomic.Uint64 // Total embeddings ever inserted
	totalSearches       atomic.Uint64 // Total VSEARCH calls served
	totalFits           atomic.Uint64 // Total fit-and-reproject passes run
	activeConnections   atomic.Int64  // Current number of active connections
	shardCount          atomic.Int64  // Number of distinct tag-set shards on disk
	projectionActive    atomic.Bool   // Whether a PCA projection is currently active

	startTime time.Time
}

// New returns a fresh Stats with its clock started now.
func New() *Stats {
	return &Stats{startTime: time.Now()}
}

// global is a process-wide Stats instance for binaries that only ever
// run one engine. cmd/vexd does not use it; it reports the engine's own
// Stats.
var global = New()

// Global returns the process-wide stats instance.
func Global() *Stats { return global }

func (s *Stats) AddEmbeddings(n int64) { s.totalEmbeddings.Add(uint64(n)) }
func (s *Stats) AddSearches(n int64)   { s.totalSearches.Add(uint64(n)) }
func (s *Stats) AddFits(n int64)       { s.totalFits.Add(uint64(n)) }

func (s *Stats) IncrementActiveConnections() { s.activeConnections.Add(1) }
func (s *Stats) DecrementActiveConnections() { s.activeConnections.Add(-1) }

func (s *Stats) SetShardCount(n int64)           { s.shardCount.Store(n) }
func (s *Stats) SetProjectionActive(active bool) { s.projectionActive.Store(active) }

func (s *Stats) GetTotalEmbeddings() uint64    { return s.totalEmbeddings.Load() }
func (s *Stats) GetTotalSearches() uint64      { return s.totalSearches.Load() }
func (s *Stats) GetTotalFits() uint64          { return s.totalFits.Load() }
func (s *Stats) GetActiveConnections() int64   { return s.activeConnections.Load() }
func (s *Stats) GetShardCount() int64          { return s.shardCount.Load() }
func (s *Stats) GetProjectionActive() bool     { return s.projectionActive.Load() }
func (s *Stats) GetUptime() time.Duration      { return time.Since(s.startTime) }

// Reset zeroes every counter except active connections, which reflect
// live state rather than accumulated history. Called when an engine's
// underlying store is cleared.
func (s *Stats) Reset() {
	s.totalEmbeddings.Store(0)
	s.totalSearches.Store(0)
	s.totalFits.Store(0)
	s.shardCount.Store(0)
	s.projectionActive.Store(false)
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Goroutines        int     `json:"goroutines"`
	TotalEmbeddings   uint64  `json:"total_embeddings"`
	TotalSearches     uint64  `json:"total_searches"`
	TotalFits         uint64  `json:"total_fits"`
	ActiveConnections int64   `json:"active_connections"`
	ShardCount        int64   `json:"shard_count"`
	ProjectionActive  bool    `json:"projection_active"`
	Uptime            string  `json:"uptime"`
	SearchesPerSecond float64 `json:"searches_per_second"`
}

// Snapshot builds a consistent snapshot of all metrics.
func (s *Stats) Snapshot() *Snapshot {
	uptime := s.GetUptime()
	searches := s.GetTotalSearches()

	var qps float64
	if uptime.Seconds() > 0 {
		qps = float64(searches) / uptime.Seconds()
	}

	return &Snapshot{
		Goroutines:        runtime.NumGoroutine(),
		TotalEmbeddings:   s.GetTotalEmbeddings(),
		TotalSearches:     searches,
		TotalFits:         s.GetTotalFits(),
		ActiveConnections: s.GetActiveConnections(),
		ShardCount:        s.GetShardCount(),
		ProjectionActive:  s.GetProjectionActive(),
		Uptime:            uptime.String(),
		SearchesPerSecond: qps,
	}
}

// JSON returns the metrics snapshot as an indented JSON string.
func (s *Stats) JSON() (string, error) {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
