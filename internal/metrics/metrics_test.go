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
	"strings"
	"testing"
	"time"
)

func TestGlobal(t *testing.T) {
	g := Global()
	if g == nil {
		t.Fatal("Global() returned nil")
	}

	g2 := Global()
	if g != g2 {
		t.Error("Global() should return the same instance")
	}
}

func TestStatsEmbeddingsAndSearches(t *testing.T) {
	s := New()

	s.AddEmbeddings(3)
	s.AddEmbeddings(2)
	if got := s.GetTotalEmbeddings(); got != 5 {
		t.Errorf("GetTotalEmbeddings() = %d, want 5", got)
	}

	s.AddSearches(1)
	if got := s.GetTotalSearches(); got != 1 {
		t.Errorf("GetTotalSearches() = %d, want 1", got)
	}
}

func TestStatsActiveConnections(t *testing.T) {
	s := New()

	s.IncrementActiveConnections()
	s.IncrementActiveConnections()
	if s.GetActiveConnections() != 2 {
		t.Errorf("GetActiveConnections() = %d, want 2", s.GetActiveConnections())
	}

	s.DecrementActiveConnections()
	if s.GetActiveConnections() != 1 {
		t.Errorf("GetActiveConnections() after decrement = %d, want 1", s.GetActiveConnections())
	}
}

func TestStatsShardCountAndProjection(t *testing.T) {
	s := New()

	s.SetShardCount(7)
	if s.GetShardCount() != 7 {
		t.Errorf("GetShardCount() = %d, want 7", s.GetShardCount())
	}

	s.SetProjectionActive(true)
	if !s.GetProjectionActive() {
		t.Error("GetProjectionActive() = false, want true")
	}
}

func TestStatsUptime(t *testing.T) {
	s := &Stats{startTime: time.Now().Add(-time.Second * 5)}

	uptime := s.GetUptime()
	if uptime < time.Second*4 || uptime > time.Second*6 {
		t.Errorf("GetUptime() = %v, expected around 5s", uptime)
	}
}

func TestStatsReset(t *testing.T) {
	s := New()
	s.AddEmbeddings(10)
	s.AddSearches(4)
	s.AddFits(1)
	s.SetShardCount(3)
	s.SetProjectionActive(true)

	s.Reset()

	if s.GetTotalEmbeddings() != 0 || s.GetTotalSearches() != 0 || s.GetTotalFits() != 0 {
		t.Error("Reset() should zero the accumulated counters")
	}
	if s.GetShardCount() != 0 || s.GetProjectionActive() {
		t.Error("Reset() should clear shard count and projection state")
	}
}

func TestSnapshot(t *testing.T) {
	s := &Stats{startTime: time.Now().Add(-time.Second * 10)}

	s.AddSearches(5)
	s.IncrementActiveConnections()
	s.AddEmbeddings(1)

	snapshot := s.Snapshot()

	if snapshot.TotalSearches < 5 {
		t.Errorf("Snapshot.TotalSearches = %d, want >= 5", snapshot.TotalSearches)
	}
	if snapshot.ActiveConnections != 1 {
		t.Errorf("Snapshot.ActiveConnections = %d, want 1", snapshot.ActiveConnections)
	}
	if snapshot.TotalEmbeddings < 1 {
		t.Errorf("Snapshot.TotalEmbeddings = %d, want >= 1", snapshot.TotalEmbeddings)
	}
	if snapshot.Goroutines <= 0 {
		t.Error("Snapshot.Goroutines should be > 0")
	}
	if snapshot.SearchesPerSecond <= 0 {
		t.Error("Snapshot.SearchesPerSecond should be > 0")
	}
	if snapshot.Uptime == "" {
		t.Error("Snapshot.Uptime should not be empty")
	}
}

func TestJSON(t *testing.T) {
	s := New()

	s.AddEmbeddings(1)
	s.IncrementActiveConnections()
	s.AddSearches(1)

	jsonStr, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("JSON() returned invalid JSON: %v", err)
	}

	requiredFields := []string{
		"goroutines", "total_embeddings", "total_searches", "total_fits",
		"active_connections", "shard_count", "projection_active", "uptime", "searches_per_second",
	}
	for _, field := range requiredFields {
		if _, ok := result[field]; !ok {
			t.Errorf("JSON() missing field: %s", field)
		}
	}

	if !strings.Contains(jsonStr, "\n") {
		t.Error("JSON() should be pretty printed with newlines")
	}
}
