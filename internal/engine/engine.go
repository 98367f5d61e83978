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

// Package engine implements the tag-partitioned embedding store: a
// directory of shard files, each holding quantized vectors for one
// exact tag-set, an id->text content file, and an optional PCA basis
// that activates once a shard crosses a size threshold.
package engine

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/decomposition"
	"github.com/uzqw/vex/internal/index"
	"github.com/uzqw/vex/internal/metrics"
	"github.com/uzqw/vex/internal/similarity"
	"github.com/uzqw/vex/internal/vexerr"
	"github.com/uzqw/vex/internal/vfs"
)

// Engine is the store's entry point. One Engine owns one vfs.Directory;
// concurrent use from multiple goroutines is safe.
type Engine struct {
	dir   vfs.Directory
	cfg   Config
	stats *metrics.Stats

	mu    sync.RWMutex // held exclusively by writers (insert, clear, fit-and-reproject), shared by Search
	cache *lru.Cache[uuid.UUID, string]
}

// New builds an Engine over dir with the given configuration.
func New(dir vfs.Directory, cfg Config) (*Engine, error) {
	if cfg.ContentCacheSize <= 0 {
		cfg.ContentCacheSize = DefaultConfig().ContentCacheSize
	}
	cache, err := lru.New[uuid.UUID, string](cfg.ContentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: building content cache: %w", err)
	}
	return &Engine{dir: dir, cfg: cfg, stats: metrics.New(), cache: cache}, nil
}

// NewInMemory builds an Engine over a fresh in-memory directory, for
// tests and ephemeral workloads.
func NewInMemory(cfg Config) *Engine {
	e, err := New(vfs.NewMemory(), cfg)
	if err != nil {
		// ContentCacheSize is always valid by the time lru.New runs, so
		// this branch is unreachable; panic makes the impossibility loud
		// rather than threading a pointless error return.
		panic(err)
	}
	return e
}

// Stats exposes the engine's running counters.
func (e *Engine) Stats() *metrics.Stats { return e.stats }

// InsertMany inserts a batch of items under one tag-set. All items in
// a batch must share the same vector dimensionality. It returns the
// generated ids in item order.
func (e *Engine) InsertMany(items []Item, tags []string) ([]uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil
	}
	dim := len(items[0].Vector)
	for _, it := range items {
		if len(it.Vector) != dim {
			return nil, vexerr.New("engine.InsertMany", vexerr.KindProgramming,
				fmt.Errorf("batch has mixed vector dimensionality (%d vs %d)", len(it.Vector), dim))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	proj, active, err := loadProjection(e.dir)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(items))
	encoded := make([]byte, 0, len(items)*recordSize(dim))
	recSize := -1
	contentEntries := make(map[uuid.UUID]string, len(items))

	for i, it := range items {
		v := it.Vector
		if active {
			v, err = proj.Project(v)
			if err != nil {
				return nil, vexerr.New("engine.InsertMany", vexerr.KindProgramming, err)
			}
		}

		id := uuid.New()
		ids[i] = id
		rec := encodeRecord(id, v)
		if recSize == -1 {
			recSize = len(rec)
		} else if len(rec) != recSize {
			return nil, vexerr.New("engine.InsertMany", vexerr.KindProgramming,
				fmt.Errorf("encoded record size changed mid-batch"))
		}
		encoded = append(encoded, rec...)
		contentEntries[id] = it.Text
	}

	ts := index.Canonical(tags)
	idx, err := index.Load(e.dir)
	if err != nil {
		return nil, err
	}
	shardFile, err := index.ExactShard(e.dir, idx, ts)
	if err != nil {
		return nil, err
	}

	if err := appendRecords(shardFile, recSize, encoded); err != nil {
		return nil, err
	}
	if err := mergeContent(e.dir, contentEntries); err != nil {
		return nil, err
	}
	e.cache.Purge()

	e.stats.AddEmbeddings(int64(len(items)))
	e.stats.SetShardCount(int64(len(idx.AllShardNames())))

	if !active {
		size, err := shardFile.Size()
		if err != nil {
			return nil, vexerr.New("engine.InsertMany", vexerr.KindStorage, err)
		}
		if size >= e.cfg.FitThresholdBytes {
			if err := e.fitAndReproject(); err != nil {
				return nil, err
			}
		}
	}

	return ids, nil
}

// InsertOne is a convenience wrapper around InsertMany for a single item.
func (e *Engine) InsertOne(item Item, tags []string) (uuid.UUID, error) {
	ids, err := e.InsertMany([]Item{item}, tags)
	if err != nil {
		return uuid.UUID{}, err
	}
	return ids[0], nil
}

// Search scans every shard whose tag-set is a superset of withTags and
// returns the topN nearest matches to query, sorted descending by
// Similarity.
//
// In unprojected mode this is cosine similarity, matching the
// reference implementation. Once a PCA projection is active the
// reference switches to Euclidean distance in the reduced space; to
// keep "higher Similarity is better" true in both modes, projected
// scores are the negated Euclidean distance (resolved Open Question:
// option (a), see SPEC_FULL.md §9).
func (e *Engine) Search(query []float32, withTags []string, topN int) ([]Result, error) {
	if topN <= 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ts := index.Canonical(withTags)
	idx, err := index.Load(e.dir)
	if err != nil {
		return nil, err
	}
	files, err := index.MatchingShards(e.dir, idx, ts)
	if err != nil {
		return nil, err
	}

	proj, active, err := loadProjection(e.dir)
	if err != nil {
		return nil, err
	}

	q := query
	if active {
		q, err = proj.Project(query)
		if err != nil {
			return nil, vexerr.New("engine.Search", vexerr.KindProgramming, err)
		}
	}

	type shardOutcome struct {
		candidates []candidate
		err        error
	}
	outcomes := make(chan shardOutcome, len(files))

	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f vfs.File) {
			defer wg.Done()

			records, _, err := readShardRecords(f)
			if err != nil {
				outcomes <- shardOutcome{err: err}
				return
			}

			local := newTopKHeap(topN)
			for _, rec := range records {
				var score float32
				if active {
					dist, err := similarity.Euclidean(q, rec.vector)
					if err != nil {
						outcomes <- shardOutcome{err: vexerr.New("engine.Search", vexerr.KindCorruption, err)}
						return
					}
					score = -dist
				} else {
					sim, err := similarity.Cosine(q, rec.vector)
					if err != nil {
						outcomes <- shardOutcome{err: vexerr.New("engine.Search", vexerr.KindCorruption, err)}
						return
					}
					score = sim
				}
				local.offer(candidate{score: score, id: rec.id, vector: rec.vector})
			}
			outcomes <- shardOutcome{candidates: local.drainDescending()}
		}(f)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	merged := newTopKHeap(topN)
	for outcome := range outcomes {
		if outcome.err != nil {
			return nil, outcome.err
		}
		for _, c := range outcome.candidates {
			merged.offer(c)
		}
	}

	e.stats.AddSearches(1)

	best := merged.drainDescending()
	results := make([]Result, 0, len(best))
	for _, c := range best {
		text, err := e.getContent(c.id)
		if err != nil && !vexerr.Is(err, vexerr.KindNotFound) {
			return nil, err
		}
		results = append(results, Result{
			Similarity: c.score,
			ID:         c.id,
			Vector:     c.vector,
			Text:       text,
		})
	}
	return results, nil
}

// getContent resolves a single id to its text, consulting the LRU
// cache before falling back to a full content.bin decode.
func (e *Engine) getContent(id uuid.UUID) (string, error) {
	if text, ok := e.cache.Get(id); ok {
		return text, nil
	}

	m, err := readContentMap(e.dir)
	if err != nil {
		return "", err
	}
	for k, v := range m {
		e.cache.Add(k, v)
	}

	text, ok := m[id]
	if !ok {
		return "", vexerr.New("engine.getContent", vexerr.KindNotFound, fmt.Errorf("no content for id %s", id))
	}
	return text, nil
}

// Clear removes every shard, the index, the content file, and any
// fitted projection, returning the store to its initial empty state.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := index.Load(e.dir)
	if err != nil {
		return err
	}
	for _, name := range idx.AllShardNames() {
		if err := e.dir.RemoveEntry(name); err != nil {
			return vexerr.New("engine.Clear", vexerr.KindStorage, err)
		}
	}
	for _, name := range []string{"index.bin", contentFileName, projectionFileName} {
		if err := e.dir.RemoveEntry(name); err != nil {
			return vexerr.New("engine.Clear", vexerr.KindStorage, err)
		}
	}

	e.cache.Purge()
	e.stats.Reset()
	return nil
}

// fitAndReproject fits a PCA basis over every known vector (across
// all tag-sets, using one global mean per the resolved Open Question
// in SPEC_FULL.md §9) and rewrites every shard's vectors into the
// projected space. Callers must hold e.mu.
func (e *Engine) fitAndReproject() error {
	idx, err := index.Load(e.dir)
	if err != nil {
		return err
	}

	files, err := index.MatchingShards(e.dir, idx, index.Canonical(nil))
	if err != nil {
		return err
	}

	perShard := make([][]shardRecord, len(files))
	var all [][]float32
	for i, f := range files {
		records, _, err := readShardRecords(f)
		if err != nil {
			return err
		}
		perShard[i] = records
		for _, r := range records {
			all = append(all, r.vector)
		}
	}
	if len(all) < 2 {
		return nil
	}

	k := e.cfg.ProjectionDimensions
	if d := len(all[0]); k > d {
		k = d
	}

	proj, err := decomposition.Fit(all, k)
	if err != nil {
		return vexerr.New("engine.fitAndReproject", vexerr.KindProgramming, err)
	}
	if err := saveProjection(e.dir, proj); err != nil {
		return err
	}

	newRecSize := recordSize(k)
	for i, f := range files {
		buf := make([]byte, 0, len(perShard[i])*newRecSize)
		for _, r := range perShard[i] {
			projected, err := proj.Project(r.vector)
			if err != nil {
				return vexerr.New("engine.fitAndReproject", vexerr.KindProgramming, err)
			}
			buf = append(buf, encodeRecord(r.id, projected)...)
		}
		if err := rewriteRecords(f, newRecSize, buf); err != nil {
			return err
		}
	}

	e.stats.AddFits(1)
	e.stats.SetProjectionActive(true)
	return nil
}
