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

// Package index tracks the set of known tag-sets and routes a tag-set
// to its shard file, deterministically, by hashing the tag-set's
// canonical form. It is the persisted analogue of db.rs's Index in the
// reference implementation.
package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/uzqw/vex/internal/vexerr"
	"github.com/uzqw/vex/internal/vfs"
)

const indexFileName = "index.bin"

// TagSet is an unordered set of short strings, canonicalized for
// hashing and comparison by sorting.
type TagSet []string

// Canonical returns tags sorted and de-duplicated.
func Canonical(tags []string) TagSet {
	if len(tags) == 0 {
		return TagSet{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make(TagSet, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// key turns a canonical tag-set into a comparable map key.
func (t TagSet) key() string {
	return strings.Join(t, "\x1f")
}

// IsSupersetOf reports whether every tag in other also appears in t.
// An empty other is a subset of everything.
func (t TagSet) IsSupersetOf(other TagSet) bool {
	if len(other) == 0 {
		return true
	}
	members := make(map[string]struct{}, len(t))
	for _, tag := range t {
		members[tag] = struct{}{}
	}
	for _, tag := range other {
		if _, ok := members[tag]; !ok {
			return false
		}
	}
	return true
}

// ShardName computes the deterministic shard filename for a canonical
// tag-set: sha256 of "[tag\x1ftag\x1f...]" (tags already sorted), hex
// encoded, suffixed ".bin". This is this module's own canonical form —
// see SPEC_FULL.md §3 — it does not attempt to reproduce the Rust
// reference's `{:?}` debug-format encoding bit-for-bit.
func ShardName(tags TagSet) string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strings.Join(tags, "\x1f"))
	sb.WriteByte(']')

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:]) + ".bin"
}

// Index is the persisted set of known tag-sets.
type Index struct {
	sets map[string]TagSet
}

// Load reads the index file, tolerating a zero-length file as an empty
// index.
func Load(dir vfs.Directory) (*Index, error) {
	f, err := dir.OpenFile(indexFileName, true)
	if err != nil {
		return nil, vexerr.New("index.Load", vexerr.KindStorage, err)
	}

	size, err := f.Size()
	if err != nil {
		return nil, vexerr.New("index.Load", vexerr.KindStorage, err)
	}
	if size == 0 {
		return &Index{sets: make(map[string]TagSet)}, nil
	}

	data, err := f.ReadAll()
	if err != nil {
		return nil, vexerr.New("index.Load", vexerr.KindStorage, err)
	}

	var raw [][]string
	if err := decodeGob(data, &raw); err != nil {
		return nil, vexerr.New("index.Load", vexerr.KindCorruption, err)
	}

	sets := make(map[string]TagSet, len(raw))
	for _, tags := range raw {
		ts := TagSet(tags)
		sets[ts.key()] = ts
	}
	return &Index{sets: sets}, nil
}

// persist truncating-rewrites the index file with the current set of
// known tag-sets.
func (idx *Index) persist(dir vfs.Directory) error {
	f, err := dir.OpenFile(indexFileName, true)
	if err != nil {
		return vexerr.New("index.persist", vexerr.KindStorage, err)
	}

	raw := make([][]string, 0, len(idx.sets))
	for _, ts := range idx.sets {
		raw = append(raw, []string(ts))
	}
	data, err := encodeGob(raw)
	if err != nil {
		return vexerr.New("index.persist", vexerr.KindCorruption, err)
	}

	w, err := f.OpenWriter(false)
	if err != nil {
		return vexerr.New("index.persist", vexerr.KindStorage, err)
	}
	if _, err := w.Write(data); err != nil {
		return vexerr.New("index.persist", vexerr.KindStorage, err)
	}
	if err := w.Close(); err != nil {
		return vexerr.New("index.persist", vexerr.KindStorage, err)
	}
	return nil
}

// ExactShard returns the File for tags, adding tags to the index (and
// persisting the index) if this is the first time it's been seen.
func ExactShard(dir vfs.Directory, idx *Index, tags TagSet) (vfs.File, error) {
	key := tags.key()
	if _, ok := idx.sets[key]; !ok {
		idx.sets[key] = tags
		if err := idx.persist(dir); err != nil {
			return nil, err
		}
	}

	f, err := dir.OpenFile(ShardName(tags), true)
	if err != nil {
		return nil, vexerr.New("index.ExactShard", vexerr.KindStorage, err)
	}
	return f, nil
}

// MatchingShards returns the shard files for every known tag-set that
// is a superset of query. An empty query matches every known tag-set.
func MatchingShards(dir vfs.Directory, idx *Index, query TagSet) ([]vfs.File, error) {
	var files []vfs.File
	for _, ts := range idx.sets {
		if !ts.IsSupersetOf(query) {
			continue
		}
		f, err := dir.OpenFile(ShardName(ts), true)
		if err != nil {
			return nil, vexerr.New("index.MatchingShards", vexerr.KindStorage, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// AllShardNames returns the shard filename for every known tag-set.
func (idx *Index) AllShardNames() []string {
	names := make([]string, 0, len(idx.sets))
	for _, ts := range idx.sets {
		names = append(names, ShardName(ts))
	}
	return names
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
