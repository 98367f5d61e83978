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

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzqw/vex/internal/vfs"
)

func TestShardNameIsPureFunctionOfCanonicalTags(t *testing.T) {
	a := ShardName(Canonical([]string{"b", "a"}))
	b := ShardName(Canonical([]string{"a", "b"}))
	assert.Equal(t, a, b)

	c := ShardName(Canonical([]string{"a", "c"}))
	assert.NotEqual(t, a, c)
}

func TestLoadEmptyIndexFromZeroLengthFile(t *testing.T) {
	dir := vfs.NewMemory()
	idx, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, idx.AllShardNames())
}

func TestExactShardAddsAndPersistsTagSet(t *testing.T) {
	dir := vfs.NewMemory()
	idx, err := Load(dir)
	require.NoError(t, err)

	tags := Canonical([]string{"greetings"})
	_, err = ExactShard(dir, idx, tags)
	require.NoError(t, err)

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Contains(t, reloaded.AllShardNames(), ShardName(tags))
}

func TestMatchingShardsSupersetLookup(t *testing.T) {
	dir := vfs.NewMemory()
	idx, err := Load(dir)
	require.NoError(t, err)

	greetings := Canonical([]string{"greetings"})
	goodbyes := Canonical([]string{"goodbyes"})
	both := Canonical([]string{"greetings", "formal"})

	for _, ts := range []TagSet{greetings, goodbyes, both} {
		_, err := ExactShard(dir, idx, ts)
		require.NoError(t, err)
	}

	files, err := MatchingShards(dir, idx, Canonical([]string{"greetings"}))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMatchingShardsEmptyQueryMatchesEverything(t *testing.T) {
	dir := vfs.NewMemory()
	idx, err := Load(dir)
	require.NoError(t, err)

	for _, ts := range []TagSet{Canonical([]string{"a"}), Canonical([]string{"b"})} {
		_, err := ExactShard(dir, idx, ts)
		require.NoError(t, err)
	}

	files, err := MatchingShards(dir, idx, Canonical(nil))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMatchingShardsNoMatchReturnsEmpty(t *testing.T) {
	dir := vfs.NewMemory()
	idx, err := Load(dir)
	require.NoError(t, err)

	_, err = ExactShard(dir, idx, Canonical([]string{"a"}))
	require.NoError(t, err)

	files, err := MatchingShards(dir, idx, Canonical([]string{"mysterious"}))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIsSupersetOf(t *testing.T) {
	full := Canonical([]string{"a", "b", "c"})
	assert.True(t, full.IsSupersetOf(Canonical([]string{"a", "b"})))
	assert.True(t, full.IsSupersetOf(Canonical(nil)))
	assert.False(t, full.IsSupersetOf(Canonical([]string{"a", "d"})))
}
