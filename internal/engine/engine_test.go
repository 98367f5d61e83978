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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FitThresholdBytes = 1 << 40 // effectively disabled unless a test opts in
	return cfg
}

func TestInsertAndSearchFindsNearestNeighbor(t *testing.T) {
	e := NewInMemory(testConfig())

	_, err := e.InsertMany([]Item{
		{Text: "cat", Vector: []float32{1, 0, 0}},
		{Text: "dog", Vector: []float32{0, 1, 0}},
		{Text: "car", Vector: []float32{0.95, 0.05, 0}},
	}, []string{"animals"})
	require.NoError(t, err)

	results, err := e.Search([]float32{1, 0, 0}, []string{"animals"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cat", results[0].Text)
	assert.Equal(t, "car", results[1].Text)
}

func TestSearchRespectsTagFilter(t *testing.T) {
	e := NewInMemory(testConfig())

	_, err := e.InsertMany([]Item{{Text: "greeting", Vector: []float32{1, 0}}}, []string{"greetings"})
	require.NoError(t, err)
	_, err = e.InsertMany([]Item{{Text: "farewell", Vector: []float32{1, 0}}}, []string{"goodbyes"})
	require.NoError(t, err)

	results, err := e.Search([]float32{1, 0}, []string{"greetings"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "greeting", results[0].Text)
}

func TestSearchWithNoTagsMatchesEverything(t *testing.T) {
	e := NewInMemory(testConfig())

	_, err := e.InsertMany([]Item{{Text: "a", Vector: []float32{1, 0}}}, []string{"x"})
	require.NoError(t, err)
	_, err = e.InsertMany([]Item{{Text: "b", Vector: []float32{0, 1}}}, []string{"y"})
	require.NoError(t, err)

	results, err := e.Search([]float32{1, 1}, nil, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestInsertRejectsMixedDimensionBatch(t *testing.T) {
	e := NewInMemory(testConfig())

	_, err := e.InsertMany([]Item{
		{Text: "a", Vector: []float32{1, 2, 3}},
		{Text: "b", Vector: []float32{1, 2}},
	}, nil)
	assert.Error(t, err)
}

func TestClearRemovesAllData(t *testing.T) {
	e := NewInMemory(testConfig())

	_, err := e.InsertMany([]Item{{Text: "a", Vector: []float32{1, 0}}}, []string{"x"})
	require.NoError(t, err)

	require.NoError(t, e.Clear())

	results, err := e.Search([]float32{1, 0}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, uint64(0), e.Stats().GetTotalEmbeddings())
}

func TestAutoFitActivatesProjectionOnceThresholdCrossed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FitThresholdBytes = 1 // triggers on the very first insert
	cfg.ProjectionDimensions = 2
	e := NewInMemory(cfg)

	rng := rand.New(rand.NewSource(42))
	items := make([]Item, 20)
	for i := range items {
		v := make([]float32, 5)
		for j := range v {
			v[j] = float32(rng.Float64()*2 - 1)
		}
		items[i] = Item{Text: "item", Vector: v}
	}

	_, err := e.InsertMany(items, []string{"bulk"})
	require.NoError(t, err)
	assert.True(t, e.Stats().GetProjectionActive())

	results, err := e.Search(items[0].Vector, []string{"bulk"}, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestInsertOneReturnsUsableID(t *testing.T) {
	e := NewInMemory(testConfig())

	id, err := e.InsertOne(Item{Text: "solo", Vector: []float32{1, 2, 3}}, []string{"solo"})
	require.NoError(t, err)
	assert.NotEqual(t, id.String(), "")

	results, err := e.Search([]float32{1, 2, 3}, []string{"solo"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
}
