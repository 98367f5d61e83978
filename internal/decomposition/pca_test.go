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

package decomposition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitReducesDimension(t *testing.T) {
	vectors := randomVectors(50, 10, 1)

	proj, err := Fit(vectors, 3)
	require.NoError(t, err)

	rows, cols := proj.E.Dims()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 3, cols)
	assert.Len(t, proj.Mean, 10)
}

func TestProjectProducesReducedDimension(t *testing.T) {
	vectors := randomVectors(50, 10, 2)
	proj, err := Fit(vectors, 4)
	require.NoError(t, err)

	out, err := proj.Project(vectors[0])
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestProjectRejectsDimensionMismatch(t *testing.T) {
	vectors := randomVectors(20, 8, 3)
	proj, err := Fit(vectors, 2)
	require.NoError(t, err)

	_, err = proj.Project([]float32{1, 2, 3})
	assert.Error(t, err)
}

func TestFitRejectsKOutOfRange(t *testing.T) {
	vectors := randomVectors(10, 5, 4)

	_, err := Fit(vectors, 0)
	assert.Error(t, err)

	_, err = Fit(vectors, 6)
	assert.Error(t, err)
}

func TestFitOnCorrelatedDataKeepsDominantDirection(t *testing.T) {
	// Every vector lies near the line x2 = 2*x1, so the first principal
	// component should dominate and a 1-D projection should preserve
	// relative ordering along that line.
	rng := rand.New(rand.NewSource(5))
	vectors := make([][]float32, 100)
	for i := range vectors {
		x := rng.Float64()*10 - 5
		noise := (rng.Float64() - 0.5) * 0.01
		vectors[i] = []float32{float32(x), float32(2*x + noise)}
	}

	proj, err := Fit(vectors, 1)
	require.NoError(t, err)

	low, err := proj.Project([]float32{-5, -10})
	require.NoError(t, err)
	high, err := proj.Project([]float32{5, 10})
	require.NoError(t, err)

	assert.NotEqual(t, low[0], high[0])
}

func randomVectors(n, d int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, d)
		for j := range v {
			v[j] = float32(rng.Float64()*2 - 1)
		}
		out[i] = v
	}
	return out
}
