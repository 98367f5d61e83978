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

// Package decomposition fits a PCA projection from a batch of
// embedding vectors: center by column mean, compute the covariance
// matrix, take its symmetric eigendecomposition, sort by eigenvalue
// descending, and keep the top-k eigenvectors as the projection basis.
package decomposition

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Projection is a fitted PCA basis: E (originalDim x k) and the
// per-column means (length originalDim) subtracted before projecting.
type Projection struct {
	E    *mat.Dense
	Mean []float64
}

// Fit computes a Projection reducing vectors (each of length D) to k
// dimensions. len(vectors) must be >= 2 and every vector must have the
// same length.
func Fit(vectors [][]float32, k int) (Projection, error) {
	if len(vectors) == 0 {
		return Projection{}, fmt.Errorf("decomposition: need at least one vector to fit")
	}
	d := len(vectors[0])
	if k <= 0 || k > d {
		return Projection{}, fmt.Errorf("decomposition: k=%d out of range for dimension %d", k, d)
	}

	data := toDense(vectors)
	centered, means := centerColumns(data)
	cov := covariance(centered)

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return Projection{}, fmt.Errorf("decomposition: symmetric eigendecomposition failed to converge")
	}

	values := eig.Values(nil)
	var vectorsMat mat.Dense
	eig.VectorsTo(&vectorsMat)

	order, err := sortDescending(values)
	if err != nil {
		return Projection{}, err
	}

	rows, _ := vectorsMat.Dims()
	e := mat.NewDense(rows, k, nil)
	for col := 0; col < k; col++ {
		src := order[col]
		for row := 0; row < rows; row++ {
			e.Set(row, col, vectorsMat.At(row, src))
		}
	}

	return Projection{E: e, Mean: means}, nil
}

// Project maps a single vector of length D into the k-dimensional
// projected space using (x - mean) * E.
func (p Projection) Project(v []float32) ([]float32, error) {
	d, k := p.E.Dims()
	if len(v) != d {
		return nil, fmt.Errorf("decomposition: vector has dimension %d, projection expects %d", len(v), d)
	}

	centered := mat.NewDense(1, d, nil)
	for i, val := range v {
		centered.Set(0, i, float64(val)-p.Mean[i])
	}

	var result mat.Dense
	result.Mul(centered, p.E)

	out := make([]float32, k)
	for i := 0; i < k; i++ {
		out[i] = float32(result.At(0, i))
	}
	return out, nil
}

func toDense(vectors [][]float32) *mat.Dense {
	rows := len(vectors)
	cols := len(vectors[0])
	data := make([]float64, rows*cols)
	for r, v := range vectors {
		for c, val := range v {
			data[r*cols+c] = float64(val)
		}
	}
	return mat.NewDense(rows, cols, data)
}

func centerColumns(m *mat.Dense) (*mat.Dense, []float64) {
	rows, cols := m.Dims()
	means := make([]float64, cols)
	for c := 0; c < cols; c++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += m.At(r, c)
		}
		means[c] = sum / float64(rows)
	}

	centered := mat.NewDense(rows, cols, nil)
	centered.Apply(func(r, c int, v float64) float64 {
		return v - means[c]
	}, m)

	return centered, means
}

func covariance(centered *mat.Dense) *mat.Dense {
	rows, _ := centered.Dims()
	var cov mat.Dense
	cov.Mul(centered.T(), centered)
	cov.Scale(1/float64(rows), &cov)
	return &cov
}

// sortDescending returns the indices of values sorted by value
// descending. It fails loudly on a NaN eigenvalue instead of
// silently producing an arbitrary order.
func sortDescending(values []float64) ([]int, error) {
	order := make([]int, len(values))
	for i := range order {
		if math.IsNaN(values[i]) {
			return nil, fmt.Errorf("decomposition: encountered NaN eigenvalue at index %d", i)
		}
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		return values[order[i]] > values[order[j]]
	})
	return order, nil
}
