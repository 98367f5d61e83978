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
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/uzqw/vex/internal/decomposition"
	"github.com/uzqw/vex/internal/vexerr"
	"github.com/uzqw/vex/internal/vfs"
)

const projectionFileName = "eigen.bin"

// loadProjection reads the persisted PCA basis, if one has been
// fitted yet. active is false and proj is the zero value when
// eigen.bin has never been written — that is this store's default,
// unprojected state, not an error.
func loadProjection(dir vfs.Directory) (proj decomposition.Projection, active bool, err error) {
	f, err := dir.OpenFile(projectionFileName, true)
	if err != nil {
		return decomposition.Projection{}, false, vexerr.New("engine.loadProjection", vexerr.KindStorage, err)
	}

	data, err := f.ReadAll()
	if err != nil {
		return decomposition.Projection{}, false, vexerr.New("engine.loadProjection", vexerr.KindStorage, err)
	}
	if len(data) == 0 {
		return decomposition.Projection{}, false, nil
	}

	proj, err = decodeProjection(data)
	if err != nil {
		return decomposition.Projection{}, false, vexerr.New("engine.loadProjection", vexerr.KindCorruption, err)
	}
	return proj, true, nil
}

// saveProjection truncating-writes the PCA basis to eigen.bin.
func saveProjection(dir vfs.Directory, proj decomposition.Projection) error {
	f, err := dir.OpenFile(projectionFileName, true)
	if err != nil {
		return vexerr.New("engine.saveProjection", vexerr.KindStorage, err)
	}

	data := encodeProjection(proj)
	w, err := f.OpenWriter(false)
	if err != nil {
		return vexerr.New("engine.saveProjection", vexerr.KindStorage, err)
	}
	if _, err := w.Write(data); err != nil {
		return vexerr.New("engine.saveProjection", vexerr.KindStorage, err)
	}
	if err := w.Close(); err != nil {
		return vexerr.New("engine.saveProjection", vexerr.KindStorage, err)
	}
	return nil
}

// encodeProjection lays out rows, cols, E's row-major data, then the
// mean vector, all as little-endian int64/float64 fields. This is
// simpler than gob here since the payload is just two flat float64
// slices plus two dimensions.
func encodeProjection(proj decomposition.Projection) []byte {
	rows, cols := proj.E.Dims()
	buf := make([]byte, 0, 16+rows*cols*8+len(proj.Mean)*8)
	buf = appendInt64(buf, int64(rows))
	buf = appendInt64(buf, int64(cols))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			buf = appendFloat64(buf, proj.E.At(r, c))
		}
	}
	for _, m := range proj.Mean {
		buf = appendFloat64(buf, m)
	}
	return buf
}

func decodeProjection(data []byte) (decomposition.Projection, error) {
	if len(data) < 16 {
		return decomposition.Projection{}, fmt.Errorf("engine: eigen file shorter than its header")
	}
	rows := int(binary.LittleEndian.Uint64(data[0:8]))
	cols := int(binary.LittleEndian.Uint64(data[8:16]))
	if rows <= 0 || cols <= 0 {
		return decomposition.Projection{}, fmt.Errorf("engine: eigen file has non-positive dimensions %d x %d", rows, cols)
	}

	offset := 16
	wantMatrix := rows * cols * 8
	wantMean := rows * 8
	if len(data) != offset+wantMatrix+wantMean {
		return decomposition.Projection{}, fmt.Errorf("engine: eigen file has unexpected length %d", len(data))
	}

	flat := make([]float64, rows*cols)
	for i := range flat {
		flat[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
		offset += 8
	}
	mean := make([]float64, rows)
	for i := range mean {
		mean[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
		offset += 8
	}

	return decomposition.Projection{E: mat.NewDense(rows, cols, flat), Mean: mean}, nil
}

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}
