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

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/codec"
	"github.com/uzqw/vex/internal/vexerr"
	"github.com/uzqw/vex/internal/vfs"
)

// A shard file is a 4-byte little-endian record-size header followed
// by back-to-back fixed-size records, each a 16-byte UUID followed by
// a codec.PackedVector's MarshalBinary encoding. Every record in a
// shard shares one dimensionality, so the record size is constant.
const shardHeaderSize = 4

func recordSize(dim int) int {
	return uuid.Size + codec.EncodedSize(dim)
}

func encodeRecord(id uuid.UUID, v []float32) []byte {
	packed := codec.Pack(v)
	body, _ := packed.MarshalBinary()
	out := make([]byte, 0, uuid.Size+len(body))
	out = append(out, id[:]...)
	out = append(out, body...)
	return out
}

func decodeRecord(buf []byte) (uuid.UUID, []float32, error) {
	if len(buf) < uuid.Size {
		return uuid.UUID{}, nil, fmt.Errorf("engine: shard record shorter than a UUID")
	}
	id, err := uuid.FromBytes(buf[:uuid.Size])
	if err != nil {
		return uuid.UUID{}, nil, fmt.Errorf("engine: malformed UUID in shard record: %w", err)
	}

	var packed codec.PackedVector
	if err := packed.UnmarshalBinary(buf[uuid.Size:]); err != nil {
		return uuid.UUID{}, nil, err
	}
	return id, packed.Unpack(), nil
}

// readShardRecords returns every (id, vector) pair stored in a shard
// file, along with the record size in force. An empty/never-written
// shard yields a nil slice and recSize 0.
func readShardRecords(f vfs.File) (records []shardRecord, recSize int, err error) {
	data, err := f.ReadAll()
	if err != nil {
		return nil, 0, vexerr.New("engine.readShardRecords", vexerr.KindStorage, err)
	}
	if len(data) == 0 {
		return nil, 0, nil
	}
	if len(data) < shardHeaderSize {
		return nil, 0, vexerr.New("engine.readShardRecords", vexerr.KindCorruption,
			fmt.Errorf("shard file shorter than its header"))
	}

	recSize = int(binary.LittleEndian.Uint32(data[:shardHeaderSize]))
	body := data[shardHeaderSize:]
	if recSize <= 0 || len(body)%recSize != 0 {
		return nil, 0, vexerr.New("engine.readShardRecords", vexerr.KindCorruption,
			fmt.Errorf("shard body length %d is not a multiple of record size %d", len(body), recSize))
	}

	count := len(body) / recSize
	records = make([]shardRecord, 0, count)
	for i := 0; i < count; i++ {
		chunk := body[i*recSize : (i+1)*recSize]
		id, vec, err := decodeRecord(chunk)
		if err != nil {
			return nil, 0, vexerr.New("engine.readShardRecords", vexerr.KindCorruption, err)
		}
		records = append(records, shardRecord{id: id, vector: vec})
	}
	return records, recSize, nil
}

type shardRecord struct {
	id     uuid.UUID
	vector []float32
}

// appendRecords appends newRecords (already dimension-matched and
// encoded at recSize per entry) to f. If f is empty, it writes the
// header first. Otherwise it verifies the existing header matches
// recSize before appending — a mismatch means the caller mixed
// dimensionalities within one shard, which is a programming error.
func appendRecords(f vfs.File, recSize int, newRecords []byte) error {
	existing, err := f.ReadAll()
	if err != nil {
		return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
	}

	if len(existing) == 0 {
		w, err := f.OpenWriter(false)
		if err != nil {
			return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
		}
		header := make([]byte, shardHeaderSize)
		binary.LittleEndian.PutUint32(header, uint32(recSize))
		if _, err := w.Write(append(header, newRecords...)); err != nil {
			return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
		}
		if err := w.Close(); err != nil {
			return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
		}
		return nil
	}

	if len(existing) < shardHeaderSize {
		return vexerr.New("engine.appendRecords", vexerr.KindCorruption,
			fmt.Errorf("shard file shorter than its header"))
	}
	existingSize := int(binary.LittleEndian.Uint32(existing[:shardHeaderSize]))
	if existingSize != recSize {
		return vexerr.New("engine.appendRecords", vexerr.KindProgramming,
			fmt.Errorf("shard record size mismatch: shard holds %d-byte records, got %d", existingSize, recSize))
	}

	w, err := f.OpenWriter(true)
	if err != nil {
		return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
	}
	if err := w.Seek(int64(len(existing))); err != nil {
		return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
	}
	if _, err := w.Write(newRecords); err != nil {
		return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
	}
	if err := w.Close(); err != nil {
		return vexerr.New("engine.appendRecords", vexerr.KindStorage, err)
	}
	return nil
}

// rewriteRecords truncating-overwrites f with a fresh header and
// record set, used after reprojection changes every vector's
// dimensionality.
func rewriteRecords(f vfs.File, recSize int, records []byte) error {
	w, err := f.OpenWriter(false)
	if err != nil {
		return vexerr.New("engine.rewriteRecords", vexerr.KindStorage, err)
	}
	header := make([]byte, shardHeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(recSize))
	if _, err := w.Write(append(header, records...)); err != nil {
		return vexerr.New("engine.rewriteRecords", vexerr.KindStorage, err)
	}
	if err := w.Close(); err != nil {
		return vexerr.New("engine.rewriteRecords", vexerr.KindStorage, err)
	}
	return nil
}
