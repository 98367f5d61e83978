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

package vfs

import (
	"sync"

	"github.com/uzqw/vex/internal/vexerr"
)

// buffer is the shared, growable byte backing of one in-memory file. A
// File handle and the Writer it opens both point at the same buffer, so
// writes through the stream are visible to subsequent reads through the
// handle — mirroring the reference implementation's "file handle and
// its current writer share one growable byte buffer" model.
type buffer struct {
	mu   sync.Mutex
	data []byte
}

// Memory is an in-memory Directory: a map from name to a shared byte
// buffer. It never touches disk, making it suitable for tests and
// ephemeral (non-persisted) database instances.
type Memory struct {
	mu    sync.Mutex
	files map[string]*buffer
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]*buffer)}
}

func (m *Memory) OpenFile(name string, create bool) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.files[name]
	if !ok {
		if !create {
			return nil, vexerr.New("vfs.Memory.OpenFile", vexerr.KindNotFound, nil)
		}
		buf = &buffer{}
		m.files[name] = buf
	}
	return &memFile{buf: buf}, nil
}

func (m *Memory) RemoveEntry(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *Memory) Close() error { return nil }

type memFile struct {
	buf *buffer
}

func (f *memFile) ReadAll() ([]byte, error) {
	f.buf.mu.Lock()
	defer f.buf.mu.Unlock()
	out := make([]byte, len(f.buf.data))
	copy(out, f.buf.data)
	return out, nil
}

func (f *memFile) Size() (int64, error) {
	f.buf.mu.Lock()
	defer f.buf.mu.Unlock()
	return int64(len(f.buf.data)), nil
}

func (f *memFile) OpenWriter(keepExistingData bool) (Writer, error) {
	f.buf.mu.Lock()
	defer f.buf.mu.Unlock()
	if !keepExistingData {
		f.buf.data = f.buf.data[:0]
	}
	return &memWriter{buf: f.buf, cursor: 0}, nil
}

type memWriter struct {
	buf    *buffer
	cursor int64
}

func (w *memWriter) Seek(offset int64) error {
	w.buf.mu.Lock()
	defer w.buf.mu.Unlock()
	if offset < 0 || offset > int64(len(w.buf.data)) {
		return vexerr.New("vfs.memWriter.Seek", vexerr.KindProgramming, nil)
	}
	w.cursor = offset
	return nil
}

// Write replaces everything at and after the cursor with p, then
// advances the cursor. Every caller in this module either appends at
// end-of-file or rewrites a file from offset 0, so truncating the tail
// beyond the cursor matches both use cases.
func (w *memWriter) Write(p []byte) (int, error) {
	w.buf.mu.Lock()
	defer w.buf.mu.Unlock()
	kept := w.buf.data[:w.cursor]
	w.buf.data = append(append([]byte{}, kept...), p...)
	w.cursor += int64(len(p))
	return len(p), nil
}

func (w *memWriter) Close() error { return nil }
