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

// Package vfs is the storage abstraction the engine is built on: a
// directory of named, byte-addressable files with truncating or
// appending writable streams. Two backends satisfy it — Memory, for
// tests and ephemeral workloads, and Native, a path-rooted OS
// filesystem.
package vfs

// Directory is a capability for opening and removing named files.
type Directory interface {
	// OpenFile returns a handle to name. If create is false and name
	// does not exist, it returns a vexerr.KindNotFound error.
	OpenFile(name string, create bool) (File, error)

	// RemoveEntry removes name. It is idempotent: removing an absent
	// name is not an error.
	RemoveEntry(name string) error

	// Close releases any resources the directory holds open (e.g. an
	// advisory lock). Closing an already-closed Directory is a no-op.
	Close() error
}

// File is a byte-addressable file: whole-file reads, a size query, and
// a factory for writable streams.
type File interface {
	// ReadAll returns the full contents of the file. A freshly created
	// file reads back empty, not an error.
	ReadAll() ([]byte, error)

	// Size returns the current length of the file in bytes.
	Size() (int64, error)

	// OpenWriter returns a writable stream positioned at offset 0. When
	// keepExistingData is false, the file is truncated to zero length
	// before any write; when true, existing bytes are preserved and the
	// caller is responsible for seeking to append.
	OpenWriter(keepExistingData bool) (Writer, error)
}

// Writer is a cursor-addressable output stream over a File.
type Writer interface {
	// Seek positions the cursor at offset, measured from the start of
	// the stream.
	Seek(offset int64) error

	// Write writes p at the current cursor position and advances it.
	Write(p []byte) (int, error)

	// Close flushes the stream. Further writes after Close are invalid.
	Close() error
}
