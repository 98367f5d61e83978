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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/uzqw/vex/internal/vexerr"
)

const lockFileName = ".vex.lock"

// Native is a path-rooted Directory backed by the OS filesystem. Names
// resolve by joining under root; a fresh root is created on demand.
type Native struct {
	root string
	lock *flock.Flock
}

// NewNative opens root (creating it if absent) and takes an exclusive
// advisory lock on it, so a second Native over the same root fails
// fast instead of silently corrupting shards — spec.md leaves
// concurrent multi-engine access over one directory undefined; this
// makes the undefined case a detectable error.
func NewNative(root string) (*Native, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, vexerr.New("vfs.NewNative", vexerr.KindStorage, err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, vexerr.New("vfs.NewNative", vexerr.KindStorage, err)
	}
	if !locked {
		return nil, vexerr.New("vfs.NewNative", vexerr.KindLocked,
			fmt.Errorf("directory %q is already owned by another engine instance", root))
	}

	return &Native{root: root, lock: lock}, nil
}

func (n *Native) Close() error {
	if n.lock == nil {
		return nil
	}
	err := n.lock.Unlock()
	n.lock = nil
	return err
}

func (n *Native) path(name string) string {
	return filepath.Join(n.root, name)
}

func (n *Native) OpenFile(name string, create bool) (File, error) {
	path := n.path(name)

	if !create {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, vexerr.New("vfs.Native.OpenFile", vexerr.KindNotFound, err)
			}
			return nil, vexerr.New("vfs.Native.OpenFile", vexerr.KindStorage, err)
		}
		return &nativeFile{path: path}, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, vexerr.New("vfs.Native.OpenFile", vexerr.KindStorage, err)
	}
	if err := f.Close(); err != nil {
		return nil, vexerr.New("vfs.Native.OpenFile", vexerr.KindStorage, err)
	}
	return &nativeFile{path: path}, nil
}

func (n *Native) RemoveEntry(name string) error {
	err := os.Remove(n.path(name))
	if err != nil && !os.IsNotExist(err) {
		return vexerr.New("vfs.Native.RemoveEntry", vexerr.KindStorage, err)
	}
	return nil
}

type nativeFile struct {
	path string
}

func (f *nativeFile) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, vexerr.New("vfs.nativeFile.ReadAll", vexerr.KindStorage, err)
	}
	return data, nil
}

func (f *nativeFile) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, vexerr.New("vfs.nativeFile.Size", vexerr.KindStorage, err)
	}
	return info.Size(), nil
}

func (f *nativeFile) OpenWriter(keepExistingData bool) (Writer, error) {
	flags := os.O_RDWR | os.O_CREATE
	if !keepExistingData {
		flags |= os.O_TRUNC
	}
	osFile, err := os.OpenFile(f.path, flags, 0o644)
	if err != nil {
		return nil, vexerr.New("vfs.nativeFile.OpenWriter", vexerr.KindStorage, err)
	}
	return &nativeWriter{f: osFile}, nil
}

type nativeWriter struct {
	f *os.File
}

func (w *nativeWriter) Seek(offset int64) error {
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return vexerr.New("vfs.nativeWriter.Seek", vexerr.KindStorage, err)
	}
	return nil
}

func (w *nativeWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, vexerr.New("vfs.nativeWriter.Write", vexerr.KindStorage, err)
	}
	return n, nil
}

func (w *nativeWriter) Close() error {
	if err := w.f.Close(); err != nil {
		return vexerr.New("vfs.nativeWriter.Close", vexerr.KindStorage, err)
	}
	return nil
}
