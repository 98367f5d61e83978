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
	"bytes"
	"encoding/gob"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/vexerr"
	"github.com/uzqw/vex/internal/vfs"
)

const contentFileName = "content.bin"

// readContentMap loads the full id->text map from content.bin,
// tolerating a zero-length file as empty. Every lookup in the
// reference implementation re-reads and re-decodes this whole file;
// Engine fronts it with an LRU (see Engine.cache and getContent in
// engine.go) so that
// repeated lookups against an unchanged file skip this path.
func readContentMap(dir vfs.Directory) (map[uuid.UUID]string, error) {
	f, err := dir.OpenFile(contentFileName, true)
	if err != nil {
		return nil, vexerr.New("engine.readContentMap", vexerr.KindStorage, err)
	}

	data, err := f.ReadAll()
	if err != nil {
		return nil, vexerr.New("engine.readContentMap", vexerr.KindStorage, err)
	}
	if len(data) == 0 {
		return make(map[uuid.UUID]string), nil
	}

	m := make(map[uuid.UUID]string)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, vexerr.New("engine.readContentMap", vexerr.KindCorruption, err)
	}
	return m, nil
}

// writeContentMap truncating-rewrites content.bin with m.
func writeContentMap(dir vfs.Directory, m map[uuid.UUID]string) error {
	f, err := dir.OpenFile(contentFileName, true)
	if err != nil {
		return vexerr.New("engine.writeContentMap", vexerr.KindStorage, err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return vexerr.New("engine.writeContentMap", vexerr.KindCorruption, err)
	}

	w, err := f.OpenWriter(false)
	if err != nil {
		return vexerr.New("engine.writeContentMap", vexerr.KindStorage, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return vexerr.New("engine.writeContentMap", vexerr.KindStorage, err)
	}
	if err := w.Close(); err != nil {
		return vexerr.New("engine.writeContentMap", vexerr.KindStorage, err)
	}
	return nil
}

// mergeContent reads the current content map, merges in entries, and
// rewrites the file in one round trip — a batch insert does this once
// for the whole batch rather than once per item.
func mergeContent(dir vfs.Directory, entries map[uuid.UUID]string) error {
	m, err := readContentMap(dir)
	if err != nil {
		return err
	}
	for id, text := range entries {
		m[id] = text
	}
	return writeContentMap(dir, m)
}
