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

// Package vexerr distinguishes the error kinds the engine must surface:
// storage failures, not-found, corruption, programming errors, and an
// exclusive-lock conflict. Corruption and programming errors are fatal
// to the operation that discovers them but are returned as ordinary
// errors rather than panics, so a caller can log and abort cleanly
// instead of crashing the process.
package vexerr

import (
	"errors"
	"fmt"
)

// Kind categorizes an Error.
type Kind int

const (
	// KindStorage is a failure from the underlying directory/file/writer.
	KindStorage Kind = iota
	// KindNotFound is returned when a required file is absent.
	KindNotFound
	// KindCorruption is a violated on-disk size or framing invariant.
	KindCorruption
	// KindProgramming is a precondition violation within one call (e.g.
	// mismatched vector lengths in one insert batch, a NaN eigenvalue).
	KindProgramming
	// KindLocked is returned when the directory is already owned by
	// another engine instance.
	KindLocked
)

func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	case KindCorruption:
		return "corruption"
	case KindProgramming:
		return "programming"
	case KindLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given op/kind, wrapping err.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
