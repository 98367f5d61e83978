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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vexd.yaml")
	contents := []byte("server:\n  port: \"7000\"\nstore:\n  data_dir: /var/lib/vex\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host) // left at default
	assert.Equal(t, "/var/lib/vex", cfg.Store.DataDir)
	assert.Equal(t, Default().Store.FitThresholdBytes, cfg.Store.FitThresholdBytes)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/path/vexd.yaml")
	assert.Error(t, err)
}

func TestEngineConfigProjectsStoreSection(t *testing.T) {
	cfg := Default()
	cfg.Store.ProjectionDimensions = 42

	ec := cfg.EngineConfig()
	assert.Equal(t, 42, ec.ProjectionDimensions)
	assert.Equal(t, cfg.Store.FitThresholdBytes, ec.FitThresholdBytes)
	assert.Equal(t, cfg.Store.ContentCacheSize, ec.ContentCacheSize)
}
