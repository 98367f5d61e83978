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

// Package config loads the YAML configuration file for the vexd
// server. The vex-bench load generator takes flags only.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uzqw/vex/internal/engine"
)

// Config is the on-disk schema for vexd's config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the TCP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// StoreConfig configures the underlying engine.
type StoreConfig struct {
	// DataDir is the root directory the native filesystem backend is
	// rooted at.
	DataDir string `yaml:"data_dir"`

	FitThresholdBytes    int64 `yaml:"fit_threshold_bytes"`
	ProjectionDimensions int   `yaml:"projection_dimensions"`
	ContentCacheSize     int   `yaml:"content_cache_size"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
}

// Default returns the out-of-the-box configuration.
func Default() Config {
	ec := engine.DefaultConfig()
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "6969"},
		Store: StoreConfig{
			DataDir:              "./vex-data",
			FitThresholdBytes:    ec.FitThresholdBytes,
			ProjectionDimensions: ec.ProjectionDimensions,
			ContentCacheSize:     ec.ContentCacheSize,
		},
		Log: LogConfig{Format: "text", Level: "info"},
	}
}

// Load reads and parses a YAML config file, filling in defaults for
// anything the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// EngineConfig projects the store section onto engine.Config.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		FitThresholdBytes:    c.Store.FitThresholdBytes,
		ProjectionDimensions: c.Store.ProjectionDimensions,
		ContentCacheSize:     c.Store.ContentCacheSize,
	}
}
