// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/sortvis/pkg/logging"
	"github.com/AleutianAI/sortvis/services/sorter/coordinator"
	"github.com/AleutianAI/sortvis/services/sorter/pacing"
	"github.com/AleutianAI/sortvis/services/sorter/telemetry"
)

// SortvisConfig is the on-disk configuration.
type SortvisConfig struct {
	// Sequence: the values being sorted
	Sequence SequenceConfig `yaml:"sequence"`

	// Pacing: step delays, hot-reloadable
	Pacing PacingConfig `yaml:"pacing"`

	// Run: behavior of Start
	Run RunConfig `yaml:"run"`

	// Logging: console level and the log file directory
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: OpenTelemetry exporters and the /metrics listener
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type SequenceConfig struct {
	Size     int   `yaml:"size" validate:"gte=0,lte=100000"`   // e.g. 150
	MaxValue int   `yaml:"max_value" validate:"gte=1,lte=500"` // values in [0, max_value)
	Seed     int64 `yaml:"seed"`                               // 0 = time-based
}

type PacingConfig struct {
	FastDelay time.Duration `yaml:"fast_delay" validate:"gte=0"` // e.g. 5ms
	SlowDelay time.Duration `yaml:"slow_delay" validate:"gte=0"` // e.g. 30ms
	FastMode  bool          `yaml:"fast_mode"`
}

type RunConfig struct {
	ShuffleOnStart bool `yaml:"shuffle_on_start"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"` // empty disables the log file
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"` // e.g. 127.0.0.1:9464
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() SortvisConfig {
	return SortvisConfig{
		Sequence: SequenceConfig{
			Size:     150,
			MaxValue: 500,
		},
		Pacing: PacingConfig{
			FastDelay: pacing.DefaultFastDelay,
			SlowDelay: pacing.DefaultSlowDelay,
			FastMode:  true,
		},
		Run: RunConfig{
			ShuffleOnStart: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.sortvis/logs",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterPrometheus,
			OTLPEndpoint:   "localhost:4317",
		},
	}
}

// Coordinator maps the file onto a coordinator.Config.
func (c SortvisConfig) Coordinator() coordinator.Config {
	return coordinator.Config{
		Size:           c.Sequence.Size,
		MaxValue:       c.Sequence.MaxValue,
		Seed:           c.Sequence.Seed,
		ShuffleOnStart: c.Run.ShuffleOnStart,
		Pacing: pacing.Config{
			FastDelay: c.Pacing.FastDelay,
			SlowDelay: c.Pacing.SlowDelay,
			FastMode:  c.Pacing.FastMode,
		},
	}
}

// LoggingFor maps the file onto a logging.Config. Quiet is left to the caller.
func (c SortvisConfig) LoggingFor(quiet bool) logging.Config {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:  level,
		LogDir: c.Logging.Dir,
		JSON:   c.Logging.JSON,
		Quiet:  quiet,
	}
}

// TelemetryFor maps the file onto a telemetry.Config.
func (c SortvisConfig) TelemetryFor() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.TraceExporter = c.Telemetry.TraceExporter
	cfg.MetricExporter = c.Telemetry.MetricExporter
	if c.Telemetry.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	}
	return cfg
}
