/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	outputStdout = "stdout"
	outputStderr = "stderr"
	outputFile   = "file"
)

var errFileOutputPath = errors.New("file output requires file.path")

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init builds the process logger from config and installs it as zerolog's
// global logger.
func Init(config *Config) (Logger, error) {
	zlog, err := New(config)
	if err != nil {
		return nil, err
	}

	log.Logger = zlog

	return Wrap(zlog), nil
}

// New builds a zerolog.Logger from config without touching global state.
func New(config *Config) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	output, err := newOutput(config)
	if err != nil {
		return zerolog.Logger{}, err
	}

	level, err := ParseLevel(config)
	if err != nil {
		return zerolog.Logger{}, err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// ParseLevel resolves the effective level; Debug wins over Level.
func ParseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

func newOutput(config *Config) (io.Writer, error) {
	switch config.Output {
	case outputStderr:
		return os.Stderr, nil
	case outputFile:
		if config.File == nil || config.File.Path == "" {
			return nil, errFileOutputPath
		}

		return &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSizeMB,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAgeDays,
			Compress:   config.File.Compress,
		}, nil
	default:
		return os.Stdout, nil
	}
}
