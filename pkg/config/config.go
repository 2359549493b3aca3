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

// Package config loads service configuration from files and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

var (
	errInvalidConfigPtr = errors.New("config must be a non-nil pointer")
)

const defaultEnvPrefix = "SUPERVISOR_"

// ConfigLoader reads configuration from some source into dst.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configuration types that can check themselves.
type Validator interface {
	Validate() error
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	envLoader     *EnvConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a new Config instance with a default file loader and logger.
// If logger is nil, creates a basic logger for config loading.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger()
	}

	prefix := os.Getenv("CONFIG_ENV_PREFIX")
	if prefix == "" {
		prefix = defaultEnvPrefix
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		envLoader:     NewEnvConfigLoader(log, prefix),
		logger:        log,
	}
}

// createBasicLogger creates a simple logger for config loading
func createBasicLogger() logger.Logger {
	zlog := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	return logger.Wrap(zlog)
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration file, overlays environment variables and validates the result.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errInvalidConfigPtr
	}

	if err := c.defaultLoader.Load(ctx, path, cfg); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := c.envLoader.Load(ctx, path, cfg); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	c.logger.Debug().Str("path", path).Msg("Configuration loaded")

	return nil
}
