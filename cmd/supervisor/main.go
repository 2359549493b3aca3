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

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/carverauto/robotsupervisor/pkg/config"
	"github.com/carverauto/robotsupervisor/pkg/fleet"
	"github.com/carverauto/robotsupervisor/pkg/journal"
	"github.com/carverauto/robotsupervisor/pkg/lifecycle"
	"github.com/carverauto/robotsupervisor/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("supervisor", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "/etc/robotsupervisor/supervisor.yaml", "Path to supervisor config file")
	logLevel := flags.String("log-level", "", "Override the configured log level")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	ctx := context.Background()

	var cfg fleet.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	if *logLevel != "" {
		logConfig.Level = *logLevel
		logConfig.Debug = false
	}

	mainLogger, err := lifecycle.SetupLogger("supervisor", logConfig)
	if err != nil {
		return err
	}

	var fwd *journal.Forwarder

	if cfg.Journal.Enabled {
		forwarder, nc, err := journal.Connect(ctx, &cfg.Journal, mainLogger)
		if err != nil {
			return err
		}
		defer nc.Close()

		fwd = forwarder
	}

	f := fleet.New(&cfg, fwd, mainLogger)

	mainLogger.Info().Str("config", *configPath).Strs("robots", f.IDs()).Msg("Starting robot supervisor")

	return lifecycle.RunUntilSignal(ctx, f, mainLogger)
}
