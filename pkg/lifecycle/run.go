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

package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

// Service is a long-running component driven by Run.
type Service interface {
	Run(ctx context.Context) error
}

// RunUntilSignal runs svc until it returns or the process receives SIGINT or
// SIGTERM. Cancellation caused by a signal is not reported as an error.
func RunUntilSignal(ctx context.Context, svc Service, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := svc.Run(ctx)

	if ctx.Err() != nil {
		log.Info().Msg("Shutting down")

		if errors.Is(err, context.Canceled) {
			return nil
		}
	}

	return err
}
