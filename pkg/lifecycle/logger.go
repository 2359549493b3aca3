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
	"fmt"
	"os"

	"github.com/carverauto/robotsupervisor/pkg/logger"
)

// SetupLogger installs the process logger for a binary and returns it
// tagged with the component name and host. A nil config is read from the
// environment.
func SetupLogger(component string, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	log, err := logger.Init(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	fields := map[string]interface{}{}
	if host, err := os.Hostname(); err == nil {
		fields["host"] = host
	}

	return log.WithComponent(component).WithFields(fields), nil
}
