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

package robot

const (
	batteryCells        = 3
	cellEmptyMillivolts = 3500
	cellFullMillivolts  = 4050
)

// BatteryPercent maps the pack voltage of a three cell battery, in
// millivolts, to a charge between 0 and 100.
func BatteryPercent(packMillivolts uint16) int {
	cell := int(packMillivolts) / batteryCells

	switch {
	case cell <= cellEmptyMillivolts:
		return 0
	case cell >= cellFullMillivolts:
		return 100
	}

	return (cell - cellEmptyMillivolts) * 100 / (cellFullMillivolts - cellEmptyMillivolts)
}
