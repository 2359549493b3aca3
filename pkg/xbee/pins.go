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

package xbee

import "fmt"

// Pin is a configurable I/O line on the radio module.
type Pin int

// I/O lines. DOUT and DIN are the UART lines, DIO13 and DIO14.
const (
	DIO0 Pin = iota
	DIO1
	DIO2
	DIO3
	DIO4
	DIO5
	DIO6
	DIO7
	DIO8
	DIO9
	DIO10
	DIO11
	DIO12
	DOUT
	DIN
)

// command returns the AT command that configures the pin.
func (p Pin) command() (string, error) {
	switch {
	case p >= DIO0 && p <= DIO9:
		return fmt.Sprintf("D%d", int(p)), nil
	case p >= DIO10 && p <= DIN:
		return fmt.Sprintf("P%d", int(p-DIO10)), nil
	default:
		return "", fmt.Errorf("%w: %d", errUnknownPin, int(p))
	}
}

func (p Pin) String() string {
	switch p {
	case DOUT:
		return "DOUT"
	case DIN:
		return "DIN"
	default:
		return fmt.Sprintf("DIO%d", int(p))
	}
}

// PinMode is the function assigned to a pin.
type PinMode byte

const (
	ModeDisable           PinMode = 0
	ModeAlternate         PinMode = 1
	ModeAnalogInput       PinMode = 2
	ModeDigitalInput      PinMode = 3
	ModeOutputDefaultLow  PinMode = 4
	ModeOutputDefaultHigh PinMode = 5
)

// PinConfig assigns a mode to a pin.
type PinConfig struct {
	Pin  Pin
	Mode PinMode
}
