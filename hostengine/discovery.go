/*
 * picoflash - serial endpoint discovery
 *
 * Copyright 2026, picoflash contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package hostengine

import (
	"errors"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// allowList is the set of substrings a port's name or USB product string
// must contain for automatic discovery to pick it, spec.md §4.5.
var allowList = []string{"Pico", "Serial", "UART", "CDC"}

// ErrNoEndpointFound is returned when no enumerated port matches allowList;
// the caller falls back to a user-supplied endpoint.
var ErrNoEndpointFound = errors.New("hostengine: no matching serial endpoint found")

// DiscoverEndpoint enumerates serial endpoints and returns the first whose
// port name or USB product description contains one of allowList.
func DiscoverEndpoint() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		for _, substr := range allowList {
			if strings.Contains(p.Name, substr) || strings.Contains(p.Product, substr) {
				return p.Name, nil
			}
		}
	}
	return "", ErrNoEndpointFound
}

// inactivityTimeout bounds a single Read call on the opened port so a dead
// link surfaces as an error instead of hanging the supervisor forever,
// spec.md §5 "overall operation 300s of inactivity."
const inactivityTimeout = 300 * time.Second

// Open opens portName at baud and sets the host-side inactivity read
// timeout, returning a serial.Port ready to hand to NewLink.
func Open(portName string, baud int) (serial.Port, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(inactivityTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
