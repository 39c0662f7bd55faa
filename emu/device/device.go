/* DECtape controller core - shared device interfaces.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package device declares the narrow interface the event scheduler and
// the command harness use to talk to the controller, without either side
// needing to know about host CPU instructions or channel programs.
package device

// Device is anything the scheduler can key a pending event to, and that
// the harness can initialize, shut down, and enable tracing on. Each
// dectape drive satisfies it, and the scheduler keys drive events to it.
type Device interface {
	InitDev() uint8           // Initialize device, returns 0 on success.
	Shutdown()                // Shutdown device, flush any open images.
	Debug(opt string) error   // Enable a debug trace option.
}

// NoDev is the sentinel device address passed for config option lines
// whose value does not parse as a hexadecimal device address.
const NoDev uint16 = 0xffff
