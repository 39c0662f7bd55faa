/*
 * DECtape controller core - error propagator.
 *
 * Copyright 2024, Richard Cornwell
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

package dectape

import (
	"github.com/rcornwell/dectape/emu/event"
)

// setError is the error propagator: latch the error
// bit and ERF, clear start/stop, and if the erroring drive was moving
// under power, begin a decel instead of leaving it at speed. Errors
// never force a detach themselves; only running off the reel does
// that, and that path has already happened by the time SEL reaches
// here.
func (c *Controller) setError(kind ErrorKind) {
	c.StatusA &^= statusAStartStopBit
	c.StatusB |= uint32(kind) | FlagERF
	c.refreshInterrupt()

	drv := c.selectedDrive()
	if drv == nil || !drv.Attached() {
		return
	}

	cur := drv.current()
	if !cur.Motion.Accelerating() && !cur.Motion.AtSpeed() {
		return
	}

	event.CancelEvent(drv, 0)
	_ = drv.integrate(event.Now())
	if !drv.Attached() {
		return
	}

	reverse := cur.Motion.Reverse()
	drv.steps.setCurrent(MotionStep{Motion: decelMotion(reverse), Function: FuncNone})
	drv.steps.setNext(stopped)
	drv.steps.setNextNext(stopped)
	c.scheduleDriveEvent(drv, c.DecelTime)
}
