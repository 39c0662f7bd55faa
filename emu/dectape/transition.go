/*
 * DECtape controller core - motion-transition engine and event dispatch.
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

func decelMotion(reverse bool) Motion {
	if reverse {
		return DecelRev
	}
	return DecelFwd
}

func accelMotion(reverse bool) Motion {
	if reverse {
		return AccelRev
	}
	return AccelFwd
}

func atSpeedMotion(reverse bool) Motion {
	if reverse {
		return AtSpeedRev
	}
	return AtSpeedFwd
}

// scheduleDriveEvent cancels any event already pending for d and
// schedules a fresh one after ticks, calling back into onDriveEvent.
// At most one event stays pending per drive because every
// scheduling path goes through this one function.
func (c *Controller) scheduleDriveEvent(d *Drive, ticks int) {
	event.CancelEvent(d, 0)
	event.AddEvent(d, func(_ int) { c.onDriveEvent(d) }, ticks, 0)
}

// transition is the motion-transition engine: given a
// newly decoded command for an attached, validated drive, classify the
// requested transition against the drive's current motion and act.
func (c *Controller) transition(d *Drive, startStop, reverse bool, fn Function) {
	now := event.Now()
	prev := d.current()
	prevMoving := prev.Motion.Moving()
	newMoving := startStop

	switch {
	case !prevMoving && !newMoving:
		// stop -> stop: no-op.

	case !prevMoving && newMoving:
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.setCurrent(MotionStep{Motion: accelMotion(reverse), Function: FuncNone})
		d.steps.setNext(MotionStep{Motion: atSpeedMotion(reverse), Function: fn})
		d.steps.setNextNext(stopped)
		c.scheduleDriveEvent(d, c.AccelTime)

	case prevMoving && !newMoving:
		if prev.Motion.Decelerating() {
			return // already on the way to stop
		}
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.setCurrent(MotionStep{Motion: decelMotion(prev.Motion.Reverse()), Function: FuncNone})
		d.steps.setNext(stopped)
		d.steps.setNextNext(stopped)
		c.scheduleDriveEvent(d, c.DecelTime)

	case prev.Motion.Decelerating():
		// Moving but not yet accelerating: a new move command arrived
		// while the drive was still coasting down from a prior stop.
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.setCurrent(MotionStep{Motion: accelMotion(reverse), Function: FuncNone})
		d.steps.setNext(MotionStep{Motion: atSpeedMotion(reverse), Function: fn})
		d.steps.setNextNext(stopped)
		c.scheduleDriveEvent(d, c.AccelTime)

	case reverse != prev.Motion.Reverse():
		// Direction reversal while moving.
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.setCurrent(MotionStep{Motion: decelMotion(prev.Motion.Reverse()), Function: FuncNone})
		d.steps.setNext(MotionStep{Motion: accelMotion(reverse), Function: FuncNone})
		d.steps.setNextNext(MotionStep{Motion: atSpeedMotion(reverse), Function: fn})
		c.scheduleDriveEvent(d, c.DecelTime)

	case prev.Motion.Accelerating():
		// Accelerating in the requested direction already: leave the
		// pending accel event alone, just queue what runs once at speed.
		d.steps.setNext(MotionStep{Motion: atSpeedMotion(reverse), Function: fn})

	default:
		// Already at speed in the requested direction: the function
		// launcher runs immediately, no event rescheduling.
		d.steps.setCurrent(MotionStep{Motion: atSpeedMotion(reverse), Function: fn})
		d.steps.setNext(stopped)
		d.steps.setNextNext(stopped)
		c.launchFunction(d)
	}
}

// onDriveEvent is the top-level per-drive dispatch of the service routine: a
// scheduled event fired for d, dispatch on its current motion phase.
func (c *Controller) onDriveEvent(d *Drive) {
	now := event.Now()
	cur := d.current()

	switch {
	case cur.Motion.Decelerating():
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.advance()
		if d.current().Motion != Stop {
			c.scheduleDriveEvent(d, c.AccelTime)
		}

	case cur.Motion.Accelerating():
		if err := d.integrate(now); err != nil {
			return
		}
		d.steps.advance()
		c.launchFunction(d)

	case cur.Motion.AtSpeed():
		if err := d.integrate(now); err != nil {
			return
		}
		switch cur.Function {
		case FuncOffReel:
			// Still on the reel: keep coasting. The arrival event's own
			// integrate detaches once the position leaves the legal range.
			c.launchOffReel(d, cur.Motion.Reverse())
		case FuncMove:
			c.setError(ErrorEND)
		default:
			if (cur.Motion.Reverse() && d.inReverseEndZone()) ||
				(!cur.Motion.Reverse() && d.inForwardEndZone()) {
				c.setError(ErrorEND)
				return
			}
			c.serviceLine(d)
		}
	}
}

// deselect implements the unit-change handling:
// a moving drive that loses selection keeps coasting, once at speed,
// under the OFF-REEL pseudo-function until it reaches an end zone.
func (c *Controller) deselect(d *Drive) {
	cur := d.current()
	if !cur.Motion.Moving() {
		return
	}
	if cur.Motion.AtSpeed() {
		d.steps.setCurrent(MotionStep{Motion: cur.Motion, Function: FuncOffReel})
		d.steps.setNext(stopped)
		d.steps.setNextNext(stopped)
		c.launchFunction(d)
		return
	}
	// Still accelerating or decelerating: queue OFF-REEL for when it
	// reaches speed, without disturbing the event already pending.
	d.steps.setNext(MotionStep{Motion: atSpeedMotion(cur.Motion.Reverse()), Function: FuncOffReel})
	d.steps.setNextNext(stopped)
}
