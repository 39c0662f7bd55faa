/*
 * DECtape controller core - function launcher and end-zone scheduler.
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

// launchFunction is called whenever a drive enters, or is found at, at
// speed. It re-integrates position once more, nudging
// it by a line if it did not move, then dispatches by function.
func (c *Controller) launchFunction(d *Drive) {
	now := event.Now()
	before := d.positionLine
	if err := d.integrate(now); err != nil {
		return
	}
	if d.positionLine == before {
		cur := d.current()
		if cur.Motion.Reverse() {
			d.positionLine--
		} else {
			d.positionLine++
		}
	}

	cur := d.current()
	if cur.Function == FuncOffReel {
		// A deselected drive heads into the end zone on purpose and must
		// not latch END on registers that now belong to another unit.
		c.launchOffReel(d, cur.Motion.Reverse())
		return
	}
	if cur.Motion.Reverse() && d.inReverseEndZone() {
		c.setError(ErrorEND)
		return
	}
	if !cur.Motion.Reverse() && d.inForwardEndZone() {
		c.setError(ErrorEND)
		return
	}

	switch cur.Function {
	case FuncMove:
		c.launchMove(d, cur.Motion.Reverse())
	case FuncSearch:
		c.launchSearch(d)
	case FuncRead, FuncWrite, FuncReadAll, FuncWriteAll:
		c.launchDataFunction(d, cur)
	}
}

// endZoneTarget is the line at which the end-zone scheduler declares
// arrival: one word inside the reverse end zone (one word below its
// inner edge) for reverse motion, one word past the forward end zone's
// inner edge for forward motion.
func (d *Drive) endZoneTarget(reverse bool) int {
	geom := d.geometry()
	if reverse {
		return geom.ReverseEndZoneLines - geom.WordSizeLines
	}
	return geom.ForwardEndZoneLine + geom.WordSizeLines
}

// offReelTarget is a line far enough past the legal range that the
// position integrator's bound check  forces a real detach
// when the drive gets there.
func (d *Drive) offReelTarget(reverse bool) int {
	geom := d.geometry()
	if reverse {
		return -(geom.WordSizeLines + 1)
	}
	return geom.ForwardEndZoneLine + d.margin + geom.WordSizeLines
}

// launchMove is the end-zone scheduler: schedule a
// single event at the end-zone arrival line; no per-line events run in
// between.
func (c *Controller) launchMove(d *Drive, reverse bool) {
	target := d.endZoneTarget(reverse)
	ticks := abs(target-d.positionLine) * c.LineTime
	c.scheduleDriveEvent(d, ticks)
}

// launchOffReel schedules the coast-to-detach event for a deselected
// moving drive ( the OFF-REEL pseudo-function).
func (c *Controller) launchOffReel(d *Drive, reverse bool) {
	target := d.offReelTarget(reverse)
	ticks := abs(target-d.positionLine) * c.LineTime
	c.scheduleDriveEvent(d, ticks)
}

// launchSearch begins the recurring SEARCH service: the per-line
// service routine re-arms itself every block.
func (c *Controller) launchSearch(d *Drive) {
	c.advanceSearch(d)
}

// launchDataFunction aligns position to the next word boundary in the
// direction of travel, raises DTF immediately for a write function (the
// host must supply the first word), and arms the first per-line event.
func (c *Controller) launchDataFunction(d *Drive, cur MotionStep) {
	d.alignToWordBoundary(cur.Motion.Reverse())

	if cur.Function.Writing() && d == c.selectedDrive() {
		c.StatusB |= FlagDTF
		c.refreshInterrupt()
	}

	geom := d.geometry()
	c.scheduleDriveEvent(d, geom.WordSizeLines*c.LineTime)
}

// alignToWordBoundary rounds the drive's position to the next word
// boundary in the direction of travel: the start of the word when
// moving forward, the (numerically lower) end of the word when moving
// in reverse.
func (d *Drive) alignToWordBoundary(reverse bool) {
	ws := d.geometry().WordSizeLines
	mod := d.positionLine % ws
	if mod == 0 {
		return
	}
	if reverse {
		d.positionLine -= mod
	} else {
		d.positionLine += ws - mod
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
