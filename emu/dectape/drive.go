/*
 * DECtape controller core - per-drive state and position integration.
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
	"errors"

	"github.com/rcornwell/dectape/emu/event"
	"github.com/rcornwell/dectape/util/dtimage"
)

var (
	errUnattached = errors.New("dectape: drive not attached")
	errOffReel    = errors.New("dectape: drive ran off the reel")
)

// Drive is one of the eight independently addressable transports. It
// owns its own tape image and position; only the controller's shared
// registers are exclusive to the selected drive.
type Drive struct {
	unit int
	ctrl *Controller

	image *dtimage.Image

	steps          stepStack
	positionLine   int
	lastUpdateTime int
	margin         int
	debugMsk       int
}

// InitDev satisfies device.Device. A freshly constructed drive is idle.
func (d *Drive) InitDev() uint8 {
	d.steps.reset()
	d.positionLine = 0
	d.lastUpdateTime = event.Now()
	return 0
}

// Shutdown satisfies device.Device: flush and close any open image.
func (d *Drive) Shutdown() {
	if d.Attached() {
		_ = d.Detach()
	}
}

// Attached reports whether a tape image is mounted.
func (d *Drive) Attached() bool {
	return d.image != nil
}

// Attach mounts path as a tape image of the given format. Position is
// set to the first real block boundary (the start of block 0's header,
// just past the reverse end zone) and motion state is STOP.
func (d *Drive) Attach(path string, format dtimage.Format, ring bool) error {
	img := &dtimage.Image{}
	if err := img.Attach(path, format, ring); err != nil {
		return err
	}
	d.image = img
	geom := img.Geometry()
	d.positionLine = geom.ReverseEndZoneLines
	d.lastUpdateTime = event.Now()
	d.margin = geom.Margin
	d.steps.reset()
	return nil
}

// Detach cancels any pending event and unmounts the image, flushing it
// to disk through the on-disk transcoder unless it is read-only or was
// never written.
func (d *Drive) Detach() error {
	event.CancelEvent(d, 0)
	d.steps.reset()
	if d.image == nil {
		return nil
	}
	img := d.image
	d.image = nil
	return img.Detach()
}

// geometry returns the attached image's derived geometry. Callers must
// only invoke this when Attached() is true.
func (d *Drive) geometry() dtimage.Geometry {
	return d.image.Geometry()
}

// current and next expose the drive's deferred-transition stack to the
// rest of the package.
func (d *Drive) current() MotionStep { return d.steps.current() }
func (d *Drive) next() MotionStep    { return d.steps.next() }

// integrate applies the position integrator: compute
// Δt since the last update, apply the motion equation keyed by the
// current motion, and update position_line and last_update_time. It
// reports errOffReel if the new position leaves the legal range,
// detaching the drive as a side effect.
func (d *Drive) integrate(now int) error {
	dt := now - d.lastUpdateTime
	if dt == 0 {
		return nil
	}
	d.lastUpdateTime = now

	motion := d.steps.current().Motion
	if motion == Stop {
		return nil
	}

	lineTime := d.ctrl.LineTime

	n := dt / lineTime
	var delta int
	switch {
	case motion.AtSpeed():
		delta = n
	case motion.Accelerating():
		bigN := d.ctrl.AccelTime / lineTime
		delta = (n * n) / (2 * bigN)
	case motion.Decelerating():
		// Past the full decel interval the transport is stationary; clamp
		// so the parabola cannot run back down.
		bigN := d.ctrl.DecelTime / lineTime
		if n > bigN {
			n = bigN
		}
		delta = (2*n*bigN - n*n) / (2 * bigN)
	}

	if motion.Reverse() {
		d.positionLine -= delta
	} else {
		d.positionLine += delta
	}

	geom := d.geometry()
	upperBound := geom.ForwardEndZoneLine + d.margin
	if d.positionLine < 0 || d.positionLine > upperBound {
		wasSelected := d.ctrl.selectedDrive() == d
		_ = d.Detach()
		if wasSelected {
			d.ctrl.setError(ErrorSEL)
		}
		return errOffReel
	}
	return nil
}

// block returns the block number and intra-block line offset for the
// drive's current position.
func (d *Drive) block() (block, offset int) {
	geom := d.geometry()
	rel := d.positionLine - geom.ReverseEndZoneLines
	return rel / geom.LinesPerBlock, rel % geom.LinesPerBlock
}

// inReverseEndZone and inForwardEndZone classify the current position.
func (d *Drive) inReverseEndZone() bool {
	geom := d.geometry()
	return d.positionLine < geom.ReverseEndZoneLines
}

func (d *Drive) inForwardEndZone() bool {
	geom := d.geometry()
	return d.positionLine >= geom.ForwardEndZoneLine
}
