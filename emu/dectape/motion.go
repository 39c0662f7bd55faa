/*
 * DECtape controller core - motion and function state.
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

// Package dectape is the motion-and-function state machine for a
// TC02-class DECtape transport: eight independently addressable drives
// sharing one controller, driven by a cooperative discrete-event
// scheduler. It consumes an already-populated util/dtimage.Image; it
// knows nothing of the host instruction word or the image file's
// on-disk encoding.
package dectape

// Motion is the physical state of the tape transport. The original
// source packs this into a bitfield; here it is its own small enum so
// the stacked current/next/next-next fields below are a plain value
// type instead of bit-twiddling.
type Motion int

const (
	Stop Motion = iota
	DecelFwd
	DecelRev
	AccelFwd
	AccelRev
	AtSpeedFwd
	AtSpeedRev
)

// Moving reports whether this motion keeps the reel turning.
func (m Motion) Moving() bool {
	return m != Stop
}

// Reverse reports whether this motion runs the tape backward.
func (m Motion) Reverse() bool {
	return m == DecelRev || m == AccelRev || m == AtSpeedRev
}

// Accelerating, Decelerating and AtSpeed classify the motion phase.
func (m Motion) Accelerating() bool {
	return m == AccelFwd || m == AccelRev
}

func (m Motion) Decelerating() bool {
	return m == DecelFwd || m == DecelRev
}

func (m Motion) AtSpeed() bool {
	return m == AtSpeedFwd || m == AtSpeedRev
}

var motionNames = [...]string{"STOP", "DECEL-FWD", "DECEL-REV", "ACCEL-FWD", "ACCEL-REV", "AT-SPEED-FWD", "AT-SPEED-REV"}

func (m Motion) String() string {
	if int(m) < 0 || int(m) >= len(motionNames) {
		return "UNKNOWN"
	}
	return motionNames[m]
}

// Function is the operation a drive performs once at speed.
type Function int

const (
	FuncNone Function = iota
	FuncMove
	FuncSearch
	FuncRead
	FuncWrite
	FuncReadAll
	FuncWriteAll
	FuncOffReel
)

// DataBearing reports whether this function consumes or produces words
// from the tape image, as opposed to plain repositioning.
func (f Function) DataBearing() bool {
	switch f {
	case FuncRead, FuncWrite, FuncReadAll, FuncWriteAll, FuncSearch:
		return true
	default:
		return false
	}
}

// Writing reports whether this function stores into the tape image.
func (f Function) Writing() bool {
	return f == FuncWrite || f == FuncWriteAll
}

// All reports whether this function services every header/trailer word
// (the "-ALL" variants) instead of only the checksum slots.
func (f Function) All() bool {
	return f == FuncReadAll || f == FuncWriteAll
}

var functionNames = [...]string{"NONE", "MOVE", "SEARCH", "READ", "WRITE", "READ-ALL", "WRITE-ALL", "OFF-REEL"}

func (f Function) String() string {
	if int(f) < 0 || int(f) >= len(functionNames) {
		return "UNKNOWN"
	}
	return functionNames[f]
}

// MotionStep is one entry of a drive's deferred-transition stack: what
// motion to run and, once at speed, what function to perform. This
// replaces the packed 6-bit current/next/next-next fields of the
// original source with an explicit small stack of up to three steps.
type MotionStep struct {
	Motion   Motion
	Function Function
}

// stopped is the canonical idle step.
var stopped = MotionStep{Motion: Stop, Function: FuncNone}

// stepStack holds the current, next, and next-next motion steps for one
// drive. Advance shifts the stack down by one, leaving the vacated slot
// stopped.
type stepStack struct {
	steps [3]MotionStep
}

func (s *stepStack) current() MotionStep { return s.steps[0] }
func (s *stepStack) next() MotionStep    { return s.steps[1] }

func (s *stepStack) setCurrent(step MotionStep) { s.steps[0] = step }
func (s *stepStack) setNext(step MotionStep)    { s.steps[1] = step }
func (s *stepStack) setNextNext(step MotionStep) { s.steps[2] = step }

// reset clears the whole stack to idle.
func (s *stepStack) reset() {
	s.steps = [3]MotionStep{stopped, stopped, stopped}
}

// advance shifts next into current and next-next into next, per the
// DECEL/ACCEL dispatch ("advance state by shifting the stacked
// next/next-next fields down").
func (s *stepStack) advance() {
	s.steps[0] = s.steps[1]
	s.steps[1] = s.steps[2]
	s.steps[2] = stopped
}

// pendingDeferred reports whether a next or next-next transition is
// queued, used by MRS's GO recomputation.
func (s *stepStack) pendingDeferred() bool {
	return s.steps[1].Motion != Stop || s.steps[2].Motion != Stop
}
