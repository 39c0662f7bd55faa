/*
 * DECtape controller core - controller and drive test cases.
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
	"os"
	"testing"

	"github.com/rcornwell/dectape/emu/event"
	"github.com/rcornwell/dectape/util/dtimage"
)

const testUnitOperand = uint32(1) << statusAUnitShift // unit 1 -> Drives[1]

func blankNative18(t *testing.T) string {
	t.Helper()
	geom := dtimage.GeometryFor(dtimage.FormatNative18)
	onDiskWords := geom.TapeSizeBlocks * (geom.HeaderLines/geom.WordSizeLines +
		geom.BlockSizeWords + geom.TrailerLines/geom.WordSizeLines)
	f, err := os.CreateTemp(t.TempDir(), "dectape-*.tap")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(int64(onDiskWords) * 4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	return f.Name()
}

func newAttachedController(t *testing.T) (*Controller, string) {
	t.Helper()
	event.Reset()
	c := NewController()
	name := blankNative18(t)
	if err := c.Drives[1].Attach(name, dtimage.FormatNative18, true); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return c, name
}

func TestUnitIndexMapping(t *testing.T) {
	cases := []struct {
		unit  uint32
		index int
		ok    bool
	}{
		{0, 0, false},
		{1, 1, true},
		{7, 7, true},
		{8, 0, true},
		{9, 0, false},
		{15, 0, false},
	}
	for _, tc := range cases {
		idx, ok := unitIndex(tc.unit)
		if ok != tc.ok || (ok && idx != tc.index) {
			t.Errorf("unitIndex(%d) = (%d,%v), want (%d,%v)", tc.unit, idx, ok, tc.index, tc.ok)
		}
	}
}

// MSE selecting an unattached/illegal unit and MLC against it fails SEL.
func TestMLCUnattachedDriveFailsSEL(t *testing.T) {
	event.Reset()
	c := NewController()
	c.MSE(uint32(1) << statusAUnitShift) // unit 1, never attached
	c.MLC(statusAStartStopBit | uint32(hostFuncSearch))
	if c.StatusB&FlagSEL == 0 {
		t.Errorf("expected SEL for unattached drive, StatusB=%#o", c.StatusB)
	}
	if c.StatusB&FlagERF == 0 {
		t.Errorf("ERF must accompany SEL")
	}
}

// Write mark is stubbed and always rejected with SEL.
func TestMLCWriteMarkRejected(t *testing.T) {
	c, _ := newAttachedController(t)
	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncWriteMark))
	if c.StatusB&FlagSEL == 0 {
		t.Errorf("expected SEL for write-mark, StatusB=%#o", c.StatusB)
	}
}

// Writing to a write-protected drive is rejected with SEL.
func TestMLCWriteProtectedRejected(t *testing.T) {
	c, name := newAttachedController(t)
	_ = c.Drives[1].Detach()
	if err := c.Drives[1].Attach(name, dtimage.FormatNative18, false); err != nil {
		t.Fatalf("Attach read-only: %v", err)
	}
	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncWrite))
	if c.StatusB&FlagSEL == 0 {
		t.Errorf("expected SEL for write to protected drive, StatusB=%#o", c.StatusB)
	}
}

// A freshly-launched MOVE leaves exactly one pending event.
func TestStopToMoveSchedulesOneEvent(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove))

	if !event.Pending(drv) {
		t.Fatalf("expected a pending event after stop->move transition")
	}
	if drv.current().Motion != AccelFwd {
		t.Errorf("expected AccelFwd, got %v", drv.current().Motion)
	}
	if drv.next().Motion != AtSpeedFwd || drv.next().Function != FuncMove {
		t.Errorf("expected queued AtSpeedFwd/MOVE, got %+v", drv.next())
	}
}

// Firing the accel event transitions the drive to at-speed, advances its
// position, and leaves the MOVE end-zone arrival event pending.
func TestAccelThenAtSpeedSchedulesMove(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	startPos := drv.positionLine
	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove))

	event.Advance(c.AccelTime)

	if drv.current().Motion != AtSpeedFwd {
		t.Fatalf("expected AtSpeedFwd after accel, got %v", drv.current().Motion)
	}
	if drv.positionLine <= startPos {
		t.Errorf("position should have advanced during acceleration: got %d want > %d", drv.positionLine, startPos)
	}
	if !event.Pending(drv) {
		t.Errorf("expected end-zone arrival event pending after MOVE reaches speed")
	}
	if c.StatusB&FlagERF != 0 {
		t.Errorf("unexpected error during normal accel->move: StatusB=%#o", c.StatusB)
	}
}

// Scenario: end-zone on MOVE. Starting two words short of the forward
// end zone and moving forward, the drive is inside the end zone by the
// time it reaches speed and END is set, with no data ever published.
func TestEndZoneOnMoveForward(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	geom := drv.geometry()
	drv.positionLine = geom.ForwardEndZoneLine - geom.WordSizeLines*2 // close to the far edge
	drv.lastUpdateTime = event.Now()

	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove))
	event.Advance(c.AccelTime)

	// If END is not latched yet, drain whatever event(s) remain; MOVE
	// never touches DataBuffer on the way.
	for i := 0; i < 5 && event.Pending(drv) && c.StatusB&FlagEND == 0; i++ {
		event.Advance(c.DecelTime + c.AccelTime + geom.LinesPerBlock*c.LineTime)
	}

	if c.StatusB&FlagEND == 0 {
		t.Errorf("expected END after MOVE reaches the forward end zone, StatusB=%#o", c.StatusB)
	}
	if c.StatusB&FlagDTF != 0 || c.StatusB&FlagBEF != 0 {
		t.Errorf("MOVE must never publish data, StatusB=%#o", c.StatusB)
	}
}

// Direction reversal while at speed: exactly one DECEL then one ACCEL
// before normal at-speed service resumes in the new direction.
func TestDirectionReversalUnderLoad(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]

	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove)) // fwd
	event.Advance(c.AccelTime)
	if drv.current().Motion != AtSpeedFwd {
		t.Fatalf("setup: expected AtSpeedFwd, got %v", drv.current().Motion)
	}
	// Reverse direction while at speed.
	c.MLC(statusAStartStopBit | statusADirBit | uint32(hostFuncMove))
	if drv.current().Motion != DecelFwd {
		t.Fatalf("expected DecelFwd immediately after reversal command, got %v", drv.current().Motion)
	}
	if drv.next().Motion != AccelRev {
		t.Errorf("expected queued AccelRev, got %v", drv.next().Motion)
	}

	event.Advance(c.DecelTime)
	if drv.current().Motion != AccelRev {
		t.Fatalf("expected AccelRev after decel completes, got %v", drv.current().Motion)
	}

	event.Advance(c.AccelTime)
	if drv.current().Motion != AtSpeedRev {
		t.Fatalf("expected AtSpeedRev after accel completes, got %v", drv.current().Motion)
	}
	// Once at speed in the new direction, position strictly decreases.
	posAtSpeed := drv.positionLine
	event.Advance(100 * c.LineTime)
	if err := drv.integrate(event.Now()); err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if drv.positionLine >= posAtSpeed {
		t.Errorf("position should decrease during at-speed reverse: got %d, was %d", drv.positionLine, posAtSpeed)
	}
}

// Timing error: DTF left unserviced across a data-word boundary raises
// TIM and ERF and clears start/stop (scenario 3).
func TestTimingErrorOnUnservicedDTF(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]

	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncRead))
	event.Advance(c.AccelTime) // reach at-speed, arm first read event

	if c.StatusB&FlagERF != 0 {
		t.Fatalf("setup: unexpected error before first read event, StatusB=%#o", c.StatusB)
	}

	geom := drv.geometry()
	// Drain read events without ever servicing DTF until TIM fires.
	for i := 0; i < geom.LinesPerBlock/geom.WordSizeLines+5; i++ {
		if c.StatusB&FlagERF != 0 {
			break
		}
		event.Advance(geom.WordSizeLines * c.LineTime)
	}

	if c.StatusB&FlagTIM == 0 {
		t.Errorf("expected TIM after repeated unserviced DTF, StatusB=%#o", c.StatusB)
	}
	if c.StatusB&FlagERF == 0 {
		t.Errorf("expected ERF alongside TIM")
	}
	if c.StatusA&statusAStartStopBit != 0 {
		t.Errorf("expected start/stop cleared after error")
	}
}

// Write-then-read round trip within one block: the write path is a
// left-inverse of the read path, driven directly
// through serviceWrite/serviceRead rather than full motion timing.
func TestWriteReadRoundTripWithinBlock(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	c.MSE(testUnitOperand)

	const block = 5
	geom := drv.geometry()
	base := geom.ReverseEndZoneLines + block*geom.LinesPerBlock + geom.HeaderLines
	drv.positionLine = base
	drv.lastUpdateTime = event.Now()
	drv.steps.setCurrent(MotionStep{Motion: AtSpeedFwd, Function: FuncWrite})

	for i := 0; i < 4; i++ {
		c.DataBuffer = uint32(i*7+3) & dtimage.Mask18
		blk, off := drv.block()
		c.serviceWrite(drv, true, drv.current(), blk, off, true)
		drv.positionLine += geom.WordSizeLines
	}

	drv.positionLine = base
	drv.steps.setCurrent(MotionStep{Motion: AtSpeedFwd, Function: FuncRead})
	for i := 0; i < 4; i++ {
		blk, off := drv.block()
		c.serviceRead(drv, true, drv.current(), blk, off, true)
		want := uint32(i*7+3) & dtimage.Mask18
		if c.DataBuffer != want {
			t.Errorf("word %d: got %o want %o", i, c.DataBuffer, want)
		}
		drv.positionLine += geom.WordSizeLines
	}
}

// Checksum generation (scenario 6): the forward-checksum header slot
// always reads back as the freshly computed 1's-complement sum.
func TestChecksumGeneration(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]

	const block = 7
	words := make([]uint32, 256)
	for i := range words {
		_ = drv.image.SetDataWord(block, i, uint32(i+1)&dtimage.Mask18)
		words[i] = uint32(i + 1)
	}

	want := dtimage.Checksum(words)
	got, err := drv.image.HeaderTrailerWord(block, dtimage.HeaderFrameSlots) // trailer slot 0
	if err != nil {
		t.Fatalf("HeaderTrailerWord: %v", err)
	}
	if got != want {
		t.Errorf("forward checksum: got %o want %o", got, want)
	}
	_ = c
}

// ERF is set if and only if one of END/TIM/MRK/SEL is set.
func TestInvariantERFImpliesSpecificError(t *testing.T) {
	c, _ := newAttachedController(t)
	c.setError(ErrorSEL)
	hasSpecific := c.StatusB&(FlagEND|FlagTIM|FlagMRK|FlagSEL) != 0
	hasERF := c.StatusB&FlagERF != 0
	if hasERF != hasSpecific {
		t.Errorf("ERF/specific-error mismatch: StatusB=%#o", c.StatusB)
	}
}

// Scenario: search forward publishes consecutive block numbers, one per
// block time, each with DTF and no error.
func TestSearchForwardPublishesConsecutiveBlocks(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	geom := drv.geometry()

	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncSearch))
	event.Advance(c.AccelTime)
	if drv.current().Motion != AtSpeedFwd || drv.current().Function != FuncSearch {
		t.Fatalf("expected at-speed SEARCH, got %+v", drv.current())
	}

	prev := -1
	for i := 0; i < 5; i++ {
		event.Advance(geom.LinesPerBlock * c.LineTime)
		if c.StatusB&FlagDTF == 0 {
			t.Fatalf("event %d: expected DTF after search event, StatusB=%#o", i, c.StatusB)
		}
		got := int(c.MRD())
		if prev >= 0 && got != prev+1 {
			t.Errorf("event %d: expected block %d, got %d", i, prev+1, got)
		}
		prev = got
	}
	if c.StatusB&FlagERF != 0 {
		t.Errorf("unexpected error during search: StatusB=%#o", c.StatusB)
	}
}

// Position integration is idempotent for a zero time delta.
func TestIntegrateIdempotentForZeroDelta(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]

	drv.steps.setCurrent(MotionStep{Motion: AtSpeedFwd, Function: FuncMove})
	drv.lastUpdateTime = event.Now()
	before := drv.positionLine

	if err := drv.integrate(event.Now()); err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if drv.positionLine != before {
		t.Errorf("zero-delta integrate moved position: %d -> %d", before, drv.positionLine)
	}
}

// Under reverse motion, reads publish the complement-obverse of the
// word a forward read returns at the same position.
func TestReverseReadPublishesComplementObverse(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	c.MSE(testUnitOperand)

	const block = 9
	const word = uint32(0o123456)
	if err := drv.image.SetDataWord(block, 10, word); err != nil {
		t.Fatalf("SetDataWord: %v", err)
	}

	geom := drv.geometry()
	pos := geom.ReverseEndZoneLines + block*geom.LinesPerBlock + geom.HeaderLines + 10*geom.WordSizeLines
	drv.positionLine = pos
	drv.lastUpdateTime = event.Now()

	drv.steps.setCurrent(MotionStep{Motion: AtSpeedFwd, Function: FuncRead})
	blk, off := drv.block()
	c.serviceRead(drv, true, drv.current(), blk, off, true)
	if c.DataBuffer != word {
		t.Fatalf("forward read: got %o want %o", c.DataBuffer, word)
	}

	c.StatusB &^= FlagDTF | FlagBEF
	drv.steps.setCurrent(MotionStep{Motion: AtSpeedRev, Function: FuncRead})
	c.serviceRead(drv, true, drv.current(), blk, off, true)
	if want := dtimage.ComplementObverse(word); c.DataBuffer != want {
		t.Errorf("reverse read: got %o want %o", c.DataBuffer, want)
	}
}

// A drive commanded to stop decelerates, gaining the full stopping
// distance, and comes to rest with GO clear.
func TestStopFromAtSpeedComesToRest(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]

	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove))
	event.Advance(c.AccelTime)
	posAtSpeed := drv.positionLine

	c.MLC(uint32(hostFuncMove)) // start/stop bit clear
	if drv.current().Motion != DecelFwd {
		t.Fatalf("expected DecelFwd after stop command, got %v", drv.current().Motion)
	}
	event.Advance(c.DecelTime)

	if drv.current().Motion != Stop {
		t.Errorf("expected Stop after decel completes, got %v", drv.current().Motion)
	}
	wantDelta := (c.DecelTime / c.LineTime) / 2
	if got := drv.positionLine - posAtSpeed; got != wantDelta {
		t.Errorf("decel stopping distance: got %d lines want %d", got, wantDelta)
	}
	status := c.MRS()
	if status&FlagGO != 0 {
		t.Errorf("GO should be clear once stopped, StatusB=%#o", status)
	}
}

// Deselecting a moving drive sends it to OFF-REEL rather than leaving
// it touching controller registers.
func TestDeselectSendsMovingDriveOffReel(t *testing.T) {
	c, _ := newAttachedController(t)
	drv := c.Drives[1]
	c.MSE(testUnitOperand)
	c.MLC(statusAStartStopBit | uint32(hostFuncMove))
	event.Advance(c.AccelTime)
	if drv.current().Motion != AtSpeedFwd {
		t.Fatalf("setup: expected AtSpeedFwd, got %v", drv.current().Motion)
	}

	c.MSE(uint32(2) << statusAUnitShift) // select a different, unattached unit

	if drv.current().Function != FuncOffReel {
		t.Errorf("expected deselected moving drive to run OFF-REEL, got %v", drv.current().Function)
	}

	// Coasting off the reel eventually detaches the drive without
	// raising SEL against the newly selected unit.
	event.Advance(12_000_000)
	if drv.Attached() {
		t.Errorf("expected off-reel drive to auto-detach")
	}
	if c.StatusB&(FlagSEL|FlagERF) != 0 {
		t.Errorf("off-reel detach of a deselected drive must not latch errors, StatusB=%#o", c.StatusB)
	}
}
