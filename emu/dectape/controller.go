/*
 * DECtape controller core - shared registers and command decoder.
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
	"github.com/rcornwell/dectape/emu/irq"
	"github.com/rcornwell/dectape/util/debug"
	"github.com/rcornwell/dectape/util/dtimage"
)

// NumDrives is the number of independently addressable transports (N=8).
const NumDrives = 8

// Status-A bit layout.
const (
	statusAUnitShift     = 12
	statusAUnitMask      = 0xf
	statusAStartStopBit  = 1 << 5
	statusADirBit        = 1 << 4
	statusAFuncMask      = 0x7
)

// Status-B flag bits.
const (
	FlagDTF uint32 = 1 << iota
	FlagBEF
	FlagERF
	FlagEND
	FlagTIM
	FlagMRK
	FlagSEL
	FlagREV
	FlagGO
)

// ErrorKind names one of the Status-B error bits.
type ErrorKind uint32

const (
	ErrorSEL ErrorKind = ErrorKind(FlagSEL)
	ErrorEND ErrorKind = ErrorKind(FlagEND)
	ErrorTIM ErrorKind = ErrorKind(FlagTIM)
	ErrorMRK ErrorKind = ErrorKind(FlagMRK)
)

// hostFunction is the 3-bit function code the host writes into Status-A.
// Codes 0-5 map to the six host-visible functions; anything else,
// including the reserved "write mark" code, is rejected with SEL.
type hostFunction int

const (
	hostFuncMove hostFunction = iota
	hostFuncSearch
	hostFuncRead
	hostFuncWrite
	hostFuncReadAll
	hostFuncWriteAll
	hostFuncWriteMark // stubbed: always rejected (non-goal)
)

func (f hostFunction) toFunction() (Function, bool) {
	switch f {
	case hostFuncMove:
		return FuncMove, true
	case hostFuncSearch:
		return FuncSearch, true
	case hostFuncRead:
		return FuncRead, true
	case hostFuncWrite:
		return FuncWrite, true
	case hostFuncReadAll:
		return FuncReadAll, true
	case hostFuncWriteAll:
		return FuncWriteAll, true
	default:
		return FuncNone, false
	}
}

// Controller is the process-wide shared register set plus the eight
// drives it addresses. The registers and drives are fields here rather
// than package-level globals; the only package-level reference is
// Active, which the config-file callbacks use to find a controller.
type Controller struct {
	StatusA     uint32
	StatusB     uint32
	DataBuffer  uint32
	Substate    uint8

	Drives [NumDrives]*Drive

	irqLine irq.Line

	// Tuning constants, simulated ticks.
	LineTime  int
	AccelTime int
	DecelTime int
}

// Default tuning constants.
const (
	DefaultLineTime  = 12
	DefaultAccelTime = 54000
	DefaultDecelTime = 72000
)

// NewController builds a controller with its eight drives wired back to
// it and default tuning constants.
func NewController() *Controller {
	c := &Controller{
		LineTime:  DefaultLineTime,
		AccelTime: DefaultAccelTime,
		DecelTime: DefaultDecelTime,
	}
	for i := range c.Drives {
		d := &Drive{unit: i, ctrl: c}
		d.InitDev()
		c.Drives[i] = d
	}
	return c
}

// selectedUnit is the raw 4-bit Status-A unit field (0 at cold start).
// It is not a drive index; unitIndex maps it to one.
func (c *Controller) selectedUnit() int {
	return int((c.StatusA >> statusAUnitShift) & statusAUnitMask)
}

// selectedDrive returns the Drive the controller's registers currently
// belong to, or nil if the selected unit field does not name one.
func (c *Controller) selectedDrive() *Drive {
	idx, ok := unitIndex(uint32(c.selectedUnit()))
	if !ok {
		return nil
	}
	return c.Drives[idx]
}

// unitIndex maps the host's 4-bit unit-select field to a drive index.
// Unit 0 is illegal; units 1..7 map straight; unit 8 maps to internal
// index 0; all others are illegal.
func unitIndex(unit uint32) (int, bool) {
	switch {
	case unit == 0:
		return 0, false
	case unit >= 1 && unit <= 7:
		return int(unit), true
	case unit == 8:
		return 0, true
	default:
		return 0, false
	}
}

// IORS is the controller's contribution to the host's IO-skip bus: the
// subset of Status-B flags that request attention. Hosts without such a
// bus simply never call it.
func (c *Controller) IORS() uint32 {
	return c.StatusB & (FlagDTF | FlagBEF | FlagERF)
}

// Pending reports whether the interrupt-request line is asserted.
func (c *Controller) Pending() bool {
	return c.irqLine.Pending()
}

// Acknowledge clears the interrupt-request line, as the host does once
// it notices it.
func (c *Controller) Acknowledge() {
	c.irqLine.Acknowledge()
}

// refreshInterrupt raises the request line if DTF, BEF, or ERF is set
// ("after every pulse").
func (c *Controller) refreshInterrupt() {
	if c.StatusB&(FlagDTF|FlagBEF|FlagERF) != 0 {
		c.irqLine.Raise()
	}
}

// clearLatched clears DTF, BEF, ERF and the specific error bits, as MSE
// and MLC both do before re-validating a command.
func (c *Controller) clearLatched() {
	c.StatusB &^= FlagDTF | FlagBEF | FlagERF | FlagEND | FlagTIM | FlagMRK | FlagSEL
}

// MSE is the select command pulse. If the unit-select
// field changes, the previously selected drive (if moving) is sent to
// OFF-REEL before the field is replaced.
func (c *Controller) MSE(operand uint32) {
	newUnit := (operand >> statusAUnitShift) & statusAUnitMask
	oldUnit := uint32(c.selectedUnit())

	if newUnit != oldUnit {
		if old := c.selectedDrive(); old != nil {
			c.deselect(old)
		}
	}

	c.StatusA = (c.StatusA &^ (statusAUnitMask << statusAUnitShift)) |
		(newUnit << statusAUnitShift)
	c.clearLatched()
	c.refreshInterrupt()
}

// MLC is the load-command pulse: replace the
// start/stop, direction, and function bits, validate, and on success
// hand off to the motion-transition engine.
func (c *Controller) MLC(operand uint32) {
	c.clearLatched()

	motionBits := operand & (statusAStartStopBit | statusADirBit)
	funcCode := hostFunction(operand & statusAFuncMask)

	c.StatusA = (c.StatusA &^ (statusAStartStopBit | statusADirBit | statusAFuncMask)) |
		motionBits | uint32(funcCode)&statusAFuncMask

	drv := c.selectedDrive()
	if drv != nil {
		debug.DebugDevf(uint16(drv.unit), drv.debugMsk, debugCmd, "MLC %06o", operand)
	}
	switch {
	case drv == nil:
		c.setError(ErrorSEL)
	case !drv.Attached():
		c.setError(ErrorSEL)
	case funcCode == hostFuncWriteMark:
		c.setError(ErrorSEL)
	default:
		fn, ok := funcCode.toFunction()
		if !ok {
			c.setError(ErrorSEL)
			break
		}
		if fn.Writing() {
			if drv.image.ReadOnly() {
				c.setError(ErrorSEL)
				break
			}
		}
		startStop := motionBits&statusAStartStopBit != 0
		reverse := motionBits&statusADirBit != 0
		c.transition(drv, startStop, reverse, fn)
	}

	c.refreshInterrupt()
}

// MRD is the read-data pulse: hand the exchange register to the host
// and clear DTF/BEF.
func (c *Controller) MRD() uint32 {
	word := c.DataBuffer
	c.StatusB &^= FlagDTF | FlagBEF
	c.refreshInterrupt()
	return word
}

// MWR is the write-data pulse: accept the host's word into the
// exchange register and clear DTF/BEF.
func (c *Controller) MWR(word uint32) {
	c.DataBuffer = word & dtimage.Mask18
	c.StatusB &^= FlagDTF | FlagBEF
	c.refreshInterrupt()
}

// MRS is the read-status pulse: recompute REV and GO from the selected
// drive's motion before returning Status-B.
func (c *Controller) MRS() uint32 {
	drv := c.selectedDrive()
	c.StatusB &^= FlagREV | FlagGO
	if drv != nil {
		cur := drv.current()
		if cur.Motion.Reverse() {
			c.StatusB |= FlagREV
		}
		if cur.Motion.Accelerating() || cur.Motion.AtSpeed() || drv.steps.pendingDeferred() {
			c.StatusB |= FlagGO
		}
	}
	c.refreshInterrupt()
	return c.StatusB
}
