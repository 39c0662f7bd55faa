/*
 * DECtape controller core - per-line service routine.
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
	"github.com/rcornwell/dectape/util/debug"
	"github.com/rcornwell/dectape/util/dtimage"
)

// serviceLine runs one functional event for an at-speed drive
//. Position has already been integrated and the
// end-zone check already made by the caller.
func (c *Controller) serviceLine(d *Drive) {
	cur := d.current()
	selected := d == c.selectedDrive()

	block, offset := d.block()
	geom := d.geometry()
	inData := offset >= geom.HeaderLines && offset < geom.LinesPerBlock-geom.TrailerLines

	debug.DebugDevf(uint16(d.unit), d.debugMsk, debugDetail, "%v block %04o offset %d",
		cur.Function, block, offset)

	if selected && c.StatusB&FlagDTF != 0 {
		c.setError(ErrorTIM)
		return
	}

	switch cur.Function {
	case FuncSearch:
		c.serviceSearch(d, selected, block)
	case FuncRead, FuncReadAll:
		c.serviceRead(d, selected, cur, block, offset, inData)
	case FuncWrite, FuncWriteAll:
		c.serviceWrite(d, selected, cur, block, offset, inData)
	}
}

// wordIndex returns the data-zone word offset for a position already
// known to be inside the data zone.
func (d *Drive) wordIndex(offset int) int {
	geom := d.geometry()
	return (offset - geom.HeaderLines) / geom.WordSizeLines
}

// frameSlot returns the combined header/trailer slot index (0..9) for a
// position already known to be outside the data zone.
func (d *Drive) frameSlot(offset int) int {
	geom := d.geometry()
	if offset < geom.HeaderLines {
		return offset / geom.WordSizeLines
	}
	trailerStart := geom.LinesPerBlock - geom.TrailerLines
	return dtimage.HeaderFrameSlots + (offset-trailerStart)/geom.WordSizeLines
}

// isLastRelevantWord reports whether offset is the final word serviced
// in the current motion direction: the reverse-checksum slot (header
// idx 4) for forward motion, the forward-checksum slot (trailer idx 5)
// for reverse motion — in each direction, the last frame slot the drive
// crosses before it enters the block's data zone.
func (d *Drive) isLastRelevantWord(reverse bool, offset int) bool {
	slot := d.frameSlot(offset)
	if reverse {
		return slot == dtimage.HeaderFrameSlots // trailer's first slot, forward checksum.
	}
	return slot == dtimage.HeaderFrameSlots-1 // header's last slot, reverse checksum.
}

func (c *Controller) advanceSearch(d *Drive) {
	geom := d.geometry()
	c.scheduleDriveEvent(d, geom.LinesPerBlock*c.LineTime)
}

func (c *Controller) advanceDataWord(d *Drive) {
	geom := d.geometry()
	c.scheduleDriveEvent(d, geom.WordSizeLines*c.LineTime)
}

// serviceSearch publishes the current block number and re-arms for the
// next block boundary.
func (c *Controller) serviceSearch(d *Drive, selected bool, block int) {
	if selected {
		c.DataBuffer = uint32(block) & dtimage.Mask18
		c.StatusB |= FlagDTF
		c.refreshInterrupt()
	}
	c.advanceSearch(d)
}

// serviceRead implements the READ and READ-ALL arms of the service routine
func (c *Controller) serviceRead(d *Drive, selected bool, cur MotionStep, block, offset int, inData bool) {
	reverse := cur.Motion.Reverse()

	var word uint32
	var publish bool
	var isLast bool

	if inData {
		w, err := d.image.DataWord(block, d.wordIndex(offset))
		if err != nil {
			c.advanceDataWord(d)
			return
		}
		word = w
		publish = true
	} else {
		slot := d.frameSlot(offset)
		edge := slot == 0 || slot == dtimage.HeaderFrameSlots+dtimage.TrailerFrameSlots-1
		if edge {
			publish = false
		} else if cur.Function == FuncReadAll {
			w, err := d.image.HeaderTrailerWord(block, slot)
			if err != nil {
				c.advanceDataWord(d)
				return
			}
			word = w
			publish = true
		} else {
			publish = slot == dtimage.HeaderFrameSlots-1 || slot == dtimage.HeaderFrameSlots
			if publish {
				w, err := d.image.HeaderTrailerWord(block, slot)
				if err != nil {
					c.advanceDataWord(d)
					return
				}
				word = w
			}
		}
		isLast = d.isLastRelevantWord(reverse, offset)
	}

	if publish && selected {
		if reverse {
			word = dtimage.ComplementObverse(word)
		}
		debug.DebugDevf(uint16(d.unit), d.debugMsk, debugData, "read %06o", word)
		c.DataBuffer = word & dtimage.Mask18
		if isLast {
			c.StatusB |= FlagBEF
		} else {
			c.StatusB |= FlagDTF
		}
		c.refreshInterrupt()
	}

	c.advanceDataWord(d)
}

// isLastWordOfDataZone reports whether offset is the data zone's final
// word in the current motion direction.
func (d *Drive) isLastWordOfDataZone(reverse bool, offset int) bool {
	geom := d.geometry()
	idx := d.wordIndex(offset)
	if reverse {
		return idx == 0
	}
	return idx == geom.BlockSizeWords-1
}

// serviceWrite implements the WRITE and WRITE-ALL arms of the service routine
func (c *Controller) serviceWrite(d *Drive, selected bool, cur MotionStep, block, offset int, inData bool) {
	reverse := cur.Motion.Reverse()

	if inData {
		word := c.DataBuffer
		if reverse {
			word = dtimage.ComplementObverse(word)
		}
		debug.DebugDevf(uint16(d.unit), d.debugMsk, debugData, "write %06o", word)
		// Write-protect was refused back at MLC and an in-data-zone
		// offset cannot be out of range, so the store cannot fail here.
		_ = d.image.SetDataWord(block, d.wordIndex(offset), word)

		isLast := d.isLastWordOfDataZone(reverse, offset)
		if selected {
			if isLast {
				c.StatusB |= FlagBEF
			} else {
				c.StatusB |= FlagDTF
			}
			c.refreshInterrupt()
		}
	} else {
		slot := d.frameSlot(offset)
		edge := slot == 0 || slot == dtimage.HeaderFrameSlots+dtimage.TrailerFrameSlots-1
		switch {
		case edge:
			// Silently skipped, end-zone adjacent.
		case cur.Function == FuncWriteAll:
			_ = d.image.SetHeaderTrailerWord(block, slot, c.DataBuffer)
			if selected {
				c.StatusB |= FlagDTF
				c.refreshInterrupt()
			}
		case slot == dtimage.HeaderFrameSlots: // the checksum slot, trailer's first.
			_ = d.image.SetHeaderTrailerWord(block, slot, c.DataBuffer)
			if selected {
				c.StatusB |= FlagDTF
				c.refreshInterrupt()
			}
		}
	}

	c.advanceDataWord(d)
}
