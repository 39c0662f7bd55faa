/*
 * DECtape controller core - operator command surface for one drive.
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
	"fmt"
	"os"
	"strings"

	"github.com/rcornwell/dectape/command/command"
	"github.com/rcornwell/dectape/util/dtimage"
)

var errNoFile = errors.New("dectape: attach requires a FILE option")

// CommandDrive adapts a Drive to command.Command: Drive's own Attach takes
// a path directly, since it is also the config-file path's entry point,
// while command.Command's Attach takes only an option list, so the two
// cannot share one method name on the same type.
type CommandDrive struct {
	*Drive
}

// Attach satisfies command.Command by decoding the CLI's FILE/FORMAT/RING
// switches and forwarding to Drive.Attach.
func (c CommandDrive) Attach(options []*command.CmdOption) error {
	return c.Drive.AttachOptions(options)
}

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
	debugDetail
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
}

// Options reports the attach switches an operator can hand to this drive.
func (d *Drive) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "FILE", OptionType: command.OptionFile, OptionValid: command.ValidAttach},
		{Name: "FORMAT", OptionType: command.OptionName, OptionValid: command.ValidAttach,
			OptionList: []string{"NATIVE", "PACKED16", "PACKED12"}},
		{Name: "RING", OptionType: command.OptionSwitch, OptionValid: command.ValidAttach},
		{Name: "NORING", OptionType: command.OptionSwitch, OptionValid: command.ValidAttach},
	}
}

// AttachOptions decodes a CLI attach switch list the way config.go's
// createDrive decodes the corresponding configuration-file options, then
// mounts the image through Attach.
func (d *Drive) AttachOptions(options []*command.CmdOption) error {
	var path string
	format := dtimage.FormatNative18
	formatSet := false
	ring := false
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "FILE":
			path = opt.EqualOpt
		case "FORMAT":
			formatSet = true
			switch strings.ToUpper(opt.EqualOpt) {
			case "PACKED16":
				format = dtimage.FormatPacked16
			case "PACKED12":
				format = dtimage.FormatPacked12
			default:
				format = dtimage.FormatNative18
			}
		case "RING":
			ring = true
		case "NORING":
			ring = false
		}
	}
	if path == "" {
		return errNoFile
	}
	if !formatSet {
		if fi, err := os.Stat(path); err == nil {
			format = dtimage.DetectFormat(fi.Size())
		}
	}
	return d.Attach(path, format, ring)
}

// Set satisfies command.Command: toggle write-protect on an already
// attached drive without a full re-attach.
func (d *Drive) Set(enable bool, options []*command.CmdOption) error {
	if !d.Attached() {
		return errUnattached
	}
	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "RING":
			d.image.SetReadOnly(!enable)
		case "NORING":
			d.image.SetReadOnly(enable)
		}
	}
	return nil
}

// Show satisfies command.Command: render attach state, format, write
// protect, and position for operator visibility.
func (d *Drive) Show(_ []*command.CmdOption) (string, error) {
	if !d.Attached() {
		return fmt.Sprintf("unit %d: not attached", d.unit), nil
	}
	cur := d.current()
	ro := "write-enabled"
	if d.image.ReadOnly() {
		ro = "write-protected"
	}
	block, offset := d.block()
	hwm, _ := d.image.HighWaterMark(block) // 0 when block is out of range.
	return fmt.Sprintf("unit %d: %s (%s) capacity=%d position=%d block=%d offset=%d written=%d motion=%v function=%v",
		d.unit, d.image.FileName(), ro, d.geometry().CapacityWords(),
		d.positionLine, block, offset, hwm, cur.Motion, cur.Function), nil
}

// Debug enables the CMD/DATA/DETAIL trace options for this drive.
func (d *Drive) Debug(opt string) error {
	flag, ok := debugOption[strings.ToUpper(opt)]
	if !ok {
		return errors.New("550 debug option invalid: " + opt)
	}
	d.debugMsk |= flag
	return nil
}
