/*
 * DECtape controller core - configuration file registration.
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
	"os"
	"strconv"
	"strings"

	config "github.com/rcornwell/dectape/config/configparser"
	"github.com/rcornwell/dectape/util/dtimage"
)

var (
	errBadUnit   = errors.New("dectape: unit number out of range")
	errBadFormat = errors.New("dectape: unrecognized tape format")
	errNoActive  = errors.New("dectape: no active controller for configuration")
)

// Active is the controller instance a loaded config file applies to. The
// harness sets this before calling config.LoadConfigFile, since the
// registered create callbacks below are package-level functions with no
// other way to reach a particular controller instance.
var Active *Controller

func init() {
	config.RegisterModel("550", config.TypeModel, createDrive)
	config.RegisterOption("LINETIME", setLineTime)
	config.RegisterOption("ACCELTIME", setAccelTime)
	config.RegisterOption("DECELTIME", setDecelTime)
}

// createDrive handles a "550 <unit> [file=path] [format=NATIVE|PACKED16|PACKED12] [ring|noring]" line.
func createDrive(unit uint16, _ string, options []config.Option) error {
	if Active == nil {
		return errNoActive
	}
	idx, ok := unitIndex(uint32(unit))
	if !ok {
		return errBadUnit
	}

	var path string
	format := dtimage.FormatNative18
	formatSet := false
	ring := false

	for _, opt := range options {
		switch strings.ToUpper(opt.Name) {
		case "FILE":
			path = opt.EqualOpt
		case "FORMAT":
			if opt.EqualOpt != "" {
				f, ferr := formatByName(opt.EqualOpt)
				if ferr != nil {
					return ferr
				}
				format = f
				formatSet = true
			}
		case "RING":
			ring = true
		case "NORING":
			ring = false
		}
	}

	if path == "" {
		return nil
	}
	if !formatSet {
		if fi, err := os.Stat(path); err == nil {
			format = dtimage.DetectFormat(fi.Size())
		}
	}
	return Active.Drives[idx].Attach(path, format, ring)
}

func formatByName(name string) (dtimage.Format, error) {
	switch strings.ToUpper(name) {
	case "NATIVE", "NATIVE18":
		return dtimage.FormatNative18, nil
	case "PACKED16":
		return dtimage.FormatPacked16, nil
	case "PACKED12":
		return dtimage.FormatPacked12, nil
	default:
		return 0, errBadFormat
	}
}

func setLineTime(_ uint16, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if Active != nil {
		Active.LineTime = n
	}
	return nil
}

func setAccelTime(_ uint16, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if Active != nil {
		Active.AccelTime = n
	}
	return nil
}

func setDecelTime(_ uint16, value string, _ []config.Option) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if Active != nil {
		Active.DecelTime = n
	}
	return nil
}
