/*
 * DECtape controller core - command-line harness.
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

// Command dt550 is a standalone harness for the DECtape controller core: it
// loads a configuration file describing up to eight drives, then drives the
// controller's command pulses (MSE/MLC/MRD/MWR/MRS) from an interactive
// line editor.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/rcornwell/dectape/command/command"
	config "github.com/rcornwell/dectape/config/configparser"
	"github.com/rcornwell/dectape/emu/dectape"
	"github.com/rcornwell/dectape/emu/event"
	"github.com/rcornwell/dectape/util/logger"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "dt550.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "unable to create log file:", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	debugOff := false
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, &debugOff))
	slog.SetDefault(log)

	ctrl := dectape.NewController()
	dectape.Active = ctrl

	if _, err := os.Stat(*optConfig); err == nil {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}

	event.Reset()
	runConsole(ctrl)
}

func runConsole(ctrl *dectape.Controller) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	selected := 0

	for {
		prompt, err := line.Prompt("dt550> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("error reading line: " + err.Error())
			return
		}
		line.AppendHistory(prompt)

		quit, err := dispatch(ctrl, &selected, prompt)
		if err != nil {
			fmt.Println("Error: " + err.Error())
		}
		if quit {
			return
		}
	}
}

// dispatch runs one operator command line. It is intentionally flat — five
// controller pulses plus attach/detach/show/select — matching the small,
// fixed surface this subsystem exposes (no subcommand tree is warranted).
func dispatch(ctrl *dectape.Controller, selected *int, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	switch cmd {
	case "QUIT", "EXIT":
		return true, nil

	case "SELECT":
		if len(args) != 1 {
			return false, errors.New("usage: select <unit>")
		}
		unit, err := strconv.Atoi(args[0])
		if err != nil || unit < 1 || unit > dectape.NumDrives {
			return false, errors.New("unit out of range")
		}
		*selected = unit
		ctrl.MSE(uint32(unit) << 12)
		return false, nil

	case "ATTACH":
		if len(args) < 2 {
			return false, errors.New("usage: attach <index> <file> [format] [ring|noring]")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 || idx >= dectape.NumDrives {
			return false, errors.New("drive index out of range")
		}
		drv := dectape.CommandDrive{Drive: ctrl.Drives[idx]}
		opts := []*commandOption{{Name: "FILE", EqualOpt: args[1]}}
		for _, a := range args[2:] {
			word := strings.ToUpper(a)
			if word == "RING" || word == "NORING" {
				opts = append(opts, &commandOption{Name: word})
			} else {
				opts = append(opts, &commandOption{Name: "FORMAT", EqualOpt: word})
			}
		}
		return false, drv.Attach(toCmdOptions(opts))

	case "DETACH":
		if len(args) != 1 {
			return false, errors.New("usage: detach <index>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 || idx >= dectape.NumDrives {
			return false, errors.New("drive index out of range")
		}
		return false, ctrl.Drives[idx].Detach()

	case "SHOW":
		idx := *selected
		if len(args) == 1 {
			u, err := strconv.Atoi(args[0])
			if err != nil || u < 0 || u >= dectape.NumDrives {
				return false, errors.New("drive index out of range")
			}
			idx = u
		}
		text, err := ctrl.Drives[idx].Show(nil)
		if err != nil {
			return false, err
		}
		fmt.Println(text)
		return false, nil

	case "DEBUG":
		if len(args) != 2 {
			return false, errors.New("usage: debug <index> <cmd|data|detail>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || idx < 0 || idx >= dectape.NumDrives {
			return false, errors.New("drive index out of range")
		}
		return false, ctrl.Drives[idx].Debug(args[1])

	case "MLC":
		if len(args) != 1 {
			return false, errors.New("usage: mlc <operand>")
		}
		operand, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return false, err
		}
		ctrl.MLC(uint32(operand))
		return false, nil

	case "MRD":
		fmt.Printf("%06o\n", ctrl.MRD())
		return false, nil

	case "MWR":
		if len(args) != 1 {
			return false, errors.New("usage: mwr <word>")
		}
		word, err := strconv.ParseUint(args[0], 0, 32)
		if err != nil {
			return false, err
		}
		ctrl.MWR(uint32(word))
		return false, nil

	case "MRS":
		fmt.Printf("%#o\n", ctrl.MRS())
		return false, nil

	case "STATUS":
		fmt.Printf("StatusA=%#o StatusB=%#o DataBuffer=%#o pending=%v\n",
			ctrl.StatusA, ctrl.StatusB, ctrl.DataBuffer, ctrl.Pending())
		return false, nil

	case "ADVANCE":
		if len(args) != 1 {
			return false, errors.New("usage: advance <ticks>")
		}
		ticks, err := strconv.Atoi(args[0])
		if err != nil {
			return false, err
		}
		event.Advance(ticks)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
}

// commandOption is a throwaway value used to build a []*command.CmdOption
// from the REPL's plain words, without reaching into config's quoting rules.
type commandOption struct {
	Name     string
	EqualOpt string
}

func toCmdOptions(opts []*commandOption) []*command.CmdOption {
	out := make([]*command.CmdOption, len(opts))
	for i, o := range opts {
		out[i] = &command.CmdOption{Name: o.Name, EqualOpt: o.EqualOpt}
	}
	return out
}
