/*
 * picoflash - command-line shell
 *
 * Copyright 2026, picoflash contributors
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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/nandflash/picoflash/chip"
	"github.com/nandflash/picoflash/config"
	"github.com/nandflash/picoflash/dumpfile"
	"github.com/nandflash/picoflash/hostengine"
	"github.com/nandflash/picoflash/logging"
)

func main() {
	optPort := getopt.StringLong("port", 'p', "", "Serial port (auto-detected if omitted)")
	optBaud := getopt.IntLong("baud", 'b', 0, "Baud rate (defaults to the configuration default)")
	optOOB := getopt.BoolLong("include-oob", 'o', "Include OOB/spare bytes in the dump and WRITE payload")
	optChunk := getopt.IntLong("chunk-size", 0, 0, "WRITE chunk size in bytes")
	optCheckpoint := getopt.StringLong("checkpoint", 0, "picoflash.ckpt", "Resume checkpoint file path")
	optLog := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Verbose logging")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) == 0 {
		getopt.Usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if *optOOB {
		cfg.IncludeOOB = true
	}
	if *optChunk > 0 {
		cfg.ChunkSize = *optChunk
	}
	baud := cfg.DefaultBaudRate
	if *optBaud > 0 {
		baud = *optBaud
	}

	logOut := os.Stderr
	if *optLog != "" {
		f, err := os.Create(*optLog)
		if err == nil {
			logOut = f
		}
	}
	level := slog.LevelInfo
	if *optDebug {
		level = slog.LevelDebug
	}
	log := logging.New(logOut, "picoflash", level, *optDebug)

	if args[0] == "list" {
		for i, d := range chip.List() {
			fmt.Printf("%3d: %s\n", i, d.FullName())
		}
		os.Exit(0)
	}

	port := *optPort
	if port == "" {
		p, err := hostengine.DiscoverEndpoint()
		if err != nil {
			log.Error("no serial endpoint found", "error", err)
			os.Exit(1)
		}
		port = p
	}
	serialPort, err := hostengine.Open(port, baud)
	if err != nil {
		log.Error("opening serial port", "port", port, "error", err)
		os.Exit(1)
	}
	defer serialPort.Close()

	link, err := hostengine.NewLink(serialPort)
	if err != nil {
		log.Error("negotiating wire mode", "error", err)
		os.Exit(1)
	}
	h := hostengine.New(link, cfg, log, *optCheckpoint)
	h.OnProgress(func(ev hostengine.ProgressEvent) {
		fmt.Printf("\r%3d%% (%d)", ev.Percent, ev.Index)
	})
	h.OnPowerWarning(func(msg string) {
		fmt.Printf("\npower warning: %s\n", msg)
	})

	desc, err := h.Detect(promptForChip)
	if err != nil {
		log.Error("detection failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Detected: %s\n", desc.FullName())

	if err := run(h, desc, cfg, args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	os.Exit(0)
}

func run(h *hostengine.HostEngine, desc chip.Descriptor, cfg config.Options, args []string) error {
	switch args[0] {
	case "info":
		fmt.Printf("Manufacturer: %s\nModel: %s\nPage size: %d\nSpare size: %d\nPages/block: %d\nBlocks: %d\nTotal size: %d bytes\n",
			desc.Manufacturer, desc.Name, desc.PageSize, desc.SpareSize(), desc.PagesPerBlock, desc.BlockCount, desc.TotalSize())
		if len(args) > 1 {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			bad, err := dumpfile.BadBlocks(data, desc.PageSize, desc.SpareSize(), desc.PagesPerBlock)
			if err != nil {
				return err
			}
			fmt.Printf("Bad blocks: %v\n", bad)
			md5sum, _ := dumpfile.Checksum(data, dumpfile.MD5)
			fmt.Printf("MD5: %s\n", md5sum)
		}
		return nil

	case "read":
		if len(args) < 2 {
			return errors.New("usage: picoflash read <output-file>")
		}
		var buf bytes.Buffer
		if err := h.Read(desc, &buf); err != nil {
			return err
		}
		fmt.Println()
		data := h.StripOOBIfConfigured(buf.Bytes(), desc)
		return os.WriteFile(args[1], data, 0o644)

	case "write":
		if len(args) < 2 {
			return errors.New("usage: picoflash write <input-file>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := h.Write(desc, data); err != nil {
			return err
		}
		fmt.Println()
		return nil

	case "erase":
		if err := h.Erase(desc); err != nil {
			return err
		}
		fmt.Println()
		return nil

	default:
		getopt.Usage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

// promptForChip implements hostengine.Selector with an interactive line
// prompt, the way the teacher's command reader drives console input.
func promptForChip(names []string) int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("Chip not recognized by ID. Choose one:")
	for i, n := range names {
		fmt.Printf("%3d: %s\n", i, n)
	}
	for {
		input, err := line.Prompt("picoflash select> ")
		if err != nil {
			return 0
		}
		line.AppendHistory(input)
		var idx int
		if _, scanErr := fmt.Sscanf(input, "%d", &idx); scanErr == nil && idx >= 0 && idx < len(names) {
			return idx
		}
		fmt.Println("invalid selection")
	}
}
