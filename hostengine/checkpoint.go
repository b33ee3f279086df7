/*
 * picoflash - resumable operation checkpoint persistence
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

// Package hostengine is the host side of the session: device discovery,
// detection, the three orchestration loops, and checkpointed resume
// (spec.md §4.5).
package hostengine

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Operation names one of the three resumable operations, spec.md §3
// ResumeCheckpoint.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpErase
)

func (o Operation) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpErase:
		return "ERASE"
	default:
		return "UNKNOWN"
	}
}

func parseOperation(s string) (Operation, bool) {
	switch s {
	case "READ":
		return OpRead, true
	case "WRITE":
		return OpWrite, true
	case "ERASE":
		return OpErase, true
	default:
		return 0, false
	}
}

// Checkpoint is the on-disk resumable-operation record, spec.md §3. Only
// the fields relevant to Operation are meaningful; the others are zero.
type Checkpoint struct {
	Operation  Operation
	LastPage   uint32 // READ
	PageCRC32  uint32 // READ
	BytesSent  uint64 // WRITE
	ChunkCRC32 uint32 // WRITE
	EraseBlock uint32 // ERASE
	Timestamp  int64
}

// SaveCheckpoint writes c to path as a whole-file replacement: a temp file
// is written and renamed over path, so a crash mid-write never leaves a
// half-written checkpoint behind (spec.md §6 "Written atomically").
func SaveCheckpoint(path string, c Checkpoint) error {
	var b strings.Builder
	fmt.Fprintf(&b, "operation=%s\n", c.Operation)
	fmt.Fprintf(&b, "last_page=%d\n", c.LastPage)
	fmt.Fprintf(&b, "page_crc32=%d\n", c.PageCRC32)
	fmt.Fprintf(&b, "bytes_sent=%d\n", c.BytesSent)
	fmt.Fprintf(&b, "chunk_crc32=%d\n", c.ChunkCRC32)
	fmt.Fprintf(&b, "erase_block=%d\n", c.EraseBlock)
	fmt.Fprintf(&b, "timestamp=%d\n", c.Timestamp)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint reads path. A missing or malformed file is not an error:
// it is reported as ok=false, "no checkpoint" (spec.md §5: "a read that
// sees a malformed file returns 'no checkpoint'").
func LoadCheckpoint(path string) (Checkpoint, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, false
	}
	var c Checkpoint
	sc := bufio.NewScanner(bytes.NewReader(data))
	seen := 0
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			return Checkpoint{}, false
		}
		switch key {
		case "operation":
			op, ok := parseOperation(val)
			if !ok {
				return Checkpoint{}, false
			}
			c.Operation = op
		case "last_page":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Checkpoint{}, false
			}
			c.LastPage = uint32(n)
		case "page_crc32":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Checkpoint{}, false
			}
			c.PageCRC32 = uint32(n)
		case "bytes_sent":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return Checkpoint{}, false
			}
			c.BytesSent = n
		case "chunk_crc32":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Checkpoint{}, false
			}
			c.ChunkCRC32 = uint32(n)
		case "erase_block":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Checkpoint{}, false
			}
			c.EraseBlock = uint32(n)
		case "timestamp":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return Checkpoint{}, false
			}
			c.Timestamp = n
		default:
			return Checkpoint{}, false
		}
		seen++
	}
	if seen != 7 {
		return Checkpoint{}, false
	}
	return c, true
}

// ClearCheckpoint removes path; a missing file is not an error.
func ClearCheckpoint(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
