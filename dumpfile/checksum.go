/*
 * picoflash - dump file checksums and comparison
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

// Package dumpfile post-processes a completed READ dump: checksums for
// verifying against a reference image, chunked file comparison, and the
// bad-block report spec.md §6 defines.
package dumpfile

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// Algorithm selects the digest Checksum computes.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA256
)

// ErrUnsupportedAlgorithm is returned for an Algorithm value outside MD5/SHA256.
var ErrUnsupportedAlgorithm = errors.New("dumpfile: unsupported checksum algorithm")

// Checksum returns the hex-encoded digest of data under algo.
func Checksum(data []byte, algo Algorithm) (string, error) {
	switch algo {
	case MD5:
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// compareChunkSize bounds memory use while Compare streams two equal-sized
// files side by side.
const compareChunkSize = 64 * 1024

// Compare reports whether the files at path1 and path2 are byte-identical.
// Equal-sized files are streamed chunk by chunk rather than both being
// read fully into memory.
func Compare(path1, path2 string) (bool, error) {
	f1, err := os.Open(path1)
	if err != nil {
		return false, err
	}
	defer f1.Close()
	f2, err := os.Open(path2)
	if err != nil {
		return false, err
	}
	defer f2.Close()

	info1, err := f1.Stat()
	if err != nil {
		return false, err
	}
	info2, err := f2.Stat()
	if err != nil {
		return false, err
	}
	if info1.Size() != info2.Size() {
		return false, nil
	}

	buf1 := make([]byte, compareChunkSize)
	buf2 := make([]byte, compareChunkSize)
	for {
		n1, err1 := io.ReadFull(f1, buf1)
		n2, err2 := io.ReadFull(f2, buf2)
		if n1 != n2 || !bytes.Equal(buf1[:n1], buf2[:n2]) {
			return false, nil
		}
		if err1 == io.EOF || err1 == io.ErrUnexpectedEOF {
			return true, nil
		}
		if err1 != nil {
			return false, err1
		}
		if err2 != nil && err2 != io.EOF && err2 != io.ErrUnexpectedEOF {
			return false, err2
		}
	}
}
