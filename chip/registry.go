/*
 * picoflash - NAND chip descriptor registry
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

package chip

// registry is the static, build-time table of known chip descriptors.
// Runtime plugin loading is out of scope (spec.md §1); extending chip
// support means appending here and recompiling.
var registry []Descriptor

func must(d Descriptor, err error) Descriptor {
	if err != nil {
		panic(err)
	}
	return d
}

func init() {
	registry = []Descriptor{
		must(NewDescriptor("Samsung", "K9F1G08U0A", []byte{0xEC, 0xF1, 0x00, 0x95, 0x40}, 2048, 64, 128, 2048, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Samsung", "K9F2G08U0A", []byte{0xEC, 0xDA, 0x10, 0x95, 0x44}, 2048, 64, 64, 4096, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Samsung", "K9F4G08U0A", []byte{0xEC, 0xDC, 0x10, 0x95, 0x56}, 2048, 64, 64, 8192, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Samsung", "K9F5608U0D", []byte{0xEC, 0x75}, 512, 16, 32, 4096, Timings{TWC: 100, TRC: 100, TREA: 40, TRP: 50, TWP: 50})),
		must(NewDescriptor("Samsung", "K9K8G08U0M", []byte{0xEC, 0xD3, 0x51, 0x95, 0x58}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Hynix", "HY27US08281A", []byte{0xAD, 0x76}, 512, 16, 32, 4096, Timings{TWC: 100, TRC: 100, TREA: 40, TRP: 50, TWP: 50})),
		must(NewDescriptor("Hynix", "HY27UF081G2A", []byte{0xAD, 0xF1, 0x00, 0x1D}, 2048, 64, 64, 8192, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Hynix", "H27U4G8F2D", []byte{0xAD, 0xDC, 0x80, 0x95}, 2048, 64, 128, 4096, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Hynix", "H27U1G8F2B", []byte{0xAD, 0xF1, 0x80, 0x1D}, 2048, 64, 64, 8192, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Toshiba", "TC58NVG0S3E", []byte{0x98, 0xF1, 0x80, 0x15}, 2048, 64, 64, 8192, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Toshiba", "TC58NVG1S3E", []byte{0x98, 0xDA, 0x90, 0x15, 0x76}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Toshiba", "TC58NVG2S0F", []byte{0x98, 0xDC, 0x90, 0x26}, 4096, 128, 128, 8192, Timings{TWC: 20, TRC: 20, TREA: 16, TRP: 10, TWP: 10})),
		must(NewDescriptor("Toshiba", "TH58NVG1S3A", []byte{0x98, 0xDA, 0x90, 0x15}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Micron", "MT29F1G08ABA", []byte{0x2C, 0xF1, 0x00, 0x95, 0x04}, 2048, 64, 64, 8192, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Micron", "MT29F2G08AAB", []byte{0x2C, 0xDA, 0x90, 0x95, 0x06}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Micron", "MT29F4G08ABA", []byte{0x2C, 0xDC, 0x90, 0xA6, 0x54}, 2048, 64, 128, 8192, Timings{TWC: 20, TRC: 20, TREA: 16, TRP: 10, TWP: 10})),
		must(NewDescriptor("Intel", "JS29F08G08AAMD1", []byte{0x89, 0xDA, 0x90, 0x15}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("Intel", "JS28F128P33BF", []byte{0x89, 0x00, 0x18, 0x02}, 2048, 64, 64, 4096, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("SanDisk", "SDTNRGAMA", []byte{0x45, 0xDA, 0x90, 0x95, 0x56}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
		must(NewDescriptor("SanDisk", "SDTNQLAMA", []byte{0x45, 0xD3, 0x90, 0x95, 0x58}, 2048, 64, 64, 16384, Timings{TWC: 25, TRC: 25, TREA: 20, TRP: 12, TWP: 12})),
	}
}

// Lookup performs a prefix match of id over the registry's IDPrefix values,
// the longest matching prefix winning on ambiguity. It reports ok=false
// when no descriptor's prefix matches, which is the trigger for the
// manual-selection sub-protocol (spec.md §4.3).
func Lookup(id []byte) (desc Descriptor, ok bool) {
	bestLen := -1
	for _, d := range registry {
		if len(id) < len(d.IDPrefix) {
			continue
		}
		matched := true
		for i, b := range d.IDPrefix {
			if id[i] != b {
				matched = false
				break
			}
		}
		if matched && len(d.IDPrefix) > bestLen {
			desc, bestLen = d, len(d.IDPrefix)
			ok = true
		}
	}
	return desc, ok
}

// List returns the full registry in stable order, for the manual-selection
// sub-protocol's enumerated index:name listing.
func List() []Descriptor {
	out := make([]Descriptor, len(registry))
	copy(out, registry)
	return out
}

// ByIndex returns the descriptor at the given SELECT:<n> index, matching
// the order List() produces.
func ByIndex(n int) (Descriptor, bool) {
	if n < 0 || n >= len(registry) {
		return Descriptor{}, false
	}
	return registry[n], true
}
