package protocol

import (
	"hash/crc32"
	"io"
	"testing"
)

func TestCRCMatchesIEEEReference(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("123456789"),
		{0x00, 0x01, 0x02, 0x03},
	}
	for _, data := range cases {
		got := crc(0x00, data)
		// crc() folds in a command byte and length prefix, so compare it
		// against the reference computed the same way rather than a bare
		// crc32.ChecksumIEEE(data).
		want := crc32.ChecksumIEEE(append([]byte{0x00, byte(len(data)), 0, 0, 0}, data...))
		if got != want {
			t.Errorf("crc(%x) = %x, want %x", data, got, want)
		}
	}
	if crc32.ChecksumIEEE(nil) != 0 {
		t.Error("empty input should map to 0")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{Cmd: CmdProgress, Payload: []byte{0x25, 0x00, 0x03, 0x00, 0x00, 0x00}}
	encoded := f.Encode()

	got, consumed, err := Decode(encoded[2:])
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(encoded)-2 {
		t.Errorf("consumed %d, want %d", consumed, len(encoded)-2)
	}
	if got.Cmd != f.Cmd {
		t.Errorf("cmd = %x, want %x", got.Cmd, f.Cmd)
	}
	if string(got.Payload) != string(f.Payload) {
		t.Errorf("payload = %x, want %x", got.Payload, f.Payload)
	}
}

func TestSingleBitFlipRejected(t *testing.T) {
	f := Frame{Cmd: CmdReadyForData, Payload: []byte("hello")}
	encoded := f.Encode()

	for i := 2; i < len(encoded); i++ {
		corrupt := append([]byte(nil), encoded...)
		corrupt[i] ^= 0x01
		_, _, err := Decode(corrupt[2:])
		if err != ErrCRCMismatch {
			t.Errorf("byte %d: expected CRC mismatch, got %v", i, err)
		}
	}
}

func TestReaderResyncsAfterCorruptFrame(t *testing.T) {
	good1 := Frame{Cmd: CmdProgress, Payload: []byte{1}}.Encode()
	bad := Frame{Cmd: CmdProgress, Payload: []byte{2}}.Encode()
	bad[len(bad)-1] ^= 0xFF // corrupt the CRC
	good2 := Frame{Cmd: CmdProgress, Payload: []byte{3}}.Encode()

	stream := append(append(append([]byte{}, good1...), bad...), good2...)
	r := NewReader(&byteReaderNoErr{data: stream})

	f1, err := r.ReadFrame()
	if err != nil || f1.Payload[0] != 1 {
		t.Fatalf("first frame: %v %v", f1, err)
	}
	f2, err := r.ReadFrame()
	if err != nil || f2.Payload[0] != 3 {
		t.Fatalf("second frame after resync: %v %v", f2, err)
	}
}

// byteReaderNoErr serves data once then returns io.EOF, satisfying
// io.Reader for Reader tests.
type byteReaderNoErr struct {
	data []byte
	pos  int
}

func (b *byteReaderNoErr) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
