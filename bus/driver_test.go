package bus

import "testing"

func TestReadIDSentinelOnNoResponse(t *testing.T) {
	sim := NewSim(2048, 64, 64, 16)
	sim.readyNow = false
	d := New(sim.Control(), sim)

	id, err := d.ReadID()
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range id {
		if b != 0xFF {
			t.Errorf("expected all-0xFF sentinel, got %x", id)
			break
		}
	}
}

func TestReadIDFromSim(t *testing.T) {
	sim := NewSim(2048, 64, 64, 16)
	d := New(sim.Control(), sim)

	id, err := d.ReadID()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xEC, 0xF1, 0x00, 0x95, 0x40}
	if len(id) < len(want) {
		t.Fatalf("short id: %x", id)
	}
	for i, b := range want {
		if id[i] != b {
			t.Errorf("id[%d] = %x, want %x", i, id[i], b)
		}
	}
}

func TestCommandAddressDataRoundTrip(t *testing.T) {
	sim := NewSim(64, 0, 2, 1)
	d := New(sim.Control(), sim)

	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}

	// Program page 0 with a known pattern.
	if err := d.SendCommand(0x80); err != nil {
		t.Fatal(err)
	}
	if err := d.SendAddress(0, 5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64; i++ {
		if err := d.WriteData(byte(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.SendCommand(0x10); err != nil {
		t.Fatal(err)
	}
	ready, err := d.WaitReady(ProgramTimeout)
	if err != nil || !ready {
		t.Fatalf("program not ready: %v %v", ready, err)
	}

	// Read it back.
	if err := d.SendCommand(0x00); err != nil {
		t.Fatal(err)
	}
	if err := d.SendAddress(0, 5); err != nil {
		t.Fatal(err)
	}
	if err := d.SendCommand(0x30); err != nil {
		t.Fatal(err)
	}
	ready, err = d.WaitReady(ProgramTimeout)
	if err != nil || !ready {
		t.Fatalf("read not ready: %v %v", ready, err)
	}
	for i := 0; i < 64; i++ {
		b, err := d.ReadData()
		if err != nil {
			t.Fatal(err)
		}
		if b != byte(i) {
			t.Errorf("byte %d = %x, want %x", i, b, i)
		}
	}
}
