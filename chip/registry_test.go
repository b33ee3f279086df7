package chip

import "testing"

func TestRegistryInvariants(t *testing.T) {
	for _, d := range List() {
		if len(d.IDPrefix) < 2 {
			t.Errorf("%s: id_prefix too short: %d", d.FullName(), len(d.IDPrefix))
		}
		got := d.TotalSize()
		want := int64(d.PageSize) * int64(d.PagesPerBlock) * int64(d.BlockCount)
		if got != want {
			t.Errorf("%s: total_size = %d, want %d", d.FullName(), got, want)
		}
	}
}

func TestLookupSamsungK9F1G08U0A(t *testing.T) {
	d, ok := Lookup([]byte{0xEC, 0xF1, 0x00, 0x95, 0x40})
	if !ok {
		t.Fatal("expected a match")
	}
	if d.FullName() != "Samsung K9F1G08U0A" {
		t.Errorf("got %q", d.FullName())
	}
	if d.PageSize != 2048 || d.SpareSize() != 64 || d.PagesPerBlock != 128 || d.BlockCount != 2048 {
		t.Errorf("unexpected geometry: %+v", d)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup([]byte{0xFF, 0xFF, 0xFF, 0xFF}); ok {
		t.Error("expected no match for unknown id")
	}
}

func TestSpareSizeDerivation(t *testing.T) {
	d, err := NewDescriptor("Test", "P512", []byte{0x01, 0x02}, 512, 0, 32, 1024, Timings{})
	if err != nil {
		t.Fatal(err)
	}
	if d.SpareSize() != 16 {
		t.Errorf("512B page: spare = %d, want 16", d.SpareSize())
	}

	d, err = NewDescriptor("Test", "P2048", []byte{0x01, 0x02}, 2048, 0, 64, 1024, Timings{})
	if err != nil {
		t.Fatal(err)
	}
	if d.SpareSize() != 64 {
		t.Errorf("2048B page: spare = %d, want 64", d.SpareSize())
	}

	d, err = NewDescriptor("Test", "P4096", []byte{0x01, 0x02}, 4096, 0, 128, 1024, Timings{})
	if err != nil {
		t.Fatal(err)
	}
	if d.SpareSize() != 128 {
		t.Errorf("4096B page: spare = %d, want 128", d.SpareSize())
	}
}

func TestAddressCycles(t *testing.T) {
	small, _ := NewDescriptor("T", "small", []byte{0x01, 0x02}, 2048, 64, 64, 1, Timings{})
	if small.AddressCycles() != 4 {
		t.Errorf("small chip: address cycles = %d, want 4", small.AddressCycles())
	}

	big, _ := NewDescriptor("T", "big", []byte{0x01, 0x02}, 2048, 64, 64, 4096, Timings{})
	if big.AddressCycles() != 5 {
		t.Errorf("big chip: address cycles = %d, want 5", big.AddressCycles())
	}
}

func TestByIndexMatchesList(t *testing.T) {
	list := List()
	for i, d := range list {
		got, ok := ByIndex(i)
		if !ok || got.FullName() != d.FullName() {
			t.Errorf("ByIndex(%d) = %+v, want %+v", i, got, d)
		}
	}
	if _, ok := ByIndex(len(list)); ok {
		t.Error("expected ByIndex out of range to fail")
	}
}
