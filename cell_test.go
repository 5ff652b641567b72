package modbus

import "testing"

func TestCellCoilRoundTrip(t *testing.T) {
	c := NewCoil(true)
	if !c.IsCoil() {
		t.Fatal("expected coil-tagged cell")
	}
	if !c.AsCoil() {
		t.Fatal("expected true")
	}
	if c.String() != "true" {
		t.Fatalf("String() = %q, want %q", c.String(), "true")
	}
}

func TestCellRegisterRoundTrip(t *testing.T) {
	c := NewRegister(0x1234)
	if c.IsCoil() {
		t.Fatal("expected register-tagged cell")
	}
	if c.AsRegister() != 0x1234 {
		t.Fatal("expected 0x1234")
	}
	if c.String() != "0x1234" {
		t.Fatalf("String() = %q, want %q", c.String(), "0x1234")
	}
}

func TestCellWrongVariantPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading register as coil")
		}
	}()
	NewRegister(1).AsCoil()
}

func TestCellWrongVariantPanicsOtherWay(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading coil as register")
		}
	}()
	NewCoil(true).AsRegister()
}
