package modbus

import (
	"bytes"
	"testing"
)

func TestReadRequestToRaw(t *testing.T) {
	req, err := NewReadRequest(0x01, ReadAnalogInputRegisters, 0x0000, 0x000A)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := req.ToRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x0A}
	if !bytes.Equal(raw, want) {
		t.Fatalf("ToRaw() = % X, want % X", raw, want)
	}
}

func TestReadRequestQuantityBounds(t *testing.T) {
	if _, err := NewReadRequest(1, ReadAnalogInputRegisters, 0, 0); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	if _, err := NewReadRequest(1, ReadAnalogInputRegisters, 0, 126); err == nil {
		t.Fatal("expected error for register quantity above 125")
	}
	if _, err := NewReadRequest(1, ReadDiscreteOutputCoils, 0, 2000); err != nil {
		t.Fatalf("2000 coils should be valid: %v", err)
	}
	if _, err := NewReadRequest(1, ReadDiscreteOutputCoils, 0, 2001); err == nil {
		t.Fatal("expected error for coil quantity above 2000")
	}
}

func TestWriteSingleCoilRoundTrip(t *testing.T) {
	req, err := NewWriteSingleRequest(0x11, WriteSingleDiscreteOutputCoil, 0x00AC, NewCoil(true))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := req.ToRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x00}
	if !bytes.Equal(raw, want) {
		t.Fatalf("ToRaw() = % X, want % X", raw, want)
	}
	parsed, err := FromRawRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Values[0].AsCoil() {
		t.Fatal("expected the coil to decode as true")
	}
}

func TestWriteMultipleCoilsRoundTrip(t *testing.T) {
	values := []Cell{NewCoil(true), NewCoil(false), NewCoil(true), NewCoil(true), NewCoil(false),
		NewCoil(false), NewCoil(true), NewCoil(true), NewCoil(true), NewCoil(false)}
	req, err := NewWriteMultipleRequest(0x11, WriteMultipleDiscreteOutputCoils, 0x0013, values)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := req.ToRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x11, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01}
	if !bytes.Equal(raw, want) {
		t.Fatalf("ToRaw() = % X, want % X", raw, want)
	}
	parsed, err := FromRawRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Values) != len(values) {
		t.Fatalf("got %d values, want %d", len(parsed.Values), len(values))
	}
	for i, v := range values {
		if parsed.Values[i].AsCoil() != v.AsCoil() {
			t.Fatalf("value %d mismatch", i)
		}
	}
}

func TestWriteMultipleRegistersRoundTrip(t *testing.T) {
	values := []Cell{NewRegister(0x000A), NewRegister(0x0102)}
	req, err := NewWriteMultipleRequest(0x11, WriteMultipleAnalogOutputHoldingRegisters, 0x0001, values)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := req.ToRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x11, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}
	if !bytes.Equal(raw, want) {
		t.Fatalf("ToRaw() = % X, want % X", raw, want)
	}
	parsed, err := FromRawRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range values {
		if parsed.Values[i].AsRegister() != v.AsRegister() {
			t.Fatalf("value %d mismatch", i)
		}
	}
}

func TestRequestFromRawCRC(t *testing.T) {
	req, _ := NewReadRequest(0x01, ReadAnalogOutputHoldingRegisters, 0x0000, 0x000A)
	raw, _ := req.ToRaw()
	framed := pushCRC(raw)

	parsed, err := FromRawRequestCRC(framed)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Address != 0x0000 || parsed.Quantity != 0x000A {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}

	framed[len(framed)-1] ^= 0xFF
	if _, err := FromRawRequestCRC(framed); err == nil {
		t.Fatal("expected a CRC error on corrupted trailer")
	}
}

func TestRequestFromRawUnknownFunction(t *testing.T) {
	if _, err := FromRawRequest([]byte{0x01, 0x99, 0x00, 0x00, 0x00, 0x01}); err == nil {
		t.Fatal("expected an error for an unknown function code")
	}
}

func TestRequestMismatchedCellKindRejected(t *testing.T) {
	if _, err := NewWriteSingleRequest(1, WriteSingleDiscreteOutputCoil, 0, NewRegister(1)); err == nil {
		t.Fatal("expected an error writing a register value to a coil function")
	}
}
