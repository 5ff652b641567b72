package modbus

import (
	"bytes"
	"testing"
)

func TestReadRegistersResponseRoundTrip(t *testing.T) {
	resp := &Response{
		SlaveID:  0x01,
		Function: ReadAnalogInputRegisters,
		Values:   []Cell{NewRegister(0x000A), NewRegister(0x000B)},
	}
	raw, err := resp.ToRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 0x04, 0x04, 0x00, 0x0A, 0x00, 0x0B}
	if !bytes.Equal(raw, want) {
		t.Fatalf("ToRaw() = % X, want % X", raw, want)
	}
	parsed, err := FromRawResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Values) != 2 || parsed.Values[0].AsRegister() != 0x000A || parsed.Values[1].AsRegister() != 0x000B {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
}

func TestReadCoilsResponseParse(t *testing.T) {
	raw := []byte{0x01, 0x01, 0x01, 0x05}
	parsed, err := FromRawResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Values) != 8 {
		t.Fatalf("byte_count=1 should decode to 8 coils, got %d", len(parsed.Values))
	}
	want := []bool{true, false, true, false, false, false, false, false}
	for i, w := range want {
		if parsed.Values[i].AsCoil() != w {
			t.Fatalf("coil %d = %v, want %v", i, parsed.Values[i].AsCoil(), w)
		}
	}
}

func TestWriteSingleCoilResponseTolerantParse(t *testing.T) {
	// byte4 == 0xFF means "on" whatever byte5 holds, matching the tolerant
	// reading of the wire value rather than requiring an exact 0xFF00.
	raw := []byte{0x11, 0x05, 0x00, 0xAC, 0xFF, 0x12}
	parsed, err := FromRawResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Values[0].AsCoil() {
		t.Fatal("expected coil to decode as true")
	}
}

func TestWriteMultipleResponseEchoesAddressAndQuantity(t *testing.T) {
	raw := []byte{0x11, 0x10, 0x00, 0x01, 0x00, 0x02}
	parsed, err := FromRawResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Address != 0x0001 || parsed.Quantity != 0x0002 {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
	if len(parsed.Values) != 0 {
		t.Fatal("WriteMultiple response should carry no values")
	}
}

func TestResponseFromRawCRCDetectsCorruption(t *testing.T) {
	resp := &Response{SlaveID: 1, Function: ReadAnalogInputRegisters, Values: []Cell{NewRegister(0xFFFF)}}
	raw, _ := resp.ToRaw()
	framed := pushCRC(raw)
	if _, err := FromRawResponseCRC(framed); err != nil {
		t.Fatal(err)
	}
	framed[len(framed)-1] ^= 0xFF
	if _, err := FromRawResponseCRC(framed); err == nil {
		t.Fatal("expected a CRC error on corrupted trailer")
	}
}

func TestResponseTooShortIsInvalidByteOrder(t *testing.T) {
	if _, err := FromRawResponse([]byte{0x01, 0x04}); err == nil {
		t.Fatal("expected an error for a too-short response")
	}
}
