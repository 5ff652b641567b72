package modbus

import (
	"errors"
	"testing"
)

func TestIsStandardErrorCode(t *testing.T) {
	if !IsStandardErrorCode(IllegalFunction) {
		t.Fatal("IllegalFunction is a standard code")
	}
	if IsStandardErrorCode(InvalidCRC) {
		t.Fatal("InvalidCRC is a local condition, not a standard code")
	}
}

func TestModbusErrorIs(t *testing.T) {
	a := NewModbusError(Timeout)
	b := NewModbusError(Timeout)
	if !errors.Is(a, b) {
		t.Fatal("two Timeout errors should compare equal via errors.Is")
	}
	c := NewModbusError(InvalidCRC)
	if errors.Is(a, c) {
		t.Fatal("Timeout and InvalidCRC should not compare equal")
	}
}

func TestExceptionErrorMessage(t *testing.T) {
	err := NewExceptionError(0x11, ReadAnalogInputRegisters, IllegalDataAddress)
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a non-empty error message")
	}
}
