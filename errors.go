package modbus

import "fmt"

// ErrorCode is the unified error taxonomy surfaced across the codec and
// transport layers: the nine standard Modbus slave exception codes plus the
// local conditions the core itself can detect.
type ErrorCode byte

const (
	IllegalFunction                    ErrorCode = 0x01
	IllegalDataAddress                 ErrorCode = 0x02
	IllegalDataValue                   ErrorCode = 0x03
	SlaveDeviceFailure                 ErrorCode = 0x04
	Acknowledge                        ErrorCode = 0x05
	SlaveDeviceBusy                    ErrorCode = 0x06
	MemoryParityError                  ErrorCode = 0x08
	GatewayPathUnavailable             ErrorCode = 0x0A
	GatewayTargetDeviceFailedToRespond ErrorCode = 0x0B

	// Local conditions, never seen on the wire as a single byte.
	InvalidCRC                ErrorCode = 0xF0
	InvalidByteOrder          ErrorCode = 0xF1
	NumberOfRegistersInvalid  ErrorCode = 0xF2
	ConnectionClosed          ErrorCode = 0xF3
	Timeout                   ErrorCode = 0xF4
)

// IsStandardErrorCode reports whether code is one of the nine slave
// exception codes defined by the Modbus specification (0x01-0x0B).
func IsStandardErrorCode(code ErrorCode) bool {
	switch code {
	case IllegalFunction, IllegalDataAddress, IllegalDataValue, SlaveDeviceFailure,
		Acknowledge, SlaveDeviceBusy, MemoryParityError, GatewayPathUnavailable,
		GatewayTargetDeviceFailedToRespond:
		return true
	default:
		return false
	}
}

func (ec ErrorCode) message() string {
	switch ec {
	case IllegalFunction:
		return "illegal function"
	case IllegalDataAddress:
		return "illegal data address"
	case IllegalDataValue:
		return "illegal data value"
	case SlaveDeviceFailure:
		return "slave device failure"
	case Acknowledge:
		return "acknowledge"
	case SlaveDeviceBusy:
		return "slave device busy"
	case MemoryParityError:
		return "memory parity error"
	case GatewayPathUnavailable:
		return "gateway path unavailable"
	case GatewayTargetDeviceFailedToRespond:
		return "gateway target device failed to respond"
	case InvalidCRC:
		return "invalid CRC"
	case InvalidByteOrder:
		return "invalid byte order"
	case NumberOfRegistersInvalid:
		return "number of registers invalid"
	case ConnectionClosed:
		return "connection closed"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown error code 0x%02X", byte(ec))
	}
}

// ModbusError is the error type returned by the codec and by Connection's
// framing and await logic. For errors originating in a slave exception
// frame, SlaveID and Function additionally identify the device and function
// code that raised it. Errors from opening, configuring or writing to the OS
// serial port, ErrFlowControlUnsupported and ListPorts failures are returned
// as they are, not as a ModbusError.
type ModbusError struct {
	Code     ErrorCode
	SlaveID  byte
	Function FunctionCode
	hasSlave bool
}

// NewModbusError builds a ModbusError carrying only an error code, for
// codec/transport failures with no associated slave.
func NewModbusError(code ErrorCode) *ModbusError {
	return &ModbusError{Code: code}
}

// NewExceptionError builds a ModbusError for a slave exception frame.
func NewExceptionError(slaveID byte, function FunctionCode, code ErrorCode) *ModbusError {
	return &ModbusError{Code: code, SlaveID: slaveID, Function: function, hasSlave: true}
}

func (e *ModbusError) Error() string {
	if e.hasSlave {
		return fmt.Sprintf("modbus: slave %d, function %s: %s", e.SlaveID, e.Function, e.Code.message())
	}
	return "modbus: " + e.Code.message()
}

// Is reports whether err is a *ModbusError with the same Code, so that
// errors.Is(err, modbus.NewModbusError(modbus.Timeout)) works without
// comparing the slave/function fields.
func (e *ModbusError) Is(target error) bool {
	other, ok := target.(*ModbusError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}
