package modbus

// Request is a Modbus PDU addressed to a single slave: a function code, the
// starting address and quantity it operates on, and - for write functions -
// the values being written. Requests are immutable once constructed except
// via reassignment.
type Request struct {
	SlaveID  byte
	Function FunctionCode
	Address  uint16
	Quantity uint16
	Values   []Cell
}

// NewReadRequest builds a Read request. quantity must be 1-2000 for coil
// functions and 1-125 for register functions.
func NewReadRequest(slaveID byte, function FunctionCode, address, quantity uint16) (*Request, error) {
	class, ok := function.Class()
	if !ok || class != Read {
		return nil, NewModbusError(InvalidByteOrder)
	}
	if err := checkReadQuantity(function, quantity); err != nil {
		return nil, err
	}
	return &Request{SlaveID: slaveID, Function: function, Address: address, Quantity: quantity}, nil
}

// NewWriteSingleRequest builds a WriteSingle request. value's tag must
// match function's register kind.
func NewWriteSingleRequest(slaveID byte, function FunctionCode, address uint16, value Cell) (*Request, error) {
	class, ok := function.Class()
	if !ok || class != WriteSingle {
		return nil, NewModbusError(InvalidByteOrder)
	}
	if err := checkCellKind(function, value); err != nil {
		return nil, err
	}
	return &Request{SlaveID: slaveID, Function: function, Address: address, Quantity: 1, Values: []Cell{value}}, nil
}

// NewWriteMultipleRequest builds a WriteMultiple request. Every value's tag
// must match function's register kind.
func NewWriteMultipleRequest(slaveID byte, function FunctionCode, address uint16, values []Cell) (*Request, error) {
	class, ok := function.Class()
	if !ok || class != WriteMultiple {
		return nil, NewModbusError(InvalidByteOrder)
	}
	for _, v := range values {
		if err := checkCellKind(function, v); err != nil {
			return nil, err
		}
	}
	return &Request{
		SlaveID:  slaveID,
		Function: function,
		Address:  address,
		Quantity: uint16(len(values)),
		Values:   values,
	}, nil
}

func checkReadQuantity(function FunctionCode, quantity uint16) error {
	kind, _ := function.RegisterKind()
	max := uint16(125)
	if kind == CoilKind {
		max = 2000
	}
	if quantity < 1 || quantity > max {
		return NewModbusError(NumberOfRegistersInvalid)
	}
	return nil
}

func checkCellKind(function FunctionCode, value Cell) error {
	kind, _ := function.RegisterKind()
	if (kind == CoilKind) != value.IsCoil() {
		return NewModbusError(InvalidByteOrder)
	}
	return nil
}

// ToRaw encodes the request PDU (slave ID through the last payload byte,
// CRC not included).
func (r *Request) ToRaw() ([]byte, error) {
	class, ok := r.Function.Class()
	if !ok {
		return nil, NewModbusError(InvalidByteOrder)
	}
	switch class {
	case Read:
		buf := []byte{r.SlaveID, byte(r.Function)}
		buf = pushU16(buf, r.Address)
		buf = pushU16(buf, r.Quantity)
		return buf, nil

	case WriteSingle:
		buf := []byte{r.SlaveID, byte(r.Function)}
		buf = pushU16(buf, r.Address)
		kind, _ := r.Function.RegisterKind()
		if kind == CoilKind {
			value := uint16(0x0000)
			if r.Values[0].AsCoil() {
				value = 0xFF00
			}
			buf = pushU16(buf, value)
		} else {
			buf = pushU16(buf, r.Values[0].AsRegister())
		}
		return buf, nil

	case WriteMultiple:
		kind, _ := r.Function.RegisterKind()
		buf := []byte{r.SlaveID, byte(r.Function)}
		buf = pushU16(buf, r.Address)
		buf = pushU16(buf, r.Quantity)
		if kind == CoilKind {
			byteCount := (int(r.Quantity) + 7) / 8
			if byteCount > 255 {
				return nil, NewModbusError(NumberOfRegistersInvalid)
			}
			buf = append(buf, byte(byteCount))
			packed := make([]byte, byteCount)
			for i, v := range r.Values {
				if v.AsCoil() {
					packed[i/8] |= 1 << uint(i%8)
				}
			}
			buf = append(buf, packed...)
		} else {
			byteCount := 2 * int(r.Quantity)
			if byteCount > 255 {
				return nil, NewModbusError(NumberOfRegistersInvalid)
			}
			buf = append(buf, byte(byteCount))
			for _, v := range r.Values {
				buf = pushU16(buf, v.AsRegister())
			}
		}
		return buf, nil
	}
	return nil, NewModbusError(InvalidByteOrder)
}

// FromRawRequest parses a request PDU with no CRC trailer.
func FromRawRequest(buf []byte) (*Request, error) {
	if len(buf) < 6 {
		return nil, NewModbusError(InvalidByteOrder)
	}
	function := FunctionCode(buf[1])
	class, ok := function.Class()
	if !ok {
		return nil, NewModbusError(InvalidByteOrder)
	}
	kind, _ := function.RegisterKind()
	req := &Request{SlaveID: buf[0], Function: function, Address: bigEndianU16(buf[2:4])}

	switch class {
	case Read:
		req.Quantity = bigEndianU16(buf[4:6])
		return req, nil

	case WriteSingle:
		req.Quantity = 1
		value := bigEndianU16(buf[4:6])
		if kind == CoilKind {
			req.Values = []Cell{NewCoil(value == 0xFF00)}
		} else {
			req.Values = []Cell{NewRegister(value)}
		}
		return req, nil

	case WriteMultiple:
		quantity := bigEndianU16(buf[4:6])
		if len(buf) < 7 {
			return nil, NewModbusError(InvalidByteOrder)
		}
		byteCount := int(buf[6])
		if len(buf) < 7+byteCount {
			return nil, NewModbusError(InvalidByteOrder)
		}
		payload := buf[7 : 7+byteCount]
		req.Quantity = quantity

		if kind == CoilKind {
			expected := (int(quantity) + 7) / 8
			if byteCount != expected {
				return nil, NewModbusError(InvalidByteOrder)
			}
			values := make([]Cell, quantity)
			for i := range values {
				values[i] = NewCoil(payload[i/8]&(1<<uint(i%8)) != 0)
			}
			req.Values = values
		} else {
			if byteCount != 2*int(quantity) {
				return nil, NewModbusError(InvalidByteOrder)
			}
			values := make([]Cell, quantity)
			for i := range values {
				values[i] = NewRegister(bigEndianU16(payload[2*i : 2*i+2]))
			}
			req.Values = values
		}
		return req, nil
	}
	return nil, NewModbusError(InvalidByteOrder)
}

// FromRawRequestCRC parses a request frame including its trailing CRC, verifying
// it before decoding the PDU.
func FromRawRequestCRC(buf []byte) (*Request, error) {
	if len(buf) < 2 {
		return nil, NewModbusError(InvalidByteOrder)
	}
	if !verifyCRC(buf) {
		return nil, NewModbusError(InvalidCRC)
	}
	return FromRawRequest(buf[:len(buf)-2])
}
