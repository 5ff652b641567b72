package modbus

// Response is a successful reply to a Request: the echoed slave ID and
// function code, the address the request targeted (for write functions),
// and the values carried back (for read functions and, for symmetry,
// left empty for WriteMultiple since the wire format does not echo them).
type Response struct {
	SlaveID  byte
	Function FunctionCode
	Address  uint16
	Quantity uint16
	Values   []Cell
}

// ToRaw encodes the response PDU, CRC not included.
func (r *Response) ToRaw() ([]byte, error) {
	class, ok := r.Function.Class()
	if !ok {
		return nil, NewModbusError(InvalidByteOrder)
	}
	kind, _ := r.Function.RegisterKind()

	switch class {
	case Read:
		var byteCount int
		if kind == CoilKind {
			byteCount = (len(r.Values) + 7) / 8
		} else {
			byteCount = 2 * len(r.Values)
		}
		if byteCount > 255 {
			return nil, NewModbusError(NumberOfRegistersInvalid)
		}
		buf := []byte{r.SlaveID, byte(r.Function), byte(byteCount)}
		if kind == CoilKind {
			packed := make([]byte, byteCount)
			for i, v := range r.Values {
				if v.AsCoil() {
					packed[i/8] |= 1 << uint(i%8)
				}
			}
			buf = append(buf, packed...)
		} else {
			for _, v := range r.Values {
				buf = pushU16(buf, v.AsRegister())
			}
		}
		return buf, nil

	case WriteSingle:
		buf := []byte{r.SlaveID, byte(r.Function)}
		buf = pushU16(buf, r.Address)
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
		buf := []byte{r.SlaveID, byte(r.Function)}
		buf = pushU16(buf, r.Address)
		buf = pushU16(buf, r.Quantity)
		return buf, nil
	}
	return nil, NewModbusError(InvalidByteOrder)
}

// FromRawResponse parses a response PDU with no CRC trailer, following the same
// per-function branches as the codec's request counterpart.
func FromRawResponse(buf []byte) (*Response, error) {
	if len(buf) < 3 {
		return nil, NewModbusError(InvalidByteOrder)
	}
	function := FunctionCode(buf[1])
	class, ok := function.Class()
	if !ok {
		return nil, NewModbusError(InvalidByteOrder)
	}
	kind, _ := function.RegisterKind()
	resp := &Response{SlaveID: buf[0], Function: function}

	switch class {
	case Read:
		byteCount := int(buf[2])
		if len(buf) < 3+byteCount {
			return nil, NewModbusError(InvalidByteOrder)
		}
		payload := buf[3 : 3+byteCount]
		if kind == CoilKind {
			count := byteCount * 8
			values := make([]Cell, count)
			for i := range values {
				values[i] = NewCoil(payload[i/8]&(1<<uint(i%8)) != 0)
			}
			resp.Values = values
			resp.Quantity = uint16(count)
		} else {
			if byteCount%2 != 0 {
				return nil, NewModbusError(InvalidByteOrder)
			}
			count := byteCount / 2
			values := make([]Cell, count)
			for i := range values {
				values[i] = NewRegister(bigEndianU16(payload[2*i : 2*i+2]))
			}
			resp.Values = values
			resp.Quantity = uint16(count)
		}
		return resp, nil

	case WriteSingle:
		if len(buf) < 6 {
			return nil, NewModbusError(InvalidByteOrder)
		}
		resp.Address = bigEndianU16(buf[2:4])
		resp.Quantity = 1
		if kind == CoilKind {
			// The standard requires 0xFF00/0x0000 but the original
			// implementation tolerates any high byte of 0xFF as "on".
			resp.Values = []Cell{NewCoil(buf[4] == 0xFF)}
		} else {
			resp.Values = []Cell{NewRegister(bigEndianU16(buf[4:6]))}
		}
		return resp, nil

	case WriteMultiple:
		if len(buf) < 6 {
			return nil, NewModbusError(InvalidByteOrder)
		}
		resp.Address = bigEndianU16(buf[2:4])
		resp.Quantity = bigEndianU16(buf[4:6])
		return resp, nil
	}
	return nil, NewModbusError(InvalidByteOrder)
}

// FromRawResponseCRC parses a response frame including its trailing CRC, verifying
// it before decoding the PDU.
func FromRawResponseCRC(buf []byte) (*Response, error) {
	if len(buf) < 2 {
		return nil, NewModbusError(InvalidByteOrder)
	}
	if !verifyCRC(buf) {
		return nil, NewModbusError(InvalidCRC)
	}
	return FromRawResponse(buf[:len(buf)-2])
}
