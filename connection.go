package modbus

import "time"

// DefaultTimeout is the read deadline a Connection uses when none is given
// to its Await* methods.
const DefaultTimeout = 1000 * time.Millisecond

// maxRawMessageSize bounds a single raw read, comfortably larger than the
// longest legal RTU frame.
const maxRawMessageSize = 1024

// Connection is a framed RTU transport over one serial port: it appends and
// strips the CRC trailer on send, and on receive accumulates bytes across
// possibly-partial reads until a complete frame can be parsed or the
// deadline runs out.
type Connection struct {
	serial  *SerialPort
	timeout time.Duration
	logger  *Logger
}

// Connect opens path with the default line settings (115200 8-N-1, no flow
// control) and the default 1000ms timeout.
func Connect(path string) (*Connection, error) {
	sp, err := OpenSerialPort(path, DefaultSerialConfig())
	if err != nil {
		return nil, err
	}
	return &Connection{serial: sp, timeout: DefaultTimeout}, nil
}

// SetLogger attaches a diagnostic sink for frame send/receive/timeout/
// CRC-failure events, logged at Debug. A nil logger (the default) makes
// these calls no-ops; core behavior never depends on whether one is set.
func (c *Connection) SetLogger(logger *Logger) {
	c.logger = logger
}

// SetTimeout changes the deadline used by subsequent Await* calls.
func (c *Connection) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Timeout returns the deadline currently used by Await* calls.
func (c *Connection) Timeout() time.Duration {
	return c.timeout
}

// Close stops the connection's serial port.
func (c *Connection) Close() error {
	return c.serial.Close()
}

// ClearInput discards any bytes buffered but not yet consumed.
func (c *Connection) ClearInput() {
	c.serial.ClearInputs()
}

// DisableParity, SetEvenParity, SetOddParity, SetTwoStopBits, SetBaudRate,
// SetDataBits and SetFlowControl reconfigure the underlying line without
// reopening the port.
func (c *Connection) DisableParity() error             { return c.serial.DisableParity() }
func (c *Connection) SetEvenParity() error             { return c.serial.SetEvenParity() }
func (c *Connection) SetOddParity() error              { return c.serial.SetOddParity() }
func (c *Connection) SetTwoStopBits(b bool) error      { return c.serial.SetTwoStopBits(b) }
func (c *Connection) SetBaudRate(baud int) error       { return c.serial.SetBaudRate(baud) }
func (c *Connection) SetDataBits(bits int) error       { return c.serial.SetDataBits(bits) }
func (c *Connection) SetFlowControl(fc FlowControl) error { return c.serial.SetFlowControl(fc) }

// Send frames raw with a CRC trailer, writes it, and returns the full framed
// bytes actually written.
func (c *Connection) Send(raw []byte) ([]byte, error) {
	framed := pushCRC(append([]byte(nil), raw...))
	n, err := c.serial.Write(framed)
	if err != nil {
		c.logger.Debug("send failed: %v", err)
		return nil, err
	}
	if n != len(framed) {
		c.logger.Debug("short write: wrote %d of %d bytes", n, len(framed))
		return nil, NewModbusError(SlaveDeviceFailure)
	}
	c.logger.Debug("sent % X", framed)
	return framed, nil
}

// SendRequest encodes and sends req.
func (c *Connection) SendRequest(req *Request) ([]byte, error) {
	raw, err := req.ToRaw()
	if err != nil {
		return nil, err
	}
	return c.Send(raw)
}

// SendResponse encodes and sends resp.
func (c *Connection) SendResponse(resp *Response) ([]byte, error) {
	raw, err := resp.ToRaw()
	if err != nil {
		return nil, err
	}
	return c.Send(raw)
}

// SendException encodes and sends exc.
func (c *Connection) SendException(exc *Exception) ([]byte, error) {
	return c.Send(exc.ToRaw())
}

// AwaitRawMessage reads whatever arrives within the connection's timeout, up
// to maxRawMessageSize bytes, with no framing interpretation. Zero bytes
// read is reported as a Timeout error.
func (c *Connection) AwaitRawMessage() ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	buf := make([]byte, maxRawMessageSize)
	n := c.serial.Read(buf, deadline)
	if n == 0 {
		return nil, NewModbusError(Timeout)
	}
	return buf[:n], nil
}

// isRetryableFrameError reports whether err signals an incomplete frame
// that more accumulated bytes might still resolve, as opposed to a
// terminal failure that should abort the wait immediately.
func isRetryableFrameError(err error) bool {
	merr, ok := err.(*ModbusError)
	if !ok {
		return false
	}
	if IsStandardErrorCode(merr.Code) || merr.Code == Timeout || merr.Code == SlaveDeviceFailure {
		return false
	}
	return true
}

// AwaitResponse accumulates incoming bytes, checking first whether they
// form an exception frame and otherwise trying to parse a Response, until
// one parses, a terminal error occurs, or the connection's timeout runs
// out.
func (c *Connection) AwaitResponse() (*Response, error) {
	deadline := time.Now().Add(c.timeout)
	var data []byte
	for {
		chunk, err := c.awaitRawMessageUntil(deadline)
		if err != nil {
			c.logger.Debug("await response: %v", err)
			return nil, err
		}
		data = append(data, chunk...)

		if isExceptionFrame(data) {
			if exc, eerr := FromRawExceptionCRC(data); eerr == nil {
				c.logger.Debug("received exception: slave %d function %s code %s", exc.SlaveID, exc.Function, exc.Code)
				return nil, exc.AsError()
			} else if !isRetryableFrameError(eerr) {
				c.logger.Debug("exception frame rejected: %v", eerr)
				return nil, eerr
			}
		}

		resp, rerr := FromRawResponseCRC(data)
		if rerr == nil {
			c.logger.Debug("received % X", data)
			return resp, nil
		}
		if merr, ok := rerr.(*ModbusError); ok && merr.Code == InvalidCRC {
			c.logger.Debug("CRC failure on % X", data)
		}
		if !isRetryableFrameError(rerr) {
			return nil, rerr
		}
		if !time.Now().Before(deadline) {
			c.logger.Debug("await response timed out with %d bytes accumulated", len(data))
			return nil, NewModbusError(Timeout)
		}
	}
}

// AwaitRequest accumulates incoming bytes until a Request parses, a
// terminal error occurs, or the connection's timeout runs out. Unlike
// AwaitResponse it never sniffs for an exception frame, since requests are
// never exceptions.
func (c *Connection) AwaitRequest() (*Request, error) {
	deadline := time.Now().Add(c.timeout)
	var data []byte
	for {
		chunk, err := c.awaitRawMessageUntil(deadline)
		if err != nil {
			c.logger.Debug("await request: %v", err)
			return nil, err
		}
		data = append(data, chunk...)

		req, rerr := FromRawRequestCRC(data)
		if rerr == nil {
			c.logger.Debug("received % X", data)
			return req, nil
		}
		if merr, ok := rerr.(*ModbusError); ok && merr.Code == InvalidCRC {
			c.logger.Debug("CRC failure on % X", data)
		}
		if !isRetryableFrameError(rerr) {
			return nil, rerr
		}
		if !time.Now().Before(deadline) {
			c.logger.Debug("await request timed out with %d bytes accumulated", len(data))
			return nil, NewModbusError(Timeout)
		}
	}
}

func (c *Connection) awaitRawMessageUntil(deadline time.Time) ([]byte, error) {
	buf := make([]byte, maxRawMessageSize)
	n := c.serial.Read(buf, deadline)
	if n == 0 {
		return nil, NewModbusError(Timeout)
	}
	return buf[:n], nil
}
