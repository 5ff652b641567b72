package modbus

import (
	"errors"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrFlowControlUnsupported is returned whenever a caller asks for a flow
// control mode other than FlowControlNone: go.bug.st/serial's Mode has no
// field for it, so there is no OS call to make on its behalf.
var ErrFlowControlUnsupported = errors.New("modbus: flow control not supported by the underlying serial driver")

// Parity mirrors go.bug.st/serial's parity settings under this package's
// own name, so callers configuring a Connection never import the transport
// library directly.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// StopBits mirrors go.bug.st/serial's stop-bit settings.
type StopBits int

const (
	OneStopBit StopBits = iota
	OnePointFiveStopBits
	TwoStopBits
)

// FlowControl identifies a line flow-control mode. go.bug.st/serial's Mode
// has no flow-control field, so only FlowControlNone is actually
// satisfiable; any other value is reported, not silently ignored.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
	FlowControlSoftware
)

// SerialConfig holds the line settings applied when a SerialPort is opened.
type SerialConfig struct {
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
}

// DefaultSerialConfig returns the line settings used when a connection does
// not override them: 115200 baud, 8 data bits, no parity, one stop bit, no
// flow control.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{BaudRate: 115200, DataBits: 8, Parity: ParityNone, StopBits: OneStopBit, FlowControl: FlowControlNone}
}

func (c SerialConfig) toMode() *serial.Mode {
	mode := &serial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}
	switch c.Parity {
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	switch c.StopBits {
	case OnePointFiveStopBits:
		mode.StopBits = serial.OnePointFiveStopBits
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}
	return mode
}

// ingestReadTimeout bounds each single-byte read the background goroutine
// issues against the underlying port, so Close can observe the stop signal
// promptly instead of blocking forever on a port with no traffic.
const ingestReadTimeout = 50 * time.Millisecond

// SerialPort wraps an OS serial port with a background ingest goroutine that
// continuously reads single bytes into a bounded ring buffer, decoupling the
// pace of frame arrival from the pace at which callers ask to read. Read and
// ReadLine block under a deadline until enough bytes (or a line) accumulate.
type SerialPort struct {
	port   serial.Port
	cfg    SerialConfig
	mu     sync.Mutex
	cond   *sync.Cond
	ring   *ringBuffer
	want   int
	wantLn bool
	isOpen bool
	stop   chan struct{}
	done   chan struct{}
}

// OpenSerialPort opens path with cfg's line settings and starts its ingest
// goroutine.
func OpenSerialPort(path string, cfg SerialConfig) (*SerialPort, error) {
	if cfg.FlowControl != FlowControlNone {
		return nil, ErrFlowControlUnsupported
	}
	port, err := serial.Open(path, cfg.toMode())
	if err != nil {
		return nil, err
	}
	sp := &SerialPort{
		port:   port,
		cfg:    cfg,
		ring:   newRingBuffer(defaultRingCapacity),
		isOpen: true,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	sp.cond = sync.NewCond(&sp.mu)
	if err := port.SetReadTimeout(ingestReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	go sp.ingest()
	return sp, nil
}

// IsOpen reports whether the port has been opened and not yet closed.
func (sp *SerialPort) IsOpen() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.isOpen
}

// ingest is the single-byte background reader, the Go-goroutine counterpart
// of an async_read_some callback chain: read one byte, buffer it, wake any
// waiter whose condition is now satisfied, repeat until stopped. A read
// error from the port also ends ingestion; that error is not reported, and
// later reads return only bytes that were already buffered.
func (sp *SerialPort) ingest() {
	defer close(sp.done)
	one := make([]byte, 1)
	for {
		select {
		case <-sp.stop:
			return
		default:
		}
		n, err := sp.port.Read(one)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		sp.mu.Lock()
		sp.ring.push(one[0])
		wake := false
		if sp.wantLn {
			if one[0] == '\n' {
				wake = true
			}
		} else if sp.want > 0 && sp.ring.len() >= sp.want {
			wake = true
		}
		if wake {
			sp.cond.Signal()
		}
		sp.mu.Unlock()
	}
}

// Read blocks until length bytes are available or deadline passes, copying
// as many as it has into buf and returning that count. A zero-valued
// deadline means no deadline.
func (sp *SerialPort) Read(buf []byte, deadline time.Time) int {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	length := len(buf)
	sp.want = length
	sp.wantLn = false
	defer func() { sp.want = 0 }()

	total := 0
	for total < length {
		if n := sp.ring.drain(buf[total:length]); n > 0 {
			total += n
			if total >= length {
				break
			}
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		sp.waitUntil(deadline)
	}
	return total
}

// ReadLine blocks until a newline is read, size bytes have been copied, or
// deadline passes, copying into buf (including the newline, if found) and
// returning the count copied.
func (sp *SerialPort) ReadLine(buf []byte, deadline time.Time) int {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	size := len(buf)
	sp.want = 0
	sp.wantLn = true
	defer func() { sp.wantLn = false }()

	total := 0
	for total < size {
		if idx := sp.ring.indexOf('\n'); idx >= 0 {
			n := idx + 1
			if n > size-total {
				n = size - total
			}
			total += sp.ring.drain(buf[total : total+n])
			break
		}
		if n := sp.ring.len(); n > 0 && n >= size-total {
			total += sp.ring.drain(buf[total:size])
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		sp.waitUntil(deadline)
	}
	return total
}

// waitUntil waits on the condition variable until signaled or deadline
// passes. Callers must hold sp.mu.
func (sp *SerialPort) waitUntil(deadline time.Time) {
	if deadline.IsZero() {
		sp.cond.Wait()
		return
	}
	timer := time.AfterFunc(time.Until(deadline), func() {
		sp.mu.Lock()
		sp.cond.Broadcast()
		sp.mu.Unlock()
	})
	defer timer.Stop()
	sp.cond.Wait()
}

// ClearInputs discards any bytes currently buffered.
func (sp *SerialPort) ClearInputs() {
	sp.mu.Lock()
	sp.ring.clear()
	sp.mu.Unlock()
}

// Write writes buf to the underlying port.
func (sp *SerialPort) Write(buf []byte) (int, error) {
	return sp.port.Write(buf)
}

// Close stops the ingest goroutine and closes the underlying port.
func (sp *SerialPort) Close() error {
	close(sp.stop)
	err := sp.port.Close()
	<-sp.done
	sp.mu.Lock()
	sp.isOpen = false
	sp.mu.Unlock()
	return err
}

// SetBaudRate reconfigures the baud rate on an open port, leaving its other
// line settings untouched.
func (sp *SerialPort) SetBaudRate(baud int) error {
	sp.cfg.BaudRate = baud
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetDataBits reconfigures the data bits (5-8) on an open port, leaving its
// other line settings untouched.
func (sp *SerialPort) SetDataBits(bits int) error {
	sp.cfg.DataBits = bits
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetStopBits reconfigures the stop bits on an open port, leaving its other
// line settings untouched.
func (sp *SerialPort) SetStopBits(sb StopBits) error {
	sp.cfg.StopBits = sb
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetFlowControl reconfigures flow control. Only FlowControlNone is
// actually supported; any other value returns ErrFlowControlUnsupported
// rather than silently doing nothing.
func (sp *SerialPort) SetFlowControl(fc FlowControl) error {
	if fc != FlowControlNone {
		return ErrFlowControlUnsupported
	}
	sp.cfg.FlowControl = fc
	return nil
}

// DisableParity turns off parity checking on an open port.
func (sp *SerialPort) DisableParity() error {
	sp.cfg.Parity = ParityNone
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetEvenParity enables even parity on an open port.
func (sp *SerialPort) SetEvenParity() error {
	sp.cfg.Parity = ParityEven
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetOddParity enables odd parity on an open port.
func (sp *SerialPort) SetOddParity() error {
	sp.cfg.Parity = ParityOdd
	return sp.port.SetMode(sp.cfg.toMode())
}

// SetTwoStopBits toggles between one and two stop bits on an open port. It
// is a narrower convenience wrapper around SetStopBits, kept for parity
// with the Connection-level API.
func (sp *SerialPort) SetTwoStopBits(enabled bool) error {
	if enabled {
		return sp.SetStopBits(TwoStopBits)
	}
	return sp.SetStopBits(OneStopBit)
}
