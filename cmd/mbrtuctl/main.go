// Command mbrtuctl is a small interactive-free client for exercising a
// Modbus RTU slave from the command line: list ports, read registers or
// coils, or write a single coil.
package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/edgerelay/modbus-rtu"
	"github.com/edgerelay/modbus-rtu/internal/config"
)

var log = logrus.New()

func main() {
	var (
		configPath = pflag.String("config", "", "path to a YAML connection profile")
		listPorts  = pflag.Bool("list", false, "list available serial ports and exit")
		port       = pflag.String("port", "", "serial port path, overrides the config file")
		baud       = pflag.Int("baud", 0, "baud rate, overrides the config file")
		slaveID    = pflag.Int("slave", 0, "slave ID, overrides the config file")
		function   = pflag.String("func", "read-holding", "read-holding|read-input|read-coils|write-coil")
		address    = pflag.Uint16("address", 0, "starting register or coil address")
		quantity   = pflag.Uint16("quantity", 1, "number of registers or coils to read")
		coilValue  = pflag.Bool("value", false, "value to write for write-coil")
		verbose    = pflag.Bool("verbose", false, "enable debug logging")
	)
	pflag.Parse()

	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *listPorts {
		ports, err := modbus.ListPorts()
		if err != nil {
			log.Fatalf("list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Printf("%s\tusb=%v\tvid=%s\tpid=%s\n", p.Name, p.IsUSB, p.VID, p.PID)
		}
		return
	}

	profile, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *port != "" {
		profile.Port = *port
	}
	if *baud != 0 {
		profile.BaudRate = *baud
	}
	if *slaveID != 0 {
		profile.SlaveID = *slaveID
	}
	if profile.Port == "" {
		log.Fatal("no serial port given: pass --port or set it in the config file")
	}

	conn, err := modbus.Connect(profile.Port)
	if err != nil {
		log.Fatalf("connect %s: %v", profile.Port, err)
	}
	defer conn.Close()
	if profile.BaudRate != 0 {
		if err := conn.SetBaudRate(profile.BaudRate); err != nil {
			log.Fatalf("set baud rate: %v", err)
		}
	}
	if profile.DataBits != 0 {
		if err := conn.SetDataBits(profile.DataBits); err != nil {
			log.Fatalf("set data bits: %v", err)
		}
	}
	switch profile.Parity {
	case "", "none":
		if err := conn.DisableParity(); err != nil {
			log.Fatalf("set parity: %v", err)
		}
	case "even":
		if err := conn.SetEvenParity(); err != nil {
			log.Fatalf("set parity: %v", err)
		}
	case "odd":
		if err := conn.SetOddParity(); err != nil {
			log.Fatalf("set parity: %v", err)
		}
	default:
		log.Fatalf("unknown parity %q: want none, even or odd", profile.Parity)
	}
	switch profile.StopBits {
	case 0, 1:
		if err := conn.SetTwoStopBits(false); err != nil {
			log.Fatalf("set stop bits: %v", err)
		}
	case 2:
		if err := conn.SetTwoStopBits(true); err != nil {
			log.Fatalf("set stop bits: %v", err)
		}
	default:
		log.Fatalf("unsupported stop bits %d: want 1 or 2", profile.StopBits)
	}
	switch profile.FlowControl {
	case "", "none":
		// already the connection's default; nothing to do.
	case "hardware":
		if err := conn.SetFlowControl(modbus.FlowControlHardware); err != nil {
			log.Fatalf("set flow control: %v", err)
		}
	case "software":
		if err := conn.SetFlowControl(modbus.FlowControlSoftware); err != nil {
			log.Fatalf("set flow control: %v", err)
		}
	default:
		log.Fatalf("unknown flow control %q: want none, hardware or software", profile.FlowControl)
	}
	conn.SetTimeout(time.Duration(profile.TimeoutMs) * time.Millisecond)

	slave := byte(profile.SlaveID)
	if err := run(conn, slave, *function, *address, *quantity, *coilValue); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(conn *modbus.Connection, slave byte, function string, address, quantity uint16, coilValue bool) error {
	switch function {
	case "read-holding":
		return readRegisters(conn, slave, modbus.ReadAnalogOutputHoldingRegisters, address, quantity)
	case "read-input":
		return readRegisters(conn, slave, modbus.ReadAnalogInputRegisters, address, quantity)
	case "read-coils":
		return readCoils(conn, slave, address, quantity)
	case "write-coil":
		return writeCoil(conn, slave, address, coilValue)
	default:
		return fmt.Errorf("unknown function %q", function)
	}
}

func readRegisters(conn *modbus.Connection, slave byte, fc modbus.FunctionCode, address, quantity uint16) error {
	req, err := modbus.NewReadRequest(slave, fc, address, quantity)
	if err != nil {
		return err
	}
	if _, err := conn.SendRequest(req); err != nil {
		return err
	}
	resp, err := conn.AwaitResponse()
	if err != nil {
		return err
	}
	for i, v := range resp.Values {
		fmt.Printf("[%d] %s\n", int(address)+i, v)
	}
	return nil
}

func readCoils(conn *modbus.Connection, slave byte, address, quantity uint16) error {
	req, err := modbus.NewReadRequest(slave, modbus.ReadDiscreteOutputCoils, address, quantity)
	if err != nil {
		return err
	}
	if _, err := conn.SendRequest(req); err != nil {
		return err
	}
	resp, err := conn.AwaitResponse()
	if err != nil {
		return err
	}
	for i := 0; i < int(quantity) && i < len(resp.Values); i++ {
		fmt.Printf("[%d] %s\n", int(address)+i, resp.Values[i])
	}
	return nil
}

func writeCoil(conn *modbus.Connection, slave byte, address uint16, value bool) error {
	req, err := modbus.NewWriteSingleRequest(slave, modbus.WriteSingleDiscreteOutputCoil, address, modbus.NewCoil(value))
	if err != nil {
		return err
	}
	if _, err := conn.SendRequest(req); err != nil {
		return err
	}
	resp, err := conn.AwaitResponse()
	if err != nil {
		return err
	}
	fmt.Printf("wrote coil [%d] = %s\n", address, resp.Values[0])
	return nil
}
