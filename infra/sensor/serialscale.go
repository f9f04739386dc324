package sensor

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/petbuddy/dispenser/core/model"
	coresensor "github.com/petbuddy/dispenser/core/sensor"
	"github.com/petbuddy/dispenser/infra/logger"
)

// SerialScaleConfig holds the serial port settings for a line-oriented
// scale bridge. The bridge prints one raw load cell value per line.
type SerialScaleConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
}

// SetDefaults applies the default port settings.
func (c *SerialScaleConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "/dev/ttyUSB0"
	}
	if c.BaudRate <= 0 {
		c.BaudRate = 115200
	}
}

// SerialScale reads raw load cell values from a microcontroller bridge
// over a serial port.
type SerialScale struct {
	port   serial.Port
	reader *bufio.Reader
	log    logger.Logger
}

// NewSerialScale opens the serial port.
func NewSerialScale(cfg SerialScaleConfig) (*SerialScale, error) {
	cfg.SetDefaults()
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	s := &SerialScale{
		port:   port,
		reader: bufio.NewReader(port),
		log:    logger.New("serial_scale"),
	}
	s.log.Infof("serial scale opened on %s at %d baud", cfg.Port, cfg.BaudRate)
	return s, nil
}

func (s *SerialScale) Name() string { return "SerialScale" }

// ReadRaw reads the next complete line and parses it as a raw value.
// Partial or garbled lines are rejected rather than guessed at.
func (s *SerialScale) ReadRaw() (int32, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("read scale line: %w", err)
	}
	return parseScaleLine(line)
}

func parseScaleLine(line string) (int32, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("empty scale line")
	}
	raw, err := strconv.ParseInt(line, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse scale line %q: %w", line, err)
	}
	return int32(raw), nil
}

// ReadWeight converts a raw sample using the given calibration.
func (s *SerialScale) ReadWeight(cal model.WeightCalibration) (model.WeightReading, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return model.WeightReading{}, err
	}
	return coresensor.Convert(raw, cal), nil
}

// Close releases the serial port.
func (s *SerialScale) Close() error {
	return s.port.Close()
}
