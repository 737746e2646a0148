package display

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/koios/paperweather/pkg/models"
)

// Pins names the GPIO lines of the panel HAT.
type Pins struct {
	Reset string
	DC    string
	Busy  string
}

// DefaultPins is the Waveshare HAT wiring on a Raspberry Pi.
var DefaultPins = Pins{Reset: "GPIO17", DC: "GPIO25", Busy: "GPIO24"}

// Controller commands of the 7.5" black/red panel.
const (
	cmdPanelSetting     = 0x00
	cmdPowerSetting     = 0x01
	cmdPowerOff         = 0x02
	cmdPowerOn          = 0x04
	cmdDeepSleep        = 0x07
	cmdDataStart1       = 0x10
	cmdDisplayRefresh   = 0x12
	cmdDataStart2       = 0x13
	cmdDualSPI          = 0x15
	cmdVCOMInterval     = 0x50
	cmdTCONSetting      = 0x60
	cmdResolution       = 0x61
	cmdGetStatus        = 0x71
	deepSleepCheckCode  = 0xA5
	maxTransfer         = 4096
	busyPollInterval    = 20 * time.Millisecond
	defaultBusyDeadline = 40 * time.Second
)

// EPD drives a three-color e-paper panel over SPI.
type EPD struct {
	width  int
	height int
	pins   Pins
	logger *zap.Logger

	port  spi.PortCloser
	conn  spi.Conn
	reset gpio.PinIO
	dc    gpio.PinIO
	busy  gpio.PinIO
}

// NewEPD creates a driver for a width×height panel. Nothing is opened until
// Init.
func NewEPD(width, height int, pins Pins, logger *zap.Logger) *EPD {
	return &EPD{width: width, height: height, pins: pins, logger: logger}
}

func (e *EPD) Name() string { return "epd" }

// Init opens the bus on first use, then resets and powers the panel.
func (e *EPD) Init() error {
	if e.conn == nil {
		if err := e.open(); err != nil {
			return err
		}
	}

	e.hardReset()
	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3f, 0x3f}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	time.Sleep(100 * time.Millisecond)
	if err := e.waitIdle(); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x0f}},
		{cmdResolution, []byte{byte(e.width >> 8), byte(e.width), byte(e.height >> 8), byte(e.height)}},
		{cmdDualSPI, []byte{0x00}},
		{cmdVCOMInterval, []byte{0x11, 0x07}},
		{cmdTCONSetting, []byte{0x22}},
	}
	for _, s := range steps {
		if err := e.send(s.cmd, s.data...); err != nil {
			return err
		}
	}
	e.logger.Debug("Panel initialised", zap.Int("width", e.width), zap.Int("height", e.height))
	return nil
}

func (e *EPD) open() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialise host: %w", err)
	}
	port, err := spireg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open SPI port: %w", err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return fmt.Errorf("failed to connect SPI: %w", err)
	}

	pins := map[string]*gpio.PinIO{e.pins.Reset: &e.reset, e.pins.DC: &e.dc, e.pins.Busy: &e.busy}
	for name, dst := range pins {
		p := gpioreg.ByName(name)
		if p == nil {
			port.Close()
			return fmt.Errorf("GPIO %s not found", name)
		}
		*dst = p
	}
	if err := e.busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return fmt.Errorf("failed to configure busy pin: %w", err)
	}

	e.port, e.conn = port, conn
	return nil
}

// Clear blanks the panel to white.
func (e *EPD) Clear() error {
	frame := models.NewFrame(e.width, e.height)
	return e.Display(frame)
}

// Display uploads both planes and refreshes the panel.
func (e *EPD) Display(frame *models.RenderedFrame) error {
	if e.conn == nil {
		return errors.New("panel not initialised")
	}
	if frame.Black.Width != e.width || frame.Black.Height != e.height {
		return fmt.Errorf("frame is %dx%d, panel is %dx%d", frame.Black.Width, frame.Black.Height, e.width, e.height)
	}

	if err := e.send(cmdDataStart1, Pack(frame.Black, false)...); err != nil {
		return err
	}
	// The red RAM takes 1 for ink.
	if err := e.send(cmdDataStart2, Pack(frame.Red, true)...); err != nil {
		return err
	}
	if err := e.send(cmdDisplayRefresh); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return e.waitIdle()
}

// Sleep powers the panel down into deep sleep.
func (e *EPD) Sleep() error {
	if e.conn == nil {
		return nil
	}
	if err := e.send(cmdPowerOff); err != nil {
		return err
	}
	if err := e.waitIdle(); err != nil {
		return err
	}
	return e.send(cmdDeepSleep, deepSleepCheckCode)
}

// Close releases the SPI port.
func (e *EPD) Close() error {
	if e.port == nil {
		return nil
	}
	err := e.port.Close()
	e.port, e.conn = nil, nil
	return err
}

func (e *EPD) hardReset() {
	for _, step := range []struct {
		level gpio.Level
		wait  time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 4 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		e.reset.Out(step.level)
		time.Sleep(step.wait)
	}
}

func (e *EPD) send(cmd byte, data ...byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to select command mode: %w", err)
	}
	if err := e.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("failed to send command 0x%02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := e.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to select data mode: %w", err)
	}
	for len(data) > 0 {
		n := min(len(data), maxTransfer)
		if err := e.conn.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("failed to send data for 0x%02x: %w", cmd, err)
		}
		data = data[n:]
	}
	return nil
}

// waitIdle polls the status register until the busy line goes high.
func (e *EPD) waitIdle() error {
	deadline := time.Now().Add(defaultBusyDeadline)
	for {
		if err := e.send(cmdGetStatus); err != nil {
			return err
		}
		if e.busy.Read() == gpio.High {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("panel stayed busy")
		}
		time.Sleep(busyPollInterval)
	}
}

// Pack serialises a plane row by row, eight pixels per byte with the
// leftmost pixel in the high bit. Bits are 1 for unset pixels, or 1 for ink
// when inkHigh is true.
func Pack(p *models.BitPlane, inkHigh bool) []byte {
	stride := (p.Width + 7) / 8
	buf := make([]byte, stride*p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < stride*8; x++ {
			if p.Inked(x, y) == inkHigh {
				buf[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return buf
}
