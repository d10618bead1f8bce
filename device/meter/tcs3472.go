/*
DESCRIPTION
  tcs3472.go provides a Probe implementation for the TCS3472 RGBC
  colour sensor on an I2C bus.

AUTHORS
  Petra Lindqvist <petra@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package meter

import (
	"math"
	"time"

	"github.com/kidoman/embd"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"
)

const pkg = "meter: "

// TCS3472 register map. All register access goes through the command
// bit with auto-increment addressing.
const (
	tcsAddr = 0x29

	tcsCmd          = 0xA0
	tcsRegEnable    = 0x00
	tcsRegATime     = 0x01
	tcsRegControl   = 0x0F
	tcsRegID        = 0x12
	tcsRegStatus    = 0x13
	tcsRegClearData = 0x14

	tcsEnablePON = 0x01
	tcsEnableAEN = 0x02

	tcsStatusAValid = 0x01
)

// Supported device IDs: TCS34725 and TCS34727.
var tcsIDs = []byte{0x44, 0x4D}

const measureTimeout = 200 * time.Millisecond

// channelData is one full RGBC reading.
type channelData struct {
	clear, red, green, blue uint16
}

// TCS3472 drives the sensor over I2C. Methods are not safe for
// concurrent use; the probe has a single owner at any time.
type TCS3472 struct {
	l   logging.Logger
	bus embd.I2CBus

	gain    Gain
	atimeMs float64
	count   int

	agc      bool
	agcCount int

	last channelData
}

// NewTCS3472 returns a driver on the given bus. The sensor is left
// powered down until Enable.
func NewTCS3472(bus embd.I2CBus, l logging.Logger) *TCS3472 {
	return &TCS3472{
		l:       l,
		bus:     bus,
		gain:    Gain1X,
		atimeMs: 153.6,
		count:   1,
	}
}

// Enable checks the device ID and powers the sensor up.
func (d *TCS3472) Enable() error {
	id, err := d.bus.ReadByteFromReg(tcsAddr, tcsCmd|tcsRegID)
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}
	known := false
	for _, v := range tcsIDs {
		if id == v {
			known = true
			break
		}
	}
	if !known {
		d.l.Error(pkg+"unexpected sensor ID", "id", id)
		return ErrFail
	}

	err = d.bus.WriteByteToReg(tcsAddr, tcsCmd|tcsRegEnable, tcsEnablePON)
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}
	// Warm-up time between power-on and enabling the ADC.
	time.Sleep(3 * time.Millisecond)
	err = d.bus.WriteByteToReg(tcsAddr, tcsCmd|tcsRegEnable, tcsEnablePON|tcsEnableAEN)
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}

	err = d.applyGain()
	if err != nil {
		return err
	}
	return d.applyATime()
}

// Disable powers the sensor down.
func (d *TCS3472) Disable() error {
	err := d.bus.WriteByteToReg(tcsAddr, tcsCmd|tcsRegEnable, 0)
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}
	return nil
}

// SetGain selects the analog gain, clamped to the sensor's 60x
// maximum.
func (d *TCS3472) SetGain(g Gain) error {
	if g > Gain60X {
		g = Gain60X
	}
	d.gain = g
	d.agc = false
	return d.applyGain()
}

func (d *TCS3472) applyGain() error {
	var ctrl byte
	switch d.gain {
	case Gain1X:
		ctrl = 0x00
	case Gain4X:
		ctrl = 0x01
	case Gain16X:
		ctrl = 0x02
	default:
		ctrl = 0x03
	}
	err := d.bus.WriteByteToReg(tcsAddr, tcsCmd|tcsRegControl, ctrl)
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}
	return nil
}

// SetIntegration selects the per-cycle integration time and the cycle
// count per reading. The time is quantised to the sensor's 2.4 ms
// steps.
func (d *TCS3472) SetIntegration(timeMs float64, count int) error {
	if timeMs < 2.4 {
		timeMs = 2.4
	}
	if timeMs > 614.4 {
		timeMs = 614.4
	}
	if count < 1 {
		count = 1
	}
	d.atimeMs = timeMs
	d.count = count
	return d.applyATime()
}

func (d *TCS3472) applyATime() error {
	cycles := int(math.Round(d.atimeMs / 2.4))
	if cycles < 1 {
		cycles = 1
	}
	if cycles > 256 {
		cycles = 256
	}
	err := d.bus.WriteByteToReg(tcsAddr, tcsCmd|tcsRegATime, byte(256-cycles))
	if err != nil {
		return errors.Wrap(ErrFail, err.Error())
	}
	return nil
}

// EnableAGC turns on software gain control over the given cycle count.
func (d *TCS3472) EnableAGC(count int) error {
	if count < 1 {
		count = 1
	}
	d.agc = true
	d.agcCount = count
	return nil
}

// Valid reports whether an integration cycle has completed since the
// last configuration change.
func (d *TCS3472) Valid() (bool, error) {
	status, err := d.bus.ReadByteFromReg(tcsAddr, tcsCmd|tcsRegStatus)
	if err != nil {
		return false, errors.Wrap(ErrFail, err.Error())
	}
	return status&tcsStatusAValid != 0, nil
}

// maxCount is the saturation ceiling for the current integration time.
func (d *TCS3472) maxCount() uint16 {
	cycles := int(math.Round(d.atimeMs / 2.4))
	max := cycles * 1024
	if max > 0xFFFF {
		max = 0xFFFF
	}
	return uint16(max)
}

func (d *TCS3472) readChannels() (channelData, error) {
	var buf [8]byte
	err := d.bus.ReadFromReg(tcsAddr, tcsCmd|tcsRegClearData, buf[:])
	if err != nil {
		return channelData{}, errors.Wrap(ErrFail, err.Error())
	}
	cd := channelData{
		clear: uint16(buf[0]) | uint16(buf[1])<<8,
		red:   uint16(buf[2]) | uint16(buf[3])<<8,
		green: uint16(buf[4]) | uint16(buf[5])<<8,
		blue:  uint16(buf[6]) | uint16(buf[7])<<8,
	}
	d.last = cd
	return cd, nil
}

// lux converts a reading to lux using the coefficients from the
// sensor's design note, normalised for gain and integration time.
func (d *TCS3472) lux(cd channelData) float64 {
	raw := -0.32466*float64(cd.red) + 1.57837*float64(cd.green) - 0.73191*float64(cd.blue)
	if raw < 0 {
		raw = 0
	}
	cpl := d.atimeMs * float64(d.gain.Value()) / 60.0
	if cpl <= 0 {
		return 0
	}
	return raw / cpl
}

// agcAdjust nudges the gain after a reading so the clear channel stays
// in the usable middle of its range.
func (d *TCS3472) agcAdjust(cd channelData) {
	max := d.maxCount()
	switch {
	case cd.clear > max-max/8 && d.gain > Gain1X:
		d.gain--
		d.applyGain()
	case cd.clear < max/16 && d.gain < Gain60X:
		d.gain++
		d.applyGain()
	}
}

// TryMeasure returns a lux reading if a cycle is ready, without
// blocking.
func (d *TCS3472) TryMeasure() (float64, error) {
	valid, err := d.Valid()
	if err != nil {
		return 0, err
	}
	if !valid {
		return 0, ErrNoReading
	}
	return d.measureOnce()
}

// Measure blocks until a reading cycle completes or the timeout
// expires.
func (d *TCS3472) Measure() (float64, error) {
	deadline := time.Now().Add(measureTimeout)
	for {
		valid, err := d.Valid()
		if err != nil {
			return 0, err
		}
		if valid {
			break
		}
		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
	return d.measureOnce()
}

func (d *TCS3472) measureOnce() (float64, error) {
	var sum float64
	for i := 0; i < d.count; i++ {
		cd, err := d.readChannels()
		if err != nil {
			return 0, err
		}
		if cd.clear >= d.maxCount() {
			return 0, ErrHigh
		}
		if cd.clear == 0 {
			return 0, ErrLow
		}
		sum += d.lux(cd)
		if d.agc && (i+1)%d.agcCount == 0 {
			d.agcAdjust(cd)
		}
	}
	return sum / float64(d.count), nil
}

// ClearChannel returns the raw clear-channel count of the current
// cycle.
func (d *TCS3472) ClearChannel() (uint16, error) {
	cd, err := d.readChannels()
	if err != nil {
		return 0, err
	}
	return cd.clear, nil
}

// ColorTemperature derives a correlated colour temperature from the
// most recent reading, or 0 when the reading is unusable.
func (d *TCS3472) ColorTemperature() (uint16, error) {
	cd := d.last
	if cd.red == 0 || cd.clear == 0 || cd.clear >= d.maxCount() {
		return 0, nil
	}
	ct := 3810*float64(cd.blue)/float64(cd.red) + 1391
	if ct < 0 || ct > 0xFFFF {
		return 0, nil
	}
	return uint16(ct), nil
}
