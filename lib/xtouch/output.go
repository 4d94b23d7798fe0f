package xtouch

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type LCDColor uint8

const (
	ColorBlack   LCDColor = 0
	ColorRed     LCDColor = 1
	ColorGreen   LCDColor = 2
	ColorYellow  LCDColor = 3
	ColorBlue    LCDColor = 4
	ColorMagenta LCDColor = 5
	ColorCyan    LCDColor = 6
	ColorWhite   LCDColor = 7
)

type LEDState uint8

const (
	LEDOff   LEDState = 0
	LEDFlash LEDState = 64
	LEDOn    LEDState = 127
)

const lcdWidth = 7

type Output struct {
	send     func(msg midi.Message) error
	DeviceID uint8
}

func NewOutput(port drivers.Out, deviceID uint8) (*Output, error) {
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("xtouch: open output port: %w", err)
	}
	return NewOutputFunc(send, deviceID), nil
}

func NewOutputFunc(send func(msg midi.Message) error, deviceID uint8) *Output {
	return &Output{send: send, DeviceID: deviceID}
}

func (o *Output) SetFader(strip uint8, value uint8) error {
	cc := CCFaderFirst + strip
	if strip == 8 {
		cc = CCFaderMain
	}
	return o.send(midi.ControlChange(0, cc, value))
}

func (o *Output) SetButtonLED(button uint8, state LEDState) error {
	return o.send(midi.NoteOn(0, button, uint8(state)))
}

func (o *Output) SetMeter(strip uint8, value uint8) error {
	return o.send(midi.ControlChange(0, CCMeterFirst+strip, value))
}

func (o *Output) SetLCD(strip uint8, color LCDColor, invertUpper, invertLower bool, upper, lower string) error {
	cc := uint8(color)
	if invertUpper {
		cc |= 0x10
	}
	if invertLower {
		cc |= 0x20
	}
	data := []byte{0x00, 0x20, 0x32, o.DeviceID, 0x4C, strip, cc}
	data = append(data, fit(upper)...)
	data = append(data, fit(lower)...)
	return o.send(midi.SysEx(data))
}

// fit pads or cuts s to one LCD line and drops bytes the display cannot show.
func fit(s string) []byte {
	out := make([]byte, 0, lcdWidth)
	for i := 0; i < len(s) && len(out) < lcdWidth; i++ {
		b := s[i]
		if b < 0x20 || b > 0x7e {
			b = '?'
		}
		out = append(out, b)
	}
	for len(out) < lcdWidth {
		out = append(out, ' ')
	}
	return out
}

func (o *Output) SetEncoderRing(strip uint8, value uint8) error {
	return o.send(midi.ControlChange(0, CCEncoderFirst+strip, value))
}
