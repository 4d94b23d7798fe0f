package xtouch

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	DeviceIDXTouch   = 0x14
	DeviceIDExtender = 0x15
)

const Strips = 8

const (
	CCFaderFirst   = 70
	CCFaderLast    = 77
	CCFaderMain    = 78
	CCEncoderFirst = 80
	CCEncoderLast  = 87
	CCMeterFirst   = 90
	CCMeterLast    = 97
)

// Button rows, one note per strip.
const (
	NoteRecFirst    = 0
	NoteSoloFirst   = 8
	NoteMuteFirst   = 16
	NoteSelectFirst = 24
	NoteButtonLast  = 31

	NoteFaderTouchFirst = 110
	NoteFaderTouchLast  = 117
)

type Row uint8

const (
	RowRec Row = iota
	RowSolo
	RowMute
	RowSelect
)

var rowNames = [...]string{"rec", "solo", "mute", "select"}

func (r Row) String() string {
	if int(r) < len(rowNames) {
		return rowNames[r]
	}
	return fmt.Sprintf("row%d", r)
}

func ButtonNote(row Row, strip uint8) uint8 {
	return uint8(row)*Strips + strip
}

type Event interface {
	String() string
}

type ButtonEvent struct {
	Row     Row
	Strip   uint8
	Pressed bool
}

func (e ButtonEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("%s %d %s", e.Row, e.Strip+1, action)
}

type FaderEvent struct {
	Strip uint8
	Value uint8
}

func (e FaderEvent) String() string {
	return fmt.Sprintf("fader %d = %d", e.Strip+1, e.Value)
}

type FaderTouchEvent struct {
	Strip   uint8
	Touched bool
}

func (e FaderTouchEvent) String() string {
	action := "released"
	if e.Touched {
		action = "touched"
	}
	return fmt.Sprintf("fader %d %s", e.Strip+1, action)
}

type EncoderEvent struct {
	Strip uint8
	Delta int
}

func (e EncoderEvent) String() string {
	return fmt.Sprintf("encoder %d %+d", e.Strip+1, e.Delta)
}

func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("xtouch: no MIDI input port matching %q", substr)
}

func FindOutPort(substr string) (drivers.Out, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetOutPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("xtouch: no MIDI output port matching %q", substr)
}

// Decode turns one message from an extender in relative encoder mode into
// an Event, or nil when the message means nothing to a strip.
func Decode(msg midi.Message) Event {
	var channel, key, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &value):
		return decodeNote(key, true)
	case msg.GetNoteEnd(&channel, &key):
		return decodeNote(key, false)
	case msg.GetControlChange(&channel, &key, &value):
		return decodeCC(key, value)
	}
	return nil
}

func decodeNote(key uint8, on bool) Event {
	switch {
	case key <= NoteButtonLast:
		return ButtonEvent{Row: Row(key / Strips), Strip: key % Strips, Pressed: on}
	case key >= NoteFaderTouchFirst && key <= NoteFaderTouchLast:
		return FaderTouchEvent{Strip: key - NoteFaderTouchFirst, Touched: on}
	}
	return nil
}

func decodeCC(controller, value uint8) Event {
	switch {
	case controller >= CCFaderFirst && controller <= CCFaderLast:
		return FaderEvent{Strip: controller - CCFaderFirst, Value: value}
	case controller >= CCEncoderFirst && controller <= CCEncoderLast:
		delta := 0
		switch {
		case value >= 65 && value < 128:
			delta = int(value) - 64
		case value >= 1 && value < 64:
			delta = -int(value)
		}
		if delta == 0 {
			return nil
		}
		return EncoderEvent{Strip: controller - CCEncoderFirst, Delta: delta}
	}
	return nil
}
