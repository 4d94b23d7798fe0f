package streamdeck

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"rafaelmartins.com/p/usbhid"
)

const elgatoVendorID = 0x0fd9

type Model struct {
	Name      string
	Keys      int
	KeyRows   int
	KeyCols   int
	KeySize   int
	FlipKeys  bool
	Encoders  int
	LCDWidth  int
	LCDHeight int
}

var ModelXL = Model{
	Name:     "XL",
	Keys:     32,
	KeyRows:  4,
	KeyCols:  8,
	KeySize:  96,
	FlipKeys: true,
}

var ModelPlus = Model{
	Name:      "Plus",
	Keys:      8,
	KeyRows:   2,
	KeyCols:   4,
	KeySize:   120,
	Encoders:  4,
	LCDWidth:  800,
	LCDHeight: 100,
}

var productModels = map[uint16]*Model{
	0x006c: &ModelXL,
	0x008f: &ModelXL,
	0x0084: &ModelPlus,
}

type Device struct {
	dev   *usbhid.Device
	model *Model
}

// Open returns the first attached deck of a known model.
func Open() (*Device, error) {
	devices, err := usbhid.Enumerate(func(dev *usbhid.Device) bool {
		return dev.VendorId() == elgatoVendorID && productModels[dev.ProductId()] != nil
	})
	if err != nil {
		return nil, fmt.Errorf("streamdeck: enumerate: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("streamdeck: no device found")
	}
	dev := devices[0]
	if err := dev.Open(true); err != nil {
		return nil, fmt.Errorf("streamdeck: open: %w", err)
	}
	return &Device{dev: dev, model: productModels[dev.ProductId()]}, nil
}

func (d *Device) Model() *Model        { return d.model }
func (d *Device) Close() error         { return d.dev.Close() }
func (d *Device) SerialNumber() string { return d.dev.SerialNumber() }

func (d *Device) SetBrightness(perc byte) error {
	pl := make([]byte, d.dev.GetFeatureReportLength())
	pl[0] = 0x08
	pl[1] = min(perc, 100)
	return d.dev.SetFeatureReport(3, pl)
}

func (d *Device) Reset() error {
	pl := make([]byte, d.dev.GetFeatureReportLength())
	pl[0] = 0x02
	return d.dev.SetFeatureReport(3, pl)
}

func encodeJPEG(img image.Image, w, h int, flip bool) ([]byte, error) {
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	var src image.Image = scaled
	if flip {
		flipped := image.NewRGBA(scaled.Bounds())
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				flipped.Set(w-1-x, h-1-y, scaled.At(x, y))
			}
		}
		src = flipped
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("streamdeck: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Device) SetKeyImage(key int, img image.Image) error {
	if key < 0 || key >= d.model.Keys {
		return fmt.Errorf("streamdeck: invalid key %d", key)
	}
	sz := d.model.KeySize
	data, err := encodeJPEG(img, sz, sz, d.model.FlipKeys)
	if err != nil {
		return err
	}
	return d.writePages(data, 8, func(hdr []byte, page uint16, last bool, n int) {
		hdr[0] = 0x02
		hdr[1] = 0x07
		hdr[2] = byte(key)
		if last {
			hdr[3] = 1
		}
		binary.LittleEndian.PutUint16(hdr[4:], uint16(n))
		binary.LittleEndian.PutUint16(hdr[6:], page)
	})
}

func (d *Device) ClearKeys() error {
	sz := d.model.KeySize
	black := image.NewRGBA(image.Rect(0, 0, sz, sz))
	xdraw.Draw(black, black.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)
	for i := 0; i < d.model.Keys; i++ {
		if err := d.SetKeyImage(i, black); err != nil {
			return err
		}
	}
	return nil
}

// SetLCDImage draws into the touch strip of decks that have one.
func (d *Device) SetLCDImage(x, y, w, h int, img image.Image) error {
	if d.model.LCDWidth == 0 {
		return fmt.Errorf("streamdeck: %s has no LCD", d.model.Name)
	}
	data, err := encodeJPEG(img, w, h, false)
	if err != nil {
		return err
	}
	return d.writePages(data, 16, func(hdr []byte, page uint16, last bool, n int) {
		hdr[0] = 0x02
		hdr[1] = 0x0C
		binary.LittleEndian.PutUint16(hdr[2:], uint16(x))
		binary.LittleEndian.PutUint16(hdr[4:], uint16(y))
		binary.LittleEndian.PutUint16(hdr[6:], uint16(w))
		binary.LittleEndian.PutUint16(hdr[8:], uint16(h))
		if last {
			hdr[10] = 1
		}
		binary.LittleEndian.PutUint16(hdr[11:], page)
		binary.LittleEndian.PutUint16(hdr[13:], uint16(n))
	})
}

// writePages splits an image upload into output reports of the device's
// report length, each starting with a hdrLen header filled in by header.
func (d *Device) writePages(data []byte, hdrLen int, header func(hdr []byte, page uint16, last bool, n int)) error {
	reportLen := int(d.dev.GetOutputReportLength())
	chunkLen := reportLen - hdrLen
	for page, start := uint16(0), 0; start < len(data); page++ {
		end := min(start+chunkLen, len(data))
		report := make([]byte, reportLen)
		header(report[:hdrLen], page, end == len(data), end-start)
		copy(report[hdrLen:], data[start:end])
		if err := d.dev.SetOutputReport(2, report); err != nil {
			return fmt.Errorf("streamdeck: write page %d: %w", page, err)
		}
		start = end
	}
	return nil
}

type KeyEvent struct {
	Key     int
	Pressed bool
}

type EncoderEvent struct {
	Encoder int
	Pressed bool
	Delta   int
}

type InputEvent struct {
	Key     *KeyEvent
	Encoder *EncoderEvent
}

// ReadInput blocks reading reports and sends an event per state change
// until the device fails.
func (d *Device) ReadInput(ch chan<- InputEvent) error {
	dec := newInputDecoder(d.model)
	for {
		_, buf, err := d.dev.GetInputReport()
		if err != nil {
			return fmt.Errorf("streamdeck: read: %w", err)
		}
		for _, ev := range dec.decode(buf) {
			ch <- ev
		}
	}
}

type inputDecoder struct {
	model    *Model
	keys     []byte
	encoders []byte
}

func newInputDecoder(m *Model) *inputDecoder {
	return &inputDecoder{model: m, keys: make([]byte, m.Keys), encoders: make([]byte, m.Encoders)}
}

func (d *inputDecoder) decode(buf []byte) []InputEvent {
	if len(buf) < 4 {
		return nil
	}
	var out []InputEvent
	switch buf[0] {
	case 0x00:
		for i := 0; i < d.model.Keys && 3+i < len(buf); i++ {
			st := buf[3+i]
			if st != d.keys[i] {
				d.keys[i] = st
				out = append(out, InputEvent{Key: &KeyEvent{Key: i, Pressed: st > 0}})
			}
		}
	case 0x03:
		if d.model.Encoders == 0 || len(buf) < 4+d.model.Encoders {
			return nil
		}
		switch buf[3] {
		case 0x00:
			for i := 0; i < d.model.Encoders; i++ {
				st := buf[4+i]
				if st != d.encoders[i] {
					d.encoders[i] = st
					out = append(out, InputEvent{Encoder: &EncoderEvent{Encoder: i, Pressed: st > 0}})
				}
			}
		case 0x01:
			for i := 0; i < d.model.Encoders; i++ {
				if delta := int(int8(buf[4+i])); delta != 0 {
					out = append(out, InputEvent{Encoder: &EncoderEvent{Encoder: i, Delta: delta}})
				}
			}
		}
	}
	return out
}
