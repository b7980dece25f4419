package display

import (
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/robotalks/volknob/pkg/volume"
)

// Screen geometry of the 128x64 monochrome panel.
const (
	Width     = 128
	Height    = 64
	FrameSize = Width * Height / 8

	iconSize = 16
	barX     = 24
	barY     = 20
	barW     = 80
	barH     = 10
	addressY = 50
	title    = "Volume:"
)

// 16x16 icons, rows of 2 bytes, MSB first.
var (
	soundIcon = [32]byte{
		0x00, 0x00, 0x00, 0x70, 0x00, 0xf0, 0x01, 0xf0, 0x03, 0xf0, 0x07, 0xf0, 0x3f, 0xf0, 0x3f, 0xf0,
		0x3f, 0xf0, 0x3f, 0xf0, 0x07, 0xf0, 0x03, 0xf0, 0x01, 0xf0, 0x00, 0xf0, 0x00, 0x70, 0x00, 0x00,
	}
	muteIcon = [32]byte{
		0xc0, 0x00, 0xe0, 0x70, 0x70, 0xf0, 0x39, 0xf0, 0x1f, 0xf0, 0x0f, 0xf0, 0x3f, 0xf0, 0x3f, 0xf0,
		0x3f, 0xf0, 0x3f, 0xf0, 0x07, 0xf0, 0x03, 0xf8, 0x01, 0xfc, 0x00, 0xfe, 0x00, 0x77, 0x00, 0x03,
	}
)

var (
	on  = color.Gray{Y: 0xff}
	off = color.Gray{}
)

// Bitmap renders the view onto a monochrome framebuffer.
type Bitmap struct {
	// Output receives the packed frame whenever it changes.
	Output func(frame []byte) error

	img   *image.Gray
	frame []byte
	last  View
	valid bool
}

// NewBitmap creates a blank Bitmap.
func NewBitmap() *Bitmap {
	return &Bitmap{
		img:   image.NewGray(image.Rect(0, 0, Width, Height)),
		frame: make([]byte, FrameSize),
	}
}

// Render implements Display. The frame is redrawn only on change.
func (b *Bitmap) Render(v View) error {
	if b.valid && b.last == v {
		return nil
	}
	b.last, b.valid = v, true
	Draw(b.img, v)
	Pack(b.img, b.frame)
	if b.Output != nil {
		return b.Output(b.frame)
	}
	return nil
}

// Image returns the framebuffer.
func (b *Bitmap) Image() *image.Gray {
	return b.img
}

// Frame returns the packed frame, see Pack.
func (b *Bitmap) Frame() []byte {
	return b.frame
}

// Draw draws the view: a centered title, the speaker icon and a bar
// with the value on the right, and the address at the bottom.
func Draw(img *image.Gray, v View) {
	draw.Draw(img, img.Bounds(), image.NewUniform(off), image.Point{}, draw.Src)

	drawText(img, title, (Width-textWidth(title))/2, 0)

	icon := &soundIcon
	if v.ShowMuted() {
		icon = &muteIcon
	}
	drawIcon(img, icon, barX-20, barY-3)

	level := v.Level
	if level < volume.MinLevel {
		level = volume.MinLevel
	} else if level > volume.MaxLevel {
		level = volume.MaxLevel
	}
	filled := int(level) * barW / int(volume.MaxLevel)
	outline(img, image.Rect(barX, barY, barX+barW, barY+barH))
	fill(img, image.Rect(barX, barY, barX+filled, barY+barH))

	value := strconv.Itoa(int(v.Level))
	drawText(img, value, barX+barW+((Width-(barX+barW))-textWidth(value))/2, barY)

	if v.Address != "" {
		drawText(img, v.Address, (Width-textWidth(v.Address))/2, addressY)
	}
}

// Pack converts the framebuffer into the SSD1306 page layout:
// 8 pages of 128 columns, each byte a vertical strip of 8 pixels with
// the LSB on top. frame must be at least FrameSize long.
func Pack(img *image.Gray, frame []byte) {
	for page := 0; page < Height/8; page++ {
		for x := 0; x < Width; x++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				if img.GrayAt(x, page*8+bit).Y >= 0x80 {
					b |= 1 << uint(bit)
				}
			}
			frame[page*Width+x] = b
		}
	}
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// drawText draws s with the top left corner at x, y.
func drawText(img *image.Gray, s string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(on),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+basicfont.Face7x13.Ascent),
	}
	d.DrawString(s)
}

func drawIcon(img *image.Gray, icon *[32]byte, x0, y0 int) {
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if icon[y*2+x/8]&(0x80>>uint(x%8)) != 0 {
				img.SetGray(x0+x, y0+y, on)
			}
		}
	}
}

func outline(img *image.Gray, r image.Rectangle) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetGray(x, r.Min.Y, on)
		img.SetGray(x, r.Max.Y-1, on)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetGray(r.Min.X, y, on)
		img.SetGray(r.Max.X-1, y, on)
	}
}

func fill(img *image.Gray, r image.Rectangle) {
	draw.Draw(img, r, image.NewUniform(on), image.Point{}, draw.Src)
}
