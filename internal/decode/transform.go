package decode

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Transform maps one image to another.
type Transform func(image.Image) (image.Image, error)

// ResizeSide is the edge length of the "resize" transform's output.
const ResizeSide = 256

func builtinTransforms() map[string]Transform {
	return map[string]Transform{
		"resize":    Resize(ResizeSide, ResizeSide),
		"grayscale": Grayscale,
	}
}

// Resize scales to exactly w x h with Catmull-Rom resampling. Gray input
// stays gray.
func Resize(w, h int) Transform {
	return func(src image.Image) (image.Image, error) {
		rect := image.Rect(0, 0, w, h)
		if isGray(src) {
			dst := image.NewGray(rect)
			draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
			return dst, nil
		}
		dst := image.NewNRGBA(rect)
		draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
		if opaque(src) {
			// Resampling can round alpha just below 0xff.
			for i := 3; i < len(dst.Pix); i += 4 {
				dst.Pix[i] = 0xff
			}
		}
		return dst, nil
	}
}

// Grayscale converts to 8-bit luminance.
func Grayscale(src image.Image) (image.Image, error) {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

func isGray(img image.Image) bool {
	m := img.ColorModel()
	return m == color.GrayModel || m == color.Gray16Model
}

// ToPixels copies img into a Pixels array: one channel for gray images,
// three for opaque images, four otherwise.
func ToPixels(img image.Image) *Pixels {
	b := img.Bounds()
	p := &Pixels{Width: b.Dx(), Height: b.Dy()}

	switch {
	case isGray(img):
		p.Channels = 1
	case opaque(img):
		p.Channels = 3
	default:
		p.Channels = 4
	}
	p.Data = make([]uint8, 0, p.Width*p.Height*p.Channels)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			if p.Channels == 1 {
				p.Data = append(p.Data, color.GrayModel.Convert(c).(color.Gray).Y)
				continue
			}
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			p.Data = append(p.Data, n.R, n.G, n.B)
			if p.Channels == 4 {
				p.Data = append(p.Data, n.A)
			}
		}
	}
	return p
}

func opaque(img image.Image) bool {
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}
