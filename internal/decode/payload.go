package decode

import "fmt"

// Kind says which field of a Payload is populated.
type Kind uint8

const (
	KindImage Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Payload is the decoded content of one file.
type Payload struct {
	Path  string
	Kind  Kind
	Image *Pixels // KindImage
	Text  string  // KindText
}

// Summary is a one-line description used by reports.
func (p Payload) Summary() string {
	switch p.Kind {
	case KindImage:
		return fmt.Sprintf("%s (image %dx%dx%d)", p.Path, p.Image.Height, p.Image.Width, p.Image.Channels)
	case KindText:
		return fmt.Sprintf("%s (text, %d bytes)", p.Path, len(p.Text))
	default:
		return p.Path
	}
}

// Pixels is a dense height x width x channels array of 8-bit samples,
// stored row-major with interleaved channels.
// Channels is 1 (gray), 3 (RGB) or 4 (RGBA).
type Pixels struct {
	Width    int
	Height   int
	Channels int
	Data     []uint8
}

// At returns the sample at row y, column x, channel c.
func (p *Pixels) At(y, x, c int) uint8 {
	return p.Data[(y*p.Width+x)*p.Channels+c]
}

// Shape returns the array dimensions as (height, width, channels).
func (p *Pixels) Shape() [3]int {
	return [3]int{p.Height, p.Width, p.Channels}
}
