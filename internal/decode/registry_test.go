package decode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writePNG(t *testing.T, fsys billy.Filesystem, name string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, util.WriteFile(fsys, name, buf.Bytes(), 0o644))
}

func rgbImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(20 * y), B: 7, A: 255})
		}
	}
	return img
}

func TestRegistry_Text(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "notes/a.txt", []byte("hello"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "notes/b.CSV", []byte("a,b\n1,2\n"), 0o644))

	r := NewRegistry()

	p, err := r.Decode(fsys, "notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, KindText, p.Kind)
	assert.Equal(t, "hello", p.Text)
	assert.Equal(t, "notes/a.txt", p.Path)

	p, err = r.Decode(fsys, "notes/b.CSV")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", p.Text)
}

func TestRegistry_PNG(t *testing.T) {
	fsys := memfs.New()
	writePNG(t, fsys, "a.png", rgbImage(3, 2))

	p, err := NewRegistry().Decode(fsys, "a.png")
	require.NoError(t, err)
	require.Equal(t, KindImage, p.Kind)
	require.NotNil(t, p.Image)
	assert.Equal(t, [3]int{2, 3, 3}, p.Image.Shape())
	assert.Equal(t, uint8(20), p.Image.At(0, 2, 0))
	assert.Equal(t, uint8(20), p.Image.At(1, 0, 1))
	assert.Equal(t, uint8(7), p.Image.At(1, 1, 2))
}

func TestRegistry_PNGWithAlpha(t *testing.T) {
	fsys := memfs.New()
	img := rgbImage(2, 2)
	img.Set(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 128})
	writePNG(t, fsys, "a.png", img)

	p, err := NewRegistry().Decode(fsys, "a.png")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Image.Channels)
	assert.Equal(t, uint8(128), p.Image.At(0, 0, 3))
}

func TestRegistry_BMP(t *testing.T) {
	fsys := memfs.New()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, rgbImage(4, 4)))
	require.NoError(t, util.WriteFile(fsys, "img.bmp", buf.Bytes(), 0o644))

	p, err := NewRegistry().Decode(fsys, "img.bmp")
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 4, 3}, p.Image.Shape())
}

func TestRegistry_Transformations(t *testing.T) {
	fsys := memfs.New()
	writePNG(t, fsys, "a.png", rgbImage(8, 4))

	tests := []struct {
		name  string
		steps []string
		shape [3]int
	}{
		{"none", nil, [3]int{4, 8, 3}},
		{"grayscale", []string{"grayscale"}, [3]int{4, 8, 1}},
		{"resize", []string{"resize"}, [3]int{ResizeSide, ResizeSide, 3}},
		{"resize then grayscale", []string{"resize", "grayscale"}, [3]int{ResizeSide, ResizeSide, 1}},
		{"grayscale then resize", []string{"grayscale", "resize"}, [3]int{ResizeSide, ResizeSide, 1}},
		{"unknown names are skipped", []string{"sharpen", "grayscale"}, [3]int{4, 8, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRegistry(tt.steps...).Decode(fsys, "a.png")
			require.NoError(t, err)
			assert.Equal(t, tt.shape, p.Image.Shape())
			assert.Len(t, p.Image.Data, tt.shape[0]*tt.shape[1]*tt.shape[2])
		})
	}
}

func TestRegistry_TransformsSkipText(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "a.txt", []byte("plain"), 0o644))

	p, err := NewRegistry("resize", "grayscale").Decode(fsys, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain", p.Text)
	assert.Nil(t, p.Image)
}

func TestRegistry_Errors(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "a.xyz", []byte("?"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "broken.png", []byte("not a png"), 0o644))

	r := NewRegistry()

	_, err := r.Decode(fsys, "a.xyz")
	require.ErrorIs(t, err, ErrUnsupportedExtension)

	_, err = r.Decode(fsys, "broken.png")
	require.ErrorIs(t, err, ErrDecode)

	_, err = r.Decode(fsys, "missing.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDecode)
}

func TestRegistry_Register(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "a.md", []byte("# title"), 0o644))

	r := NewRegistry()
	assert.False(t, r.Supports("a.md"))
	r.Register(".MD", func(rd io.Reader) (Payload, error) {
		b, err := io.ReadAll(rd)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindText, Text: strings.ToUpper(string(b))}, nil
	})
	assert.True(t, r.Supports("a.md"))

	p, err := r.Decode(fsys, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "# TITLE", p.Text)
}

func TestRegistry_RegisterTransform(t *testing.T) {
	fsys := memfs.New()
	writePNG(t, fsys, "a.png", rgbImage(8, 4))

	r := NewRegistry("thumb")
	r.RegisterTransform("thumb", Resize(2, 2))

	p, err := r.Decode(fsys, "a.png")
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 3}, p.Image.Shape())
}
