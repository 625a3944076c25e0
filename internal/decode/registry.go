// Package decode turns dataset files into payloads, keyed by extension.
//
// Images (.jpg .jpeg .png .bmp) are decoded, run through the definition's
// transformations in order, and converted to a Pixels array. Text files
// (.txt .csv) are read whole.
package decode

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"golang.org/x/image/bmp"
)

var (
	// ErrUnsupportedExtension is returned for files no decoder is registered for.
	ErrUnsupportedExtension = errors.New("unsupported extension")
	// ErrDecode is returned when a registered decoder fails on a file.
	ErrDecode = errors.New("decode failed")
)

// Func decodes the content read from r.
type Func func(r io.Reader) (Payload, error)

// ImageFunc decodes a single image format.
type ImageFunc func(r io.Reader) (image.Image, error)

// Registry maps lowercase extensions to decoders.
type Registry struct {
	decoders   map[string]Func
	transforms map[string]Transform
	pipeline   []string
}

// NewRegistry returns a registry with the built-in image and text decoders.
// transformations name the image transforms to apply, in order; names with
// no registered transform are skipped.
func NewRegistry(transformations ...string) *Registry {
	r := &Registry{
		decoders:   make(map[string]Func),
		transforms: builtinTransforms(),
		pipeline:   transformations,
	}
	for _, ext := range []string{".jpg", ".jpeg"} {
		r.RegisterImage(ext, jpeg.Decode)
	}
	r.RegisterImage(".png", png.Decode)
	r.RegisterImage(".bmp", bmp.Decode)
	for _, ext := range []string{".txt", ".csv"} {
		r.Register(ext, decodeText)
	}
	return r
}

// Register installs fn for ext, replacing any previous decoder.
func (r *Registry) Register(ext string, fn Func) {
	r.decoders[strings.ToLower(ext)] = fn
}

// RegisterImage installs an image decoder whose output goes through the
// transformation pipeline.
func (r *Registry) RegisterImage(ext string, fn ImageFunc) {
	r.Register(ext, func(rd io.Reader) (Payload, error) {
		img, err := fn(rd)
		if err != nil {
			return Payload{}, err
		}
		img, err = r.apply(img)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Kind: KindImage, Image: ToPixels(img)}, nil
	})
}

// RegisterTransform makes name available to the pipeline.
func (r *Registry) RegisterTransform(name string, t Transform) {
	r.transforms[name] = t
}

// Supports reports whether a decoder is registered for the file's extension.
func (r *Registry) Supports(p string) bool {
	_, ok := r.decoders[strings.ToLower(path.Ext(p))]
	return ok
}

// Decode opens p on fsys and decodes it with the decoder for its extension.
func (r *Registry) Decode(fsys billy.Filesystem, p string) (Payload, error) {
	ext := strings.ToLower(path.Ext(p))
	fn, ok := r.decoders[ext]
	if !ok {
		return Payload{}, fmt.Errorf("%s: %w %q", p, ErrUnsupportedExtension, ext)
	}

	f, err := fsys.Open(p)
	if err != nil {
		return Payload{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	payload, err := fn(f)
	if err != nil {
		return Payload{}, fmt.Errorf("%s: %w: %w", p, ErrDecode, err)
	}
	payload.Path = p
	return payload, nil
}

func (r *Registry) apply(img image.Image) (image.Image, error) {
	for _, name := range r.pipeline {
		t, ok := r.transforms[name]
		if !ok {
			continue
		}
		var err error
		if img, err = t(img); err != nil {
			return nil, fmt.Errorf("transform %s: %w", name, err)
		}
	}
	return img, nil
}

func decodeText(r io.Reader) (Payload, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Kind: KindText, Text: string(b)}, nil
}
