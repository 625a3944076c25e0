// Package fixture writes synthetic dataset trees that match a definition.
// Every leaf gets a fixed number of files per declared extension, with
// content the default decoders accept.
package fixture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/image/bmp"

	"github.com/agentic-research/parda/api"
)

// Side is the edge length of generated images.
const Side = 8

// Generate writes perLeaf files for each extension of every node in def
// under def.SourceDir on fsys, creating directories for every node. It
// returns the paths written.
func Generate(fsys billy.Filesystem, def *api.Definition, perLeaf int) ([]string, error) {
	g := &generator{fsys: fsys, perLeaf: perLeaf}
	if err := fsys.MkdirAll(def.SourceDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", def.SourceDir, err)
	}
	if err := g.nodes(def.SourceDir, def.Structure); err != nil {
		return nil, err
	}
	return g.written, nil
}

type generator struct {
	fsys    billy.Filesystem
	perLeaf int
	written []string
}

func (g *generator) nodes(dir string, nodes []*api.Node) error {
	for _, n := range nodes {
		p := g.fsys.Join(dir, n.Name)
		if err := g.fsys.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
		for _, ext := range n.Extensions {
			for i := 0; i < g.perLeaf; i++ {
				name := g.fsys.Join(p, fmt.Sprintf("%s_%03d%s", n.Name, i, ext))
				data, err := Content(ext, i)
				if err != nil {
					return fmt.Errorf("encode %s: %w", name, err)
				}
				if err := util.WriteFile(g.fsys, name, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				g.written = append(g.written, name)
			}
		}
		if err := g.nodes(p, n.Children); err != nil {
			return err
		}
	}
	return nil
}

// Content returns file content for ext. Image extensions get an encoded
// Side x Side gradient seeded by i; anything else gets a line of text.
func Content(ext string, i int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(&buf, gradient(i))
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, gradient(i), nil)
	case ".bmp":
		err = bmp.Encode(&buf, gradient(i))
	case ".csv":
		fmt.Fprintf(&buf, "id,value\n%d,%d\n", i, i*i)
	default:
		fmt.Fprintf(&buf, "sample %d\n", i)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gradient(seed int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, Side, Side))
	for y := 0; y < Side; y++ {
		for x := 0; x < Side; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: uint8(seed), A: 0xff})
		}
	}
	return img
}
