// Package manifest catalogs the files a definition resolves to.
//
// A Catalog assigns each planned file a dense uint32 ID and keeps roaring
// bitmaps of those IDs per extension and per leaf, so selections across
// leaves and extensions are bitmap unions and intersections. A Writer
// persists catalogs into a SQLite file.
package manifest

import (
	"path"
	"slices"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"

	"github.com/agentic-research/parda/api"
	"github.com/agentic-research/parda/internal/materialize"
)

// Catalog is an immutable index over one Plan.
type Catalog struct {
	RunID     string
	Dataset   string
	SourceDir string
	CreatedAt time.Time

	leaves   []materialize.Leaf
	paths    []string // file ID → path
	fileLeaf []int    // file ID → leaf index
	byExt    map[string]*roaring.Bitmap
	byLeaf   []*roaring.Bitmap
	leafIdx  map[string]int // joined key → leaf index
}

// New builds a catalog for leaves, as returned by Materializer.Plan.
func New(def *api.Definition, leaves []materialize.Leaf) *Catalog {
	c := &Catalog{
		RunID:     uuid.NewString(),
		Dataset:   def.Name,
		SourceDir: def.SourceDir,
		CreatedAt: time.Now().UTC(),
		leaves:    leaves,
		byExt:     make(map[string]*roaring.Bitmap),
		byLeaf:    make([]*roaring.Bitmap, len(leaves)),
		leafIdx:   make(map[string]int, len(leaves)),
	}
	for i, l := range leaves {
		bm := roaring.New()
		for _, p := range l.Files {
			id := uint32(len(c.paths))
			c.paths = append(c.paths, p)
			c.fileLeaf = append(c.fileLeaf, i)
			bm.Add(id)

			ext := Ext(p)
			eb, ok := c.byExt[ext]
			if !ok {
				eb = roaring.New()
				c.byExt[ext] = eb
			}
			eb.Add(id)
		}
		c.byLeaf[i] = bm
		c.leafIdx[LeafKey(l.Key)] = i
	}
	return c
}

// Ext returns the lowercase extension of p, including the dot.
func Ext(p string) string {
	return strings.ToLower(path.Ext(p))
}

// LeafKey joins a leaf's key chain with "/".
func LeafKey(key []string) string {
	return strings.Join(key, "/")
}

// Len returns the number of cataloged files.
func (c *Catalog) Len() int { return len(c.paths) }

// Extensions returns the distinct extensions seen, sorted.
func (c *Catalog) Extensions() []string {
	out := make([]string, 0, len(c.byExt))
	for ext := range c.byExt {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// ByExtension returns the IDs of files with extension ext. The result is a
// copy the caller may modify.
func (c *Catalog) ByExtension(ext string) *roaring.Bitmap {
	if bm, ok := c.byExt[strings.ToLower(ext)]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// ByLeaf returns the IDs of files in the leaf whose joined key is key.
func (c *Catalog) ByLeaf(key string) *roaring.Bitmap {
	if i, ok := c.leafIdx[key]; ok {
		return c.byLeaf[i].Clone()
	}
	return roaring.New()
}

// Query selects files. Empty fields match everything.
type Query struct {
	Extensions []string
	Leaves     []string
}

// Select returns the paths matching q in ID order: files whose extension is
// any of q.Extensions and whose leaf is any of q.Leaves.
func (c *Catalog) Select(q Query) []string {
	bm := c.all()
	if len(q.Extensions) > 0 {
		sets := make([]*roaring.Bitmap, 0, len(q.Extensions))
		for _, ext := range q.Extensions {
			sets = append(sets, c.ByExtension(ext))
		}
		bm.And(roaring.FastOr(sets...))
	}
	if len(q.Leaves) > 0 {
		sets := make([]*roaring.Bitmap, 0, len(q.Leaves))
		for _, key := range q.Leaves {
			sets = append(sets, c.ByLeaf(key))
		}
		bm.And(roaring.FastOr(sets...))
	}

	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, c.paths[it.Next()])
	}
	return out
}

func (c *Catalog) all() *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(len(c.paths)))
	return bm
}
