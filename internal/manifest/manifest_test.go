package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/parda/api"
	"github.com/agentic-research/parda/internal/materialize"
)

func testCatalog() *Catalog {
	def := &api.Definition{Name: "pets", SourceDir: "data"}
	return New(def, []materialize.Leaf{
		{
			Key:        []string{"images", "train", "cat"},
			Dir:        "data/images/train/cat",
			Extensions: []string{".jpg", ".png"},
			Files:      []string{"data/images/train/cat/a.jpg", "data/images/train/cat/b.PNG"},
		},
		{
			Key:        []string{"images", "train", "dog"},
			Dir:        "data/images/train/dog",
			Extensions: []string{".jpg"},
			Files:      []string{"data/images/train/dog/c.jpg"},
		},
		{
			Key:        []string{"images", materialize.FilesKey},
			Dir:        "data/images",
			Extensions: []string{".txt"},
			Files:      nil,
		},
	})
}

func TestCatalog_Indexes(t *testing.T) {
	c := testCatalog()

	_, err := uuid.Parse(c.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{".jpg", ".png"}, c.Extensions())

	assert.Equal(t, []uint32{0, 2}, c.ByExtension(".JPG").ToArray())
	assert.Equal(t, []uint32{1}, c.ByExtension(".png").ToArray())
	assert.True(t, c.ByExtension(".gif").IsEmpty())

	assert.Equal(t, []uint32{0, 1}, c.ByLeaf("images/train/cat").ToArray())
	assert.True(t, c.ByLeaf("images/files").IsEmpty())
	assert.True(t, c.ByLeaf("nope").IsEmpty())
}

func TestCatalog_ByExtensionReturnsCopy(t *testing.T) {
	c := testCatalog()
	c.ByExtension(".jpg").Clear()
	assert.Equal(t, uint64(2), c.ByExtension(".jpg").GetCardinality())
}

func TestCatalog_Select(t *testing.T) {
	c := testCatalog()
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{
			"data/images/train/cat/a.jpg", "data/images/train/cat/b.PNG", "data/images/train/dog/c.jpg",
		}},
		{"extension", Query{Extensions: []string{".jpg"}}, []string{
			"data/images/train/cat/a.jpg", "data/images/train/dog/c.jpg",
		}},
		{"leaf", Query{Leaves: []string{"images/train/dog"}}, []string{"data/images/train/dog/c.jpg"}},
		{"extension and leaf", Query{Extensions: []string{".png"}, Leaves: []string{"images/train/cat", "images/train/dog"}}, []string{
			"data/images/train/cat/b.PNG",
		}},
		{"no match", Query{Extensions: []string{".gif"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Select(tt.q))
		})
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "manifest.db")

	w, err := Open(dbPath)
	require.NoError(t, err)
	c := testCatalog()
	require.NoError(t, w.Write(ctx, c))
	require.NoError(t, w.Close())

	// Reopen to read what was committed.
	w, err = Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	runs, err := w.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, c.RunID, runs[0].ID)
	assert.Equal(t, "pets", runs[0].Dataset)
	assert.Equal(t, "data", runs[0].SourceDir)
	assert.Equal(t, 3, runs[0].Files)
	assert.True(t, c.CreatedAt.Equal(runs[0].CreatedAt))

	files, err := w.LeafFiles(ctx, c.RunID, "images/train/cat")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/images/train/cat/a.jpg", "data/images/train/cat/b.PNG"}, files)

	files, err = w.LeafFiles(ctx, c.RunID, "images/files")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = w.LeafFiles(ctx, c.RunID, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWriter_MultipleRuns(t *testing.T) {
	ctx := context.Background()
	w, err := Open(filepath.Join(t.TempDir(), "manifest.db"))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	first, second := testCatalog(), testCatalog()
	require.NoError(t, w.Write(ctx, first))
	require.NoError(t, w.Write(ctx, second))

	runs, err := w.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.ElementsMatch(t, []string{first.RunID, second.RunID}, []string{runs[0].ID, runs[1].ID})

	// Writing the same run twice violates the primary key and leaves no
	// partial rows behind.
	require.Error(t, w.Write(ctx, first))
	runs, err = w.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
