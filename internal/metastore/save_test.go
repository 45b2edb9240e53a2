package metastore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/pixport/internal/model"
)

func TestPostProcess_Naming(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		series   []string
		expected []string
	}{
		{"single unnamed", "", []string{""}, []string{"a.pix.toml"}},
		{"single reader name", "", []string{"cells"}, []string{"cells"}},
		{"multi unnamed", "", []string{"", ""}, []string{"a.pix.toml [0]", "a.pix.toml [1]"}},
		{"single user name", "mine", []string{"cells"}, []string{"mine"}},
		{"multi user name", "mine", []string{"left", ""}, []string{"mine [left]", "mine [1]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.SetSourceFiles("/data/a.pix.toml", nil)
			for i, n := range tt.series {
				h.store.SetSeries(model.SeriesMetadata{Series: i, Name: n, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1})
			}
			h.store.SetUserSpecifiedName(tt.user)
			require.NoError(t, h.store.PostProcess(context.Background()))

			var got []string
			for _, m := range h.store.seriesInOrder() {
				got = append(got, m.Name)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPostProcess_PixelSizeOverride(t *testing.T) {
	h := newHarness(t)
	h.twoByTwo("/data/a.pix.toml")
	h.store.SetUserSpecifiedPhysicalPixelSizes(&model.PhysicalSizes{X: 0.5, Y: 0.5, Z: 2})
	require.NoError(t, h.store.PostProcess(context.Background()))

	pixels, err := h.store.SaveToDB(context.Background())
	require.NoError(t, err)
	require.Len(t, pixels, 1)

	got, err := h.store.Pixels(context.Background(), pixels[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.PhysicalSizes)
	assert.Equal(t, model.PhysicalSizes{X: 0.5, Y: 0.5, Z: 2}, *got.PhysicalSizes)
}

func TestSaveToDB_NoSeries(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.SaveToDB(context.Background())
	assert.ErrorIs(t, err, ErrNoSeries)
}

func TestSaveToDB_SingleSeries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	target, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetDataset, Name: "ds"})
	require.NoError(t, err)

	h.twoByTwo("/data/a.pix.toml", "/data/a.raw")
	h.store.SetChannelMinMax(0, 0, 3, 9)
	h.store.SetUserSpecifiedDescription("first pass")
	h.store.SetUserSpecifiedTarget(target)
	_, err = h.store.SetArchive(false, false)
	require.NoError(t, err)
	require.NoError(t, h.store.PostProcess(ctx))

	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)
	require.Len(t, pixels, 1)

	p := pixels[0]
	assert.NotZero(t, p.ID)
	assert.Equal(t, 0, p.Series)
	assert.Empty(t, p.Digest)
	require.NotNil(t, p.Image)
	assert.Equal(t, "a.pix.toml", p.Image.Name)
	assert.Equal(t, "first pass", p.Image.Description)
	assert.Empty(t, p.OriginalFiles, "not archived")
	_, onPlate := p.PlateID()
	assert.False(t, onPlate)

	stored, err := h.store.Pixels(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.SizeT)
	assert.Equal(t, model.PixelUint16, stored.PixelType)
	assert.Equal(t, "XYZCT", stored.DimensionOrder)

	assert.Equal(t, 1, h.count(t, "SELECT COUNT(*) FROM images WHERE container_id = ?", target.ID))

	stats, err := h.store.ChannelStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int][2]float64{0: {3, 9}}, stats)
}

func TestSaveToDB_ArchiveLinksUsedFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.store.SetSourceFiles("/data/a.pix.toml", []string{"/data/a.pix.toml", "/data/a.raw"})
	for i := 0; i < 2; i++ {
		h.store.SetSeries(model.SeriesMetadata{Series: i, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1})
	}
	_, err := h.store.SetArchive(true, false)
	require.NoError(t, err)
	require.NoError(t, h.store.PostProcess(ctx))

	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)
	require.Len(t, pixels, 2)

	for _, p := range pixels {
		require.Len(t, p.OriginalFiles, 2)
		assert.Equal(t, "/data/a.pix.toml", p.OriginalFiles[0].Path)
		assert.Equal(t, "a.raw", p.OriginalFiles[1].Name)
	}
	// Shared between pixel sets.
	assert.Same(t, pixels[0].OriginalFiles[0], pixels[1].OriginalFiles[0])
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM original_files"))
	assert.Equal(t, 4, h.count(t, "SELECT COUNT(*) FROM pixels_original_files"))
}

func TestSaveToDB_CompanionFilesAnnotateImages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.twoByTwo("/data/a.pix.toml", "/data/a.raw", "/data/notes.txt")
	_, err := h.store.SetArchive(false, false)
	require.NoError(t, err)
	require.NoError(t, h.store.PostProcess(ctx))

	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)

	anns := pixels[0].Image.Annotations
	require.Len(t, anns, 1)
	assert.Equal(t, NamespaceCompanion, anns[0].Namespace)
	assert.Equal(t, "/data/notes.txt", anns[0].File.Path)
}

func TestSaveToDB_Screening(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	screen, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetScreen, Name: "screen"})
	require.NoError(t, err)

	h.store.SetSourceFiles("/data/plate.pix.toml", []string{"/data/plate.pix.toml", "/data/layout.xml"})
	h.store.SetSeries(model.SeriesMetadata{Series: 0, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1, Plate: "P1", WellRow: 0, WellColumn: 0})
	h.store.SetSeries(model.SeriesMetadata{Series: 1, SizeX: 1, SizeY: 1, SizeZ: 1, SizeC: 1, SizeT: 1, Plate: "P1", WellRow: 0, WellColumn: 1})
	h.store.SetUserSpecifiedTarget(screen)
	_, err = h.store.SetArchive(true, false)
	require.NoError(t, err)
	require.NoError(t, h.store.PostProcess(ctx))

	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)
	require.Len(t, pixels, 2)

	id0, ok := pixels[0].PlateID()
	require.True(t, ok)
	id1, _ := pixels[1].PlateID()
	assert.Equal(t, id0, id1, "one plate per file")
	assert.Equal(t, 1, pixels[1].Image.WellSamples[0].Column)

	assert.Equal(t, 1, h.count(t, "SELECT COUNT(*) FROM plates WHERE screen_id = ?", screen.ID))
	assert.Equal(t, 0, h.count(t, "SELECT COUNT(*) FROM images WHERE container_id IS NOT NULL"))
	assert.Equal(t, 2, h.count(t, "SELECT COUNT(*) FROM well_samples"))
}

func TestSetArchive_MetadataFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.twoByTwo("/data/a.pix.toml")
	h.store.SetChannelMinMax(0, 0, 1, 5)

	files, err := h.store.SetArchive(false, true)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, h.store.opts.MetadataDir, filepath.Dir(files[0]))

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "path = /data/a.pix.toml")
	assert.Contains(t, string(data), "pixel_type = uint16")
	assert.Contains(t, string(data), "channel_0 = 1 5")

	require.NoError(t, h.store.PostProcess(ctx))
	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)

	anns := pixels[0].Image.Annotations
	require.Len(t, anns, 1)
	assert.Equal(t, NamespaceMetadata, anns[0].Namespace)
	assert.Equal(t, files[0], anns[0].File.Path)

	h.store.CreateRoot()
	_, err = os.Stat(files[0])
	assert.ErrorIs(t, err, fs.ErrNotExist, "metadata file removed with the file state")
}

func TestSetArchive_ReplacesPreviousMetadataFile(t *testing.T) {
	h := newHarness(t)
	h.twoByTwo("/data/a.pix.toml")

	first, err := h.store.SetArchive(false, true)
	require.NoError(t, err)
	second, err := h.store.SetArchive(false, true)
	require.NoError(t, err)

	_, err = os.Stat(first[0])
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = os.Stat(second[0])
	assert.NoError(t, err)

	entries, err := os.ReadDir(h.store.opts.MetadataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSetArchive_NoMetadataFile(t *testing.T) {
	h := newHarness(t)
	h.twoByTwo("/data/a.pix.toml")
	files, err := h.store.SetArchive(true, false)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.True(t, h.store.state.archive)
}

func TestUpdatePixels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.twoByTwo("/data/a.pix.toml")
	require.NoError(t, h.store.PostProcess(ctx))
	pixels, err := h.store.SaveToDB(ctx)
	require.NoError(t, err)

	pixels[0].Digest = "abc123"
	require.NoError(t, h.store.UpdatePixels(ctx, pixels))

	got, err := h.store.Pixels(ctx, pixels[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Digest)

	err = h.store.UpdatePixels(ctx, []*model.PixelsRecord{{ID: 9999, Digest: "x"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPixels_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.store.Pixels(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
