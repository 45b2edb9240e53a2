package metastore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/pixport/internal/model"
)

func TestMapSQLiteError(t *testing.T) {
	assert.Nil(t, mapSQLiteError(nil))
	assert.ErrorIs(t, mapSQLiteError(errors.New("UNIQUE constraint failed: containers.kind")), ErrDuplicate)
	assert.ErrorIs(t, mapSQLiteError(errors.New("FOREIGN KEY constraint failed")), ErrConstraint)
	assert.ErrorIs(t, mapSQLiteError(errors.New("CHECK constraint failed: kind")), ErrConstraint)

	other := errors.New("disk I/O error")
	assert.Equal(t, other, mapSQLiteError(other))
}

func TestResolveTarget_None(t *testing.T) {
	h := newHarness(t)
	got, err := h.store.ResolveTarget(context.Background(), model.Target{})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestResolveTarget_ByNameCreatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetDataset, Name: "  Mitosis  "})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "Mitosis", first.Name)

	second, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetDataset, Name: "Mitosis"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.count(t, "SELECT COUNT(*) FROM containers"))

	// Same name, different kind, is a different container.
	screen, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetScreen, Name: "Mitosis"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, screen.ID)
}

func TestResolveTarget_ByID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetScreen, Name: "plates"})
	require.NoError(t, err)

	got, err := h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetScreen, ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "plates", got.Name)

	_, err = h.store.ResolveTarget(ctx, model.Target{Kind: model.TargetDataset, ID: created.ID})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveTarget_Invalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		target model.Target
	}{
		{"unknown kind", model.Target{Kind: "project", Name: "x"}},
		{"name without kind", model.Target{Name: "x"}},
		{"kind without id or name", model.Target{Kind: model.TargetDataset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.store.ResolveTarget(ctx, tt.target)
			assert.ErrorIs(t, err, ErrBadTarget)
		})
	}
}

func TestCreateRoot_ResetsState(t *testing.T) {
	h := newHarness(t)
	h.twoByTwo("/data/a.pix.toml")
	h.store.SetUserSpecifiedName("named")
	h.store.SetChannelMinMax(0, 0, 1, 2)

	h.store.CreateRoot()

	assert.Empty(t, h.store.state.series)
	assert.Empty(t, h.store.state.minMax)
	assert.Empty(t, h.store.state.name)
	assert.ErrorIs(t, h.store.PostProcess(context.Background()), ErrNoSeries)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "café", cleanName("café"))
	assert.Equal(t, "ab", cleanName(" a\x00b\t"))
	assert.Equal(t, "", cleanName("   "))
}

func TestFilteredCompanionFiles(t *testing.T) {
	h := newHarness(t)
	h.store.SetSourceFiles("/data/a.pix.toml", []string{
		"/data/a.pix.toml", "/data/a.raw", "/data/notes.TXT", "/data/layout.xml",
	})
	assert.Equal(t, []string{"/data/notes.TXT", "/data/layout.xml"}, h.store.FilteredCompanionFiles())
}
