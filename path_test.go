package sqpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePath_KnownRepository(t *testing.T) {
	known := map[string]struct{}{"ex1": {}}
	p, err := parsePath("exd/ex1/root.exl", known, "ffxiv")
	require.NoError(t, err)
	require.Equal(t, "exd", p.Category)
	require.Equal(t, "ex1", p.Repository)
	require.Equal(t, "root.exl", p.Remainder)
	require.Equal(t, "exd/ex1", p.NormalizedDir)
	require.Equal(t, "root.exl", p.NormalizedRel)
	require.Equal(t, "exd/ex1/root.exl", p.Full)
}

func TestParsePath_DefaultRepositoryInserted(t *testing.T) {
	known := map[string]struct{}{"ex1": {}}
	p, err := parsePath("exd/root.exl", known, "ffxiv")
	require.NoError(t, err)
	require.Equal(t, "exd", p.Category)
	require.Equal(t, "ffxiv", p.Repository)
	require.Equal(t, "root.exl", p.Remainder)
	require.Equal(t, "exd/ffxiv", p.NormalizedDir)
	require.Equal(t, "exd/ffxiv/root.exl", p.Full)
}

func TestParsePath_Lowercased(t *testing.T) {
	known := map[string]struct{}{}
	p, err := parsePath("UI/Icon/000000/000001.tex", known, "ffxiv")
	require.NoError(t, err)
	require.Equal(t, "ui", p.Category)
	require.Equal(t, "ui/ffxiv/icon/000000/000001.tex", p.Full)
}

func TestParsePath_TooFewSegments(t *testing.T) {
	_, err := parsePath("exd", map[string]struct{}{}, "ffxiv")
	require.Error(t, err)
	var invErr *InvalidPathError
	require.ErrorAs(t, err, &invErr)
}

func TestParsePath_NothingAfterRepository(t *testing.T) {
	known := map[string]struct{}{"ex1": {}}
	_, err := parsePath("exd/ex1", known, "ffxiv")
	require.Error(t, err)
	var invErr *InvalidPathError
	require.ErrorAs(t, err, &invErr)
}
