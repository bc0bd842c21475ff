package sqpack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFixtureChunk lays out a single-chunk repository on disk: one
// ".index" table with a single entry pointing at a Standard file stored at
// offset 0 of chunk 0's ".dat0".
func writeFixtureChunk(t *testing.T, dir string, categoryID, repositoryID uint8, dirKey, fileKey string, content []byte) {
	t.Helper()

	block := buildBlock(t, content, false)
	const tableSize = 8
	blockInfos := make([]byte, tableSize)
	putU32(blockInfos, 0, tableSize)
	putU16(blockInfos, 4, uint16(len(block)))
	putU16(blockInfos, 6, uint16(len(content)))

	header := buildFileHeader(FileKindStandard, uint32(len(content)), 1)
	fileBytes := append(append(append([]byte{}, header...), blockInfos...), block...)

	datName := chunkFileName(categoryID, repositoryID, 0, "dat0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, datName), fileBytes, 0o644))

	indexData := buildIndexFile(t, []struct {
		hash   uint64
		packed uint32
	}{
		{hash: index1Key(dirKey, fileKey), packed: encodePackedDatOffset(indexEntry{DatOrdinal: 0, Offset: 0})},
	})
	indexName := chunkFileName(categoryID, repositoryID, 0, "index")
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexName), indexData, 0o644))
}

func TestArchive_ReadFile_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	content := []byte("EXLT,2\r\nAddon,0\r\n")
	exdCategory, _ := categoryByName("exd")
	writeFixtureChunk(t, dir, exdCategory.ID, 0, "exd/ffxiv", "root.exl", content)

	archive, err := NewArchive("ffxiv", []Repository{{Name: "ffxiv", ID: 0, Path: dir}})
	require.NoError(t, err)
	defer archive.Close()

	got, err := archive.ReadFile(context.Background(), "exd/root.exl")
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestArchive_ReadFile_NotFound(t *testing.T) {
	dir := t.TempDir()
	content := []byte("EXLT,2\r\nAddon,0\r\n")
	exdCategory, _ := categoryByName("exd")
	writeFixtureChunk(t, dir, exdCategory.ID, 0, "exd/ffxiv", "root.exl", content)

	archive, err := NewArchive("ffxiv", []Repository{{Name: "ffxiv", ID: 0, Path: dir}})
	require.NoError(t, err)
	defer archive.Close()

	_, err = archive.ReadFile(context.Background(), "exd/missing.exl")
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestArchive_List(t *testing.T) {
	dir := t.TempDir()
	content := []byte("EXLT,2\r\nAddon,0\r\nItem,1\r\n")
	exdCategory, _ := categoryByName("exd")
	writeFixtureChunk(t, dir, exdCategory.ID, 0, "exd/ffxiv", "root.exl", content)

	archive, err := NewArchive("ffxiv", []Repository{{Name: "ffxiv", ID: 0, Path: dir}})
	require.NoError(t, err)
	defer archive.Close()

	names, err := archive.List(context.Background(), "exd", "root")
	require.NoError(t, err)
	require.Equal(t, []string{"Addon", "Item"}, names)
}

func TestArchive_UnknownDefaultRepository(t *testing.T) {
	_, err := NewArchive("missing", []Repository{{Name: "ffxiv", ID: 0, Path: t.TempDir()}})
	require.Error(t, err)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
