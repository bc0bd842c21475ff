package excel_test

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivgo/sqpack"
	"github.com/xivgo/sqpack/excel"
)

// The helpers below independently reconstruct the on-disk conventions
// documented for the sqpack/excel formats (jamcrc path hashing, the
// Standard-file block layout, the .exh/.exd layouts) so these tests
// exercise the library purely through its public API, the same way an
// external client would.

func jamCRC32(data []byte) uint32 { return ^crc32.ChecksumIEEE(data) }

func index1Key(dir, file string) uint64 {
	return uint64(jamCRC32([]byte(dir)))<<32 | uint64(jamCRC32([]byte(file)))
}

func buildRawStandardFile(content []byte) []byte {
	header := make([]byte, 24)
	binary.LittleEndian.PutUint32(header[0:4], 24)
	binary.LittleEndian.PutUint32(header[4:8], 2) // Standard
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(content)))
	binary.LittleEndian.PutUint32(header[20:24], 1)

	const blockInfoSize = 8
	blockInfo := make([]byte, blockInfoSize)
	binary.LittleEndian.PutUint32(blockInfo[0:4], blockInfoSize)
	binary.LittleEndian.PutUint16(blockInfo[4:6], uint16(16+len(content)))
	binary.LittleEndian.PutUint16(blockInfo[6:8], uint16(len(content)))

	blockHeader := make([]byte, 16)
	binary.LittleEndian.PutUint32(blockHeader[8:12], 16001) // raw sentinel
	binary.LittleEndian.PutUint32(blockHeader[12:16], uint32(len(content)))

	out := append([]byte{}, header...)
	out = append(out, blockInfo...)
	out = append(out, blockHeader...)
	out = append(out, content...)
	return out
}

type namedFile struct {
	name    string
	content []byte
}

// writeFixtureArchive lays a single chunk (category exd, repository
// ffxiv, chunk 0) on disk containing every named file, each addressable
// by its jamcrc Index1 hash.
func writeFixtureArchive(t *testing.T, dir string, files []namedFile) {
	t.Helper()

	var datBuf []byte
	type entry struct {
		hash   uint64
		packed uint32
	}
	var entries []entry

	for _, f := range files {
		offset := uint32(len(datBuf))
		blob := buildRawStandardFile(f.content)
		datBuf = append(datBuf, blob...)
		if pad := (128 - len(datBuf)%128) % 128; pad > 0 {
			datBuf = append(datBuf, make([]byte, pad)...)
		}
		packed := (offset >> 7) << 4 // dat ordinal 0
		entries = append(entries, entry{hash: index1Key("exd/ffxiv", f.name), packed: packed})
	}

	datName := filepath.Join(dir, "0a0000.win32.dat0")
	require.NoError(t, os.WriteFile(datName, datBuf, 0o644))

	const entrySize = 16
	indexBuf := make([]byte, 1024+16+len(entries)*entrySize)
	copy(indexBuf[0:8], []byte{'S', 'q', 'P', 'a', 'c', 'k', 0, 0})
	binary.LittleEndian.PutUint32(indexBuf[16:20], 2) // sqpackKindIndex

	seg := indexBuf[1024 : 1024+16]
	binary.LittleEndian.PutUint32(seg[8:12], uint32(1024+16))
	binary.LittleEndian.PutUint32(seg[12:16], uint32(len(entries)*entrySize))

	data := indexBuf[1024+16:]
	for i, e := range entries {
		off := i * entrySize
		binary.LittleEndian.PutUint64(data[off:off+8], e.hash)
		binary.LittleEndian.PutUint32(data[off+8:off+12], e.packed)
	}

	indexName := filepath.Join(dir, "0a0000.win32.index")
	require.NoError(t, os.WriteFile(indexName, indexBuf, 0o644))
}

func buildEXH(rowSize uint16, kind excel.SheetKind, columns []excel.ColumnDef, pages []excel.PageDefinition, languages []uint8) []byte {
	buf := make([]byte, 16)
	copy(buf[0:4], []byte{'E', 'X', 'H', 'F'})
	binary.BigEndian.PutUint16(buf[6:8], rowSize)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(columns)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(pages)))
	binary.BigEndian.PutUint16(buf[12:14], uint16(len(languages)))
	buf[14] = byte(kind)

	for _, c := range columns {
		entry := make([]byte, 4)
		binary.BigEndian.PutUint16(entry[0:2], uint16(c.Kind))
		binary.BigEndian.PutUint16(entry[2:4], c.Offset)
		buf = append(buf, entry...)
	}
	for _, p := range pages {
		entry := make([]byte, 8)
		binary.BigEndian.PutUint32(entry[0:4], p.StartID)
		binary.BigEndian.PutUint32(entry[4:8], p.RowCount)
		buf = append(buf, entry...)
	}
	for _, l := range languages {
		buf = append(buf, l)
	}
	return buf
}

type exdRow struct {
	rowID       uint32
	subrowCount uint16
	content     []byte // already includes any string tail
}

func buildEXD(rowSize int, rows []exdRow) []byte {
	const rowOffsetSize = 8
	const rowHeaderSize = 6

	indexSize := len(rows) * rowOffsetSize
	var dataBuf []byte
	rowOffsets := make([]byte, indexSize)

	for i, r := range rows {
		off := uint32(len(dataBuf))
		binary.BigEndian.PutUint32(rowOffsets[i*rowOffsetSize:i*rowOffsetSize+4], r.rowID)
		binary.BigEndian.PutUint32(rowOffsets[i*rowOffsetSize+4:i*rowOffsetSize+8], off)

		header := make([]byte, rowHeaderSize)
		binary.BigEndian.PutUint32(header[0:4], uint32(len(r.content)-rowSize)) // DataSize excludes the fixed row_size region
		binary.BigEndian.PutUint16(header[4:6], r.subrowCount)
		dataBuf = append(dataBuf, header...)
		dataBuf = append(dataBuf, r.content...)
	}

	buf := make([]byte, 32)
	copy(buf[0:4], []byte{'E', 'X', 'D', 'F'})
	binary.BigEndian.PutUint32(buf[8:12], uint32(indexSize))
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(dataBuf)))
	buf = append(buf, rowOffsets...)
	buf = append(buf, dataBuf...)
	return buf
}

func newFixtureExcel(t *testing.T, files []namedFile) *excel.Excel {
	t.Helper()
	dir := t.TempDir()
	writeFixtureArchive(t, dir, files)

	archive, err := sqpack.NewArchive("ffxiv", []sqpack.Repository{{Name: "ffxiv", ID: 0, Path: dir}})
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })

	ex, err := excel.New(archive)
	require.NoError(t, err)
	return ex
}

// Scenario 3: sheet row lookup.
func TestSheet_RowLookup(t *testing.T) {
	columns := []excel.ColumnDef{{Kind: excel.ColumnUInt32, Offset: 0}}
	pages := []excel.PageDefinition{{StartID: 0, RowCount: 10}, {StartID: 100, RowCount: 5}}
	exh := buildEXH(4, excel.SheetKindDefault, columns, pages, []uint8{0})
	exd := buildEXD(4, []exdRow{{rowID: 7, content: []byte{0x00, 0x00, 0x00, 0x2A}}})

	ex := newFixtureExcel(t, []namedFile{
		{name: "t.exh", content: exh},
		{name: "t_0.exd", content: exd},
	})

	ctx := context.Background()
	sheet, err := ex.Sheet(ctx, "t")
	require.NoError(t, err)
	require.Equal(t, excel.SheetKindDefault, sheet.Kind())

	row, err := sheet.Row(ctx, 7)
	require.NoError(t, err)
	v, err := row.Field(0)
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)
}

// Scenario 4: language fallback.
func TestSheet_LanguageFallback(t *testing.T) {
	columns := []excel.ColumnDef{{Kind: excel.ColumnUInt32, Offset: 0}}
	pages := []excel.PageDefinition{{StartID: 0, RowCount: 10}}
	exh := buildEXH(4, excel.SheetKindDefault, columns, pages, []uint8{0, 1})
	exd := buildEXD(4, []exdRow{{rowID: 5, content: []byte{0x00, 0x00, 0x00, 0x2A}}})

	ex := newFixtureExcel(t, []namedFile{
		{name: "lang.exh", content: exh},
		{name: "lang_0.exd", content: exd},
	})

	ctx := context.Background()
	sheet, err := ex.Sheet(ctx, "lang")
	require.NoError(t, err)

	row, err := sheet.Row(ctx, 5, 2) // 2 absent, falls back to neutral 0
	require.NoError(t, err)
	v, err := row.Field(0)
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)
}

func TestSheet_LanguageFallback_NoNeutral(t *testing.T) {
	columns := []excel.ColumnDef{{Kind: excel.ColumnUInt32, Offset: 0}}
	pages := []excel.PageDefinition{{StartID: 0, RowCount: 10}}
	exh := buildEXH(4, excel.SheetKindDefault, columns, pages, []uint8{1, 2})

	ex := newFixtureExcel(t, []namedFile{
		{name: "lang2.exh", content: exh},
	})

	ctx := context.Background()
	sheet, err := ex.Sheet(ctx, "lang2")
	require.NoError(t, err)

	_, err = sheet.Row(ctx, 5, 3)
	require.Error(t, err)
	var notFound *sqpack.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

// Scenario 5: subrow refusal.
func TestSheet_SubrowRefusal(t *testing.T) {
	exh := buildEXH(4, excel.SheetKindDefault, nil, nil, []uint8{0})

	ex := newFixtureExcel(t, []namedFile{
		{name: "d.exh", content: exh},
	})

	ctx := context.Background()
	sheet, err := ex.Sheet(ctx, "d")
	require.NoError(t, err)

	_, err = sheet.Subrow(ctx, 0, 0)
	require.Error(t, err)
	var invalidOp *sqpack.InvalidOperationError
	require.ErrorAs(t, err, &invalidOp)
}
