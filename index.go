package sqpack

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"
)

const sqpackHeaderSize = 1024

// sqpackHeader is the common 1024-byte header at the start of every SqPack
// file (".index", ".index2" and ".datN" alike).
type sqpackHeader struct {
	Magic   [8]byte
	Size    uint32
	Version uint32
	Kind    uint32
}

var sqpackMagic = [8]byte{'S', 'q', 'P', 'a', 'c', 'k', 0, 0}

const (
	sqpackKindSqDB  = 0
	sqpackKindDat   = 1
	sqpackKindIndex = 2
)

// indexSegmentHeader follows the common header in an ".index"/".index2"
// file and locates the hash-sorted entry array (the "file entries"
// segment; the folder and synonym segments some archives carry are not
// needed by this reader and are skipped).
type indexSegmentHeader struct {
	Size       uint32
	Version    uint32
	DataOffset uint32
	DataSize   uint32
}

// indexEntry is one resolved lookup result: which .datN file holds the
// file, and at what byte offset within it.
type indexEntry struct {
	DatOrdinal uint8
	Offset     uint32
}

// index1Table is a parsed, hash-sorted ".index" file.
type index1Table struct {
	hashes  []uint64
	entries []indexEntry
}

// index2Table is a parsed, hash-sorted ".index2" file.
type index2Table struct {
	hashes  []uint32
	entries []indexEntry
}

func readSQPackHeader(r io.Reader, wantKind uint32) (sqpackHeader, error) {
	buf := make([]byte, sqpackHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return sqpackHeader{}, newIO(err)
	}
	var h sqpackHeader
	copy(h.Magic[:], buf[:8])
	h.Size = binary.LittleEndian.Uint32(buf[8:12])
	h.Version = binary.LittleEndian.Uint32(buf[12:16])
	h.Kind = binary.LittleEndian.Uint32(buf[16:20])
	if h.Magic != sqpackMagic {
		return sqpackHeader{}, newResourcef(nil, "Failed to read SqPack header. Bad magic bytes.")
	}
	if h.Kind != wantKind {
		return sqpackHeader{}, newResourcef(nil, "Failed to read SqPack header. Expected kind %d, got %d.", wantKind, h.Kind)
	}
	return h, nil
}

// decodePackedDatOffset splits the packed .index1 offset field: the low 4
// bits hold (dat_ordinal << 1), the remainder is byte_offset >> 7 (so it
// must be multiplied by 128 to recover the real byte offset).
func decodePackedDatOffset(packed uint32) indexEntry {
	ordinal := uint8((packed & 0xF) >> 1)
	offset := (packed >> 4) << 7
	return indexEntry{DatOrdinal: ordinal, Offset: offset}
}

func encodePackedDatOffset(e indexEntry) uint32 {
	return (uint32(e.DatOrdinal) << 1) | ((e.Offset >> 7) << 4)
}

func parseIndex1(data []byte) (*index1Table, error) {
	r := bytes.NewReader(data)
	if _, err := readSQPackHeader(r, sqpackKindIndex); err != nil {
		return nil, err
	}

	segBuf := make([]byte, 16)
	if _, err := io.ReadFull(r, segBuf); err != nil {
		return nil, newIO(err)
	}
	seg := indexSegmentHeader{
		Size:       binary.LittleEndian.Uint32(segBuf[0:4]),
		Version:    binary.LittleEndian.Uint32(segBuf[4:8]),
		DataOffset: binary.LittleEndian.Uint32(segBuf[8:12]),
		DataSize:   binary.LittleEndian.Uint32(segBuf[12:16]),
	}

	if int(seg.DataOffset)+int(seg.DataSize) > len(data) {
		return nil, newResourcef(nil, "Failed to read index. Segment table out of bounds.")
	}

	const entrySize = 16
	count := int(seg.DataSize) / entrySize
	table := &index1Table{
		hashes:  make([]uint64, count),
		entries: make([]indexEntry, count),
	}

	entries := data[seg.DataOffset : seg.DataOffset+seg.DataSize]
	for i := 0; i < count; i++ {
		off := i * entrySize
		hash := binary.LittleEndian.Uint64(entries[off : off+8])
		packed := binary.LittleEndian.Uint32(entries[off+8 : off+12])
		table.hashes[i] = hash
		table.entries[i] = decodePackedDatOffset(packed)
	}

	if !sort.SliceIsSorted(table.hashes, func(i, j int) bool { return table.hashes[i] < table.hashes[j] }) {
		sortIndex1(table)
	}

	return table, nil
}

func sortIndex1(t *index1Table) {
	idx := make([]int, len(t.hashes))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return t.hashes[idx[i]] < t.hashes[idx[j]] })
	hashes := make([]uint64, len(idx))
	entries := make([]indexEntry, len(idx))
	for i, j := range idx {
		hashes[i] = t.hashes[j]
		entries[i] = t.entries[j]
	}
	t.hashes, t.entries = hashes, entries
}

func (t *index1Table) lookup(key uint64) (indexEntry, error) {
	i := sort.Search(len(t.hashes), func(i int) bool { return t.hashes[i] >= key })
	if i >= len(t.hashes) || t.hashes[i] != key {
		return indexEntry{}, newNotFound("Index entry")
	}
	return t.entries[i], nil
}

func parseIndex2(data []byte) (*index2Table, error) {
	r := bytes.NewReader(data)
	if _, err := readSQPackHeader(r, sqpackKindIndex); err != nil {
		return nil, err
	}

	segBuf := make([]byte, 16)
	if _, err := io.ReadFull(r, segBuf); err != nil {
		return nil, newIO(err)
	}
	seg := indexSegmentHeader{
		Size:       binary.LittleEndian.Uint32(segBuf[0:4]),
		Version:    binary.LittleEndian.Uint32(segBuf[4:8]),
		DataOffset: binary.LittleEndian.Uint32(segBuf[8:12]),
		DataSize:   binary.LittleEndian.Uint32(segBuf[12:16]),
	}

	if int(seg.DataOffset)+int(seg.DataSize) > len(data) {
		return nil, newResourcef(nil, "Failed to read index2. Segment table out of bounds.")
	}

	const entrySize = 8
	count := int(seg.DataSize) / entrySize
	table := &index2Table{
		hashes:  make([]uint32, count),
		entries: make([]indexEntry, count),
	}

	entries := data[seg.DataOffset : seg.DataOffset+seg.DataSize]
	for i := 0; i < count; i++ {
		off := i * entrySize
		hash := binary.LittleEndian.Uint32(entries[off : off+4])
		packed := binary.LittleEndian.Uint32(entries[off+4 : off+8])
		table.hashes[i] = hash
		table.entries[i] = decodePackedDatOffset(packed)
	}

	if !sort.SliceIsSorted(table.hashes, func(i, j int) bool { return table.hashes[i] < table.hashes[j] }) {
		sortIndex2(table)
	}

	return table, nil
}

func sortIndex2(t *index2Table) {
	idx := make([]int, len(t.hashes))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return t.hashes[idx[i]] < t.hashes[idx[j]] })
	hashes := make([]uint32, len(idx))
	entries := make([]indexEntry, len(idx))
	for i, j := range idx {
		hashes[i] = t.hashes[j]
		entries[i] = t.entries[j]
	}
	t.hashes, t.entries = hashes, entries
}

func (t *index2Table) lookup(key uint32) (indexEntry, error) {
	i := sort.Search(len(t.hashes), func(i int) bool { return t.hashes[i] >= key })
	if i >= len(t.hashes) || t.hashes[i] != key {
		return indexEntry{}, newNotFound("Index2 entry")
	}
	return t.entries[i], nil
}
