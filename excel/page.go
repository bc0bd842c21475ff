package excel

import (
	"encoding/binary"
	"sort"

	"github.com/xivgo/sqpack"
)

// RowOffset is one entry in a page's row-offset table: the row's ID and
// its byte offset within the page's data region.
type RowOffset struct {
	RowID  uint32
	Offset uint32
}

// RowHeader precedes every row's (or subrow block's) bytes within a
// page's data region.
type RowHeader struct {
	DataSize    uint32
	SubrowCount uint16
}

// ExcelPage is the parsed contents of one ".exd" file: a row-offset table
// plus the data region it indexes into.
type ExcelPage struct {
	Rows []RowOffset
	Data []byte
}

var exdMagic = [4]byte{'E', 'X', 'D', 'F'}

const (
	exdHeaderSize  = 32
	rowOffsetSize  = 8
	rowHeaderSize  = 6
)

// ParsePage parses a sheet page's ".exd" byte buffer.
func ParsePage(data []byte) (*ExcelPage, error) {
	if len(data) < exdHeaderSize {
		return nil, sqpack.NewResource("excel page header", exdHeaderSize, len(data))
	}
	var magic [4]byte
	copy(magic[:], data[0:4])
	if magic != exdMagic {
		return nil, sqpack.NewResourcef(nil, "Failed to read excel page. Bad magic bytes.")
	}

	indexSize := binary.BigEndian.Uint32(data[8:12])
	dataSize := binary.BigEndian.Uint32(data[12:16])

	indexStart := exdHeaderSize
	indexEnd := indexStart + int(indexSize)
	dataEnd := indexEnd + int(dataSize)
	if dataEnd > len(data) {
		return nil, sqpack.NewResource("excel page", dataEnd, len(data))
	}

	count := int(indexSize) / rowOffsetSize
	rows := make([]RowOffset, count)
	for i := 0; i < count; i++ {
		off := indexStart + i*rowOffsetSize
		rows[i] = RowOffset{
			RowID:  binary.BigEndian.Uint32(data[off : off+4]),
			Offset: binary.BigEndian.Uint32(data[off+4 : off+8]),
		}
	}

	return &ExcelPage{Rows: rows, Data: data[indexEnd:dataEnd]}, nil
}

// RowAt locates rowID's entry in the page's row-offset table and returns
// its RowHeader plus the byte offset, within p.Data, where the row's
// payload begins (immediately after the header). A row-offset table is
// built by the page author at the same time as the data it indexes, so a
// missing entry here means the page itself is corrupt, not that the row
// is legitimately absent — that distinction is resolved one level up, at
// the page-selection stage.
func (p *ExcelPage) RowAt(rowID uint32) (RowHeader, int, error) {
	i := sort.Search(len(p.Rows), func(i int) bool { return p.Rows[i].RowID >= rowID })
	if i >= len(p.Rows) || p.Rows[i].RowID != rowID {
		return RowHeader{}, 0, sqpack.NewResource("row offset entry", 1, 0)
	}

	offset := int(p.Rows[i].Offset)
	if offset+rowHeaderSize > len(p.Data) {
		return RowHeader{}, 0, sqpack.NewResource("row header", offset+rowHeaderSize, len(p.Data))
	}
	h := RowHeader{
		DataSize:    binary.BigEndian.Uint32(p.Data[offset : offset+4]),
		SubrowCount: binary.BigEndian.Uint16(p.Data[offset+4 : offset+6]),
	}
	return h, offset + rowHeaderSize, nil
}
