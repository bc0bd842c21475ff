// Package excel implements the typed, paginated, multilingual row store
// layered on top of the sqpack archive reader: sheet headers, data pages,
// and row field decoding.
package excel

import (
	"encoding/binary"

	"github.com/xivgo/sqpack"
)

// SheetKind distinguishes a sheet whose rows are addressed directly by
// row ID from one whose rows carry a secondary subrow identity.
type SheetKind uint8

const (
	SheetKindDefault SheetKind = 1
	SheetKindSubrows SheetKind = 2
)

// ColumnKind enumerates a column's on-disk representation: fixed-width
// scalars, a string pointer, and eight packed-boolean kinds whose bit
// index within the row byte is encoded in the kind tag itself.
type ColumnKind uint16

const (
	ColumnString  ColumnKind = 0x00
	ColumnInt8    ColumnKind = 0x02
	ColumnUInt8   ColumnKind = 0x03
	ColumnInt16   ColumnKind = 0x04
	ColumnUInt16  ColumnKind = 0x05
	ColumnInt32   ColumnKind = 0x06
	ColumnUInt32  ColumnKind = 0x07
	ColumnFloat32 ColumnKind = 0x09

	ColumnPackedBool0 ColumnKind = 0x19
	ColumnPackedBool7 ColumnKind = 0x20
)

// PackedBoolBit returns the bit index a packed-boolean kind reads, and
// whether k names a packed-boolean kind at all.
func (k ColumnKind) PackedBoolBit() (uint, bool) {
	if k < ColumnPackedBool0 || k > ColumnPackedBool7 {
		return 0, false
	}
	return uint(k - ColumnPackedBool0), true
}

// ColumnDef describes one sheet column: its kind and its byte offset
// within a row's fixed-width region.
type ColumnDef struct {
	Kind   ColumnKind
	Offset uint16
}

// PageDefinition names one contiguous range of row IDs serviced by a
// single ".exd" file.
type PageDefinition struct {
	StartID  uint32
	RowCount uint32
}

// ExcelHeader is the parsed contents of a sheet's ".exh" file.
type ExcelHeader struct {
	RowSize       uint16
	ColumnCount   uint16
	PageCount     uint16
	LanguageCount uint16
	Kind          SheetKind

	Columns   []ColumnDef
	Pages     []PageDefinition
	Languages map[uint8]struct{}
}

var exhMagic = [4]byte{'E', 'X', 'H', 'F'}

const exhHeaderSize = 16

// ParseHeader parses a sheet's ".exh" byte buffer.
func ParseHeader(data []byte) (*ExcelHeader, error) {
	if len(data) < exhHeaderSize {
		return nil, sqpack.NewResource("excel header", exhHeaderSize, len(data))
	}
	var magic [4]byte
	copy(magic[:], data[0:4])
	if magic != exhMagic {
		return nil, sqpack.NewResourcef(nil, "Failed to read excel header. Bad magic bytes.")
	}

	h := &ExcelHeader{
		RowSize:       binary.BigEndian.Uint16(data[6:8]),
		ColumnCount:   binary.BigEndian.Uint16(data[8:10]),
		PageCount:     binary.BigEndian.Uint16(data[10:12]),
		LanguageCount: binary.BigEndian.Uint16(data[12:14]),
		Kind:          SheetKind(data[14]),
	}

	pos := exhHeaderSize

	h.Columns = make([]ColumnDef, h.ColumnCount)
	for i := range h.Columns {
		if pos+4 > len(data) {
			return nil, sqpack.NewResource("excel column table", pos+4, len(data))
		}
		h.Columns[i] = ColumnDef{
			Kind:   ColumnKind(binary.BigEndian.Uint16(data[pos : pos+2])),
			Offset: binary.BigEndian.Uint16(data[pos+2 : pos+4]),
		}
		pos += 4
	}

	h.Pages = make([]PageDefinition, h.PageCount)
	for i := range h.Pages {
		if pos+8 > len(data) {
			return nil, sqpack.NewResource("excel page table", pos+8, len(data))
		}
		h.Pages[i] = PageDefinition{
			StartID:  binary.BigEndian.Uint32(data[pos : pos+4]),
			RowCount: binary.BigEndian.Uint32(data[pos+4 : pos+8]),
		}
		pos += 8
	}

	h.Languages = make(map[uint8]struct{}, h.LanguageCount)
	for i := uint16(0); i < h.LanguageCount; i++ {
		if pos+1 > len(data) {
			return nil, sqpack.NewResource("excel language table", pos+1, len(data))
		}
		h.Languages[data[pos]] = struct{}{}
		pos++
	}

	return h, nil
}
