package excel

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xivgo/sqpack"
)

// NeutralLanguage is the sentinel language code used when no localized
// page exists for a row.
const NeutralLanguage uint8 = 0

// Excel is the Sheet Engine: it resolves (sheet, row, subrow, language)
// tuples to decoded row views via an underlying Archive, lazily loading
// and caching each sheet's ".exh" header for the Excel's lifetime. ".exd"
// pages are not cached, matching the archive facade's own policy of
// caching only what correctness requires.
type Excel struct {
	archive *sqpack.Archive
	log     sqpack.Logger

	headers *lru.Cache[string, *ExcelHeader]
}

// Option configures an Excel at construction time.
type Option func(*Excel)

// WithLogger attaches a structured logger; a nil logger is equivalent to
// not calling WithLogger.
func WithLogger(l sqpack.Logger) Option {
	return func(e *Excel) {
		if l != nil {
			e.log = l
		}
	}
}

type noopLogger struct{}

func (noopLogger) Debugw(string, ...interface{}) {}
func (noopLogger) Warnw(string, ...interface{})  {}

// New constructs an Excel over an already-constructed Archive.
func New(archive *sqpack.Archive, opts ...Option) (*Excel, error) {
	cache, err := lru.New[string, *ExcelHeader](512)
	if err != nil {
		return nil, sqpack.NewResourcef(err, "Failed to construct Excel. Could not allocate header cache.")
	}
	e := &Excel{archive: archive, log: noopLogger{}, headers: cache}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// List returns every sheet name in the root manifest.
func (e *Excel) List(ctx context.Context) ([]string, error) {
	return e.archive.List(ctx, "exd", "root")
}

// Sheet lazily loads and caches name's ".exh" header, returning a handle
// bound to this Excel.
func (e *Excel) Sheet(ctx context.Context, name string) (*SheetHandle, error) {
	if h, ok := e.headers.Get(name); ok {
		return &SheetHandle{excel: e, name: name, header: h}, nil
	}

	data, err := e.archive.ReadFile(ctx, fmt.Sprintf("exd/%s.exh", name))
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	e.headers.Add(name, h)
	return &SheetHandle{excel: e, name: name, header: h}, nil
}

// SheetHandle is a loaded sheet's header bound to the Excel it came from.
type SheetHandle struct {
	excel  *Excel
	name   string
	header *ExcelHeader
}

func (s *SheetHandle) Kind() SheetKind       { return s.header.Kind }
func (s *SheetHandle) Columns() []ColumnDef  { return s.header.Columns }
func (s *SheetHandle) RowSize() int          { return int(s.header.RowSize) }
func (s *SheetHandle) HasLanguage(l uint8) bool {
	_, ok := s.header.Languages[l]
	return ok
}

// resolveLanguage implements requested → neutral(0) fallback. The header
// carries no separate notion of a per-sheet "default" language distinct
// from the neutral sentinel, so those two tiers of spec.md's three-tier
// resolution order collapse into one here; see DESIGN.md.
func (s *SheetHandle) resolveLanguage(requested uint8) (uint8, error) {
	if s.HasLanguage(requested) {
		return requested, nil
	}
	if requested != NeutralLanguage && s.HasLanguage(NeutralLanguage) {
		return NeutralLanguage, nil
	}
	return 0, sqpack.NewNotFound(fmt.Sprintf("Language %d", requested))
}

func (s *SheetHandle) pageFor(rowID uint32) (PageDefinition, error) {
	pages := s.header.Pages
	i := sort.Search(len(pages), func(i int) bool {
		return pages[i].StartID+pages[i].RowCount > rowID
	})
	if i >= len(pages) || rowID < pages[i].StartID {
		return PageDefinition{}, sqpack.NewNotFound(fmt.Sprintf("Row ID %d", rowID))
	}
	return pages[i], nil
}

func (s *SheetHandle) loadPage(ctx context.Context, page PageDefinition, lang uint8) (*ExcelPage, error) {
	var path string
	if lang == NeutralLanguage {
		path = fmt.Sprintf("exd/%s_%d.exd", s.name, page.StartID)
	} else {
		path = fmt.Sprintf("exd/%s_%d_lang%d.exd", s.name, page.StartID, lang)
	}
	data, err := s.excel.archive.ReadFile(ctx, path)
	if err != nil {
		s.excel.log.Debugw("excel: page not found", "sheet", s.name, "page", page.StartID, "language", lang)
		return nil, err
	}
	return ParsePage(data)
}

// Row resolves a Default-kind sheet's row. language defaults to
// NeutralLanguage when omitted.
func (s *SheetHandle) Row(ctx context.Context, rowID uint32, language ...uint8) (*RowView, error) {
	if s.header.Kind != SheetKindDefault {
		return nil, sqpack.NewInvalidOperation(fmt.Sprintf("Sheet %q is not a Default-kind sheet.", s.name))
	}

	lang, err := s.resolveLanguage(requestedLanguage(language))
	if err != nil {
		return nil, err
	}
	page, err := s.pageFor(rowID)
	if err != nil {
		return nil, err
	}
	p, err := s.loadPage(ctx, page, lang)
	if err != nil {
		return nil, err
	}
	hdr, start, err := p.RowAt(rowID)
	if err != nil {
		return nil, err
	}

	total := int(s.header.RowSize) + int(hdr.DataSize)
	if start+total > len(p.Data) {
		return nil, sqpack.NewResource("row", start+total, len(p.Data))
	}
	return &RowView{
		Columns: s.header.Columns,
		RowSize: int(s.header.RowSize),
		Bytes:   p.Data[start : start+total],
		Header:  hdr,
	}, nil
}

// Subrow resolves a Subrows-kind sheet's (row, subrow) pair. Each subrow
// block is {subrow_id uint16}{row_size fixed-width bytes}; subrows do not
// carry their own string tail in this implementation — see DESIGN.md.
func (s *SheetHandle) Subrow(ctx context.Context, rowID uint32, subrowID uint16, language ...uint8) (*RowView, error) {
	if s.header.Kind != SheetKindSubrows {
		return nil, sqpack.NewInvalidOperation(fmt.Sprintf("Sheet %q is not a Subrows-kind sheet.", s.name))
	}

	lang, err := s.resolveLanguage(requestedLanguage(language))
	if err != nil {
		return nil, err
	}
	page, err := s.pageFor(rowID)
	if err != nil {
		return nil, err
	}
	p, err := s.loadPage(ctx, page, lang)
	if err != nil {
		return nil, err
	}
	hdr, start, err := p.RowAt(rowID)
	if err != nil {
		return nil, err
	}
	if subrowID >= hdr.SubrowCount {
		return nil, sqpack.NewNotFound(fmt.Sprintf("Subrow %d of row %d", subrowID, rowID))
	}

	const subrowIDSize = 2
	subrowSize := subrowIDSize + int(s.header.RowSize)
	subStart := start + int(subrowID)*subrowSize
	if subStart+subrowSize > len(p.Data) {
		return nil, sqpack.NewResource("subrow", subStart+subrowSize, len(p.Data))
	}
	return &RowView{
		Columns: s.header.Columns,
		RowSize: int(s.header.RowSize),
		Bytes:   p.Data[subStart+subrowIDSize : subStart+subrowSize],
		Header:  hdr,
	}, nil
}

func requestedLanguage(language []uint8) uint8 {
	if len(language) == 0 {
		return NeutralLanguage
	}
	return language[0]
}
