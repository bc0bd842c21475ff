package sqpack

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
)

// FileKind enumerates the four block layouts a SqPack file header can
// declare.
type FileKind uint32

const (
	FileKindEmpty    FileKind = 1
	FileKindStandard FileKind = 2
	FileKindModel    FileKind = 3
	FileKindTexture  FileKind = 4
)

// maxCompressedBlockSize is the sentinel used by the on-disk format to mark
// a block as stored raw rather than DEFLATEd. It is a format constant, not
// a tunable: a block header reporting a compressed size above this value
// is, by construction, raw.
const maxCompressedBlockSize = 16000

// fileHeader is the 24-byte header at the start of every file's payload in
// a ".datN" file. HeaderSize may be larger than 24 (the format pads it to
// an alignment boundary); the payload begins at HeaderSize bytes past the
// start of the header, not at a fixed 24.
type fileHeader struct {
	HeaderSize  uint32
	Kind        FileKind
	RawFileSize uint32
	BlockCount  uint32
}

func readFileHeader(r io.ReadSeeker) (fileHeader, error) {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fileHeader{}, newIO(err)
	}
	return fileHeader{
		HeaderSize:  binary.LittleEndian.Uint32(buf[0:4]),
		Kind:        FileKind(binary.LittleEndian.Uint32(buf[4:8])),
		RawFileSize: binary.LittleEndian.Uint32(buf[8:12]),
		// buf[12:20] is the two reserved/unknown u32 fields.
		BlockCount: binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// blockInfo is a Standard-file block descriptor: offset is relative to the
// payload start.
type blockInfo struct {
	Offset           uint32
	CompressedSize   uint16
	DecompressedSize uint16
}

func readBlockInfos(r io.ReadSeeker, count uint32) ([]blockInfo, error) {
	out := make([]blockInfo, count)
	buf := make([]byte, 8)
	for i := range out {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, newIO(err)
		}
		out[i] = blockInfo{
			Offset:           binary.LittleEndian.Uint32(buf[0:4]),
			CompressedSize:   binary.LittleEndian.Uint16(buf[4:6]),
			DecompressedSize: binary.LittleEndian.Uint16(buf[6:8]),
		}
	}
	return out, nil
}

// lodBlockInfo is a Texture-file LOD descriptor.
type lodBlockInfo struct {
	CompressedOffset uint32
	BlockOffset      uint32
	BlockCount       uint32
}

func readLODBlockInfos(r io.ReadSeeker, count uint32) ([]lodBlockInfo, error) {
	out := make([]lodBlockInfo, count)
	buf := make([]byte, 20)
	for i := range out {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, newIO(err)
		}
		out[i] = lodBlockInfo{
			CompressedOffset: binary.LittleEndian.Uint32(buf[0:4]),
			// buf[4:8] compressed_size, buf[8:12] decompressed_size: unused
			// by this reader, the authoritative sizes live in the
			// per-block header read at decode time.
			BlockOffset: binary.LittleEndian.Uint32(buf[12:16]),
			BlockCount:  binary.LittleEndian.Uint32(buf[16:20]),
		}
	}
	return out, nil
}

// blockHeader precedes every individual compressed or raw block.
type blockHeader struct {
	CompressedSize   uint32
	DecompressedSize uint32
}

func readBlockHeader(r io.ReadSeeker) (blockHeader, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(r, buf); err != nil {
		return blockHeader{}, newIO(err)
	}
	return blockHeader{
		// buf[0:4] header size, buf[4:8] unknown: unused.
		CompressedSize:   binary.LittleEndian.Uint32(buf[8:12]),
		DecompressedSize: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// decodeBlock reads and decodes a single block at the reader's current
// position, appending its decompressed bytes to dst. A block whose header
// reports a compressed size above maxCompressedBlockSize is stored raw;
// otherwise it is raw-DEFLATE.
func decodeBlock(r io.ReadSeeker, dst []byte) ([]byte, error) {
	bh, err := readBlockHeader(r)
	if err != nil {
		return nil, err
	}

	want := int(bh.DecompressedSize)
	start := len(dst)
	dst = append(dst, make([]byte, want)...)

	if bh.CompressedSize > maxCompressedBlockSize {
		n, err := io.ReadFull(r, dst[start:start+want])
		if err != nil {
			return nil, newIO(err)
		}
		if n != want {
			return nil, newResource("block", want, n)
		}
		return dst, nil
	}

	lr := io.LimitReader(r, int64(bh.CompressedSize))
	fr := flate.NewReader(lr)
	defer fr.Close()

	n, err := io.ReadFull(fr, dst[start:start+want])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, newIO(err)
	}
	if n != want {
		return nil, newResource("block", want, n)
	}
	return dst, nil
}

// decodedFile is the result of decoding one file's payload: its flat,
// decompressed bytes, plus the section-size table Model files carry ahead
// of their geometry blocks (zero value for every other FileKind).
type decodedFile struct {
	Kind       FileKind
	Data       []byte
	ModelSizes [11]uint32
}

// readFile decodes the file whose header starts at fileOffset within r,
// dispatching by FileKind, and returns its raw (decompressed) bytes.
func readFile(r io.ReadSeeker, fileOffset int64) (decodedFile, error) {
	if _, err := r.Seek(fileOffset, io.SeekStart); err != nil {
		return decodedFile{}, newIO(err)
	}
	h, err := readFileHeader(r)
	if err != nil {
		return decodedFile{}, err
	}

	payloadStart := fileOffset + int64(h.HeaderSize)

	var out []byte
	var modelSizes [11]uint32
	switch h.Kind {
	case FileKindEmpty:
		if h.RawFileSize != 0 {
			return decodedFile{}, newResourcef(nil, "Failed to read file. Empty file has nonzero raw size %d.", h.RawFileSize)
		}
		out = []byte{}
	case FileKindStandard:
		out, err = readStandard(r, payloadStart, h)
	case FileKindTexture:
		out, err = readTexture(r, payloadStart, h)
	case FileKindModel:
		out, modelSizes, err = readModel(r, payloadStart, h)
	default:
		return decodedFile{}, newResourcef(nil, "Failed to read file. Unknown file kind %d.", h.Kind)
	}
	if err != nil {
		return decodedFile{}, err
	}

	if len(out) != int(h.RawFileSize) {
		return decodedFile{}, newResource("file", int(h.RawFileSize), len(out))
	}
	return decodedFile{Kind: h.Kind, Data: out, ModelSizes: modelSizes}, nil
}

func readStandard(r io.ReadSeeker, payloadStart int64, h fileHeader) ([]byte, error) {
	if _, err := r.Seek(payloadStart, io.SeekStart); err != nil {
		return nil, newIO(err)
	}
	infos, err := readBlockInfos(r, h.BlockCount)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, h.RawFileSize)
	for _, info := range infos {
		if _, err := r.Seek(payloadStart+int64(info.Offset), io.SeekStart); err != nil {
			return nil, newIO(err)
		}
		before := len(out)
		out, err = decodeBlock(r, out)
		if err != nil {
			return nil, err
		}
		if len(out)-before != int(info.DecompressedSize) {
			return nil, newResource("block", int(info.DecompressedSize), len(out)-before)
		}
	}
	return out, nil
}

func readTexture(r io.ReadSeeker, payloadStart int64, h fileHeader) ([]byte, error) {
	if _, err := r.Seek(payloadStart, io.SeekStart); err != nil {
		return nil, newIO(err)
	}
	lods, err := readLODBlockInfos(r, h.BlockCount)
	if err != nil {
		return nil, err
	}

	var subBlockCount uint32
	for _, lod := range lods {
		subBlockCount += lod.BlockCount
	}
	subOffsets := make([]uint16, subBlockCount)
	buf := make([]byte, 2)
	for i := range subOffsets {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, newIO(err)
		}
		subOffsets[i] = binary.LittleEndian.Uint16(buf)
	}

	out := make([]byte, 0, h.RawFileSize)

	if len(lods) > 0 && lods[0].CompressedOffset > 0 {
		if _, err := r.Seek(payloadStart, io.SeekStart); err != nil {
			return nil, newIO(err)
		}
		prelude := make([]byte, lods[0].CompressedOffset)
		if _, err := io.ReadFull(r, prelude); err != nil {
			return nil, newIO(err)
		}
		out = append(out, prelude...)
	}

	for _, lod := range lods {
		next := lod.CompressedOffset
		start := int(lod.BlockOffset)
		end := start + int(lod.BlockCount)
		for i := start; i < end; i++ {
			if _, err := r.Seek(payloadStart+int64(next), io.SeekStart); err != nil {
				return nil, newIO(err)
			}
			out, err = decodeBlock(r, out)
			if err != nil {
				return nil, err
			}
			next += uint32(subOffsets[i])
		}
	}

	return out, nil
}

// ModelSections names the geometry regions of a decoded Model file, in
// on-disk order. The exact section boundaries are hinted at, rather than
// canonically specified, by the format documentation this was built
// against; treat this as best-effort until verified against a reference
// corpus (tracked as an open question, see DESIGN.md).
type ModelSections struct {
	Stack     []byte
	Runtime   []byte
	Vertex    [3][]byte
	Edge      [3][]byte
	Index     [3][]byte
	Combined  []byte
}

// readModel decodes a Model file's blocks and the 11-entry section-size
// table that precedes them, so callers can recover the geometry boundaries
// spec.md requires be preserved (see SplitModelSections) rather than only
// the flat decompressed bytes.
func readModel(r io.ReadSeeker, payloadStart int64, h fileHeader) ([]byte, [11]uint32, error) {
	var sizes [11]uint32

	if _, err := r.Seek(payloadStart, io.SeekStart); err != nil {
		return nil, sizes, newIO(err)
	}

	var sizeBuf [44]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, sizes, newIO(err)
	}
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(sizeBuf[i*4 : i*4+4])
	}

	blockStart := payloadStart + int64(len(sizeBuf))
	if _, err := r.Seek(blockStart, io.SeekStart); err != nil {
		return nil, sizes, newIO(err)
	}
	infos, err := readBlockInfos(r, h.BlockCount)
	if err != nil {
		return nil, sizes, err
	}

	out := make([]byte, 0, h.RawFileSize)
	for _, info := range infos {
		if _, err := r.Seek(blockStart+int64(info.Offset), io.SeekStart); err != nil {
			return nil, sizes, newIO(err)
		}
		out, err = decodeBlock(r, out)
		if err != nil {
			return nil, sizes, err
		}
	}

	return out, sizes, nil
}

// SplitModelSections slices a decoded Model file's combined bytes into its
// named geometry sections, in the order {stack, runtime, vertex[0..2],
// edge[0..2], index[0..2]}, using the section sizes recorded at the start
// of the Model payload. Exposed separately from readModel so callers that
// only need the flat byte buffer (e.g. invariant checks) do not pay for
// the split.
func SplitModelSections(combined []byte, sizes [11]uint32) (ModelSections, error) {
	var out ModelSections
	out.Combined = combined

	pos := 0
	next := func(n uint32) ([]byte, error) {
		end := pos + int(n)
		if end > len(combined) {
			return nil, newResource("model section", end, len(combined))
		}
		s := combined[pos:end]
		pos = end
		return s, nil
	}

	var err error
	if out.Stack, err = next(sizes[0]); err != nil {
		return out, err
	}
	if out.Runtime, err = next(sizes[1]); err != nil {
		return out, err
	}
	for i := 0; i < 3; i++ {
		if out.Vertex[i], err = next(sizes[2+i]); err != nil {
			return out, err
		}
	}
	for i := 0; i < 3; i++ {
		if out.Edge[i], err = next(sizes[5+i]); err != nil {
			return out, err
		}
	}
	for i := 0; i < 3; i++ {
		if out.Index[i], err = next(sizes[8+i]); err != nil {
			return out, err
		}
	}
	return out, nil
}
