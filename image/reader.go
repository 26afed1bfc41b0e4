// Package image implements frogfs's ImageReader: it validates the blob
// header and exposes bounds-checked, copy-free accessors for the header,
// hash table, object records and file data ranges.
//
// The shape is lifted directly from distri's internal/squashfs.Reader,
// which wraps a single byte source, validates a superblock on
// construction, and exposes typed accessors (inode, blockReader,
// FileReader) that project slices out of that source rather than
// building an in-memory tree.
package image

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
)

// Header is the parsed, host-native view of the on-disk frogfs_head_t.
type Header struct {
	VerMajor   uint8
	VerMinor   uint8
	NumEntries uint16
	BinSize    uint32
	HeaderLen  uint8
	AlignExp   uint8
}

// Config controls optional validation performed by Open.
type Config struct {
	// VerifyCRC, if true, validates the trailing CRC-32 footer against
	// the rest of the image. Off by default: the original source makes
	// this check conditional, and on an embedded target re-reading the
	// whole image on every boot is not always worth the cost.
	VerifyCRC bool
}

// HashEntry is one row of the sorted (hash, object offset) table.
type HashEntry struct {
	Hash   uint32
	Offset uint32
}

// Image is a validated, read-only view over a frogfs binary image. All
// accessors return slices or values projected directly from the
// underlying blob; nothing is copied or parsed eagerly beyond the fixed
// header.
type Image struct {
	data []byte

	header       Header
	hashTableOff int64
	objectsOff   int64
}

// Open validates data as a frogfs image and returns a reader over it.
// data must remain valid and unmodified for the lifetime of the returned
// Image; Open never copies it.
func Open(data []byte, cfg Config) (*Image, error) {
	if int64(len(data)) < rawHeaderSize {
		return nil, xerrors.Errorf("image.Open: header: %w", errs.ErrImageTruncated)
	}

	var raw rawHeader
	raw.Magic = binary.LittleEndian.Uint32(data[0:4])
	raw.VerMajor = data[4]
	raw.VerMinor = data[5]
	raw.NumEntries = binary.LittleEndian.Uint16(data[6:8])
	raw.BinSize = binary.LittleEndian.Uint32(data[8:12])
	raw.HeaderLen = data[12]
	raw.AlignExp = data[13]

	if raw.Magic != Magic {
		return nil, xerrors.Errorf("image.Open: got magic %#x: %w", raw.Magic, errs.ErrImageInvalid)
	}
	if raw.VerMajor != SupportedMajor {
		return nil, xerrors.Errorf("image.Open: version %d.%d (supported: %d.x): %w",
			raw.VerMajor, raw.VerMinor, SupportedMajor, errs.ErrImageVersion)
	}
	if int64(raw.BinSize) > int64(len(data)) {
		return nil, xerrors.Errorf("image.Open: bin_size %d exceeds blob length %d: %w",
			raw.BinSize, len(data), errs.ErrImageTruncated)
	}

	img := &Image{
		data: data,
		header: Header{
			VerMajor:   raw.VerMajor,
			VerMinor:   raw.VerMinor,
			NumEntries: raw.NumEntries,
			BinSize:    raw.BinSize,
			HeaderLen:  raw.HeaderLen,
			AlignExp:   raw.AlignExp,
		},
	}

	img.hashTableOff = align(int64(raw.HeaderLen), raw.AlignExp)
	hashTableSize := int64(raw.NumEntries) * rawHashEntrySize
	if img.hashTableOff+hashTableSize > int64(len(data)) {
		return nil, xerrors.Errorf("image.Open: hash table: %w", errs.ErrImageTruncated)
	}
	img.objectsOff = align(img.hashTableOff+hashTableSize, raw.AlignExp)

	if cfg.VerifyCRC {
		if err := verifyFooter(data, raw.BinSize); err != nil {
			return nil, err
		}
	}

	return img, nil
}

// Bytes returns the full underlying blob. Callers must treat it as
// read-only.
func (img *Image) Bytes() []byte { return img.data }

// Header returns the parsed image header.
func (img *Image) Header() Header { return img.header }

// Align returns the image's object/data alignment boundary in bytes.
func (img *Image) Align() int64 { return int64(1) << img.header.AlignExp }

// NumEntries returns the number of rows in the hash table.
func (img *Image) NumEntries() int { return int(img.header.NumEntries) }

// HashEntryAt returns the i'th row of the sorted hash table without
// allocating or materializing the rest of the table.
func (img *Image) HashEntryAt(i int) (HashEntry, error) {
	if i < 0 || i >= int(img.header.NumEntries) {
		return HashEntry{}, xerrors.Errorf("image.HashEntryAt(%d): %w", i, errs.ErrInvalidArgument)
	}
	off := img.hashTableOff + int64(i)*rawHashEntrySize
	b, err := img.slice(off, rawHashEntrySize)
	if err != nil {
		return HashEntry{}, err
	}
	return HashEntry{
		Hash:   binary.LittleEndian.Uint32(b[0:4]),
		Offset: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// ObjectsOffset returns the byte offset of the first object record (the
// root directory), immediately following the hash table, aligned.
func (img *Image) ObjectsOffset() int64 { return img.objectsOff }

// slice returns a bounds-checked, copy-free projection of n bytes
// starting at off.
func (img *Image) slice(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > int64(len(img.data)) {
		return nil, xerrors.Errorf("image: projection [%d:%d) out of bounds (len %d): %w",
			off, off+n, len(img.data), errs.ErrImageTruncated)
	}
	return img.data[off : off+n], nil
}
