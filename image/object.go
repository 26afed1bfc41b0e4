package image

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
)

// Kind discriminates the two object types that share the frogfs entry
// header.
type Kind int

const (
	KindDir Kind = iota
	KindFile
)

// Object is a parsed view of a single directory or file record. Like
// Image's other accessors, it borrows slices from the underlying blob
// rather than copying the path segment or child array.
type Object struct {
	Offset uint32 // this object's own offset in the image
	Parent uint32 // 0 for the root
	Kind   Kind
	Opts   uint8
	Path   []byte // this object's path segment, unterminated

	// Directory fields.
	ChildCount  uint16
	childrenOff int64

	// File fields.
	Compressed bool
	Algorithm  uint8
	DataOffset uint32
	DataSize   uint32 // stored size; for compressed files this is the compressed size
	RealSize   uint32 // uncompressed size, only meaningful if Compressed
}

// IsRoot reports whether obj is the filesystem root (no parent).
func (obj *Object) IsRoot() bool { return obj.Parent == 0 }

// ObjectAt parses the object record at the given byte offset.
func (img *Image) ObjectAt(offset uint32) (*Object, error) {
	base := int64(offset)
	hdrBytes, err := img.slice(base, rawEntryHeaderSize)
	if err != nil {
		return nil, xerrors.Errorf("image.ObjectAt(%d): header: %w", offset, err)
	}

	var raw rawEntryHeader
	raw.Parent = binary.LittleEndian.Uint32(hdrBytes[0:4])
	raw.ChildCountOrComp = binary.LittleEndian.Uint16(hdrBytes[4:6])
	raw.PathSegLen = hdrBytes[6]
	raw.Opts = hdrBytes[7]

	pathOff := base + rawEntryHeaderSize
	path, err := img.slice(pathOff, int64(raw.PathSegLen))
	if err != nil {
		return nil, xerrors.Errorf("image.ObjectAt(%d): path segment: %w", offset, err)
	}

	bodyOff := align(pathOff+int64(raw.PathSegLen), img.header.AlignExp)

	obj := &Object{
		Offset: offset,
		Parent: raw.Parent,
		Opts:   raw.Opts,
		Path:   path,
	}

	switch {
	case raw.ChildCountOrComp < fileSentinel:
		obj.Kind = KindDir
		obj.ChildCount = raw.ChildCountOrComp
		obj.childrenOff = bodyOff
		need := int64(obj.ChildCount) * 4
		if _, err := img.slice(bodyOff, need); err != nil {
			return nil, xerrors.Errorf("image.ObjectAt(%d): children: %w", offset, err)
		}

	case raw.ChildCountOrComp == fileSentinel:
		obj.Kind = KindFile
		obj.Algorithm = AlgoRaw
		fb, err := img.slice(bodyOff, 8)
		if err != nil {
			return nil, xerrors.Errorf("image.ObjectAt(%d): file body: %w", offset, err)
		}
		obj.DataOffset = binary.LittleEndian.Uint32(fb[0:4])
		obj.DataSize = binary.LittleEndian.Uint32(fb[4:8])

	default:
		obj.Kind = KindFile
		obj.Compressed = true
		obj.Algorithm = uint8(raw.ChildCountOrComp & 0xFF)
		fb, err := img.slice(bodyOff, 12)
		if err != nil {
			return nil, xerrors.Errorf("image.ObjectAt(%d): compressed file body: %w", offset, err)
		}
		obj.DataOffset = binary.LittleEndian.Uint32(fb[0:4])
		obj.DataSize = binary.LittleEndian.Uint32(fb[4:8])
		obj.RealSize = binary.LittleEndian.Uint32(fb[8:12])
	}

	return obj, nil
}

// ChildAt returns the offset of the i'th child of a directory object.
func (img *Image) ChildAt(dir *Object, i int) (uint32, error) {
	if dir.Kind != KindDir {
		return 0, xerrors.Errorf("image.ChildAt: object at %d is not a directory: %w", dir.Offset, errs.ErrInvalidArgument)
	}
	if i < 0 || i >= int(dir.ChildCount) {
		return 0, xerrors.Errorf("image.ChildAt(%d): %w", i, errs.ErrInvalidArgument)
	}
	b, err := img.slice(dir.childrenOff+int64(i)*4, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DataRange returns the stored (possibly compressed) bytes of a file
// object, a bounds-checked projection over [DataOffset, DataOffset+DataSize).
func (img *Image) DataRange(file *Object) ([]byte, error) {
	if file.Kind != KindFile {
		return nil, xerrors.Errorf("image.DataRange: object at %d is not a file: %w", file.Offset, errs.ErrInvalidArgument)
	}
	b, err := img.slice(int64(file.DataOffset), int64(file.DataSize))
	if err != nil {
		return nil, xerrors.Errorf("image.DataRange(%d): %w", file.Offset, err)
	}
	return b, nil
}
