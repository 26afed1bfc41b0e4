// Package decomp implements frogfs's pluggable stream decompressors: raw
// pass-through, DEFLATE (zlib-wrapped), and heatshrink. Each is polymorphic
// over {open, close, read, seek, tell}, matching the capability set spec.md
// §4.4 describes and original_source/src/decomp_{raw,miniz_deflate,heatshrink}.c
// implement as three separate frogfs_decomp_funcs_t tables.
//
// Dispatch is a closed variant set selected at open time, plus an
// extensible registry keyed by algorithm id for third-party algorithms,
// per spec.md §9's design note.
package decomp

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// Decompressor is a stateful stream that converts an object's stored
// bytes into its logical file bytes. It embeds the standard io.Reader,
// io.Seeker and io.Closer interfaces so it composes with the rest of the
// stdlib (io.Copy, io.ReadAll, ...); Tell is kept as an explicit method
// because the spec calls it out as its own capability, even though it is
// equivalent to Seek(0, io.SeekCurrent).
type Decompressor interface {
	io.Reader
	io.Seeker
	io.Closer
	Tell() int64
}

// OpenFunc constructs a Decompressor over a file object's stored bytes.
type OpenFunc func(img *image.Image, obj *image.Object) (Decompressor, error)

var registry = map[uint8]OpenFunc{
	image.AlgoDeflate:    openDeflate,
	image.AlgoHeatshrink: openHeatshrink,
}

// Register adds or replaces the factory for a compression algorithm id.
// This is how a build can support an algorithm id beyond the three the
// core ships with, per spec.md §9 ("an extensible registry ... is
// acceptable if the image allows third-party algorithms").
func Register(id uint8, fn OpenFunc) {
	registry[id] = fn
}

// Open selects and opens the decompressor for obj. If forceRaw is true
// (the FileHandle RAW flag), the raw pass-through decompressor is used
// regardless of the object's declared compression — this is how an HTTP
// layer streams compressed bytes straight through with a matching
// Content-Encoding header.
func Open(img *image.Image, obj *image.Object, forceRaw bool) (Decompressor, error) {
	if forceRaw || !obj.Compressed {
		return openRaw(img, obj)
	}

	fn, ok := registry[obj.Algorithm]
	if !ok {
		return nil, xerrors.Errorf("decomp.Open: algorithm id %d: %w", obj.Algorithm, errs.ErrDecompUnknownAlgo)
	}
	return fn(img, obj)
}
