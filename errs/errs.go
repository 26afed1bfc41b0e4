// Package errs collects the closed error taxonomy shared by every frogfs
// package. Components return these sentinels (optionally wrapped with
// golang.org/x/xerrors for call-site context) so that callers can use
// errors.Is regardless of which package produced the failure.
package errs

import "golang.org/x/xerrors"

var (
	// ErrImageInvalid is returned when the blob does not start with the
	// frogfs magic number.
	ErrImageInvalid = xerrors.New("frogfs: image invalid")

	// ErrImageVersion is returned when the image's major version is not
	// supported by this build.
	ErrImageVersion = xerrors.New("frogfs: unsupported image version")

	// ErrImageTruncated is returned when a projection (header, hash table,
	// object, data range) would read past the end of the blob.
	ErrImageTruncated = xerrors.New("frogfs: image truncated")

	// ErrNotFound is returned when a path has no corresponding object in
	// the image and (if configured) no corresponding overlay entry.
	ErrNotFound = xerrors.New("frogfs: not found")

	// ErrNotSupported is returned for operations that require an overlay
	// (ftruncate, mkdir, ...) when none is configured, or for writes
	// against a read-only image file.
	ErrNotSupported = xerrors.New("frogfs: not supported")

	// ErrTooManyOpenFiles is returned when the VFS handle slot table is
	// exhausted.
	ErrTooManyOpenFiles = xerrors.New("frogfs: too many open files")

	// ErrDecompInit is returned when a decompressor cannot be initialized
	// from the object's stored parameters.
	ErrDecompInit = xerrors.New("frogfs: decompressor init failed")

	// ErrDecompInput is returned when the compressed stream is malformed.
	ErrDecompInput = xerrors.New("frogfs: malformed compressed stream")

	// ErrDecompTruncated is returned when EOF is reached before the
	// declared uncompressed size has been produced.
	ErrDecompTruncated = xerrors.New("frogfs: compressed stream truncated")

	// ErrDecompUnknownAlgo is returned when an object names a compression
	// algorithm id this build has no decompressor for.
	ErrDecompUnknownAlgo = xerrors.New("frogfs: unknown compression algorithm")

	// ErrIO is a passthrough wrapper for overlay I/O errors.
	ErrIO = xerrors.New("frogfs: overlay i/o error")

	// ErrInvalidArgument covers bad flags, out-of-range seeks, and similar
	// caller errors.
	ErrInvalidArgument = xerrors.New("frogfs: invalid argument")
)
