package frogfs

import "github.com/frogfs/frogfs/image"

// Stat describes a single object: its kind, logical size and, for
// files, whether and how it is stored compressed. It mirrors
// frogfs_stat_t from original_source/include/frogfs/frogfs.h, with
// Index dropped (the Go API addresses objects by *image.Object, not a
// stable small integer) and Algorithm exposed as the image's own
// algorithm id rather than a fixed two-member C enum, since the format
// supports a third (heatshrink) and an extensible registry besides.
type Stat struct {
	Path string

	Kind image.Kind

	// Size is the logical (uncompressed) size in bytes. Zero for
	// directories.
	Size int64

	Compressed bool
	Algorithm  uint8 // meaningful only if Compressed
}
