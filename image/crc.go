package image

import (
	"hash/crc32"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
)

// verifyFooter checks the CRC-32 footer immediately following the
// image's bin_size bytes (spec §3 Footer) against a checksum of those
// bytes. The blob itself (data) may extend past the footer — per
// BlobProvider's memory-mapped-flash-partition model, a mapped region is
// routinely larger than the image it holds — so the split is computed
// from the header's bin_size, not from len(data).
func verifyFooter(data []byte, binSize uint32) error {
	bodyEnd := int64(binSize)
	footerEnd := bodyEnd + rawFooterSize
	if footerEnd > int64(len(data)) {
		return xerrors.Errorf("image: footer: %w", errs.ErrImageTruncated)
	}

	body := data[:bodyEnd]
	footer := data[bodyEnd:footerEnd]
	wantCRC := uint32(footer[0]) | uint32(footer[1])<<8 | uint32(footer[2])<<16 | uint32(footer[3])<<24

	got := crc32.ChecksumIEEE(body)
	if got != wantCRC {
		return xerrors.Errorf("image: crc32 mismatch (got %#x, want %#x): %w", got, wantCRC, errs.ErrImageInvalid)
	}
	return nil
}
