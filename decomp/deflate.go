package decomp

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// deflateDecompressor wraps a zlib-wrapped DEFLATE stream. The original
// decoder (original_source/src/decomp_miniz_deflate.c) drives miniz's
// tinfl with TINFL_FLAG_PARSE_ZLIB_HEADER set, i.e. the stored bytes
// carry a zlib header and Adler-32 trailer, not a bare DEFLATE stream;
// github.com/klauspost/compress/zlib is an API- and wire-compatible,
// faster drop-in for compress/zlib, already a teacher dependency used
// elsewhere for its flate package.
//
// Like the original, the decoder is forward-only: a backward Seek resets
// state and replays from the beginning rather than attempting random
// access into the compressed stream.
type deflateDecompressor struct {
	raw      []byte
	realSize int64

	zr  io.ReadCloser
	pos int64
}

func openDeflate(img *image.Image, obj *image.Object) (Decompressor, error) {
	raw, err := img.DataRange(obj)
	if err != nil {
		return nil, xerrors.Errorf("decomp.openDeflate: %w", err)
	}
	d := &deflateDecompressor{raw: raw, realSize: int64(obj.RealSize)}
	if err := d.reset(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *deflateDecompressor) reset() error {
	if d.zr != nil {
		d.zr.Close()
	}
	zr, err := zlib.NewReader(bytes.NewReader(d.raw))
	if err != nil {
		return xerrors.Errorf("decomp.deflateDecompressor: init: %w", errs.ErrDecompInit)
	}
	d.zr = zr
	d.pos = 0
	return nil
}

func (d *deflateDecompressor) Read(p []byte) (int, error) {
	if d.pos >= d.realSize {
		return 0, io.EOF
	}
	n, err := d.zr.Read(p)
	d.pos += int64(n)
	switch {
	case err == nil:
		return n, nil
	case err == io.EOF:
		if d.pos < d.realSize {
			return n, xerrors.Errorf("decomp.deflateDecompressor: short stream: %w", errs.ErrDecompTruncated)
		}
		return n, io.EOF
	default:
		return n, xerrors.Errorf("decomp.deflateDecompressor: %w", errs.ErrDecompInput)
	}
}

func (d *deflateDecompressor) Seek(offset int64, whence int) (int64, error) {
	pos, err := replaySeek(offset, whence, d.pos, d.realSize, d.reset, d.Read)
	d.pos = pos
	return pos, err
}

func (d *deflateDecompressor) Tell() int64 { return d.pos }

func (d *deflateDecompressor) Close() error {
	if d.zr != nil {
		return d.zr.Close()
	}
	return nil
}
