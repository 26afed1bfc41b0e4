package decomp

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// rawDecompressor serves an uncompressed (or force-raw) object's stored
// bytes directly out of the image's backing blob, with no copy beyond
// what Read itself copies into the caller's buffer. Grounded on
// original_source/src/decomp_raw.c, whose read_raw/seek_raw are a plain
// memcpy window over [data_start, data_start+data_size).
type rawDecompressor struct {
	data []byte
	pos  int64
}

func openRaw(img *image.Image, obj *image.Object) (Decompressor, error) {
	data, err := img.DataRange(obj)
	if err != nil {
		return nil, xerrors.Errorf("decomp.openRaw: %w", err)
	}
	return &rawDecompressor{data: data}, nil
}

func (r *rawDecompressor) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *rawDecompressor) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = int64(len(r.data)) + offset
	default:
		return r.pos, xerrors.Errorf("decomp.rawDecompressor.Seek: %w", errs.ErrInvalidArgument)
	}
	if target < 0 {
		return r.pos, xerrors.Errorf("decomp.rawDecompressor.Seek(%d): %w", target, errs.ErrInvalidArgument)
	}
	if target > int64(len(r.data)) {
		target = int64(len(r.data))
	}
	r.pos = target
	return r.pos, nil
}

func (r *rawDecompressor) Tell() int64 { return r.pos }

func (r *rawDecompressor) Close() error { return nil }
