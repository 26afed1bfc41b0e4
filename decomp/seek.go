package decomp

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
)

// replaySeek implements io.Seeker for a forward-only decompressor: a
// seek to a position behind the current one can only be satisfied by
// resetting the decompressor's internal state and replaying forward
// from the start, since neither DEFLATE nor heatshrink streams support
// random access. This mirrors seek_deflate/seek_heatshrink in
// original_source/src/decomp_miniz_deflate.c and decomp_heatshrink.c.
func replaySeek(offset int64, whence int, pos, realSize int64, reset func() error, read func([]byte) (int, error)) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = pos + offset
	case io.SeekEnd:
		target = realSize + offset
	default:
		return pos, xerrors.Errorf("decomp: seek: %w", errs.ErrInvalidArgument)
	}
	if target < 0 {
		return pos, xerrors.Errorf("decomp: seek to %d: %w", target, errs.ErrInvalidArgument)
	}
	if target > realSize {
		target = realSize
	}

	if target < pos {
		if err := reset(); err != nil {
			return pos, err
		}
		pos = 0
	}

	var scratch [4096]byte
	for pos < target {
		want := target - pos
		if want > int64(len(scratch)) {
			want = int64(len(scratch))
		}
		n, err := read(scratch[:want])
		pos += int64(n)
		if n == 0 {
			if err == io.EOF {
				break
			}
			if err != nil {
				return pos, err
			}
			break
		}
	}
	return pos, nil
}
