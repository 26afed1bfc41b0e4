package decomp

import (
	"io"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// heatshrinkDecoder implements the heatshrink LZSS variant: a tag bit
// selects between an 8-bit literal and a (distance, count) backreference
// into a sliding window, both bit-packed MSB-first. original_source/src/
// decomp_heatshrink.c drives this through a sink/poll state machine with
// a small fixed working buffer, because the C encoder/decoder has to run
// incrementally off a caller-fed byte stream; here the whole object's
// compressed bytes are already resident in the image, so the same
// algorithm is expressed as a plain bit reader over that slice, with the
// decoded window kept in a circular buffer for backreference lookups.
//
// The window and lookahead bit widths are not fixed: they are carried
// per-object in the low and high nibble of Object.Opts, matching how the
// original image generator packs them (opts = window_sz2 | lookahead_sz2<<4).
type heatshrinkDecoder struct {
	raw      []byte
	realSize int64

	window    uint
	lookahead uint

	buf     []byte
	bufMask int
	head    int

	bitPos int

	pending  []byte
	totalOut int64
}

func openHeatshrink(img *image.Image, obj *image.Object) (Decompressor, error) {
	raw, err := img.DataRange(obj)
	if err != nil {
		return nil, xerrors.Errorf("decomp.openHeatshrink: %w", err)
	}
	window := uint(obj.Opts & 0x0F)
	lookahead := uint(obj.Opts >> 4)
	if window == 0 || lookahead == 0 || lookahead >= window {
		return nil, xerrors.Errorf("decomp.openHeatshrink: opts %#x: %w", obj.Opts, errs.ErrDecompInit)
	}

	d := &heatshrinkDecoder{
		raw:       raw,
		realSize:  int64(obj.RealSize),
		window:    window,
		lookahead: lookahead,
	}
	d.reset()
	return d, nil
}

func (d *heatshrinkDecoder) reset() error {
	size := 1 << d.window
	d.buf = make([]byte, size)
	d.bufMask = size - 1
	d.head = 0
	d.bitPos = 0
	d.pending = d.pending[:0]
	d.totalOut = 0
	return nil
}

func (d *heatshrinkDecoder) readBit() (int, error) {
	byteIdx := d.bitPos >> 3
	if byteIdx >= len(d.raw) {
		return 0, io.ErrUnexpectedEOF
	}
	shift := uint(7 - (d.bitPos & 7))
	bit := (d.raw[byteIdx] >> shift) & 1
	d.bitPos++
	return int(bit), nil
}

func (d *heatshrinkDecoder) readBits(n uint) (int, error) {
	v := 0
	for i := uint(0); i < n; i++ {
		b, err := d.readBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | b
	}
	return v, nil
}

func (d *heatshrinkDecoder) emit(b byte) {
	d.buf[d.head&d.bufMask] = b
	d.head++
	d.pending = append(d.pending, b)
}

func (d *heatshrinkDecoder) bufByteAt(distance int) byte {
	return d.buf[(d.head-distance)&d.bufMask]
}

// decodeSymbol decodes one tag-prefixed symbol (a literal byte, or a
// backreference expanded fully into d.pending).
func (d *heatshrinkDecoder) decodeSymbol() error {
	tag, err := d.readBit()
	if err != nil {
		return err
	}
	if tag == 1 {
		lit, err := d.readBits(8)
		if err != nil {
			return err
		}
		d.emit(byte(lit))
		return nil
	}

	idx, err := d.readBits(d.window)
	if err != nil {
		return err
	}
	cnt, err := d.readBits(d.lookahead)
	if err != nil {
		return err
	}
	distance := idx + 1
	count := cnt + 1
	for i := 0; i < count; i++ {
		d.emit(d.bufByteAt(distance))
	}
	return nil
}

func (d *heatshrinkDecoder) Read(p []byte) (int, error) {
	if d.totalOut >= d.realSize {
		return 0, io.EOF
	}
	if len(d.pending) == 0 {
		if err := d.decodeSymbol(); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return 0, xerrors.Errorf("decomp.heatshrinkDecoder: short stream: %w", errs.ErrDecompTruncated)
			}
			return 0, xerrors.Errorf("decomp.heatshrinkDecoder: %w", errs.ErrDecompInput)
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]

	remaining := d.realSize - d.totalOut
	if int64(n) > remaining {
		n = int(remaining)
	}
	d.totalOut += int64(n)
	return n, nil
}

func (d *heatshrinkDecoder) Seek(offset int64, whence int) (int64, error) {
	pos, err := replaySeek(offset, whence, d.totalOut, d.realSize, d.reset, d.Read)
	d.totalOut = pos
	return pos, err
}

func (d *heatshrinkDecoder) Tell() int64 { return d.totalOut }

func (d *heatshrinkDecoder) Close() error { return nil }
