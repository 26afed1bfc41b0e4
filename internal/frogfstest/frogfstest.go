// Package frogfstest builds synthetic frogfs images in memory for use in
// other packages' tests, the way internal/squashfs/writer_test.go builds
// a throwaway SquashFS image via NewWriter rather than shipping a fixture
// file on disk.
//
// It is intentionally a plain, direct encoder of the format described in
// image/format.go: apart from the format constants in package image and
// the djb2 hash (pathresolver.Hash), it does not reuse any decoder code,
// so a round trip through frogfstest.Build and image.Open / pathresolver
// / decomp exercises the real decode path against an independently
// written encoder.
package frogfstest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/pathresolver"
)

// Node is one directory or file entry in a tree to be encoded into an
// image. Use Dir, File, DeflateFile and HeatshrinkFile to build one.
type Node struct {
	Name     string
	IsDir    bool
	Children []*Node
	Data     []byte // logical (uncompressed) content; meaningless for directories

	compress uint8
	opts     uint8
	stored   []byte // on-disk bytes; equal to Data unless compress != AlgoRaw
}

// Dir returns a directory node with the given children.
func Dir(name string, children ...*Node) *Node {
	return &Node{Name: name, IsDir: true, Children: children}
}

// File returns an uncompressed file node. data may be empty but must not
// be nil.
func File(name string, data []byte) *Node {
	return &Node{Name: name, Data: data, stored: data}
}

// DeflateFile returns a file node whose content is stored zlib-wrapped
// DEFLATE, matching the AlgoDeflate variant.
func DeflateFile(name string, data []byte) *Node {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return &Node{Name: name, Data: data, compress: image.AlgoDeflate, stored: buf.Bytes()}
}

// HeatshrinkFile returns a file node whose content is stored as a
// heatshrink stream encoded with window/lookahead bit widths win and la.
// The fixture encoder only ever emits literal symbols (it does not look
// for backreferences); this is still a valid stream under the format
// decomp.heatshrinkDecoder decodes, just an uncompressed one.
func HeatshrinkFile(name string, data []byte, win, la uint) *Node {
	return &Node{
		Name:     name,
		Data:     data,
		compress: image.AlgoHeatshrink,
		opts:     uint8(win) | uint8(la)<<4,
		stored:   heatshrinkEncodeLiterals(data),
	}
}

func heatshrinkEncodeLiterals(data []byte) []byte {
	var w bitWriter
	for _, b := range data {
		w.writeBits(1, 1)
		w.writeBits(uint(b), 8)
	}
	return w.bytes()
}

type bitWriter struct {
	buf     []byte
	cur     byte
	curBits uint
}

func (w *bitWriter) writeBits(v uint, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		bit := byte((v >> uint(i)) & 1)
		w.cur = (w.cur << 1) | bit
		w.curBits++
		if w.curBits == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur = 0
			w.curBits = 0
		}
	}
}

func (w *bitWriter) bytes() []byte {
	if w.curBits > 0 {
		w.buf = append(w.buf, w.cur<<(8-w.curBits))
		w.cur = 0
		w.curBits = 0
	}
	return w.buf
}

// Options controls image-wide encoding choices.
type Options struct {
	AlignExp uint8 // defaults to 2 (4-byte alignment) if zero
	CRC      bool  // append a trailing CRC-32 footer
	VerMinor uint8
}

// entry is one flattened node during encoding: childIdx holds, for a
// directory, the entries-slice index of each of its children (in the
// same order as node.Children), resolved once the whole tree has been
// flattened so offsets can be filled in regardless of traversal order.
type entry struct {
	node       *Node
	parent     int // index into entries, -1 for the root
	path       string
	childIdx   []int
	offset     int64
	bodyOff    int64
	end        int64
	dataOffset uint32
	dataSize   uint32
}

// Build encodes root (which must be a directory, and is used as the
// filesystem root — its own Name is ignored) into a complete frogfs
// image byte slice.
func Build(root *Node, opts Options) []byte {
	if opts.AlignExp == 0 {
		opts.AlignExp = 2
	}

	var entries []*entry
	entries = append(entries, &entry{node: root, parent: -1, path: ""})
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		e.childIdx = make([]int, len(e.node.Children))
		for ci, c := range e.node.Children {
			path := c.Name
			if e.path != "" {
				path = e.path + "/" + c.Name
			}
			entries = append(entries, &entry{node: c, parent: i, path: path})
			e.childIdx[ci] = len(entries) - 1
		}
	}

	align := func(n int64, exp uint8) int64 {
		m := int64(1) << exp
		return (n + m - 1) &^ (m - 1)
	}

	const headerLen = 14 // rawHeaderSize
	hashTableOff := align(headerLen, opts.AlignExp)
	hashTableSize := int64(len(entries)) * 8 // rawHashEntrySize
	objectsOff := align(hashTableOff+hashTableSize, opts.AlignExp)

	cursor := objectsOff
	for _, e := range entries {
		rootRelName := e.node.Name
		if e.parent == -1 {
			rootRelName = "" // root carries no path segment of its own
		}
		e.offset = cursor
		pathOff := cursor + 8 // rawEntryHeaderSize
		e.bodyOff = align(pathOff+int64(len(rootRelName)), opts.AlignExp)

		var bodySize int64
		if e.node.IsDir {
			bodySize = int64(len(e.node.Children)) * 4
		} else if e.node.compress == image.AlgoRaw {
			bodySize = 8
		} else {
			bodySize = 12
		}
		e.end = e.bodyOff + bodySize
		cursor = e.end
	}

	for _, e := range entries {
		if e.node.IsDir {
			continue
		}
		cursor = align(cursor, opts.AlignExp)
		e.dataOffset = uint32(cursor)
		e.dataSize = uint32(len(e.node.stored))
		cursor += int64(len(e.node.stored))
	}

	binSize := cursor
	total := binSize
	if opts.CRC {
		total += 4
	}

	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], image.Magic)
	buf[4] = image.SupportedMajor
	buf[5] = opts.VerMinor
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(entries)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(binSize))
	buf[12] = headerLen
	buf[13] = opts.AlignExp

	type hashRow struct {
		hash   uint32
		offset uint32
	}
	rows := make([]hashRow, len(entries))
	for i, e := range entries {
		rows[i] = hashRow{hash: pathresolver.Hash(e.path), offset: uint32(e.offset)}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].hash < rows[j].hash })
	for i, row := range rows {
		off := hashTableOff + int64(i)*8
		binary.LittleEndian.PutUint32(buf[off:off+4], row.hash)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], row.offset)
	}

	for _, e := range entries {
		name := e.node.Name
		if e.parent == -1 {
			name = ""
		}
		parentOffset := uint32(0)
		if e.parent != -1 {
			parentOffset = uint32(entries[e.parent].offset)
		}

		hdr := buf[e.offset : e.offset+8]
		binary.LittleEndian.PutUint32(hdr[0:4], parentOffset)
		hdr[6] = byte(len(name))
		hdr[7] = e.node.opts

		pathBytes := buf[e.offset+8 : e.offset+8+int64(len(name))]
		copy(pathBytes, name)

		if e.node.IsDir {
			binary.LittleEndian.PutUint16(hdr[4:6], uint16(len(e.node.Children)))
			for i, childIdx := range e.childIdx {
				off := e.bodyOff + int64(i)*4
				binary.LittleEndian.PutUint32(buf[off:off+4], uint32(entries[childIdx].offset))
			}
			continue
		}

		body := buf[e.bodyOff:e.end]
		binary.LittleEndian.PutUint32(body[0:4], e.dataOffset)
		binary.LittleEndian.PutUint32(body[4:8], e.dataSize)
		if e.node.compress == image.AlgoRaw {
			binary.LittleEndian.PutUint16(hdr[4:6], 0xFF00)
		} else {
			binary.LittleEndian.PutUint16(hdr[4:6], 0xFF00|uint16(e.node.compress))
			binary.LittleEndian.PutUint32(body[8:12], uint32(len(e.node.Data)))
		}

		copy(buf[e.dataOffset:int64(e.dataOffset)+int64(e.dataSize)], e.node.stored)
	}

	if opts.CRC {
		sum := crc32.ChecksumIEEE(buf[:binSize])
		binary.LittleEndian.PutUint32(buf[binSize:binSize+4], sum)
	}

	return buf
}
