// Package pathresolver implements frogfs's PathResolver: it maps a
// normalized path to an object record via binary search on the image's
// sorted hash table, walking back to the leftmost entry on a hash
// collision and comparing reconstructed paths byte-by-byte.
//
// The collision-walk direction (binary search hit -> walk left to the
// first entry sharing the hash -> scan forward comparing full paths) is
// taken directly from the original frogfs_obj_from_path in
// original_source/src/frogfs.c; nothing in the example pack implements
// this exact algorithm, so it is grounded on the original C rather than
// adapted from a Go library.
package pathresolver

import (
	"path"
	"strings"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// Hash computes the djb2 hash of s, matching the image generator:
// hash = 5381; hash = ((hash<<5)+hash) ^ byte, folded over s's bytes.
func Hash(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = ((h << 5) + h) ^ uint32(s[i])
	}
	return h
}

// Normalize strips leading slashes and collapses duplicate interior
// slashes, per the format's documented ambiguity resolution: some
// overlay callers hand in non-normalized prefix concatenations, and both
// the image and overlay lookups must canonicalize identically.
func Normalize(p string) string {
	clean := path.Clean("/" + p)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "." {
		return ""
	}
	return clean
}

// Resolver resolves normalized paths against a single image. It holds no
// mutable state (Resolve only reads the image), so one Resolver may be
// used from several goroutines at once.
type Resolver struct {
	img *image.Image
}

// New returns a Resolver over img.
func New(img *image.Image) *Resolver {
	return &Resolver{img: img}
}

// Resolve maps path to its object record. path need not be pre-normalized;
// Resolve normalizes it itself.
func (r *Resolver) Resolve(p string) (*image.Object, error) {
	p = Normalize(p)
	h := Hash(p)

	n := r.img.NumEntries()
	lo, hi := 0, n-1
	mid := -1
	for lo <= hi {
		mid = lo + (hi-lo)/2
		e, err := r.img.HashEntryAt(mid)
		if err != nil {
			return nil, err
		}
		switch {
		case e.Hash == h:
			lo = hi + 1 // break out having found a match
		case e.Hash < h:
			lo = mid + 1
			mid = -1
		default:
			hi = mid - 1
			mid = -1
		}
	}
	if mid == -1 {
		return nil, xerrors.Errorf("pathresolver.Resolve(%q): %w", p, errs.ErrNotFound)
	}

	// Walk left to the first entry sharing this hash.
	start := mid
	for start > 0 {
		e, err := r.img.HashEntryAt(start - 1)
		if err != nil {
			return nil, err
		}
		if e.Hash != h {
			break
		}
		start--
	}

	// Scan forward from the leftmost match, comparing reconstructed
	// paths, until the hash changes.
	for i := start; i < n; i++ {
		e, err := r.img.HashEntryAt(i)
		if err != nil {
			return nil, err
		}
		if e.Hash != h {
			break
		}
		obj, err := r.img.ObjectAt(e.Offset)
		if err != nil {
			return nil, err
		}
		eq, err := pathEquals(r.img, obj, p)
		if err != nil {
			return nil, err
		}
		if eq {
			return obj, nil
		}
	}

	return nil, xerrors.Errorf("pathresolver.Resolve(%q): %w", p, errs.ErrNotFound)
}

// pathEquals reports whether obj's reconstructed path (climbing parent
// offsets to the root) equals p, comparing path segments from the leaf
// backward without ever materializing the full reconstructed string.
func pathEquals(img *image.Image, obj *image.Object, p string) (bool, error) {
	rest := p
	cur := obj
	for {
		seg := cur.Path
		if len(rest) < len(seg) {
			return false, nil
		}
		tail := rest[len(rest)-len(seg):]
		if string(seg) != tail {
			return false, nil
		}
		rest = rest[:len(rest)-len(seg)]

		if cur.IsRoot() {
			return rest == "", nil
		}

		parent, err := img.ObjectAt(cur.Parent)
		if err != nil {
			return false, err
		}
		if parent.IsRoot() {
			return rest == "", nil
		}
		if rest == "" || rest[len(rest)-1] != '/' {
			return false, nil
		}
		rest = rest[:len(rest)-1]
		cur = parent
	}
}

// PathOf reconstructs obj's full path by climbing parent offsets to the
// root and joining the collected segments root-to-leaf. Unlike Resolve,
// this allocates, and is meant for occasional use (Stat, readdir
// naming), not the lookup hot path.
func PathOf(img *image.Image, obj *image.Object) (string, error) {
	var segs []string
	cur := obj
	for {
		if len(cur.Path) > 0 {
			segs = append(segs, string(cur.Path))
		}
		if cur.IsRoot() {
			break
		}
		parent, err := img.ObjectAt(cur.Parent)
		if err != nil {
			return "", err
		}
		cur = parent
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/"), nil
}
