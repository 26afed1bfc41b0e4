// Package enumerator implements frogfs's ObjectEnumerator: a cursor over
// a directory's child-offset array supporting tell/seek/rewind, plus an
// optional flattened depth-first traversal that yields only file
// objects.
//
// The cursor shape (explicit index, next/rewind/tell/seek) follows
// original_source/src/frogfs.c's frogfs_opendir/readdir/seekdir/telldir;
// the flattening mode is built from the same primitives.
package enumerator

import (
	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// MaxFlatDepth bounds how many directories a flattened enumerator may be
// nested inside at once. The original source fixes this at 8
// (FROGFS_MAX_FLAT_DEPTH); kept here as a named package constant, changed
// by editing it rather than at run time.
const MaxFlatDepth = 8

// Enumerator walks the children of a single directory object.
type Enumerator struct {
	img   *image.Image
	dir   *image.Object
	index int
}

// New returns an Enumerator positioned at the start of dir's children.
// dir must be a directory object.
func New(img *image.Image, dir *image.Object) (*Enumerator, error) {
	if dir.Kind != image.KindDir {
		return nil, xerrors.Errorf("enumerator.New: object at %d is not a directory: %w", dir.Offset, errs.ErrInvalidArgument)
	}
	return &Enumerator{img: img, dir: dir}, nil
}

// Next returns the next child object and advances the cursor, or returns
// nil, nil once the directory is exhausted.
func (e *Enumerator) Next() (*image.Object, error) {
	if e.index >= int(e.dir.ChildCount) {
		return nil, nil
	}
	off, err := e.img.ChildAt(e.dir, e.index)
	if err != nil {
		return nil, err
	}
	obj, err := e.img.ObjectAt(off)
	if err != nil {
		return nil, err
	}
	e.index++
	return obj, nil
}

// Rewind resets the cursor to the first child.
func (e *Enumerator) Rewind() { e.index = 0 }

// Tell returns the current cursor position.
func (e *Enumerator) Tell() uint16 { return uint16(e.index) }

// Seek moves the cursor to position i, which must be <= the child count.
func (e *Enumerator) Seek(i uint16) error {
	if int(i) > int(e.dir.ChildCount) {
		return xerrors.Errorf("enumerator.Seek(%d): %w", i, errs.ErrInvalidArgument)
	}
	e.index = int(i)
	return nil
}

// FlatEnumerator performs a depth-first, bounded-depth traversal over a
// directory subtree, yielding only file objects. Encountered directories
// are descended into immediately; returning from a descent continues
// after that directory's entry in its parent.
type FlatEnumerator struct {
	img   *image.Image
	stack []*Enumerator
}

// NewFlat returns a FlatEnumerator rooted at dir.
func NewFlat(img *image.Image, dir *image.Object) (*FlatEnumerator, error) {
	root, err := New(img, dir)
	if err != nil {
		return nil, err
	}
	return &FlatEnumerator{img: img, stack: []*Enumerator{root}}, nil
}

// Next returns the next file object in depth-first order, or nil, nil
// once the subtree is exhausted.
func (f *FlatEnumerator) Next() (*image.Object, error) {
	for len(f.stack) > 0 {
		top := f.stack[len(f.stack)-1]
		obj, err := top.Next()
		if err != nil {
			return nil, err
		}
		if obj == nil {
			f.stack = f.stack[:len(f.stack)-1]
			continue
		}
		if obj.Kind == image.KindDir {
			if len(f.stack) >= MaxFlatDepth {
				return nil, xerrors.Errorf("enumerator: flat traversal exceeds max depth %d", MaxFlatDepth)
			}
			child, err := New(f.img, obj)
			if err != nil {
				return nil, err
			}
			f.stack = append(f.stack, child)
			continue
		}
		return obj, nil
	}
	return nil, nil
}

// Rewind resets the traversal to the root directory.
func (f *FlatEnumerator) Rewind() {
	f.stack = f.stack[:1]
	f.stack[0].Rewind()
}
