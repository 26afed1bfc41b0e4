package image_test

import (
	"testing"

	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/internal/frogfstest"
)

func build(t *testing.T, root *frogfstest.Node, opts frogfstest.Options) *image.Image {
	t.Helper()
	img, err := image.Open(frogfstest.Build(root, opts), image.Config{VerifyCRC: opts.CRC})
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	if _, err := image.Open([]byte{1, 2, 3}, image.Config{}); err == nil {
		t.Fatal("expected an error opening a too-short blob")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := frogfstest.Build(frogfstest.Dir(""), frogfstest.Options{})
	data[0] ^= 0xFF
	if _, err := image.Open(data, image.Config{}); err == nil {
		t.Fatal("expected an error opening a blob with a corrupted magic")
	}
}

func TestOpenVerifiesCRC(t *testing.T) {
	data := frogfstest.Build(frogfstest.Dir("", frogfstest.File("a", []byte("hi"))), frogfstest.Options{CRC: true})
	if _, err := image.Open(data, image.Config{VerifyCRC: true}); err != nil {
		t.Fatalf("valid image with correct CRC should open: %v", err)
	}

	data[len(data)-1] ^= 0xFF
	if _, err := image.Open(data, image.Config{VerifyCRC: true}); err == nil {
		t.Fatal("expected a CRC mismatch error after corrupting the stored footer CRC")
	}
}

// TestOpenVerifiesCRCWithPaddedBlob covers a blob larger than bin_size+4,
// as BlobProvider's memory-mapped-flash-partition model allows: the
// footer sits right after bin_size bytes, with unrelated padding after it.
func TestOpenVerifiesCRCWithPaddedBlob(t *testing.T) {
	data := frogfstest.Build(frogfstest.Dir("", frogfstest.File("a", []byte("hi"))), frogfstest.Options{CRC: true})
	padded := append(append([]byte{}, data...), make([]byte, 64)...)
	if _, err := image.Open(padded, image.Config{VerifyCRC: true}); err != nil {
		t.Fatalf("valid image padded past bin_size+4 should still open: %v", err)
	}
}

func TestObjectAtRootAndChildren(t *testing.T) {
	root := frogfstest.Dir("",
		frogfstest.File("a.txt", []byte("aaa")),
		frogfstest.Dir("sub", frogfstest.File("b.txt", []byte("bbb"))),
	)
	img := build(t, root, frogfstest.Options{})

	rootObj, err := img.ObjectAt(uint32(img.ObjectsOffset()))
	if err != nil {
		t.Fatal(err)
	}
	if rootObj.Kind != image.KindDir {
		t.Fatal("root object should be a directory")
	}
	if !rootObj.IsRoot() {
		t.Fatal("root object should report IsRoot() == true")
	}
	if int(rootObj.ChildCount) != 2 {
		t.Fatalf("root ChildCount = %d, want 2", rootObj.ChildCount)
	}

	off, err := img.ChildAt(rootObj, 0)
	if err != nil {
		t.Fatal(err)
	}
	child, err := img.ObjectAt(off)
	if err != nil {
		t.Fatal(err)
	}
	if string(child.Path) != "a.txt" {
		t.Fatalf("first child path = %q, want %q", child.Path, "a.txt")
	}
	data, err := img.DataRange(child)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "aaa" {
		t.Fatalf("data = %q, want %q", data, "aaa")
	}
}

func TestHashEntryAtIsSorted(t *testing.T) {
	root := frogfstest.Dir("",
		frogfstest.File("z", []byte("1")),
		frogfstest.File("a", []byte("2")),
		frogfstest.File("m", []byte("3")),
	)
	img := build(t, root, frogfstest.Options{})

	var prev uint32
	for i := 0; i < img.NumEntries(); i++ {
		e, err := img.HashEntryAt(i)
		if err != nil {
			t.Fatal(err)
		}
		if i > 0 && e.Hash < prev {
			t.Fatalf("hash table not sorted at index %d: %d < %d", i, e.Hash, prev)
		}
		prev = e.Hash
	}
}

func TestHashEntryAtBounds(t *testing.T) {
	img := build(t, frogfstest.Dir(""), frogfstest.Options{})
	if _, err := img.HashEntryAt(-1); err == nil {
		t.Fatal("expected an error for a negative index")
	}
	if _, err := img.HashEntryAt(img.NumEntries()); err == nil {
		t.Fatal("expected an error for an out-of-range index")
	}
}
