package enumerator_test

import (
	"testing"

	"github.com/frogfs/frogfs/enumerator"
	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/internal/frogfstest"
)

func buildTree(t *testing.T) *image.Image {
	t.Helper()
	root := frogfstest.Dir("",
		frogfstest.File("a.txt", []byte("1")),
		frogfstest.Dir("sub",
			frogfstest.File("b.txt", []byte("2")),
			frogfstest.File("c.txt", []byte("3")),
		),
		frogfstest.File("d.txt", []byte("4")),
	)
	img, err := image.Open(frogfstest.Build(root, frogfstest.Options{}), image.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func rootObject(t *testing.T, img *image.Image) *image.Object {
	t.Helper()
	obj, err := img.ObjectAt(uint32(img.ObjectsOffset()))
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

func TestEnumeratorWalksChildrenInOrder(t *testing.T) {
	img := buildTree(t)
	e, err := enumerator.New(img, rootObject(t, img))
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for {
		obj, err := e.Next()
		if err != nil {
			t.Fatal(err)
		}
		if obj == nil {
			break
		}
		names = append(names, string(obj.Path))
	}

	want := []string{"a.txt", "sub", "d.txt"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestEnumeratorTellSeekRewind(t *testing.T) {
	img := buildTree(t)
	e, err := enumerator.New(img, rootObject(t, img))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Next(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Next(); err != nil {
		t.Fatal(err)
	}
	if got := e.Tell(); got != 2 {
		t.Fatalf("Tell() = %d, want 2", got)
	}

	e.Rewind()
	if got := e.Tell(); got != 0 {
		t.Fatalf("Tell() after Rewind = %d, want 0", got)
	}

	if err := e.Seek(2); err != nil {
		t.Fatal(err)
	}
	obj, err := e.Next()
	if err != nil {
		t.Fatal(err)
	}
	if string(obj.Path) != "d.txt" {
		t.Fatalf("object after Seek(2) = %q, want %q", obj.Path, "d.txt")
	}

	if err := e.Seek(99); err == nil {
		t.Fatal("expected an error seeking past the child count")
	}
}

func TestEnumeratorRejectsNonDirectory(t *testing.T) {
	img := buildTree(t)
	root := rootObject(t, img)
	e, err := enumerator.New(img, root)
	if err != nil {
		t.Fatal(err)
	}
	file, err := e.Next()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := enumerator.New(img, file); err == nil {
		t.Fatal("expected an error constructing an Enumerator over a file object")
	}
}

func TestFlatEnumeratorVisitsOnlyFiles(t *testing.T) {
	img := buildTree(t)
	f, err := enumerator.NewFlat(img, rootObject(t, img))
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for {
		obj, err := f.Next()
		if err != nil {
			t.Fatal(err)
		}
		if obj == nil {
			break
		}
		if obj.Kind != image.KindFile {
			t.Fatalf("flat traversal yielded a non-file object: %q", obj.Path)
		}
		names = append(names, string(obj.Path))
	}

	want := []string{"a.txt", "b.txt", "c.txt", "d.txt"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestFlatEnumeratorRewind(t *testing.T) {
	img := buildTree(t)
	f, err := enumerator.NewFlat(img, rootObject(t, img))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.Next(); err != nil {
			t.Fatal(err)
		}
	}
	f.Rewind()
	obj, err := f.Next()
	if err != nil {
		t.Fatal(err)
	}
	if string(obj.Path) != "a.txt" {
		t.Fatalf("first object after Rewind = %q, want %q", obj.Path, "a.txt")
	}
}
