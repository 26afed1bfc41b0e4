package vfs_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/blob"
	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/internal/frogfstest"
	"github.com/frogfs/frogfs/vfs"
)

func openMount(t *testing.T, overlay string) *vfs.FS {
	t.Helper()
	root := frogfstest.Dir("",
		frogfstest.File("index.html", []byte("<html></html>")),
		frogfstest.File("shadowed.txt", []byte("from image")),
		frogfstest.Dir("assets",
			frogfstest.File("logo.png", []byte("PNGDATA")),
		),
	)
	data := frogfstest.Build(root, frogfstest.Options{})
	fs, err := frogfs.Open(blob.FromBytes(data), image.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fs.Close() })
	return vfs.New(fs, vfs.Config{OverlayPath: overlay, MaxFiles: 2})
}

func openFlatMount(t *testing.T, overlay string) *vfs.FS {
	t.Helper()
	root := frogfstest.Dir("",
		frogfstest.File("index.html", []byte("<html></html>")),
		frogfstest.Dir("assets",
			frogfstest.File("logo.png", []byte("PNGDATA")),
		),
	)
	data := frogfstest.Build(root, frogfstest.Options{})
	fs, err := frogfs.Open(blob.FromBytes(data), image.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fs.Close() })
	return vfs.New(fs, vfs.Config{OverlayPath: overlay, MaxFiles: 2, Flat: true})
}

func namesOf(t *testing.T, v *vfs.FS, path string) []string {
	t.Helper()
	dd, err := v.OpenDir(path)
	if err != nil {
		t.Fatal(err)
	}
	defer v.CloseDir(dd)

	var names []string
	for {
		e, err := v.ReadDir(dd)
		if err != nil {
			t.Fatal(err)
		}
		if e == nil {
			break
		}
		names = append(names, e.Path)
	}
	sort.Strings(names)
	return names
}

func TestOpenDirMergesOverlayAndImageShadowing(t *testing.T) {
	overlay := t.TempDir()
	if err := os.WriteFile(filepath.Join(overlay, "shadowed.txt"), []byte("from overlay"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(overlay, "new.txt"), []byte("only overlay"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := openMount(t, overlay)

	got := namesOf(t, v, "")
	want := []string{"assets", "index.html", "new.txt", "shadowed.txt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged directory listing mismatch (-want +got):\n%s", diff)
	}

	dd, err := v.OpenDir("")
	if err != nil {
		t.Fatal(err)
	}
	defer v.CloseDir(dd)
	for {
		e, err := v.ReadDir(dd)
		if err != nil {
			t.Fatal(err)
		}
		if e == nil {
			break
		}
		if e.Path != "shadowed.txt" {
			continue
		}
		fd, err := v.Open("shadowed.txt", vfs.OReadOnly, 0)
		if err != nil {
			t.Fatal(err)
		}
		defer v.Close(fd)
		buf, err := io.ReadAll(readerFromFS(v, fd))
		if err != nil {
			t.Fatal(err)
		}
		if string(buf) != "from overlay" {
			t.Fatalf("overlay entry should shadow the image: got %q", buf)
		}
	}
}

// readerFromFS adapts v.Read(fd, ...) to io.Reader for io.ReadAll.
type fdReader struct {
	v  *vfs.FS
	fd int
}

func (r fdReader) Read(p []byte) (int, error) { return r.v.Read(r.fd, p) }

func readerFromFS(v *vfs.FS, fd int) io.Reader { return fdReader{v, fd} }

func TestOverlayWriteThenRead(t *testing.T) {
	overlay := t.TempDir()
	v := openMount(t, overlay)

	fd, err := v.Open("new.txt", vfs.OWriteOnly|vfs.OCreate|vfs.OTrunc, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Write(fd, []byte("hello overlay")); err != nil {
		t.Fatal(err)
	}
	if err := v.Close(fd); err != nil {
		t.Fatal(err)
	}

	fd2, err := v.Open("new.txt", vfs.OReadOnly, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(fd2)
	buf, err := io.ReadAll(readerFromFS(v, fd2))
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello overlay" {
		t.Fatalf("got %q", buf)
	}
}

func TestWriteWithoutOverlayFails(t *testing.T) {
	v := openMount(t, "")
	if _, err := v.Open("new.txt", vfs.OWriteOnly|vfs.OCreate, 0o644); err == nil {
		t.Fatal("expected an error writing with no overlay configured")
	}
}

func TestFileSlotExhaustion(t *testing.T) {
	v := openMount(t, "")
	fd1, err := v.Open("index.html", vfs.OReadOnly, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(fd1)
	fd2, err := v.Open("assets/logo.png", vfs.OReadOnly, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(fd2)

	if _, err := v.Open("shadowed.txt", vfs.OReadOnly, 0); !errors.Is(err, errs.ErrTooManyOpenFiles) {
		t.Fatalf("expected ErrTooManyOpenFiles, got %v", err)
	}
}

func TestTruncateMaterializesFromImage(t *testing.T) {
	overlay := t.TempDir()
	v := openMount(t, overlay)

	if err := v.Truncate("shadowed.txt", 4); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(overlay, "shadowed.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "from" {
		t.Fatalf("got %q", b)
	}
}

func TestRenameMaterializesFromImage(t *testing.T) {
	overlay := t.TempDir()
	v := openMount(t, overlay)

	if err := v.Rename("shadowed.txt", "renamed.txt"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(overlay, "renamed.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "from image" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(filepath.Join(overlay, "shadowed.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected shadowed.txt to no longer exist in the overlay, got err=%v", err)
	}
}

func TestFtruncateMaterializesFromImage(t *testing.T) {
	overlay := t.TempDir()
	v := openMount(t, overlay)

	fd, err := v.Open("shadowed.txt", vfs.OReadOnly, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close(fd)

	if err := v.Ftruncate(fd, 2); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	n, err := v.Read(fd, buf)
	if err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:n], []byte("fr")) {
		t.Fatalf("expected the truncated overlay content \"fr\", got %q", buf[:n])
	}
}

func TestFlatModeEnumeratesAllFilesAtRoot(t *testing.T) {
	overlay := t.TempDir()
	if err := os.MkdirAll(filepath.Join(overlay, "extra"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(overlay, "extra", "note.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := openFlatMount(t, overlay)

	got := namesOf(t, v, "")
	want := []string{"assets/logo.png", "extra/note.txt", "index.html"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flat directory listing mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatModeRejectsNonRootDir(t *testing.T) {
	v := openFlatMount(t, "")
	if _, err := v.OpenDir("assets"); !errors.Is(err, errs.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported opening a non-root dir in flat mode, got %v", err)
	}
}

func TestMkdirRmdirUnlink(t *testing.T) {
	overlay := t.TempDir()
	v := openMount(t, overlay)

	if err := v.Mkdir("sub", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := v.Rmdir("sub"); err != nil {
		t.Fatal(err)
	}

	fd, err := v.Open("gone.txt", vfs.OWriteOnly|vfs.OCreate, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	v.Close(fd)
	if err := v.Unlink("gone.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Stat("gone.txt"); err == nil {
		t.Fatal("expected gone.txt to no longer exist")
	}
}
