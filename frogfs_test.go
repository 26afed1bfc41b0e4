package frogfs_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/blob"
	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/internal/frogfstest"
)

func openFS(t *testing.T) *frogfs.Filesystem {
	t.Helper()
	root := frogfstest.Dir("",
		frogfstest.File("index.html", []byte("<html></html>")),
		frogfstest.DeflateFile("style.css", bytes.Repeat([]byte("body{color:red} "), 30)),
		frogfstest.Dir("empty"),
	)
	data := frogfstest.Build(root, frogfstest.Options{})
	fs, err := frogfs.Open(blob.FromBytes(data), image.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestStatFile(t *testing.T) {
	fs := openFS(t)
	s, err := fs.Stat("index.html")
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != image.KindFile || s.Size != int64(len("<html></html>")) || s.Compressed {
		t.Fatalf("unexpected stat: %+v", s)
	}
}

func TestStatDir(t *testing.T) {
	fs := openFS(t)
	s, err := fs.Stat("empty")
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != image.KindDir {
		t.Fatalf("unexpected stat: %+v", s)
	}
}

func TestOpenFileRejectsDirectory(t *testing.T) {
	fs := openFS(t)
	if _, err := fs.OpenFile("empty", 0); err == nil {
		t.Fatal("expected an error opening a directory as a file")
	}
}

func TestOpenDirRejectsFile(t *testing.T) {
	fs := openFS(t)
	if _, err := fs.OpenDir("index.html"); err == nil {
		t.Fatal("expected an error opening a file as a directory")
	}
}

func TestReadUncompressed(t *testing.T) {
	fs := openFS(t)
	h, err := fs.OpenFile("index.html", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	got, err := io.ReadAll(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<html></html>" {
		t.Fatalf("got %q", got)
	}
}

func TestAccessCompressedWithoutRawFails(t *testing.T) {
	fs := openFS(t)
	h, err := fs.OpenFile("style.css", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := h.Access(); err == nil {
		t.Fatal("expected Access to fail on a compressed handle not opened Raw")
	}
}

func TestAccessRaw(t *testing.T) {
	fs := openFS(t)
	h, err := fs.OpenFile("style.css", frogfs.Raw)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	buf, err := h.Access()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) == 0 {
		t.Fatal("Access returned an empty slice")
	}
}

func TestReopenRaw(t *testing.T) {
	fs := openFS(t)
	h, err := fs.OpenFile("style.css", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	decoded, err := io.ReadAll(h)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.ReopenRaw(); err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(h)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(raw, decoded) {
		t.Fatal("ReopenRaw should serve the stored (compressed) bytes, not the decoded content")
	}
	if _, err := h.Access(); err != nil {
		t.Fatalf("Access should succeed after ReopenRaw: %v", err)
	}
}
