// Package vfs implements frogfs's POSIX-shaped virtual filesystem layer:
// a single mount point backed by an optional read-write overlay
// directory and a read-only frogfs image, with the overlay always
// checked first. This is the Go-native equivalent of
// original_source/src/vfs.c's esp_vfs_t dispatch table (frogfs_vfs_open,
// _read, _write, _lseek, _stat, _fstat, _opendir/_readdir/..., _unlink,
// _rename, _mkdir/_rmdir, _truncate/_ftruncate, _fcntl's F_REOPEN_RAW),
// expressed as a POSIX-shaped Go API rather than bound to a specific
// kernel mount protocol (the format's open questions call this out
// explicitly: "a POSIX-shaped, not language-bound, surface").
package vfs

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/pathresolver"
)

// Config mirrors esp_vfs_frogfs_conf_t / frogfs_vfs_conf_t: a backing
// image, an optional overlay directory, and a fixed file-descriptor
// table size.
type Config struct {
	// OverlayPath, if non-empty, is a directory on the host filesystem
	// consulted before the image for every operation. An empty
	// OverlayPath means the mount is strictly read-only.
	OverlayPath string

	// MaxFiles bounds how many file descriptors may be open at once,
	// matching the fixed-size frogfs_vfs_f_t files[] array the C layer
	// allocates once at register time.
	MaxFiles int

	// Flat, if true, puts the mount in flattened mode: only the root may
	// be opened as a directory, and OpenDir(root) enumerates every file
	// in the tree (overlay and image combined) rather than just the
	// root's direct children. Opening any other directory fails with
	// errs.ErrNotSupported.
	//
	// base_path (spec.md's fourth Config field, letting a caller mount
	// under a path prefix other than the image's own root) is not
	// carried here: a Go library consumer picks its own mount prefix by
	// choosing what path string it passes to FS's methods, so a second,
	// internal prefix field would just be a second way to do the same
	// thing.
	Flat bool

	// Logger receives diagnostic output (overlay materialization,
	// descriptor exhaustion). Following batch.Ctx's Log field, it is
	// injected here rather than read from a package-global logger; if
	// nil, New substitutes a default logger writing to os.Stderr.
	Logger *log.Logger
}

// fileSlot is one entry of the fixed-size descriptor table: exactly one
// of overlay or handle is non-nil while the slot is in use.
type fileSlot struct {
	overlay *os.File
	handle  *frogfs.FileHandle
	path    string
}

// dirSlot is one entry of the directory-descriptor table: open
// distinguishes a free slot from a directory with zero entries.
type dirSlot struct {
	open    bool
	entries []mergedEntry
	pos     int
}

// FS is a mounted frogfs virtual filesystem.
type FS struct {
	fs  *frogfs.Filesystem
	cfg Config

	mu    sync.Mutex
	files []fileSlot
	dirs  []dirSlot
}

// New mounts fs under the given configuration.
func New(fsys *frogfs.Filesystem, cfg Config) *FS {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &FS{fs: fsys, cfg: cfg, files: make([]fileSlot, cfg.MaxFiles)}
}

// haveOverlay reports whether this mount has a writable overlay,
// mirroring vfs.c's HAVE_OVERLAY() macro.
func (v *FS) haveOverlay() bool { return v.cfg.OverlayPath != "" }

// overlayPath returns the host filesystem path backing path in the
// overlay directory, mirroring frogfs_get_overlay.
func (v *FS) overlayPath(path string) string {
	return filepath.Join(v.cfg.OverlayPath, pathresolver.Normalize(path))
}

func (v *FS) allocFile() (int, error) {
	for i := range v.files {
		if v.files[i].overlay == nil && v.files[i].handle == nil {
			return i, nil
		}
	}
	v.cfg.Logger.Printf("vfs: file descriptor table exhausted (max-files=%d)", len(v.files))
	return 0, xerrors.Errorf("vfs: %w", errs.ErrTooManyOpenFiles)
}

func (v *FS) slot(fd int) (*fileSlot, error) {
	if fd < 0 || fd >= len(v.files) {
		return nil, xerrors.Errorf("vfs: fd %d: %w", fd, errs.ErrInvalidArgument)
	}
	s := &v.files[fd]
	if s.overlay == nil && s.handle == nil {
		return nil, xerrors.Errorf("vfs: fd %d not open: %w", fd, errs.ErrInvalidArgument)
	}
	return s, nil
}

// OpenFlags mirrors the O_* flags a POSIX open(2) call accepts, scoped
// to what this layer actually interprets.
type OpenFlags int

const (
	OReadOnly  OpenFlags = 0
	OWriteOnly OpenFlags = 1 << 0
	OReadWrite OpenFlags = 1 << 1
	OCreate    OpenFlags = 1 << 2
	OTrunc     OpenFlags = 1 << 3
	OAppend    OpenFlags = 1 << 4
)

func (f OpenFlags) wantsWrite() bool {
	return f&(OWriteOnly|OReadWrite|OCreate|OTrunc) != 0
}

func (f OpenFlags) osFlags() int {
	out := os.O_RDONLY
	switch {
	case f&OReadWrite != 0:
		out = os.O_RDWR
	case f&OWriteOnly != 0:
		out = os.O_WRONLY
	}
	if f&OCreate != 0 {
		out |= os.O_CREATE
	}
	if f&OTrunc != 0 {
		out |= os.O_TRUNC
	}
	if f&OAppend != 0 {
		out |= os.O_APPEND
	}
	return out
}

// Open resolves path, overlay first, and returns a descriptor into this
// FS's fixed file table, corresponding to frogfs_vfs_open.
func (v *FS) Open(path string, flags OpenFlags, mode os.FileMode) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fd, err := v.allocFile()
	if err != nil {
		return 0, err
	}

	if v.haveOverlay() {
		f, err := os.OpenFile(v.overlayPath(path), flags.osFlags(), mode)
		if err == nil {
			v.files[fd] = fileSlot{overlay: f, path: path}
			return fd, nil
		}
	}

	if flags.wantsWrite() {
		return 0, xerrors.Errorf("vfs.Open(%q): %w", path, errs.ErrNotSupported)
	}

	h, err := v.fs.OpenFile(path, 0)
	if err != nil {
		return 0, err
	}
	v.files[fd] = fileSlot{handle: h, path: path}
	return fd, nil
}

// Close releases the descriptor, corresponding to frogfs_vfs_close.
func (v *FS) Close(fd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	s, err := v.slot(fd)
	if err != nil {
		return err
	}
	var closeErr error
	if s.overlay != nil {
		closeErr = s.overlay.Close()
	} else {
		closeErr = s.handle.Close()
	}
	v.files[fd] = fileSlot{}
	return closeErr
}

// Read reads from fd, corresponding to frogfs_vfs_read.
func (v *FS) Read(fd int, p []byte) (int, error) {
	v.mu.Lock()
	s, err := v.slot(fd)
	v.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if s.overlay != nil {
		return s.overlay.Read(p)
	}
	return s.handle.Read(p)
}

// Write writes to fd. Only overlay-backed descriptors support writing;
// image-backed descriptors are always read-only, matching
// frogfs_vfs_write (which only ever forwards to the overlay fd).
func (v *FS) Write(fd int, p []byte) (int, error) {
	v.mu.Lock()
	s, err := v.slot(fd)
	v.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if s.overlay == nil {
		return 0, xerrors.Errorf("vfs.Write(fd %d): %w", fd, errs.ErrNotSupported)
	}
	return s.overlay.Write(p)
}

// Seek repositions fd, corresponding to frogfs_vfs_lseek.
func (v *FS) Seek(fd int, offset int64, whence int) (int64, error) {
	v.mu.Lock()
	s, err := v.slot(fd)
	v.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if s.overlay != nil {
		return s.overlay.Seek(offset, whence)
	}
	return s.handle.Seek(offset, whence)
}

// ReopenRaw flips an image-backed descriptor into raw mode in place,
// corresponding to frogfs_vfs_fcntl's F_REOPEN_RAW case. It is a no-op
// error for overlay-backed descriptors, which have no compressed form.
func (v *FS) ReopenRaw(fd int) error {
	v.mu.Lock()
	s, err := v.slot(fd)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	if s.handle == nil {
		return xerrors.Errorf("vfs.ReopenRaw(fd %d): %w", fd, errs.ErrNotSupported)
	}
	return s.handle.ReopenRaw()
}
