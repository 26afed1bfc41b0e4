package vfs

import (
	"os"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
)

// FileInfo is the information returned by Stat and Fstat: enough to
// answer the questions struct stat answers in frogfs_vfs_stat/_fstat,
// plus the compression algorithm the C layer stows in st_spare4,
// surfaced as ordinary named fields (Compressed, Algorithm). The frogfs
// magic sentinel the C layer also stores there is not carried.
type FileInfo struct {
	Path       string
	Dir        bool
	Size       int64
	Compressed bool
	Algorithm  uint8

	// FromOverlay is true if this info came from the overlay directory
	// rather than the image.
	FromOverlay bool
}

// Stat resolves path, overlay first, corresponding to frogfs_vfs_stat.
func (v *FS) Stat(path string) (FileInfo, error) {
	if v.haveOverlay() {
		if fi, err := os.Stat(v.overlayPath(path)); err == nil {
			return FileInfo{Path: path, Dir: fi.IsDir(), Size: fi.Size(), FromOverlay: true}, nil
		}
	}

	s, err := v.fs.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:       s.Path,
		Dir:        s.Kind == image.KindDir,
		Size:       s.Size,
		Compressed: s.Compressed,
		Algorithm:  s.Algorithm,
	}, nil
}

// Fstat returns information about an open descriptor, corresponding to
// frogfs_vfs_fstat.
func (v *FS) Fstat(fd int) (FileInfo, error) {
	v.mu.Lock()
	s, err := v.slot(fd)
	v.mu.Unlock()
	if err != nil {
		return FileInfo{}, err
	}

	if s.overlay != nil {
		fi, err := s.overlay.Stat()
		if err != nil {
			return FileInfo{}, xerrors.Errorf("vfs.Fstat(fd %d): %w", fd, errs.ErrIO)
		}
		return FileInfo{Path: s.path, Dir: fi.IsDir(), Size: fi.Size(), FromOverlay: true}, nil
	}

	st := s.handle.Stat()
	return FileInfo{
		Path:       st.Path,
		Dir:        st.Kind == image.KindDir,
		Size:       st.Size,
		Compressed: st.Compressed,
		Algorithm:  st.Algorithm,
	}, nil
}
