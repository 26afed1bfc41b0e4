package vfs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/enumerator"
	"github.com/frogfs/frogfs/errs"
	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/pathresolver"
)

// mergedEntry is one name in a directory listing that has already been
// deduplicated across the overlay and the image, overlay winning ties.
type mergedEntry struct {
	Name string
	Dir  bool
}

// OpenDir builds a merged, sorted listing of path's overlay and image
// entries and returns a descriptor over it. Unlike frogfs_vfs_opendir's
// incremental two-cursor merge (forced by the embedded target's memory
// budget), this materializes the full listing up front: Go has no
// equivalent constraint, and a materialized slice make TellDir/SeekDir
// trivial index operations instead of replayed scans.
func (v *FS) OpenDir(path string) (int, error) {
	if v.cfg.Flat {
		if pathresolver.Normalize(path) != "" {
			return 0, xerrors.Errorf("vfs.OpenDir(%q): %w", path, errs.ErrNotSupported)
		}
		return v.openFlatDir(path)
	}

	byName := make(map[string]mergedEntry)
	var foundAny bool

	if v.haveOverlay() {
		if des, err := os.ReadDir(v.overlayPath(path)); err == nil {
			foundAny = true
			for _, de := range des {
				byName[de.Name()] = mergedEntry{Name: de.Name(), Dir: de.IsDir()}
			}
		}
	}

	obj, imageErr := v.fs.OpenDir(path)
	if imageErr == nil {
		foundAny = true
		e, err := enumerator.New(v.fs.Image(), obj)
		if err != nil {
			return 0, err
		}
		for {
			child, err := e.Next()
			if err != nil {
				return 0, err
			}
			if child == nil {
				break
			}
			name := string(child.Path)
			if _, exists := byName[name]; exists {
				continue // overlay entry shadows the image entry
			}
			byName[name] = mergedEntry{Name: name, Dir: child.Kind == image.KindDir}
		}
	}

	if !foundAny {
		return 0, imageErr
	}

	entries := make([]mergedEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	v.mu.Lock()
	defer v.mu.Unlock()
	dd, err := v.allocDir()
	if err != nil {
		return 0, err
	}
	v.dirs[dd] = dirSlot{open: true, entries: entries}
	return dd, nil
}

// openFlatDir builds root's flattened, files-only listing: every file
// under the overlay and the image, keyed by full relative path rather
// than basename, overlay winning ties. Called only for the mount root
// when Config.Flat is set.
func (v *FS) openFlatDir(path string) (int, error) {
	byName := make(map[string]mergedEntry)
	var foundAny bool

	if v.haveOverlay() {
		root := v.overlayPath(path)
		walkErr := filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && p == root {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			foundAny = true
			byName[rel] = mergedEntry{Name: rel}
			return nil
		})
		if walkErr != nil && !os.IsNotExist(walkErr) {
			return 0, walkErr
		}
	}

	obj, imageErr := v.fs.OpenDir(path)
	if imageErr == nil {
		foundAny = true
		fe, err := enumerator.NewFlat(v.fs.Image(), obj)
		if err != nil {
			return 0, err
		}
		for {
			child, err := fe.Next()
			if err != nil {
				return 0, err
			}
			if child == nil {
				break
			}
			p, err := v.fs.PathOf(child)
			if err != nil {
				return 0, err
			}
			if _, exists := byName[p]; exists {
				continue // overlay entry shadows the image entry
			}
			byName[p] = mergedEntry{Name: p}
		}
	}

	if !foundAny {
		return 0, imageErr
	}

	entries := make([]mergedEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	v.mu.Lock()
	defer v.mu.Unlock()
	dd, err := v.allocDir()
	if err != nil {
		return 0, err
	}
	v.dirs[dd] = dirSlot{open: true, entries: entries}
	return dd, nil
}

func (v *FS) allocDir() (int, error) {
	for i := range v.dirs {
		if !v.dirs[i].open {
			return i, nil
		}
	}
	v.dirs = append(v.dirs, dirSlot{})
	return len(v.dirs) - 1, nil
}

func (v *FS) dirSlot(dd int) (*dirSlot, error) {
	if dd < 0 || dd >= len(v.dirs) || !v.dirs[dd].open {
		return nil, xerrors.Errorf("vfs: dir descriptor %d: %w", dd, errs.ErrInvalidArgument)
	}
	return &v.dirs[dd], nil
}

// ReadDir returns the next entry, or nil at the end of the directory,
// corresponding to frogfs_vfs_readdir.
func (v *FS) ReadDir(dd int) (*FileInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, err := v.dirSlot(dd)
	if err != nil {
		return nil, err
	}
	if s.pos >= len(s.entries) {
		return nil, nil
	}
	e := s.entries[s.pos]
	s.pos++
	return &FileInfo{Path: e.Name, Dir: e.Dir}, nil
}

// TellDir returns the current position in the directory stream,
// corresponding to frogfs_vfs_telldir.
func (v *FS) TellDir(dd int) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, err := v.dirSlot(dd)
	if err != nil {
		return 0, err
	}
	return int64(s.pos), nil
}

// SeekDir repositions the directory stream, corresponding to
// frogfs_vfs_seekdir.
func (v *FS) SeekDir(dd int, pos int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, err := v.dirSlot(dd)
	if err != nil {
		return err
	}
	if pos < 0 || pos > int64(len(s.entries)) {
		return xerrors.Errorf("vfs.SeekDir(%d): %w", pos, errs.ErrInvalidArgument)
	}
	s.pos = int(pos)
	return nil
}

// RewindDir resets the directory stream to its start, corresponding to
// rewinddir/frogfs_rewinddir as used inside frogfs_vfs_seekdir(0).
func (v *FS) RewindDir(dd int) error { return v.SeekDir(dd, 0) }

// CloseDir releases the directory descriptor, corresponding to
// frogfs_vfs_closedir.
func (v *FS) CloseDir(dd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.dirSlot(dd); err != nil {
		return err
	}
	v.dirs[dd] = dirSlot{}
	return nil
}
