package main

import (
	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/blob"
	"github.com/frogfs/frogfs/image"
)

// openImage mmaps path and opens it as a frogfs filesystem. The caller
// must call the returned close func once done; it closes the filesystem,
// which in turn releases the mapped blob.
func openImage(path string) (*frogfs.Filesystem, func() error, error) {
	b, err := blob.FromFile(path)
	if err != nil {
		return nil, nil, err
	}
	fs, err := frogfs.Open(b, image.Config{})
	if err != nil {
		return nil, nil, err
	}
	return fs, fs.Close, nil
}
