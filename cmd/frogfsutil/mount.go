package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	gzipped "github.com/lpar/gzipped/v2"
	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/blob"
	"github.com/frogfs/frogfs/image"
	"github.com/frogfs/frogfs/vfs"
)

const mountHelp = `frogfsutil mount [-flags] <image>

Mount a frogfs image (plus an optional overlay directory) and serve it
over HTTP until interrupted. There is no kernel-level mount here (no
FUSE is wired in); "mount" means holding the image and overlay open and
reachable, the way a running frogfs firmware would.

Example:
  % frogfsutil mount -listen :8080 site.frogfs
  % frogfsutil mount -overlay /var/lib/site-overlay -listen :8080 site.frogfs
`

func cmdmount(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("mount", flag.ExitOnError)
	overlay := fset.String("overlay", "", "writable overlay directory, checked before the image")
	maxFiles := fset.Int("max-files", 16, "size of the open file descriptor table")
	listen := fset.String("listen", "127.0.0.1:8080", "address to serve the mount over HTTP")
	fset.Usage = usage(fset, mountHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: mount [-overlay dir] [-listen addr] <image>")
	}
	imagePath := fset.Arg(0)

	b, err := blob.FromFile(imagePath)
	if err != nil {
		return err
	}

	fs, err := frogfs.Open(b, image.Config{})
	if err != nil {
		return err
	}
	defer fs.Close()

	logger := log.New(log.Writer(), "frogfsutil mount: ", log.LstdFlags)
	v := vfs.New(fs, vfs.Config{OverlayPath: *overlay, MaxFiles: *maxFiles, Logger: logger})

	srv := &http.Server{
		Addr:    *listen,
		Handler: gzipped.FileServer(vfsHTTPFS{v}),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Printf("serving %s on %s", imagePath, *listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
