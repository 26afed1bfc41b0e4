package main

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs"
	"github.com/frogfs/frogfs/enumerator"
	"github.com/frogfs/frogfs/image"
)

const lsHelp = `frogfsutil ls [-flags] <image> <path>

List a directory's entries.

Example:
  % frogfsutil ls site.frogfs /
  % frogfsutil ls -R -l site.frogfs /
`

func cmdls(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("ls", flag.ExitOnError)
	recursive := fset.Bool("R", false, "recurse into subdirectories, listing files only")
	long := fset.Bool("l", false, "show size, compression and algorithm for each entry")
	fset.Usage = usage(fset, lsHelp)
	fset.Parse(args)
	if fset.NArg() != 2 {
		return xerrors.Errorf("syntax: ls [-R] [-l] <image> <path>")
	}
	imagePath, dirPath := fset.Arg(0), fset.Arg(1)

	fs, closeFS, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer closeFS()

	obj, err := fs.OpenDir(dirPath)
	if err != nil {
		return err
	}

	var paths []string
	if *recursive {
		fe, err := enumerator.NewFlat(fs.Image(), obj)
		if err != nil {
			return err
		}
		for {
			child, err := fe.Next()
			if err != nil {
				return err
			}
			if child == nil {
				break
			}
			p, err := fs.PathOf(child)
			if err != nil {
				return err
			}
			paths = append(paths, p)
		}
	} else {
		e, err := enumerator.New(fs.Image(), obj)
		if err != nil {
			return err
		}
		for {
			child, err := e.Next()
			if err != nil {
				return err
			}
			if child == nil {
				break
			}
			p, err := fs.PathOf(child)
			if err != nil {
				return err
			}
			paths = append(paths, p)
		}
	}

	if !*long {
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}

	// Stat every listed entry concurrently: each call only touches the
	// read-only, already-mapped image, so there is no shared mutable
	// state to race on.
	stats := make([]frogfs.Stat, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := fs.Stat(p)
			if err != nil {
				return xerrors.Errorf("stat %q: %w", p, err)
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range paths {
		s := stats[i]
		kind := "file"
		if s.Kind == image.KindDir {
			kind = "dir"
		}
		fmt.Printf("%-8s %10d  compressed=%-5v algo=%-2d  %s\n", kind, s.Size, s.Compressed, s.Algorithm, p)
	}
	return nil
}
