package main

import (
	"context"
	"flag"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs/image"
)

const statHelp = `frogfsutil stat [-flags] <image> <path>

Show size, kind and compression details for a single path.

Example:
  % frogfsutil stat site.frogfs /index.html
`

func cmdstat(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("stat", flag.ExitOnError)
	fset.Usage = usage(fset, statHelp)
	fset.Parse(args)
	if fset.NArg() != 2 {
		return xerrors.Errorf("syntax: stat <image> <path>")
	}
	imagePath, target := fset.Arg(0), fset.Arg(1)

	fs, closeFS, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer closeFS()

	s, err := fs.Stat(target)
	if err != nil {
		return err
	}

	kind := "file"
	if s.Kind == image.KindDir {
		kind = "dir"
	}
	fmt.Printf("path:       %s\n", s.Path)
	fmt.Printf("kind:       %s\n", kind)
	fmt.Printf("size:       %d\n", s.Size)
	if kind == "file" {
		fmt.Printf("compressed: %v\n", s.Compressed)
		if s.Compressed {
			fmt.Printf("algorithm:  %d\n", s.Algorithm)
		}
	}
	return nil
}
