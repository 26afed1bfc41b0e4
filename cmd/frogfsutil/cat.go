package main

import (
	"context"
	"flag"
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/frogfs/frogfs"
)

const catHelp = `frogfsutil cat [-flags] <image> <path>

Print a file's content to stdout.

Example:
  % frogfsutil cat site.frogfs /index.html
  % frogfsutil cat -raw site.frogfs /style.css.gz
`

func cmdcat(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("cat", flag.ExitOnError)
	raw := fset.Bool("raw", false, "write the stored (possibly compressed) bytes instead of decoding them")
	fset.Usage = usage(fset, catHelp)
	fset.Parse(args)
	if fset.NArg() != 2 {
		return xerrors.Errorf("syntax: cat [-raw] <image> <path>")
	}
	imagePath, filePath := fset.Arg(0), fset.Arg(1)

	fs, closeFS, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer closeFS()

	var flags frogfs.OpenFlags
	if *raw {
		flags = frogfs.Raw
	}
	h, err := fs.OpenFile(filePath, flags)
	if err != nil {
		return err
	}
	defer h.Close()

	_, err = io.Copy(os.Stdout, h)
	return err
}
