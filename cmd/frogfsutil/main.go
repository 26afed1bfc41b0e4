// Command frogfsutil inspects and mounts frogfs images from the command
// line: ls/cat/stat read an image directly, mount exposes it (plus an
// optional overlay) through the vfs package until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

type cmd struct {
	fn func(ctx context.Context, args []string) error
}

func funcmain() error {
	flag.Parse()

	verbs := map[string]cmd{
		"ls":    {cmdls},
		"cat":   {cmdcat},
		"stat":  {cmdstat},
		"mount": {cmdmount},
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "frogfsutil <command> [options] <image>\n")
		fmt.Fprintf(os.Stderr, "commands: ls, cat, stat, mount\n")
		os.Exit(2)
	}
	verb, args := args[0], args[1:]

	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		os.Exit(2)
	}

	ctx, canc := interruptibleContext()
	defer canc()
	return v.fn(ctx, args)
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
