package main

import (
	"errors"
	"flag"
	"fmt"

	getter "github.com/hashicorp/go-getter"
)

// runFetch downloads kind tables and layout files from any go-getter source
// (git, http, s3, local paths) so several recorders can share one set of
// offsets.
func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	dst := fs.String("o", "./offsets", "destination directory")
	fs.Parse(args)

	if *dst == "" {
		return errors.New("fetch: destination required")
	}
	if fs.NArg() == 0 {
		return errors.New("fetch: at least one source is required")
	}

	for _, src := range fs.Args() {
		if err := getter.Get(*dst, src); err != nil {
			return fmt.Errorf("fetching %s: %w", src, err)
		}
		fmt.Printf("fetched %s into %s\n", src, *dst)
	}
	return nil
}
