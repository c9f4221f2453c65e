// Command update-cache rebuilds the gazetteer cache from raw Geonames data
// and validates it.
//
// Usage:
//
//	go run ./cmd/update-cache -download
//
// This reads from ./geonames-data/ and writes to ./geonames-cache/.
// The cache may be compressed afterwards; it is read either way:
//
//	bzip2 -f geonames-cache/*.dmp
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/andreiashu/placeresolver/gazetteer"
)

func main() {
	dataDir := flag.String("data", "./geonames-data", "Directory with raw Geonames files")
	cacheDir := flag.String("cache", "./geonames-cache", "Directory to write cache files to")
	download := flag.Bool("download", false, "Download missing Geonames files first")
	skipValidate := flag.Bool("skip-validate", false, "Do not validate the rebuilt cache")
	flag.Parse()

	ctx := context.Background()

	if *download {
		fmt.Println("Downloading missing Geonames files...")
		dctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		err := gazetteer.Download(dctx, *dataDir)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Rebuilding gazetteer cache from raw data...")
	if _, err := gazetteer.Rebuild(*dataDir, *cacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Cache rebuilt.")

	if *skipValidate {
		return
	}

	// Validate what a fresh process would load.
	fmt.Println("Validating cache...")
	g, err := gazetteer.Load(*cacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := g.Validate(ctx, os.Stdout, gazetteer.DefaultChecks); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cache validated. Run 'bzip2 -f %s/*.dmp' to compress it.\n", *cacheDir)
}
