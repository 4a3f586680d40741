package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Luismorlan/storagepath/storage_path"
	"github.com/pkg/errors"
	"github.com/Luismorlan/storagepath/utils/dotenv"
	. "github.com/Luismorlan/storagepath/utils/log"
)

var (
	strict = flag.Bool("strict", false, "exit with 1 if any url has no storage path")
	marker = flag.String("marker", storage_path.DefaultObjectMarker, "path segment that prefixes the object key")
)

func newExtractor(marker string) (storage_path.Extractor, error) {
	// an empty marker would match the whole path
	if marker == "" {
		return storage_path.Extractor{}, errors.New("marker must not be empty")
	}
	return storage_path.NewExtractor(marker), nil
}

// extractAll writes one line per url, empty for urls without storage path, and
// returns how many urls had none
func extractAll(e storage_path.Extractor, urls []string, out io.Writer) int {
	missing := 0
	for _, u := range urls {
		path, ok := e.Extract(u)
		if !ok {
			missing++
		}
		fmt.Fprintln(out, path)
	}
	return missing
}

func readLines(in io.Reader) ([]string, error) {
	lines := []string{}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Print storage path of download urls, one per line.
// Example:
// go run cmd/extract/main.go "https://firebasestorage.googleapis.com/v0/b/my-bucket/o/images%2Favatar.png?alt=media"
// or pipe urls through stdin
func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	InitLogger()

	e, err := newExtractor(*marker)
	if err != nil {
		Log.Fatal(err)
	}

	urls := flag.Args()
	if len(urls) == 0 {
		if urls, err = readLines(os.Stdin); err != nil {
			Log.Fatal("fail to read urls from stdin: ", err)
		}
	}

	missing := extractAll(e, urls, os.Stdout)
	if missing > 0 {
		Log.Warn(missing, " url(s) without storage path")
		if *strict {
			os.Exit(1)
		}
	}
}
