// Command swapmirror is the Go counterpart of the original project's
// redis-monitor-pipe: a small standalone binary that tails a stream of
// disk-tier writes and mirrors each one to a second rio.Store. It is
// deliberately kept outside the core module's import graph -- it only
// imports rio and rio/valkeystore, never lock/filter/request/persist,
// matching the original's role as an out-of-core replication helper
// rather than a participant in the swap pipeline itself.
//
// Input is newline-delimited records of the form:
//
//	PUT <hex key> <hex value>
//	DEL <hex key>
//
// one line per mirrored RIO operation, read from stdin (a real deployment
// would instead tail the source store's own change feed and translate it
// into this line format upstream of swapmirror).
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/codeGROOVE-dev/coldswap/rio"
	"github.com/codeGROOVE-dev/coldswap/rio/valkeystore"
	"github.com/valkey-io/valkey-go"
)

func main() {
	dst := flag.String("dst", "127.0.0.1:6379", "destination valkey address")
	verbose := flag.Bool("verbose", false, "log every mirrored operation")
	flag.Parse()

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{*dst}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect dst(%s) failed: %v\n", *dst, err)
		os.Exit(1)
	}
	defer client.Close()

	store := valkeystore.New(client)
	defer store.Close()

	n, ignored, err := mirror(os.Stdin, store, *verbose)
	if err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "mirror stopped: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("piped(%d), ignored(%d)\n", n, ignored)
}

// mirror reads lines from r and applies each PUT/DEL to store, returning
// the count of mirrored and ignored (malformed or unrecognized) lines.
func mirror(r io.Reader, store rio.Store, verbose bool) (mirrored, ignored int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	ctx := context.Background()
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "PUT":
			if len(fields) != 3 {
				ignored++
				continue
			}
			key, kerr := hex.DecodeString(fields[1])
			val, verr := hex.DecodeString(fields[2])
			if kerr != nil || verr != nil {
				ignored++
				continue
			}
			if err := store.Put(ctx, key, val); err != nil {
				return mirrored, ignored, err
			}
			mirrored++
			if verbose {
				fmt.Printf("PUT %s (%d bytes)\n", fields[1], len(val))
			}
		case "DEL":
			if len(fields) != 2 {
				ignored++
				continue
			}
			key, kerr := hex.DecodeString(fields[1])
			if kerr != nil {
				ignored++
				continue
			}
			if err := store.Delete(ctx, key); err != nil {
				return mirrored, ignored, err
			}
			mirrored++
			if verbose {
				fmt.Printf("DEL %s\n", fields[1])
			}
		default:
			ignored++
		}
	}
	return mirrored, ignored, sc.Err()
}
