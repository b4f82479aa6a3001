// Command coldswapd is an example embedding binary: it wires a
// coldswap.Server against a valkey-backed rio.Store and a minimal
// in-memory request.Host, then reads INFO, SWAP <db> <key> and quit
// commands from stdin for demonstration purposes.
//
// Real embedders replace hostMap with their own keyspace implementation;
// this binary exists to show the wiring, not to be a production server.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/codeGROOVE-dev/coldswap"
	"github.com/codeGROOVE-dev/coldswap/objmeta"
	"github.com/codeGROOVE-dev/coldswap/request"
	"github.com/codeGROOVE-dev/coldswap/rio/valkeystore"
	"github.com/valkey-io/valkey-go"
)

// hostMap is a trivial in-memory request.Host: a single map guarded by a
// mutex, standing in for the embedding server's real keyspace.
type hostMap struct {
	mu   sync.Mutex
	data map[string]any
	meta map[string]*objmeta.Meta
}

func newHostMap() *hostMap {
	return &hostMap{data: make(map[string]any), meta: make(map[string]*objmeta.Meta)}
}

func (h *hostMap) Lookup(db int, key []byte) (any, bool, int64, *objmeta.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := string(key)
	v, hot := h.data[k]
	return v, hot, 0, h.meta[k]
}

func (h *hostMap) SwapIn(db int, key []byte, value any, meta *objmeta.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[string(key)] = value
	h.meta[string(key)] = meta
}

func (h *hostMap) SwapOut(db int, key []byte, meta *objmeta.Meta, keepData bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !keepData {
		delete(h.data, string(key))
	}
	h.meta[string(key)] = meta
}

func (h *hostMap) SwapDel(db int, key []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.data, string(key))
	delete(h.meta, string(key))
}

func (h *hostMap) PropagateExpire(db int, key []byte) {}

// HasReplica always reports false: this demo binary runs standalone, with
// no attached replica to wait on before expiring a key.
func (h *hostMap) HasReplica(db int) bool { return false }

var _ request.Host = (*hostMap)(nil)

func main() {
	addr := flag.String("valkey", "127.0.0.1:6379", "valkey address for the disk-tier store")
	numDBs := flag.Int("databases", 16, "number of swap databases")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{*addr}})
	if err != nil {
		log.Error("connect to valkey", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	store := valkeystore.New(client)

	host := newHostMap()
	srv, err := coldswap.New(*numDBs, store, host, coldswap.WithLogger(log))
	if err != nil {
		log.Error("start server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("coldswapd ready", "databases", *numDBs, "valkey", *addr)
	repl(srv, log)
}

// repl is a minimal stdin command loop demonstrating Server wiring end to
// end: SWAP admits a key through the pipeline (Admit returns at once;
// swapOneKey then waits on the returned Swap's completion via a channel,
// the pattern a real command dispatcher would wrap every SWAP_IN/OUT in),
// and INFO prints the server's stats block.
func repl(srv *coldswap.Server, log *slog.Logger) {
	sc := bufio.NewScanner(os.Stdin)
	fmt.Println("coldswapd> (INFO, SWAP <db> <key>, quit)")
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToUpper(fields[0]) {
		case "QUIT", "EXIT":
			return
		case "INFO":
			fmt.Print(srv.Info())
		case "SWAP":
			if len(fields) != 3 {
				fmt.Println("usage: SWAP <db> <key>")
				continue
			}
			db := parseDB(fields[1])
			key := []byte(fields[2])
			swapOneKey(srv, db, key, log)
		default:
			fmt.Println("unknown command")
		}
	}
}

// swapOneKey admits one key through the pipeline and waits for it to
// finish, reporting the resulting intention.
func swapOneKey(srv *coldswap.Server, db int, key []byte, log *slog.Logger) {
	done := make(chan *request.Swap, 1)
	s := srv.Pipeline().Admit(request.KeyRequest{
		DB:    db,
		Key:   key,
		Level: request.ReqLevelKEY,
		Type:  request.ReqTypeKEY,
		TxID:  1,
	})
	srv.Pipeline().FlushPending()
	s.OnFinish(func(fin *request.Swap) { done <- fin })
	if s.Finished {
		fmt.Printf("intention=%v err=%v\n", s.Intention, s.Err)
		return
	}
	fin := <-done
	fmt.Printf("intention=%v err=%v\n", fin.Intention, fin.Err)
}

func parseDB(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}
