package rio

import (
	"context"
	"fmt"
	"iter"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor encodes/decodes values before they hit a Store, the same
// seam the teacher's pkg/store/compress exposes (None/S2/Zstd), adapted
// here to compress RIO payloads rather than cache entries.
type Compressor interface {
	Encode(b []byte) ([]byte, error)
	Decode(b []byte) ([]byte, error)
	Extension() string
}

type noneCompressor struct{}

// None returns a zero-copy no-op compressor, the default for small
// values where the s2/zstd frame overhead would net negative.
func None() Compressor { return noneCompressor{} }

func (noneCompressor) Encode(b []byte) ([]byte, error) { return b, nil }
func (noneCompressor) Decode(b []byte) ([]byte, error) { return b, nil }
func (noneCompressor) Extension() string               { return "" }

type s2Compressor struct{}

// S2 returns a Compressor using klauspost/compress/s2, tuned for low
// CPU cost on hot swap-out paths.
func S2() Compressor { return s2Compressor{} }

func (s2Compressor) Encode(b []byte) ([]byte, error) {
	return s2.Encode(nil, b), nil
}

func (s2Compressor) Decode(b []byte) ([]byte, error) {
	return s2.Decode(nil, b)
}

func (s2Compressor) Extension() string { return ".s" }

type zstdCompressor struct {
	level zstd.EncoderLevel
}

// Zstd returns a Compressor using klauspost/compress/zstd at level,
// trading CPU for a smaller on-disk footprint -- the right choice for
// cold, rarely-touched keys that the eviction engine swaps out once and
// reads back rarely.
func Zstd(level int) Compressor {
	return zstdCompressor{level: zstd.EncoderLevel(level)}
}

func (z zstdCompressor) Encode(b []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, nil), nil
}

func (zstdCompressor) Decode(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}

func (zstdCompressor) Extension() string { return ".z" }

type lz4Compressor struct{}

// LZ4 returns a Compressor using pierrec/lz4's block API, an alternative
// to S2 for stores where its faster decode matters more than its slightly
// worse ratio.
func LZ4() Compressor { return lz4Compressor{} }

func (lz4Compressor) Encode(b []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(b))+4)
	n, err := lz4.CompressBlock(b, dst[4:], nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: lz4.CompressBlock returns n==0 rather
		// than expanding it, so store the raw bytes with length 0 as a
		// sentinel meaning "stored, not compressed".
		dst = append(dst[:4], b...)
		putUint32(dst, 0)
		return dst, nil
	}
	putUint32(dst, uint32(len(b)))
	return dst[:4+n], nil
}

func (lz4Compressor) Decode(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("lz4: truncated frame")
	}
	origLen := getUint32(b)
	if origLen == 0 {
		return b[4:], nil
	}
	dst := make([]byte, origLen)
	n, err := lz4.UncompressBlock(b[4:], dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func (lz4Compressor) Extension() string { return ".lz4" }

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// CompressedStore wraps a Store, compressing values on Put and
// decompressing on Get/Iterate; Iterate stops at the first value that
// fails to decode. Keys are left untouched since the swap engine needs to
// range-scan them directly.
type CompressedStore struct {
	Store
	c Compressor
}

// NewCompressedStore wraps store with compressor c.
func NewCompressedStore(store Store, c Compressor) *CompressedStore {
	return &CompressedStore{Store: store, c: c}
}

func (cs *CompressedStore) Put(ctx context.Context, key, value []byte) error {
	enc, err := cs.c.Encode(value)
	if err != nil {
		return err
	}
	return cs.Store.Put(ctx, key, enc)
}

func (cs *CompressedStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	v, ok, err := cs.Store.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	dec, err := cs.c.Decode(v)
	if err != nil {
		return nil, false, err
	}
	return dec, true, nil
}

func (cs *CompressedStore) Iterate(ctx context.Context, start, end []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		for k, v := range cs.Store.Iterate(ctx, start, end) {
			dec, err := cs.c.Decode(v)
			if err != nil || !yield(k, dec) {
				return
			}
		}
	}
}
