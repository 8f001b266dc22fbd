package treestore

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the page compression codec of a branch.
type Compression uint8

const (
	// CompressionNone stores pages uncompressed.
	CompressionNone Compression = iota
	// CompressionLZ4 uses lz4 block compression (fastest decompression).
	CompressionLZ4
	// CompressionS2 uses s2, the snappy-compatible default.
	CompressionS2
	// CompressionZstd uses zstd (best ratio).
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionS2:
		return "s2"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

var (
	zstdEncOnce sync.Once
	zstdEnc     *zstd.Encoder
	zstdDecOnce sync.Once
	zstdDec     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	zstdEncOnce.Do(func() {
		// Options are static, so the only error path is invalid options.
		zstdEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	})
	return zstdEnc
}

func zstdDecoder() *zstd.Decoder {
	zstdDecOnce.Do(func() {
		zstdDec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return zstdDec
}

// compressPage compresses raw with c. If the result would not be smaller
// than raw, raw is returned unchanged; readers detect the stored-raw case by
// compLen == rawLen.
func compressPage(c Compression, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var comp []byte
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionLZ4:
		var compressor lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := compressor.CompressBlock(raw, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible.
			return raw, nil
		}
		comp = dst[:n]
	case CompressionS2:
		comp = s2.Encode(nil, raw)
	case CompressionZstd:
		comp = zstdEncoder().EncodeAll(raw, nil)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, c)
	}

	if len(comp) >= len(raw) {
		return raw, nil
	}
	return comp, nil
}

// decompressPage reverses compressPage. rawLen is the expected decompressed
// size; comp of exactly rawLen bytes means the page was stored raw.
func decompressPage(c Compression, comp []byte, rawLen int) ([]byte, error) {
	if len(comp) == rawLen {
		return comp, nil
	}

	switch c {
	case CompressionNone:
		// Stored-raw pages always have compLen == rawLen.
		return nil, fmt.Errorf("%w: none-codec page with length mismatch", ErrCorrupt)
	case CompressionLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(comp, raw)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: lz4 page decoded to %d bytes, want %d", ErrCorrupt, n, rawLen)
		}
		return raw, nil
	case CompressionS2:
		return s2.Decode(nil, comp)
	case CompressionZstd:
		return zstdDecoder().DecodeAll(comp, nil)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, c)
	}
}
