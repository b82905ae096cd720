package export

import (
	"io"
	"os"
	"time"

	apperrors "mysql-db-export/internal/errors"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// DefaultGzipLevel is used when no level is configured
	DefaultGzipLevel = 6

	chunkSize = 1024 * 1024
)

// CompressionStats describes one compression run
type CompressionStats struct {
	OriginalSize   int64         `json:"original_size" yaml:"original_size"`
	CompressedSize int64         `json:"compressed_size" yaml:"compressed_size"`
	Algorithm      Compression   `json:"algorithm" yaml:"algorithm"`
	Level          int           `json:"level" yaml:"level"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// Ratio returns compressed/original, 1 for empty input
func (s CompressionStats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 1.0
	}
	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// Compressor streams files through a compression algorithm in 1 MiB chunks
type Compressor struct {
	algorithm Compression
	level     int
}

// NewCompressor creates a compressor. Levels outside 1-9 fall back to 6.
func NewCompressor(algorithm Compression, level int) *Compressor {
	if level < 1 || level > 9 {
		level = DefaultGzipLevel
	}
	if algorithm == "" {
		algorithm = CompressionGzip
	}
	return &Compressor{algorithm: algorithm, level: level}
}

// Algorithm returns the configured algorithm
func (c *Compressor) Algorithm() Compression { return c.algorithm }

// Level returns the effective level
func (c *Compressor) Level() int { return c.level }

// Compress streams src into dst. src is left in place.
func (c *Compressor) Compress(srcPath, dstPath string) (*CompressionStats, error) {
	start := time.Now()

	src, err := os.Open(srcPath) //nolint:gosec // path is produced by the exporter
	if err != nil {
		return nil, apperrors.NewResourceError("Cannot read file to compress", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath) //nolint:gosec // path is produced by the exporter
	if err != nil {
		return nil, apperrors.NewResourceError("Cannot create compressed file", dstPath, err)
	}

	counter := &countingWriter{w: dst}
	writer, err := c.newWriter(counter)
	if err != nil {
		dst.Close()
		return nil, apperrors.NewResourceError("Cannot initialize "+string(c.algorithm)+" writer", dstPath, err)
	}

	read, err := io.CopyBuffer(writer, src, make([]byte, chunkSize))
	if err != nil {
		writer.Close()
		dst.Close()
		return nil, apperrors.NewResourceError("Cannot compress file", srcPath, err)
	}
	if err := writer.Close(); err != nil {
		dst.Close()
		return nil, apperrors.NewResourceError("Cannot finish compressed file", dstPath, err)
	}
	if err := dst.Close(); err != nil {
		return nil, apperrors.NewResourceError("Cannot finish compressed file", dstPath, err)
	}

	return &CompressionStats{
		OriginalSize:   read,
		CompressedSize: counter.n,
		Algorithm:      c.algorithm,
		Level:          c.level,
		Duration:       time.Since(start),
	}, nil
}

// Decompress streams src into dst using the configured algorithm
func (c *Compressor) Decompress(srcPath, dstPath string) error {
	src, err := os.Open(srcPath) //nolint:gosec // caller controlled path
	if err != nil {
		return apperrors.NewResourceError("Cannot read compressed file", srcPath, err)
	}
	defer src.Close()

	reader, closeReader, err := c.newReader(src)
	if err != nil {
		return apperrors.NewResourceError("Cannot initialize "+string(c.algorithm)+" reader", srcPath, err)
	}
	defer closeReader()

	dst, err := os.Create(dstPath) //nolint:gosec // caller controlled path
	if err != nil {
		return apperrors.NewResourceError("Cannot create decompressed file", dstPath, err)
	}
	if _, err := io.CopyBuffer(dst, reader, make([]byte, chunkSize)); err != nil {
		dst.Close()
		return apperrors.NewResourceError("Cannot decompress file", srcPath, err)
	}
	if err := dst.Close(); err != nil {
		return apperrors.NewResourceError("Cannot finish decompressed file", dstPath, err)
	}
	return nil
}

func (c *Compressor) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c.algorithm {
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		level := lz4.Fast
		if c.level > 6 {
			level = lz4.Level9
		}
		if err := lw.Apply(lz4.CompressionLevelOption(level)); err != nil {
			return nil, err
		}
		return lw, nil
	case CompressionGzip:
		return gzip.NewWriterLevel(w, c.level)
	default:
		return nil, apperrors.NewConfigurationError("unsupported compression algorithm: "+string(c.algorithm), nil)
	}
}

func (c *Compressor) newReader(r io.Reader) (io.Reader, func(), error) {
	switch c.algorithm {
	case CompressionZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, func() { _ = gr.Close() }, nil
	default:
		return nil, nil, apperrors.NewConfigurationError("unsupported compression algorithm: "+string(c.algorithm), nil)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
