// Command zstdcli compresses, decompresses and inspects Zstd frames
// from the command line.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hannes44/exjobb-index-compression-sub001/internal/zstd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var err error
	switch os.Args[1] {
	case "compress":
		err = runCompress(os.Args[2:], logger)
	case "decompress":
		err = runDecompress(os.Args[2:], logger)
	case "inspect":
		err = runInspect(os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("zstdcli failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: zstdcli compress [-level N] <in> <out>")
	fmt.Fprintln(os.Stderr, "       zstdcli decompress <in> <out>")
	fmt.Fprintln(os.Stderr, "       zstdcli inspect <in>")
}

func runCompress(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("compress", flag.ExitOnError)
	level := fs.Int("level", zstd.DefaultCompressionLevel, "compression level (1-9)")
	noChecksum := fs.Bool("no-checksum", false, "omit the frame content checksum")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		usage()
		os.Exit(2)
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	session := zstd.NewSession(*level, zstd.WithLogger(logger), zstd.WithChecksum(!*noChecksum))
	out, err := session.Compress(nil, src)
	if err != nil {
		return err
	}

	logger.Info("compressed", "in", fs.Arg(0), "out", fs.Arg(1), "input_bytes", len(src), "output_bytes", len(out), "level", *level)
	return os.WriteFile(fs.Arg(1), out, 0o644)
}

func runDecompress(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("decompress", flag.ExitOnError)
	maxSize := fs.Int64("max-size", 0, "reject frames whose declared content size exceeds this many bytes (0 = no extra limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		usage()
		os.Exit(2)
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	session := zstd.NewSession(zstd.DefaultCompressionLevel, zstd.WithLogger(logger))
	out, err := session.Decompress(src, *maxSize)
	if err != nil {
		return err
	}

	logger.Info("decompressed", "in", fs.Arg(0), "out", fs.Arg(1), "input_bytes", len(src), "output_bytes", len(out))
	return os.WriteFile(fs.Arg(1), out, 0o644)
}

func runInspect(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	info, blocks, err := zstd.InspectBlocks(src)
	if err != nil {
		return err
	}

	fmt.Printf("window_size=%d\n", info.WindowSize)
	if info.HasContentSize {
		fmt.Printf("content_size=%d\n", info.ContentSize)
	} else {
		fmt.Println("content_size=unknown")
	}
	fmt.Printf("checksum=%v\n", info.HasChecksum)
	fmt.Printf("header_size=%d\n", info.HeaderSize)
	fmt.Printf("block_count=%d\n", len(blocks))
	for i, b := range blocks {
		if b.UncompressedSize < 0 {
			fmt.Printf("block[%d] type=%s compressed_size=%d uncompressed_size=unknown last=%v\n", i, b.Type, b.CompressedSize, b.Last)
		} else {
			fmt.Printf("block[%d] type=%s compressed_size=%d uncompressed_size=%d last=%v\n", i, b.Type, b.CompressedSize, b.UncompressedSize, b.Last)
		}
	}
	return nil
}
