package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/config"
	"github.com/ericksa/contractlens/internal/extract"
	"github.com/ericksa/contractlens/internal/logging"
	"github.com/ericksa/contractlens/internal/precedent"
	"github.com/ericksa/contractlens/internal/standards"
)

// uploader is satisfied by standards.MinIORepository
type uploader interface {
	Upload(ctx context.Context, filename string, data io.Reader, size int64) error
}

func main() {
	var (
		configDir    = flag.String("config", "", "Directory containing config.yaml (default: . and $HOME/.contractlens)")
		standardsDir = flag.String("standards", "", "Upload every .pdf/.docx in this directory to the MinIO standards bucket")
		skipSeed     = flag.Bool("skip-precedents", false, "Do not load the built-in historical clauses")
		timeout      = flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	)
	flag.Parse()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !*skipSeed {
		n, err := seedPrecedents(ctx, cfg.PrecedentStore(), logger)
		if err != nil {
			logger.Fatal("seeding precedents failed", zap.Error(err))
		}
		fmt.Printf("Loaded %d historical clauses into the %s store\n", n, cfg.Precedents.Backend)
	}

	if *standardsDir != "" {
		if cfg.Standards.Backend != "minio" {
			logger.Fatal("-standards requires standards.backend=minio", zap.String("backend", cfg.Standards.Backend))
		}
		repo, err := standards.NewMinIORepository(cfg.StandardsMinIO())
		if err != nil {
			logger.Fatal("minio unavailable", zap.Error(err))
		}
		n, err := uploadStandards(ctx, repo, *standardsDir)
		if err != nil {
			logger.Fatal("uploading standards failed", zap.Error(err))
		}
		fmt.Printf("Uploaded %d standard documents to bucket %s\n", n, cfg.Standards.MinIO.Bucket)
	}
}

func seedPrecedents(ctx context.Context, cfg precedent.Config, logger *zap.Logger) (int, error) {
	searcher, err := precedent.Open(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	defer searcher.Close()
	return searcher.Load(ctx, precedent.SeedEntries)
}

// uploadStandards copies every supported document in dir to the bucket
func uploadStandards(ctx context.Context, repo uploader, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	uploaded := 0
	for _, e := range entries {
		if e.IsDir() || !extract.Supported(e.Name()) {
			continue
		}
		if err := uploadFile(ctx, repo, filepath.Join(dir, e.Name())); err != nil {
			return uploaded, err
		}
		uploaded++
	}
	return uploaded, nil
}

func uploadFile(ctx context.Context, repo uploader, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	// the repository looks documents up by lower-case extension
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	name = strings.TrimSuffix(name, ext) + strings.ToLower(ext)
	return repo.Upload(ctx, name, f, info.Size())
}
