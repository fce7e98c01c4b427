package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/gnamed/gnamed/internal/config"
	"github.com/gnamed/gnamed/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gnamed",
	Short: "Consolidated repository of gene and protein names",
	Long: `gnamed maintains a PostgreSQL repository of gene and protein names
and symbols, consolidated from public nomenclature providers (NCBI
Entrez Gene, UniProtKB, genenames.org, the NCBI taxonomy).

Configuration is read from environment variables, optionally seeded
from a .env file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		slog.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// connectPool opens and verifies the configured connection pool.
func connectPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// openInput opens a dump file for reading, transparently decompressing
// .gz files and decoding non-UTF-8 encodings.
func openInput(path, encoding string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var r io.Reader = f
	closers := []io.Closer{f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		r = gz
		closers = append([]io.Closer{gz}, closers...)
	}

	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	case "iso-8859-1", "latin-1", "latin1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case "windows-1252", "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	default:
		for _, c := range closers {
			c.Close()
		}
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	return &input{Reader: r, closers: closers}, nil
}

type input struct {
	io.Reader
	closers []io.Closer
}

func (in *input) Close() error {
	var first error
	for _, c := range in.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
