package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gnamed/gnamed/internal/bulk"
	"github.com/gnamed/gnamed/internal/loader"
	"github.com/gnamed/gnamed/internal/logging"
	"github.com/gnamed/gnamed/internal/parsers"
	"github.com/gnamed/gnamed/internal/record"
	"github.com/gnamed/gnamed/internal/store"
	"github.com/gnamed/gnamed/internal/taxonomy"
)

var (
	loadFlushEvery int
	loadEncoding   string
	loadLinks      []string
	loadBulk       bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a provider dump into the repository",
	Long: `Load a provider dump into the repository.

Each load runs in a single transaction: the whole file commits or
nothing does. Load the taxonomy first; every gene and protein row
references a species.`,
}

var loadEntrezCmd = &cobra.Command{
	Use:   "entrez <gene_info[.gz]>",
	Short: "Load an NCBI Entrez Gene gene_info dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMergeLoad(cmd.Context(), parsers.Entrez{}, record.Gene, args[0])
	},
}

var loadHGNCCmd = &cobra.Command{
	Use:   "hgnc <hgnc.csv[.gz]>",
	Short: "Load a genenames.org custom download dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMergeLoad(cmd.Context(), parsers.HGNC{}, record.Gene, args[0])
	},
}

var loadUniProtCmd = &cobra.Command{
	Use:   "uniprot <uniprot_sprot.dat[.gz]>",
	Short: "Load a UniProtKB Swiss-Prot/TrEMBL text dump",
	Long: `Load a UniProtKB Swiss-Prot/TrEMBL text dump.

With --bulk the merge engine is bypassed and rows are shipped with the
COPY protocol. Bulk mode is only safe on a store that holds no protein
data yet; it assumes the input is deduplicated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadBulk {
			return runBulkLoad(cmd.Context(), args[0])
		}
		return runMergeLoad(cmd.Context(), parsers.UniProt{}, record.Protein, args[0])
	},
}

var loadTaxaCmd = &cobra.Command{
	Use:   "taxa <nodes.dmp> <names.dmp>",
	Short: "Load the NCBI taxonomy dump",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTaxaLoad(cmd.Context(), args[0], args[1])
	},
}

func init() {
	loadCmd.PersistentFlags().IntVar(&loadFlushEvery, "flush-every", 0,
		"records between cache flushes (0 uses LOAD_FLUSH_EVERY)")
	loadCmd.PersistentFlags().StringVar(&loadEncoding, "encoding", "",
		"input character encoding (empty uses LOAD_ENCODING)")
	loadCmd.PersistentFlags().StringSliceVar(&loadLinks, "link", nil,
		"namespaces allowed to produce gene-protein links (default all)")
	loadUniProtCmd.Flags().BoolVar(&loadBulk, "bulk", false,
		"append via COPY instead of merging (first-time loads only)")

	loadCmd.AddCommand(loadEntrezCmd, loadHGNCCmd, loadUniProtCmd, loadTaxaCmd)
	rootCmd.AddCommand(loadCmd)
}

func flushEvery() int {
	if loadFlushEvery > 0 {
		return loadFlushEvery
	}
	return cfg.Load.FlushEvery
}

func encoding() string {
	if loadEncoding != "" {
		return loadEncoding
	}
	return cfg.Load.Encoding
}

func runMergeLoad(ctx context.Context, src loader.Source, kind record.EntityKind, path string) error {
	pool, err := connectPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	in, err := openInput(path, encoding())
	if err != nil {
		return err
	}
	defer in.Close()

	runner := &loader.Runner{
		Store:      store.NewPG(pool),
		Kind:       kind,
		FlushEvery: flushEvery(),
		LinkSpaces: loadLinks,
	}
	_, err = runner.Run(ctx, src, in, filepath.Base(path))
	return err
}

func runBulkLoad(ctx context.Context, path string) error {
	runID := uuid.New().String()
	log := logging.WithFields("run_id", runID, "file", filepath.Base(path))

	pool, err := connectPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	in, err := openInput(path, encoding())
	if err != nil {
		return err
	}
	defer in.Close()

	tx, err := store.NewPG(pool).Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	btx, ok := tx.(bulk.Tx)
	if !ok {
		return fmt.Errorf("store does not support bulk appending")
	}
	app, err := bulk.NewAppender(ctx, btx, log)
	if err != nil {
		return err
	}

	log.Info("bulk load started")
	start := time.Now()
	records := 0
	err = parsers.UniProt{}.Parse(ctx, in, func(key record.DBRef, rec *record.Record) error {
		if err := app.Append(ctx, key, rec); err != nil {
			return err
		}
		records++
		if app.Buffered() >= flushEvery() {
			return app.Flush(ctx)
		}
		return nil
	})
	if err != nil {
		log.Error("bulk load failed, rolling back", "records", records, "error", err)
		return fmt.Errorf("bulk load %s: %w", path, err)
	}
	if err := app.Finish(ctx); err != nil {
		return fmt.Errorf("bulk load %s: %w", path, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bulk load %s: %w", path, err)
	}

	log.Info("bulk load committed",
		"records", records,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func runTaxaLoad(ctx context.Context, nodesPath, namesPath string) error {
	runID := uuid.New().String()
	log := logging.ForRun(runID)

	pool, err := connectPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx, err := store.NewPG(pool).Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tree := taxonomy.NewTreeLoader(tx, log)
	start := time.Now()

	nodes, err := openInput(nodesPath, encoding())
	if err != nil {
		return err
	}
	err = parsers.ParseNodes(ctx, nodes, tree)
	nodes.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", nodesPath, err)
	}
	log.Info("node definitions read", "file", filepath.Base(nodesPath))

	names, err := openInput(namesPath, encoding())
	if err != nil {
		return err
	}
	err = parsers.ParseNames(ctx, names, tree)
	names.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", namesPath, err)
	}
	if err := tree.Finish(ctx); err != nil {
		return fmt.Errorf("load %s: %w", namesPath, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}
	log.Info("taxonomy committed",
		"species", tree.Stored(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
