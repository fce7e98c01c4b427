package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnamed/gnamed/internal/fetch"
	"github.com/gnamed/gnamed/internal/namespace"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <repository>",
	Short: "Download a provider's dump files into the data directory",
	Long: "Download a provider's dump files into the data directory.\n\n" +
		"Known repositories:\n" + repositoryList(),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := fetch.NewFetcher(cfg.Fetch.DataDir, cfg.Fetch.Timeout, nil)
		return f.Fetch(cmd.Context(), args[0])
	},
}

func repositoryList() string {
	names := make([]string, 0, len(namespace.Repositories))
	for name := range namespace.Repositories {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %-8s %s\n", name, namespace.Repositories[name].Description)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
