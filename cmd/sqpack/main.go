// Command sqpack is a thin inspection client over the sqpack and
// sqpack/excel packages: it reads a file, lists sheets, or dumps a row.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xivgo/sqpack"
	"github.com/xivgo/sqpack/config"
	"github.com/xivgo/sqpack/excel"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sqpack",
		Short: "Inspect a SqPack game archive",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sqpack.yaml", "path to the database config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newCatCmd(), newSheetsCmd(), newRowCmd(), newModelCmd())
	return root
}

func newLogger() sqpack.Logger {
	if !verbose {
		return nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil
	}
	return l.Sugar()
}

func openArchive() (*sqpack.Archive, error) {
	db, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return sqpack.NewArchive(db.DefaultRepository, db.Resolve(), sqpack.WithLogger(newLogger()))
}
