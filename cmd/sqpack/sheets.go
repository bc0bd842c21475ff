package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xivgo/sqpack/excel"
)

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "List every sheet name in the root manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			ex, err := excel.New(archive, excel.WithLogger(newLogger()))
			if err != nil {
				return err
			}

			names, err := ex.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
