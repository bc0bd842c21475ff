package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xivgo/sqpack/excel"
)

func newRowCmd() *cobra.Command {
	var subrow int
	var lang int
	var columns []int

	cmd := &cobra.Command{
		Use:   "row <sheet> <row_id>",
		Short: "Dump a sheet row's decoded fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheetName := args[0]
			var rowID uint32
			if _, err := fmt.Sscanf(args[1], "%d", &rowID); err != nil {
				return fmt.Errorf("invalid row id %q: %w", args[1], err)
			}

			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			ex, err := excel.New(archive, excel.WithLogger(newLogger()))
			if err != nil {
				return err
			}

			sheet, err := ex.Sheet(cmd.Context(), sheetName)
			if err != nil {
				return err
			}

			var row *excel.RowView
			if cmd.Flags().Changed("subrow") {
				row, err = sheet.Subrow(cmd.Context(), rowID, uint16(subrow), uint8(lang))
			} else {
				row, err = sheet.Row(cmd.Context(), rowID, uint8(lang))
			}
			if err != nil {
				return err
			}

			indices := columns
			if len(indices) == 0 {
				for i := range sheet.Columns() {
					indices = append(indices, i)
				}
			}
			for _, i := range indices {
				v, err := row.Field(i)
				if err != nil {
					return err
				}
				fmt.Printf("column%d=%v\n", i, v)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&subrow, "subrow", 0, "subrow index, for Subrows-kind sheets")
	cmd.Flags().IntVar(&lang, "lang", 0, "requested language code")
	cmd.Flags().IntSliceVar(&columns, "column", nil, "restrict output to these column indices (default: all)")
	return cmd
}
