package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model <path>",
		Short: "Print the section sizes of a Model (.mdl) file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			sections, err := archive.ReadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("stack:    %d bytes\n", len(sections.Stack))
			fmt.Printf("runtime:  %d bytes\n", len(sections.Runtime))
			for i, v := range sections.Vertex {
				fmt.Printf("vertex[%d]: %d bytes\n", i, len(v))
			}
			for i, v := range sections.Edge {
				fmt.Printf("edge[%d]:   %d bytes\n", i, len(v))
			}
			for i, v := range sections.Index {
				fmt.Printf("index[%d]:  %d bytes\n", i, len(v))
			}
			return nil
		},
	}
}
