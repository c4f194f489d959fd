package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsCmd = &cobra.Command{
	Use:    "docs <directory>",
	Short:  "Generate Markdown documentation for all commands",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := os.MkdirAll(args[0], 0770)
		if err != nil {
			return eris.Wrapf(err, "Failed to create %s", args[0])
		}

		err = doc.GenMarkdownTree(rootCmd, args[0])
		if err != nil {
			return eris.Wrap(err, "Failed to generate command documentation")
		}

		return nil
	},
}

var readmeCmd = &cobra.Command{
	Use:    "readme <file>",
	Short:  "Generate the project README from the command descriptions",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var buffer strings.Builder

		buffer.WriteString("# tattle\n\n")
		buffer.WriteString(rootCmd.Long)
		buffer.WriteString("\n\n## Commands\n\n")

		for _, sub := range rootCmd.Commands() {
			if sub.Hidden {
				continue
			}

			fmt.Fprintf(&buffer, "* `tattle %s` — %s\n", sub.Name(), sub.Short)
			for _, subsub := range sub.Commands() {
				if !subsub.Hidden {
					fmt.Fprintf(&buffer, "  * `tattle %s %s` — %s\n", sub.Name(), subsub.Name(), subsub.Short)
				}
			}
		}

		buffer.WriteString("\nRun `go run ./cmd/tattle task` to list the available build targets.\n")

		err := os.WriteFile(args[0], []byte(buffer.String()), 0660)
		if err != nil {
			return eris.Wrapf(err, "Failed to write %s", args[0])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(readmeCmd)
}
