package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DaveBerkeley/streamfab/scenario"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the component names a scenario file's \"component\" field can name",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range scenario.KnownComponents {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
