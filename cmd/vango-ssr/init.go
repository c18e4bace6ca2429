package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssr/internal/config"
)

func initCmd() *cobra.Command {
	var yamlFormat bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.JSONFileName
			if yamlFormat {
				name = config.YAMLFileName
			}
			if config.Exists(".") {
				return fmt.Errorf("a configuration file already exists")
			}
			if err := config.New().SaveTo(name); err != nil {
				return err
			}
			success("Wrote %s", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yamlFormat, "yaml", false, "Write ssr.yaml instead of ssr.json")

	return cmd
}
