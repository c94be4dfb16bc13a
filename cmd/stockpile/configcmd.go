package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/justyntemme/stockpile/internal/config"
	"github.com/justyntemme/stockpile/internal/store"
)

func configCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration and remembered settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := opts.loadConfig()
				if err != nil {
					return err
				}
				cfg := mgr.Get()
				fmt.Printf("config:      %s\n", opts.configFile())
				fmt.Printf("destination: %s\n", cfg.Install.Destination)
				fmt.Printf("manifest:    %s\n", manifestLine(cfg.Manifest))
				fmt.Printf("store:       %s\n", cfg.Store.Path)

				db, err := store.Open(cfg.Store.Path)
				if err != nil {
					log.Printf("Store: %v", err)
					return nil
				}
				defer db.Close()
				settings, err := db.Settings()
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(settings))
				for k := range settings {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					info("%s = %s", k, settings[k])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a fresh default config, keeping a backup of the old one",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := opts.configFile()
				backup, err := config.GenerateConfig(path)
				if err != nil {
					return err
				}
				if backup != "" {
					info("previous config saved as %s", backup)
				}
				success("wrote %s", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-destination <dir>",
			Short: "Change the install destination",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				dest, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				mgr, err := opts.loadConfig()
				if err != nil {
					return err
				}
				mgr.SetDestination(dest)
				success("destination set to %s", dest)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-manifest <file>",
			Short: "Read the component list from a local file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				mgr, err := opts.loadConfig()
				if err != nil {
					return err
				}
				mgr.SetManifestPath(path)
				success("manifest set to %s", path)
				return nil
			},
		},
	)

	return cmd
}

func manifestLine(m config.ManifestConfig) string {
	if m.Path != "" {
		return m.Path
	}
	return m.URL + " (cached)"
}
