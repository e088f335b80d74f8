package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/datawizard/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or write the datawizard configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.cfgUsed != "" {
				fmt.Fprintf(a.stdout, "# from %s\n", a.cfgUsed)
			}
			out, err := yaml.Marshal(a.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("marshal yaml: %w", err)
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to a file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home dir: %w", err)
				}
				path = config.DefaultPath(home)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists, use --force to overwrite", path)
			}
			written, err := config.Save(a.cfg, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "  created %s\n", written)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "file to write (default ~/.datawizard/config.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
