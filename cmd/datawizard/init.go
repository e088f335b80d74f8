package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// wizardMCPEntry is the MCP server configuration for the datawizard binary.
var wizardMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "datawizard",
  "args": ["serve-mcp"]
}`)

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Register the datawizard MCP server in DIR/.mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(a.stdout, dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing datawizard entry")
	return cmd
}

// runInit creates or merges the datawizard entry into the project's
// .mcp.json.
func runInit(w io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	if err := mergeMCPConfig(w, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nSetup complete. MCP clients in this project can now use the datawizard tools.")
	return nil
}

// mergeMCPConfig creates or merges the datawizard entry into .mcp.json,
// keeping every other server.
func mergeMCPConfig(w io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["datawizard"]; exists && !force {
		fmt.Fprintf(w, "  skipped .mcp.json datawizard entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["datawizard"] = wizardMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(w, "  %s .mcp.json with datawizard MCP server\n", action)
	return nil
}
