package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/mcp"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI agent integration",
	Long: `Start an MCP (Model Context Protocol) server over the catalog, using the
stdio transport. Agents can then look up members without reading the emitted
units.

Available Tools:
  docs_show    Member by id
  docs_find    Search members by name pattern
  docs_sets    List stored document sets`,
	Example: `  maid serve --mcp
  maid serve --mcp --tools show,find
  maid serve --mcp --timeout 30m
  maid serve --list-tools`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveMCP       bool
	serveTools     string
	serveTimeout   time.Duration
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Start MCP server (stdio transport)")
	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 30*time.Minute, "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

// parseTools splits the --tools value, allowing the short form show for
// docs_show.
func parseTools(s string) []string {
	var tools []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "docs_") {
			t = "docs_" + t
		}
		tools = append(tools, t)
	}
	return tools
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListTools {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available MCP tools:")
		for _, t := range mcp.AllTools {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	}
	if !serveMCP {
		return errors.WithHint(errors.New("no transport selected"), "use --mcp to start the MCP server")
	}

	log := newLogger()
	defer log.Sync()

	return withCatalog(func(cat *catalog.Catalog) error {
		server, err := mcp.New(cat, mcp.Config{
			Tools:   parseTools(serveTools),
			Timeout: serveTimeout,
			Logger:  log,
		})
		if err != nil {
			return err
		}
		// stdout carries the protocol; logs go to stderr.
		log.Info("starting MCP server",
			zap.Strings("tools", server.ListTools()),
			zap.Duration("timeout", serveTimeout))
		return server.ServeStdio()
	})
}
