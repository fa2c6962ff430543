package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/mcp"
)

var (
	callList bool
	callPipe bool
)

var callCmd = &cobra.Command{
	Use:   "call [tool] [json-args]",
	Short: "Call an MCP tool once from the command line",
	Long: `Call any of the MCP tools with JSON arguments and print the JSON result.

Modes:
  maid call --list                          List all tools and parameters
  maid call <tool> '{"key":"value"}'        Call a tool with JSON args
  maid call --pipe                          Read JSON lines from stdin

Tool names accept shorthand: "find" is equivalent to "docs_find".`,
	Example: `  maid call --list
  maid call find '{"pattern":"Repo*","kind":"type"}'
  maid call show '{"id":"Shop/Acme.Data/Order"}'
  echo '{"tool":"docs_sets","args":{}}' | maid call --pipe`,
	Args: cobra.MaximumNArgs(2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().BoolVar(&callList, "list", false, "List all available tools and their parameters")
	callCmd.Flags().BoolVar(&callPipe, "pipe", false, "Read JSON lines from stdin (pipe mode)")
}

func runCall(cmd *cobra.Command, args []string) error {
	if !callList && !callPipe && len(args) == 0 {
		return errors.WithHint(errors.New("tool name required"), "run 'maid call --list' to see available tools")
	}
	return withCatalog(func(cat *catalog.Catalog) error {
		srv, err := mcp.New(cat, mcp.Config{Logger: newLogger()})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case callList:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(srv.GetToolSchemas())
		case callPipe:
			return callPipeLines(cmd, srv, cmd.InOrStdin(), out)
		}
		return callSingle(cmd, srv, args, out)
	})
}

func callSingle(cmd *cobra.Command, srv *mcp.Server, args []string, out io.Writer) error {
	toolArgs := map[string]any{}
	if len(args) >= 2 {
		if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
			return errors.Wrap(err, "invalid JSON args")
		}
	}
	result, err := srv.CallTool(cmd.Context(), normalizeToolName(args[0]), toolArgs)
	if err != nil {
		return err
	}
	fmt.Fprint(out, result)
	return nil
}

// pipeRequest is the JSON format for pipe mode input.
type pipeRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// pipeResponse is the JSON format for pipe mode output.
type pipeResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// callPipeLines answers one JSON request per input line with one JSON
// response line. Failed calls are reported in the response.
func callPipeLines(cmd *cobra.Command, srv *mcp.Server, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req pipeRequest
		var resp pipeResponse
		if err := json.Unmarshal(line, &req); err != nil {
			resp.Error = "invalid request: " + err.Error()
		} else if result, err := srv.CallTool(cmd.Context(), normalizeToolName(req.Tool), req.Args); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = json.RawMessage(result)
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func normalizeToolName(name string) string {
	if tools := parseTools(name); len(tools) == 1 {
		return tools[0]
	}
	return name
}
