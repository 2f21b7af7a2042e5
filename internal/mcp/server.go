// Package mcp provides a Model Context Protocol server for dyntopics.
//
// It exposes dynamic topic tracking and partition merging as MCP tools so
// an assistant can inspect how window topics line up with dynamic topics.
// Served over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/dyntopics/internal/bundle"
	"github.com/hurttlocker/dyntopics/internal/pipeline"
	"github.com/hurttlocker/dyntopics/internal/render"
	"github.com/hurttlocker/dyntopics/internal/selector"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Runner    *pipeline.Runner
	Version   string          // version string for MCP server info
	Selection selector.Config // defaults for pattern, base path and extension
	Top       int             // default number of terms per ranking
}

// runMu serializes tool calls. mcp-go dispatches handlers concurrently,
// and a run holds every model in memory at once.
var runMu sync.Mutex

// NewServer creates a configured MCP server with the dyntopics tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil)
	}
	if cfg.Top <= 0 {
		cfg.Top = 10
	}

	s := server.NewMCPServer(
		"dyntopics",
		ver,
		server.WithToolCapabilities(false),
	)

	registerTrackTool(s, cfg)
	registerMergeTool(s, cfg)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

func windowSelectionOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("dynamic_model",
			mcp.Required(),
			mcp.Description("Path to the dynamic topic model file"),
		),
		mcp.WithString("window_files",
			mcp.Description("Comma-separated window model paths in chronological order. Ignored when manifest is set."),
		),
		mcp.WithString("manifest",
			mcp.Description("Selection manifest: header line, then prefix,k rows"),
		),
		mcp.WithString("pattern",
			mcp.Description("Regular expression matched against the start of each window file name"),
		),
		mcp.WithString("base_path",
			mcp.Description("Directory containing the window models"),
		),
	}
}

func registerTrackTool(s *server.MCPServer, cfg ServerConfig) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Show, for each dynamic topic, its top terms next to the top terms of every window topic aligned to it."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}
	opts = append(opts, windowSelectionOptions()...)
	opts = append(opts,
		mcp.WithNumber("top",
			mcp.Description(fmt.Sprintf("Number of top terms per ranking (default: %d)", cfg.Top)),
		),
		mcp.WithBoolean("long",
			mcp.Description("Stacked term lists instead of a table (default: false)"),
		),
		mcp.WithString("topics",
			mcp.Description("Comma-separated 1-based dynamic topic numbers to show. Empty = all."),
		),
	)
	tool := mcp.NewTool("dyntopics_track", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runMu.Lock()
		defer runMu.Unlock()

		model, err := req.RequireString("dynamic_model")
		if err != nil || strings.TrimSpace(model) == "" {
			return mcp.NewToolResultError("dynamic_model is required"), nil
		}
		files, err := resolveWindows(req, cfg.Selection)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		top := cfg.Top
		if v, err := req.RequireFloat("top"); err == nil && v >= 1 {
			top = int(v)
		}
		long := false
		if v, err := req.RequireBool("long"); err == nil {
			long = v
		}
		var filter render.Filter
		if v, err := req.RequireString("topics"); err == nil {
			filter, err = render.ParseTopicFilter(v)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		var buf bytes.Buffer
		_, err = cfg.Runner.Track(ctx, pipeline.TrackOptions{
			DynamicModel: model,
			WindowFiles:  files,
			Top:          top,
			Long:         long,
			Topics:       filter,
		}, &buf)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("track error: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	})
}

func registerMergeTool(s *server.MCPServer, cfg ServerConfig) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Merge window document partitions into one document partition over dynamic topics and save it as a model file."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
	}
	opts = append(opts, windowSelectionOptions()...)
	opts = append(opts,
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Path of the merged model file (overwritten if it exists)"),
		),
		mcp.WithString("format",
			mcp.Description("Output encoding: json or sqlite (default: json)"),
			mcp.Enum("json", "sqlite"),
		),
	)
	tool := mcp.NewTool("dyntopics_merge", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runMu.Lock()
		defer runMu.Unlock()

		model, err := req.RequireString("dynamic_model")
		if err != nil || strings.TrimSpace(model) == "" {
			return mcp.NewToolResultError("dynamic_model is required"), nil
		}
		output, err := req.RequireString("output")
		if err != nil || strings.TrimSpace(output) == "" {
			return mcp.NewToolResultError("output is required"), nil
		}
		files, err := resolveWindows(req, cfg.Selection)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format := bundle.FormatJSON
		if v, err := req.RequireString("format"); err == nil {
			format, err = bundle.ParseFormat(v)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		sum, err := cfg.Runner.Merge(ctx, pipeline.MergeOptions{
			DynamicModel: model,
			WindowFiles:  files,
			Output:       output,
			Format:       format,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("merge error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(sum, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func resolveWindows(req mcp.CallToolRequest, defaults selector.Config) ([]string, error) {
	sel := defaults
	if v, err := req.RequireString("pattern"); err == nil && v != "" {
		sel.Pattern = v
	}
	if v, err := req.RequireString("base_path"); err == nil && v != "" {
		sel.BaseDir = v
	}
	manifest := ""
	if v, err := req.RequireString("manifest"); err == nil {
		manifest = v
	}

	var paths []string
	if v, err := req.RequireString("window_files"); err == nil {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	}
	return pipeline.WindowFiles(manifest, sel, paths)
}
