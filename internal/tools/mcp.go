package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Serve exposes the built-in tools over MCP stdio and blocks until the
// client disconnects.
func Serve(deps *Deps, version string) error {
	s := server.NewMCPServer(
		"fileforge",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range Defaults(deps) {
		s.AddTool(mcpTool(t.Def()), handler(t))
	}
	return server.ServeStdio(s)
}

// mcpTool converts a ToolDef into the mcp-go tool shape.
func mcpTool(def ToolDef) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	required := make(map[string]bool, len(def.Parameters.Required))
	for _, name := range def.Parameters.Required {
		required[name] = true
	}
	for name, p := range def.Parameters.Properties {
		var propOpts []mcp.PropertyOption
		if p.Description != "" {
			propOpts = append(propOpts, mcp.Description(p.Description))
		}
		if required[name] {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, propOpts...))
		case "number":
			opts = append(opts, mcp.WithNumber(name, propOpts...))
		case "object":
			opts = append(opts, mcp.WithObject(name, propOpts...))
		case "array":
			opts = append(opts, mcp.WithArray(name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(name, propOpts...))
		}
	}
	return mcp.NewTool(def.Name, opts...)
}

func handler(t Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("encode arguments: " + err.Error()), nil
		}
		return mcp.NewToolResultText(t.Call(ctx, string(args))), nil
	}
}
