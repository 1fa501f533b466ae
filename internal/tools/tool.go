// Package tools exposes the document operations as callable tools:
// structure snapshots, edits, reviews and file creation. It defines
// the Tool interface and the shared dependencies each tool draws on.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fileforge/fileforge-cli/internal/api"
	"github.com/fileforge/fileforge-cli/internal/config"
	"github.com/fileforge/fileforge-cli/internal/images"
	"github.com/fileforge/fileforge-cli/internal/store"
)

// Tool is a callable document operation.
type Tool interface {
	// Def returns the tool's definition (name, description, parameters schema).
	Def() ToolDef
	// Call executes the tool with JSON-encoded arguments and returns the result string.
	Call(ctx context.Context, argsJSON string) string
}

// ToolDef is the schema-carrying tool definition.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters describes the JSON Schema for the tool's input.
type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

// ToolProperty describes a single parameter field.
type ToolProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Deps carries the collaborators shared by all tools.
type Deps struct {
	Config *config.Config
	Store  *store.Store
	Client *api.Client
	Images *images.Provider
	Log    *slog.Logger
}

func (d *Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

// Defaults returns all built-in document tools.
func Defaults(deps *Deps) []Tool {
	return []Tool{
		NewStructureTool(deps),
		NewEditTool(deps),
		NewReviewTool(deps),
		NewCreateTool(deps),
	}
}

// errJSON renders a failure as the JSON error object callers expect.
func errJSON(msg string) string {
	out, _ := json.MarshalIndent(map[string]any{
		"error": map[string]string{"message": msg},
	}, "", "    ")
	return string(out)
}

func toJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errJSON("encode response: " + err.Error())
	}
	return string(out)
}

// fileType returns the lower-cased extension without the dot.
func fileType(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

// baseName strips the extension for _edited/_reviewed upload names.
func baseName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// download pulls the source document from remote storage.
func (d *Deps) download(ctx context.Context, fileID string) ([]byte, error) {
	return d.Client.Download(ctx, fileID, d.Config.Storage.Token)
}

// upload stores a produced file and returns the markdown download link.
func (d *Deps) upload(ctx context.Context, path, filename, ft string) (string, error) {
	res, err := d.Client.Upload(ctx, path, filename, ft, d.Config.Storage.Token)
	if err != nil {
		return "", err
	}
	return res.DownloadLink, nil
}
