package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/docx"
	"github.com/fileforge/fileforge-cli/internal/pptx"
	"github.com/fileforge/fileforge-cli/internal/xlsx"
)

// StructureTool returns the unified structure snapshot of a stored
// document.
type StructureTool struct {
	deps *Deps
}

func NewStructureTool(deps *Deps) *StructureTool { return &StructureTool{deps: deps} }

func (t *StructureTool) Def() ToolDef {
	return ToolDef{
		Name:        "full_context_document",
		Description: "Return the structure, content, and metadata of a document (docx, xlsx, pptx). Unified output format with index, type, style, and text.",
		Parameters: ToolParameters{
			Type: "object",
			Properties: map[string]ToolProperty{
				"file_id":   {Type: "string", Description: "Storage id of the document"},
				"file_name": {Type: "string", Description: "File name including extension; selects the document family"},
			},
			Required: []string{"file_id", "file_name"},
		},
	}
}

type structureArgs struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

func (t *StructureTool) Call(ctx context.Context, argsJSON string) string {
	var args structureArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return errJSON("parse arguments: " + err.Error())
	}
	data, err := t.deps.download(ctx, args.FileID)
	if err != nil {
		return errJSON(err.Error())
	}
	s, err := snapshot(data, args.FileName, args.FileID)
	if err != nil {
		return errJSON(err.Error())
	}
	return toJSON(s)
}

// snapshot dispatches on the file extension and builds the structure.
func snapshot(data []byte, fileName, fileID string) (*docedit.Structure, error) {
	switch ft := fileType(fileName); ft {
	case "docx":
		doc, err := docx.Load(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return doc.Structure(fileName, fileID), nil
	case "pptx":
		deck, err := pptx.Load(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return deck.Structure(fileName, fileID), nil
	case "xlsx":
		wb, err := xlsx.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer wb.Close()
		return wb.Structure(fileName, fileID), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s. Only docx, xlsx, and pptx are supported", ft)
	}
}
