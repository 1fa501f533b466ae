package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/docx"
	"github.com/fileforge/fileforge-cli/internal/pptx"
	"github.com/fileforge/fileforge-cli/internal/xlsx"
)

// ReviewTool annotates a stored document with reviewer comments and
// uploads the result.
type ReviewTool struct {
	deps *Deps
}

func NewReviewTool(deps *Deps) *ReviewTool { return &ReviewTool{deps: deps} }

func (t *ReviewTool) Def() ToolDef {
	return ToolDef{
		Name:        "review_document",
		Description: "Review an existing document (docx, xlsx, pptx) and add comments. For xlsx the index is a cell reference (A1); for docx a paragraph key (pid:N); for pptx a slide key (sid:N).",
		Parameters: ToolParameters{
			Type: "object",
			Properties: map[string]ToolProperty{
				"file_id":         {Type: "string", Description: "Storage id of the document"},
				"file_name":       {Type: "string", Description: "File name including extension"},
				"review_comments": {Type: "array", Description: `[[index, comment], ...] where index is a reference key or integer position`},
			},
			Required: []string{"file_id", "file_name", "review_comments"},
		},
	}
}

type reviewArgs struct {
	FileID   string          `json:"file_id"`
	FileName string          `json:"file_name"`
	Comments json.RawMessage `json:"review_comments"`
}

func (t *ReviewTool) Call(ctx context.Context, argsJSON string) string {
	var args reviewArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return errJSON("parse arguments: " + err.Error())
	}
	var notes []docedit.Note
	if err := json.Unmarshal(args.Comments, &notes); err != nil {
		return errJSON("parse review_comments: " + err.Error())
	}

	data, err := t.deps.download(ctx, args.FileID)
	if err != nil {
		return errJSON(err.Error())
	}
	folder, err := t.deps.Store.NewFolder()
	if err != nil {
		return errJSON(err.Error())
	}
	defer t.deps.Store.ScheduleCleanup(folder)

	ft := fileType(args.FileName)
	outName := fmt.Sprintf("%s_reviewed.%s", baseName(args.FileName), ft)
	outPath := filepath.Join(folder, outName)
	log := t.deps.logger()

	switch ft {
	case "docx":
		doc, err := docx.Load(bytes.NewReader(data))
		if err != nil {
			return errJSON(err.Error())
		}
		doc.Review(notes)
		if err := doc.Save(outPath); err != nil {
			return errJSON(err.Error())
		}
	case "pptx":
		// The comment patcher rewrites the archive in place, so the
		// deck goes to disk first.
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return errJSON(err.Error())
		}
		if err := pptx.Review(outPath, notes, log); err != nil {
			return errJSON(err.Error())
		}
	case "xlsx":
		wb, err := xlsx.OpenReader(bytes.NewReader(data))
		if err != nil {
			return errJSON(err.Error())
		}
		defer wb.Close()
		wb.Review(notes, log)
		if err := wb.SaveAs(outPath); err != nil {
			return errJSON(err.Error())
		}
	default:
		return errJSON(fmt.Sprintf("unsupported file type: %s. Only docx, xlsx, and pptx are supported", ft))
	}

	link, err := t.deps.upload(ctx, outPath, baseName(args.FileName)+"_reviewed", ft)
	if err != nil {
		return errJSON(err.Error())
	}
	return toJSON(map[string]any{"file_path_download": link})
}
