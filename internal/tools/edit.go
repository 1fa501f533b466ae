package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fileforge/fileforge-cli/internal/docedit"
	"github.com/fileforge/fileforge-cli/internal/docx"
	"github.com/fileforge/fileforge-cli/internal/pptx"
	"github.com/fileforge/fileforge-cli/internal/report"
	"github.com/fileforge/fileforge-cli/internal/xlsx"
)

// EditTool applies a structured edit batch to a stored document and
// uploads the result.
type EditTool struct {
	deps *Deps
}

func NewEditTool(deps *Deps) *EditTool { return &EditTool{deps: deps} }

func (t *EditTool) Def() ToolDef {
	return ToolDef{
		Name:        "edit_document",
		Description: "Edit a document (docx, xlsx, pptx) using structured operations: insert/delete units and replace content by reference key. Returns a download link and a change summary.",
		Parameters: ToolParameters{
			Type: "object",
			Properties: map[string]ToolProperty{
				"file_id":   {Type: "string", Description: "Storage id of the document"},
				"file_name": {Type: "string", Description: "File name including extension"},
				"edits":     {Type: "object", Description: `{"ops":[...],"content_edits":[[target,value],...]} or a bare content-edit array`},
			},
			Required: []string{"file_id", "file_name", "edits"},
		},
	}
}

type editArgs struct {
	FileID   string          `json:"file_id"`
	FileName string          `json:"file_name"`
	Edits    json.RawMessage `json:"edits"`
}

func (t *EditTool) Call(ctx context.Context, argsJSON string) string {
	var args editArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return errJSON("parse arguments: " + err.Error())
	}
	var batch docedit.Batch
	if err := json.Unmarshal(args.Edits, &batch); err != nil {
		return errJSON("parse edits: " + err.Error())
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
	outName := fmt.Sprintf("%s_edited.%s", baseName(args.FileName), ft)
	outPath := filepath.Join(folder, outName)
	log := t.deps.logger()

	summary := report.New()
	switch ft {
	case "docx":
		doc, err := docx.Load(bytes.NewReader(data))
		if err != nil {
			return errJSON(err.Error())
		}
		before := targetTexts(doc.Structure(args.FileName, args.FileID))
		doc.Apply(batch, log)
		summarize(summary, batch, before, targetTexts(doc.Structure(args.FileName, args.FileID)))
		if err := doc.Save(outPath); err != nil {
			return errJSON(err.Error())
		}
	case "pptx":
		deck, err := pptx.Load(bytes.NewReader(data))
		if err != nil {
			return errJSON(err.Error())
		}
		before := targetTexts(deck.Structure(args.FileName, args.FileID))
		deck.Apply(batch, log)
		summarize(summary, batch, before, targetTexts(deck.Structure(args.FileName, args.FileID)))
		if err := deck.Save(outPath); err != nil {
			return errJSON(err.Error())
		}
	case "xlsx":
		wb, err := xlsx.OpenReader(bytes.NewReader(data))
		if err != nil {
			return errJSON(err.Error())
		}
		defer wb.Close()
		before := targetTexts(wb.Structure(args.FileName, args.FileID))
		wb.Apply(batch, log)
		summarize(summary, batch, before, targetTexts(wb.Structure(args.FileName, args.FileID)))
		if err := wb.SaveAs(outPath); err != nil {
			return errJSON(err.Error())
		}
	default:
		return errJSON(fmt.Sprintf("unsupported file type: %s. Only docx, xlsx, and pptx are supported", ft))
	}

	link, err := t.deps.upload(ctx, outPath, baseName(args.FileName)+"_edited", ft)
	if err != nil {
		return errJSON(err.Error())
	}
	return toJSON(map[string]any{
		"file_path_download": link,
		"changes":            summary.Changes(),
	})
}

// summarize records before/after text for each content-edit target
// that resolves in both snapshots.
func summarize(s *report.Summary, batch docedit.Batch, before, after map[string]string) {
	for _, e := range batch.ContentEdits {
		key := strings.ToLower(strings.TrimSpace(e.Target))
		b, okB := before[key]
		a, okA := after[key]
		if okB && okA {
			s.Record(e.Target, b, a)
		}
	}
}

// targetTexts flattens a structure snapshot to a reference-key → text
// map. The snapshot's concrete item shapes differ per family, so this
// walks the JSON form and picks up id_key/index plus the text-bearing
// field beside it.
func targetTexts(s *docedit.Structure) map[string]string {
	out := make(map[string]string)
	raw, err := json.Marshal(s.Body)
	if err != nil {
		return out
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return out
	}
	var walk func(v any)
	walk = func(v any) {
		switch item := v.(type) {
		case map[string]any:
			key, _ := item["id_key"].(string)
			if key == "" {
				key, _ = item["index"].(string)
			}
			if key != "" {
				if text, ok := item["text"].(string); ok {
					out[strings.ToLower(key)] = text
				} else if paras, ok := item["paragraphs"].([]any); ok {
					lines := make([]string, 0, len(paras))
					for _, p := range paras {
						if line, ok := p.(string); ok {
							lines = append(lines, line)
						}
					}
					out[strings.ToLower(key)] = strings.Join(lines, "\n")
				} else if title, ok := item["title"].(string); ok {
					out[strings.ToLower(key)] = title
				}
			}
			for _, child := range item {
				walk(child)
			}
		case []any:
			for _, child := range item {
				walk(child)
			}
		}
	}
	walk(body)
	return out
}
