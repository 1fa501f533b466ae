package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fileforge/fileforge-cli/internal/docx"
	"github.com/fileforge/fileforge-cli/internal/pptx"
	"github.com/fileforge/fileforge-cli/internal/xlsx"
)

// CreateTool generates a new file from a structured description and
// returns its public URL.
type CreateTool struct {
	deps *Deps
}

func NewCreateTool(deps *Deps) *CreateTool { return &CreateTool{deps: deps} }

func (t *CreateTool) Def() ToolDef {
	return ToolDef{
		Name:        "create_file",
		Description: "Create a file (docx, pptx, xlsx, csv, txt, xml, ...). Supports rich content: titles, paragraphs, lists, tables, and images via search queries.",
		Parameters: ToolParameters{
			Type: "object",
			Properties: map[string]ToolProperty{
				"data":       {Type: "object", Description: `{"format":"docx","filename":"doc.docx","content":[...],"title":"..."}; pptx uses "slides_data" instead of "content"`},
				"persistent": {Type: "boolean", Description: "Keep the file past the retention window"},
			},
			Required: []string{"data"},
		},
	}
}

type createArgs struct {
	Data       createData `json:"data"`
	Persistent *bool      `json:"persistent"`
}

type createData struct {
	Format     string           `json:"format"`
	Filename   string           `json:"filename"`
	Title      string           `json:"title"`
	Content    json.RawMessage  `json:"content"`
	SlidesData []pptx.SlideSpec `json:"slides_data"`
}

func (t *CreateTool) Call(ctx context.Context, argsJSON string) string {
	var args createArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return errJSON("parse arguments: " + err.Error())
	}

	folder, err := t.deps.Store.NewFolder()
	if err != nil {
		return errJSON(err.Error())
	}
	persistent := t.deps.Store.Persistent()
	if args.Persistent != nil {
		persistent = *args.Persistent
	}
	if !persistent {
		defer t.deps.Store.ScheduleCleanup(folder)
	}

	name, err := t.create(ctx, folder, args.Data)
	if err != nil {
		return errJSON(err.Error())
	}
	return toJSON(map[string]string{"url": t.deps.Store.PublicURL(folder, name)})
}

func (t *CreateTool) create(ctx context.Context, folder string, data createData) (string, error) {
	var fetch func(string) ([]byte, string, bool)
	if t.deps.Images != nil {
		fetch = t.deps.Images.Fetcher(ctx)
	}

	switch data.Format {
	case "docx":
		items, err := contentItems(data.Content)
		if err != nil {
			return "", err
		}
		var b *docx.Builder
		if tmpl := t.deps.Config.TemplatePath("docx"); tmpl != "" {
			b, err = docx.NewBuilderFromTemplate(tmpl)
			if err != nil {
				t.deps.logger().Warn("docx template unusable, starting blank", "error", err)
				b = docx.NewBuilder()
			}
		} else {
			b = docx.NewBuilder()
		}
		b.Build(data.Title, items, fetch)
		path, name := t.deps.Store.Filename(folder, "docx", data.Filename)
		return name, b.Save(path)

	case "pptx":
		tmpl := t.deps.Config.TemplatePath("pptx")
		if tmpl == "" {
			return "", fmt.Errorf("presentation creation requires a pptx template in templates.dir")
		}
		deck, err := pptx.CreateFromTemplate(tmpl, data.Title, data.SlidesData, fetch)
		if err != nil {
			return "", err
		}
		path, name := t.deps.Store.Filename(folder, "pptx", data.Filename)
		return name, deck.Save(path)

	case "xlsx":
		grid, err := gridContent(data.Content)
		if err != nil {
			return "", err
		}
		wb, err := xlsx.Create(grid, t.deps.Config.TemplatePath("xlsx"), data.Title, t.deps.logger())
		if err != nil {
			return "", err
		}
		path, name := t.deps.Store.Filename(folder, "xlsx", data.Filename)
		return name, wb.SaveAs(path)

	case "csv":
		grid, err := gridContent(data.Content)
		if err != nil {
			return "", err
		}
		_, name, err := t.deps.Store.WriteCSV(folder, data.Filename, grid)
		return name, err

	default:
		var content string
		if len(data.Content) > 0 {
			if err := json.Unmarshal(data.Content, &content); err != nil {
				content = string(data.Content)
			}
		}
		name := data.Filename
		if name == "" {
			ext := data.Format
			if ext == "" {
				ext = "txt"
			}
			name = "export." + ext
		}
		_, name, err := t.deps.Store.WriteRaw(folder, name, content)
		return name, err
	}
}

// contentItems decodes docx content: an array of strings and/or typed
// objects, or one markdown string.
func contentItems(raw json.RawMessage) ([]docx.ContentItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var md string
	if err := json.Unmarshal(raw, &md); err == nil {
		return docx.FromMarkdown(md), nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("docx content must be a string or an array")
	}
	var items []docx.ContentItem
	for _, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			items = append(items, docx.FromMarkdown(s)...)
			continue
		}
		var wire struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			Items []string        `json:"items"`
			Data  [][]string      `json:"data"`
			Query string          `json:"image_query"`
			Rows  json.RawMessage `json:"rows"`
		}
		if err := json.Unmarshal(entry, &wire); err != nil {
			continue
		}
		item := docx.ContentItem{
			Type:  wire.Type,
			Text:  wire.Text,
			Items: wire.Items,
			Data:  wire.Data,
			Query: wire.Query,
		}
		if item.Data == nil && len(wire.Rows) > 0 {
			_ = json.Unmarshal(wire.Rows, &item.Data)
		}
		items = append(items, item)
	}
	return items, nil
}

// gridContent decodes a 2D array, coercing scalars to strings. A flat
// array becomes a single row.
func gridContent(raw json.RawMessage) ([][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows [][]any
	if err := json.Unmarshal(raw, &rows); err == nil {
		out := make([][]string, 0, len(rows))
		for _, row := range rows {
			r := make([]string, 0, len(row))
			for _, cell := range row {
				r = append(r, scalarString(cell))
			}
			out = append(out, r)
		}
		return out, nil
	}
	var flat []any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("grid content must be an array")
	}
	r := make([]string, 0, len(flat))
	for _, cell := range flat {
		r = append(r, scalarString(cell))
	}
	return [][]string{r}, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
