package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/fileforge/fileforge-cli/internal/api"
	"github.com/fileforge/fileforge-cli/internal/config"
	"github.com/fileforge/fileforge-cli/internal/images"
	"github.com/fileforge/fileforge-cli/internal/store"
	"github.com/fileforge/fileforge-cli/internal/tools"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	api.SetVersion(version)

	root := &cobra.Command{
		Use:   "fileforge",
		Short: "Structured office-document editing",
		Long:  "fileforge edits, reviews and generates docx, pptx and xlsx documents through structured operations.",
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(serveCmd(), structureCmd(), editCmd(), reviewCmd(), createCmd(), configCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps assembles the tool dependencies from config.
func deps(cmd *cobra.Command) (*tools.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	tools.SetupLogger(level)

	st, err := store.New(cfg.Output.Dir, cfg.Output.BaseURL,
		time.Duration(cfg.Output.RetentionMinutes)*time.Minute, cfg.Output.Persistent, nil)
	if err != nil {
		return nil, err
	}
	return &tools.Deps{
		Config: cfg,
		Store:  st,
		Client: api.New(cfg.Storage.BaseURL),
		Images: images.New(cfg.Images.Source, cfg.Images.UnsplashKey, cfg.Images.PexelsKey, nil),
	}, nil
}

// ── serve command ──

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the document tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := deps(cmd)
			if err != nil {
				return err
			}
			return tools.Serve(d, version)
		},
	}
}

// ── one-shot tool commands ──

// runTool invokes a single tool with the given JSON arguments and
// prints the result.
func runTool(cmd *cobra.Command, name, argsJSON string) error {
	d, err := deps(cmd)
	if err != nil {
		return err
	}
	for _, t := range tools.Defaults(d) {
		if t.Def().Name == name {
			fmt.Println(t.Call(context.Background(), argsJSON))
			return nil
		}
	}
	return fmt.Errorf("tool %q not registered", name)
}

func structureCmd() *cobra.Command {
	var fileID, fileName string
	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Print the unified structure of a stored document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, _ := json.Marshal(map[string]string{"file_id": fileID, "file_name": fileName})
			return runTool(cmd, "full_context_document", string(args))
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "", "Storage id of the document")
	cmd.Flags().StringVar(&fileName, "file-name", "", "File name including extension")
	cmd.MarkFlagRequired("file-id")
	cmd.MarkFlagRequired("file-name")
	return cmd
}

func editCmd() *cobra.Command {
	var fileID, fileName, edits string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply a structured edit batch to a stored document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, _ := json.Marshal(map[string]any{
				"file_id":   fileID,
				"file_name": fileName,
				"edits":     json.RawMessage(edits),
			})
			return runTool(cmd, "edit_document", string(args))
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "", "Storage id of the document")
	cmd.Flags().StringVar(&fileName, "file-name", "", "File name including extension")
	cmd.Flags().StringVar(&edits, "edits", "", `Edit batch JSON: {"ops":[...],"content_edits":[...]}`)
	cmd.MarkFlagRequired("file-id")
	cmd.MarkFlagRequired("file-name")
	cmd.MarkFlagRequired("edits")
	return cmd
}

func reviewCmd() *cobra.Command {
	var fileID, fileName, comments string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Add reviewer comments to a stored document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, _ := json.Marshal(map[string]any{
				"file_id":         fileID,
				"file_name":       fileName,
				"review_comments": json.RawMessage(comments),
			})
			return runTool(cmd, "review_document", string(args))
		},
	}
	cmd.Flags().StringVar(&fileID, "file-id", "", "Storage id of the document")
	cmd.Flags().StringVar(&fileName, "file-name", "", "File name including extension")
	cmd.Flags().StringVar(&comments, "comments", "", `Review notes JSON: [[index, comment], ...]`)
	cmd.MarkFlagRequired("file-id")
	cmd.MarkFlagRequired("file-name")
	cmd.MarkFlagRequired("comments")
	return cmd
}

func createCmd() *cobra.Command {
	var data string
	var persistent bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new file from a structured description",
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, _ := json.Marshal(map[string]any{
				"data":       json.RawMessage(data),
				"persistent": persistent,
			})
			return runTool(cmd, "create_file", string(args))
		},
	}
	cmd.Flags().StringVar(&data, "data", "", `File description JSON: {"format":"docx","content":[...]}`)
	cmd.Flags().BoolVar(&persistent, "persistent", false, "Keep the file past the retention window")
	cmd.MarkFlagRequired("data")
	return cmd
}

// ── config command ──

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current config (secrets redacted)",
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print config file path",
			Run: func(_ *cobra.Command, _ []string) {
				fmt.Println(config.Path())
			},
		},
	)
	return cmd
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	redacted := cfg.Redact()
	return toml.NewEncoder(os.Stdout).Encode(redacted)
}

// ── version command ──

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fileforge %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
