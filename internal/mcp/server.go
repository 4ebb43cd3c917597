package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
)

// Tool names exposed to MCP clients.
const (
	ToolGenerate  = "generate_document"
	ToolEdit      = "edit_document"
	ToolSummarize = "summarize_document"
)

// Runner executes one document operation.
type Runner interface {
	Run(ctx context.Context, op assist.Operation, source, keyword string, lang assist.Language) (assist.Result, error)
}

// Loader resolves a file path or URL into document text.
type Loader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// Server publishes the document operations as MCP tools.
type Server struct {
	runner   Runner
	loader   Loader
	language assist.Language
	version  string
	logger   zerolog.Logger
}

// NewServer creates a Server; lang is used when a call names no language.
func NewServer(runner Runner, loader Loader, lang assist.Language, version string, logger zerolog.Logger) *Server {
	return &Server{
		runner:   runner,
		loader:   loader,
		language: lang,
		version:  version,
		logger:   logger,
	}
}

type toolArguments struct {
	Keyword     string `json:"keyword"`
	Instruction string `json:"instruction"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	Language    string `json:"language"`
}

// Build returns an sdk server with every tool registered.
func (s *Server) Build() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    "humble-doc-cli",
		Version: s.version,
	}, nil)

	server.AddTool(&sdk.Tool{
		Name:        ToolGenerate,
		Description: "Generate a document of about 2,000 characters about a keyword.",
		InputSchema: objectSchema(map[string]any{
			"keyword":  stringProperty("Topic of the document."),
			"language": languageProperty(),
		}, "keyword"),
	}, s.handler(assist.OperationGenerate))

	documentProperties := map[string]any{
		"instruction": stringProperty("Keyword or sentence that guides the operation."),
		"text":        stringProperty("Document text. Ignored when source is set."),
		"source":      stringProperty("Path to a .docx, .pdf, .txt or .md file, or an http(s) URL."),
		"language":    languageProperty(),
	}
	server.AddTool(&sdk.Tool{
		Name:        ToolEdit,
		Description: "Edit a document chunk by chunk according to an instruction.",
		InputSchema: objectSchema(documentProperties, "instruction"),
	}, s.handler(assist.OperationEdit))
	server.AddTool(&sdk.Tool{
		Name:        ToolSummarize,
		Description: "Summarize a document, merging per-chunk summaries into one.",
		InputSchema: objectSchema(documentProperties, "instruction"),
	}, s.handler(assist.OperationSummarize))

	return server
}

// ServeStdio serves the tools over stdin and stdout until ctx ends.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info().Str("version", s.version).Msg("mcp server listening on stdio")
	return s.Build().Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) handler(op assist.Operation) func(context.Context, *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args toolArguments
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		lang := s.language
		if strings.TrimSpace(args.Language) != "" {
			parsed, err := assist.LookupLanguage(args.Language)
			if err != nil {
				return errorResult(err), nil
			}
			lang = parsed
		}

		keyword := args.Instruction
		if op == assist.OperationGenerate || strings.TrimSpace(keyword) == "" {
			keyword = args.Keyword
		}

		text := args.Text
		if op != assist.OperationGenerate && strings.TrimSpace(args.Source) != "" {
			loaded, err := s.loader.Load(ctx, args.Source)
			if err != nil {
				return errorResult(err), nil
			}
			text = loaded
		}

		result, err := s.runner.Run(ctx, op, text, keyword, lang)
		if err != nil {
			s.logger.Error().Err(err).Str("tool", string(op)).Msg("tool call failed")
			return errorResult(err), nil
		}
		if result.Empty() {
			return &sdk.CallToolResult{
				Content: []sdk.Content{&sdk.TextContent{Text: "The document is empty; nothing was processed."}},
			}, nil
		}
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: result.Text}},
		}, nil
	}
}

func errorResult(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: assist.Describe(err)}},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func languageProperty() map[string]any {
	codes := make([]string, 0, len(assist.Languages()))
	for _, lang := range assist.Languages() {
		codes = append(codes, lang.Code)
	}
	return map[string]any{
		"type":        "string",
		"description": "Output language code: " + strings.Join(codes, ", ") + ".",
	}
}
