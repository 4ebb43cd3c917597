package mcp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
	"github.com/gamzabox/humble-doc-cli/internal/source"
)

type recordedRun struct {
	op      assist.Operation
	source  string
	keyword string
	lang    string
}

type fakeRunner struct {
	mu   sync.Mutex
	runs []recordedRun
	err  error
	text string
}

func (f *fakeRunner) Run(_ context.Context, op assist.Operation, src, keyword string, lang assist.Language) (assist.Result, error) {
	f.mu.Lock()
	f.runs = append(f.runs, recordedRun{op: op, source: src, keyword: keyword, lang: lang.Code})
	f.mu.Unlock()
	if f.err != nil {
		return assist.Result{}, f.err
	}
	return assist.Result{Operation: op, Keyword: keyword, Language: lang, Text: f.text}, nil
}

type fakeLoader map[string]string

func (f fakeLoader) Load(_ context.Context, ref string) (string, error) {
	text, ok := f[ref]
	if !ok {
		return "", &source.FetchError{URL: ref, Status: 404, Cause: errors.New("404 Not Found")}
	}
	return text, nil
}

func connect(t *testing.T, runner Runner, loader Loader) *sdk.ClientSession {
	t.Helper()

	ctx := context.Background()
	korean, err := assist.LookupLanguage("ko")
	if err != nil {
		t.Fatalf("LookupLanguage() error = %v", err)
	}
	server := NewServer(runner, loader, korean, "test", zerolog.Nop()).Build()

	ct, st := sdk.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestServerListsTools(t *testing.T) {
	t.Parallel()

	session := connect(t, &fakeRunner{}, fakeLoader{})
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{ToolGenerate, ToolEdit, ToolSummarize} {
		if !names[want] {
			t.Fatalf("tool %q not listed: %v", want, names)
		}
	}
}

func TestGenerateToolUsesDefaultLanguage(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{text: "generated"}
	session := connect(t, runner, fakeLoader{})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      ToolGenerate,
		Arguments: map[string]any{"keyword": "solar power"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError || textOf(t, res) != "generated" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(runner.runs) != 1 || runner.runs[0].keyword != "solar power" || runner.runs[0].lang != "ko" {
		t.Fatalf("unexpected runs: %+v", runner.runs)
	}
}

func TestEditToolLoadsSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{text: "edited"}
	session := connect(t, runner, fakeLoader{"https://example.com/doc": "remote body"})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name: ToolEdit,
		Arguments: map[string]any{
			"instruction": "make it formal",
			"source":      "https://example.com/doc",
			"language":    "en",
		},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError || textOf(t, res) != "edited" {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := runner.runs[0]
	if got.op != assist.OperationEdit || got.source != "remote body" || got.keyword != "make it formal" || got.lang != "en" {
		t.Fatalf("unexpected run: %+v", got)
	}
}

func TestSummarizeToolReportsPipelineFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: &assist.PipelineError{
		Operation: assist.OperationSummarize,
		Chunk:     3,
		Total:     4,
		Cause:     errors.New("quota exceeded"),
	}}
	session := connect(t, runner, fakeLoader{})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      ToolSummarize,
		Arguments: map[string]any{"instruction": "key points", "text": "body"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	if text := textOf(t, res); !strings.Contains(text, "chunk 3 of 4") {
		t.Fatalf("unexpected error text %q", text)
	}
}

func TestToolRejectsUnknownLanguageAndBadSource(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{text: "x"}
	session := connect(t, runner, fakeLoader{})
	ctx := context.Background()

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      ToolGenerate,
		Arguments: map[string]any{"keyword": "k", "language": "klingon"},
	})
	if err != nil || !res.IsError {
		t.Fatalf("expected error result for unknown language, got %+v (err %v)", res, err)
	}

	res, err = session.CallTool(ctx, &sdk.CallToolParams{
		Name:      ToolEdit,
		Arguments: map[string]any{"instruction": "k", "source": "https://missing"},
	})
	if err != nil || !res.IsError {
		t.Fatalf("expected error result for failed fetch, got %+v (err %v)", res, err)
	}
	if text := textOf(t, res); !strings.Contains(text, "document link") {
		t.Fatalf("unexpected error text %q", text)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("runner must not be called: %+v", runner.runs)
	}
}

func TestEmptyDocumentIsReported(t *testing.T) {
	t.Parallel()

	session := connect(t, &fakeRunner{text: ""}, fakeLoader{})
	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      ToolSummarize,
		Arguments: map[string]any{"instruction": "k", "text": ""},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError || !strings.Contains(textOf(t, res), "empty") {
		t.Fatalf("unexpected result: %+v", res)
	}
}
