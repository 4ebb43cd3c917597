package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
	"github.com/gamzabox/humble-doc-cli/internal/config"
	"github.com/gamzabox/humble-doc-cli/internal/export"
	"github.com/gamzabox/humble-doc-cli/internal/llm"
)

// Clock abstracts time access for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// ProviderFactory resolves model configurations to generators.
type ProviderFactory interface {
	Create(config.Model) (llm.Generator, error)
}

// DocumentLoader resolves a file path or URL into document text.
type DocumentLoader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// Options configures App creation.
type Options struct {
	Store       config.Store
	Factory     ProviderFactory
	Loader      DocumentLoader
	Input       io.Reader
	Output      io.Writer
	ErrorOutput io.Writer
	HomeDir     string
	ExportDir   string
	Clock       Clock
	Interrupts  chan os.Signal
	Logger      zerolog.Logger
	// Splitter overrides the tokenizer-backed chunker.
	Splitter assist.Splitter
}

// App coordinates the interactive document assistant.
type App struct {
	store     config.Store
	factory   ProviderFactory
	loader    DocumentLoader
	reader    lineReader
	output    io.Writer
	errOutput io.Writer
	homeDir   string
	exportDir string
	clock     Clock
	logger    zerolog.Logger

	cfgMu    sync.RWMutex
	cfg      config.Config
	language assist.Language
	tier     config.Tier

	splitterOnce sync.Once
	splitter     assist.Splitter
	splitterErr  error

	last assist.Result

	modeMu        sync.Mutex
	mode          appMode
	cancelCurrent context.CancelFunc
	exitRequested bool

	signalCh   chan os.Signal
	stopSignal func()
}

type appMode int

const (
	modeInput appMode = iota
	modeResponding
)

// New constructs an App from options.
func New(opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Factory == nil {
		return nil, errors.New("factory is required")
	}
	if opts.Loader == nil {
		return nil, errors.New("loader is required")
	}
	if opts.Input == nil {
		return nil, errors.New("input is required")
	}
	if opts.Output == nil {
		return nil, errors.New("output is required")
	}

	errOutput := opts.ErrorOutput
	if errOutput == nil {
		errOutput = opts.Output
	}

	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	home := opts.HomeDir
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determine home dir: %w", err)
		}
		home = dir
	}

	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	cfg, err := config.LoadOrDefault(opts.Store)
	if err != nil {
		return nil, err
	}

	lang, err := assist.LookupLanguage(cfg.Language)
	if err != nil {
		lang, _ = assist.LookupLanguage("ko")
	}

	app := &App{
		store:     opts.Store,
		factory:   opts.Factory,
		loader:    opts.Loader,
		output:    opts.Output,
		errOutput: errOutput,
		homeDir:   home,
		exportDir: exportDir,
		clock:     clock,
		logger:    opts.Logger,
		cfg:       cfg,
		language:  lang,
		splitter:  opts.Splitter,
		mode:      modeInput,
	}
	app.reader = createLineReader(opts.Input, opts.Output, app.handleInterrupt)
	app.setupSignals(opts.Interrupts)
	return app, nil
}

func (a *App) setupSignals(ch chan os.Signal) {
	if ch != nil {
		a.signalCh = ch
		go func() {
			for range ch {
				a.handleInterrupt()
			}
		}()
		return
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	a.signalCh = sigCh
	a.stopSignal = func() { signal.Stop(sigCh) }

	go func() {
		for range sigCh {
			a.handleInterrupt()
		}
	}()
}

// Run starts the interactive loop.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.stopSignal != nil {
			a.stopSignal()
		}
	}()

	a.printBanner()
	for {
		if a.shouldExit() {
			return nil
		}

		line, err := a.reader.ReadLine(a.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			exit, err := a.handleCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(a.errOutput, "Error: %s\n", assist.Describe(err))
			}
			if exit || a.shouldExit() {
				return nil
			}
			continue
		}

		if err := a.runOperation(ctx, assist.OperationGenerate, "", line); err != nil {
			fmt.Fprintf(a.errOutput, "Error: %s\n", assist.Describe(err))
		}
		if a.shouldExit() {
			return nil
		}
	}
}

func (a *App) prompt() string {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return fmt.Sprintf("humble-doc[%s]> ", a.language.Code)
}

func (a *App) printBanner() {
	fmt.Fprintln(a.output, "humble-doc-cli: type a keyword to generate a document, or /help for commands.")
}

func (a *App) readLine(prompt string) (string, error) {
	line, err := a.reader.ReadLine(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) handleCommand(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		a.printHelp()
	case "/new", "/generate":
		keyword := arg
		if keyword == "" {
			var err error
			if keyword, err = a.readLine("Keyword: "); err != nil {
				return false, err
			}
		}
		return false, a.runOperation(ctx, assist.OperationGenerate, "", keyword)
	case "/edit":
		return false, a.runDocumentOperation(ctx, assist.OperationEdit, arg)
	case "/sum", "/summarize":
		return false, a.runDocumentOperation(ctx, assist.OperationSummarize, arg)
	case "/language":
		return false, a.changeLanguage(arg)
	case "/set-model":
		return false, a.changeActiveModel(ctx)
	case "/tier":
		return false, a.changeTier(arg)
	case "/export":
		return false, a.exportLast(arg)
	case "/exit", "/quit":
		return true, nil
	default:
		fmt.Fprintf(a.output, "Unknown command: %s\n", name)
	}
	return false, nil
}

func (a *App) printHelp() {
	fmt.Fprintln(a.output, "Available commands:")
	fmt.Fprintln(a.output, "  <keyword>                 Generate a document about the keyword.")
	fmt.Fprintln(a.output, "  /new [keyword]            Same as typing a keyword.")
	fmt.Fprintln(a.output, "  /edit [file|url]          Edit a document according to an instruction.")
	fmt.Fprintln(a.output, "  /sum [file|url]           Summarize a document.")
	fmt.Fprintln(a.output, "  /language [code]          Show or change the output language.")
	fmt.Fprintln(a.output, "  /set-model                Select one of the configured models as active.")
	fmt.Fprintln(a.output, "  /tier [quality|fast]      Use the quality or fast model for the next runs.")
	fmt.Fprintln(a.output, "  /export [docx|md|html] [path]  Save the last result.")
	fmt.Fprintln(a.output, "  /help                     Show this help message.")
	fmt.Fprintln(a.output, "  /exit                     Exit the application.")
}

func (a *App) runDocumentOperation(ctx context.Context, op assist.Operation, ref string) error {
	if ref == "" {
		var err error
		if ref, err = a.readLine("Document (file path or URL): "); err != nil {
			return err
		}
		if ref == "" {
			fmt.Fprintln(a.output, "No document given.")
			return nil
		}
	}

	text, err := a.loader.Load(ctx, ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.output, "Loaded %d characters from %s.\n", len([]rune(text)), ref)

	instruction, err := a.readLine("Keyword or instruction: ")
	if err != nil {
		return err
	}
	if instruction == "" {
		fmt.Fprintln(a.output, "No instruction given.")
		return nil
	}
	return a.runOperation(ctx, op, text, instruction)
}

func (a *App) runOperation(ctx context.Context, op assist.Operation, text, keyword string) error {
	a.cfgMu.RLock()
	cfg := a.cfg
	lang := a.language
	tier := a.tier
	a.cfgMu.RUnlock()

	model, ok := cfg.ModelForTier(tier)
	if !ok {
		if tier != "" {
			fmt.Fprintf(a.output, "No model is configured for tier %q. Use /tier to pick another.\n", tier)
		} else {
			fmt.Fprintln(a.output, "No active model is configured. Use /set-model to choose a model.")
		}
		if len(cfg.Models) == 0 {
			fmt.Fprintf(a.output, "Add model configuration to %s and try again.\n", a.configFilePath())
		}
		return nil
	}

	assistant, err := a.newAssistant(cfg, model)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.enterResponding(cancel)
	defer a.leaveResponding()

	fmt.Fprintf(a.output, "Working with %s (%s), language %s...\n", model.Name, model.Provider, lang.Name)
	started := a.clock.Now()
	result, err := assistant.Run(reqCtx, op, text, keyword, lang)
	if err != nil {
		if reqCtx.Err() != nil && ctx.Err() == nil {
			fmt.Fprintln(a.output, "Operation cancelled.")
			a.logger.Info().Str("operation", string(op)).Msg("operation cancelled by user")
			return nil
		}
		return err
	}

	if op != assist.OperationGenerate && result.Chunks == 0 {
		fmt.Fprintln(a.output, "The document is empty; nothing was processed.")
		return nil
	}

	a.cfgMu.Lock()
	a.last = result
	a.cfgMu.Unlock()

	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, result.Text)
	fmt.Fprintln(a.output)
	fmt.Fprintf(a.output, "Done in %s (%s). Use /export to save it.\n", a.clock.Now().Sub(started).Round(time.Millisecond), describeChunks(result))
	return nil
}

func describeChunks(result assist.Result) string {
	switch result.Chunks {
	case 0:
		return "single call"
	case 1:
		return "1 chunk"
	default:
		return fmt.Sprintf("%d chunks", result.Chunks)
	}
}

func (a *App) newAssistant(cfg config.Config, model config.Model) (*assist.Assistant, error) {
	generator, err := a.factory.Create(model)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	splitter, err := a.chunker(cfg.Generation)
	if err != nil {
		return nil, err
	}
	return assist.New(assist.Options{
		Transformer: assist.NewInvoker(generator, model.Provider, model.Name, a.logger),
		Chunker:     splitter,
		Generation:  cfg.Generation,
		Model:       model.Name,
		Logger:      a.logger,
		Observer:    newProgressPrinter(a.errOutput).Observe,
	})
}

func (a *App) chunker(gen config.Generation) (assist.Splitter, error) {
	a.splitterOnce.Do(func() {
		if a.splitter == nil {
			a.splitter, a.splitterErr = newSplitter(gen)
		}
	})
	return a.splitter, a.splitterErr
}

func (a *App) changeLanguage(arg string) error {
	if arg == "" {
		a.cfgMu.RLock()
		current := a.language
		a.cfgMu.RUnlock()

		fmt.Fprintln(a.output, "Select an output language (0 to cancel):")
		languages := assist.Languages()
		for idx, lang := range languages {
			marker := ""
			if lang.Code == current.Code {
				marker = " *"
			}
			fmt.Fprintf(a.output, "  %d) %s (%s, %s)%s\n", idx+1, lang.Name, lang.Native, lang.Code, marker)
		}
		choice, ok, err := a.readChoice(len(languages))
		if err != nil || !ok {
			return err
		}
		arg = languages[choice-1].Code
	}

	lang, err := assist.LookupLanguage(arg)
	if err != nil {
		return err
	}

	a.cfgMu.Lock()
	a.language = lang
	cfg := a.cfg
	cfg.Language = lang.Code
	a.cfg = cfg
	a.cfgMu.Unlock()

	if err := a.store.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(a.output, "Output language set to %s.\n", lang.Name)
	return nil
}

func (a *App) changeTier(arg string) error {
	var tier config.Tier
	switch strings.ToLower(arg) {
	case "", "active":
		tier = ""
	case string(config.TierQuality):
		tier = config.TierQuality
	case string(config.TierFast):
		tier = config.TierFast
	default:
		fmt.Fprintf(a.output, "Unknown tier %q. Use quality, fast or active.\n", arg)
		return nil
	}

	a.cfgMu.Lock()
	a.tier = tier
	cfg := a.cfg
	a.cfgMu.Unlock()

	model, ok := cfg.ModelForTier(tier)
	switch {
	case !ok:
		fmt.Fprintln(a.output, "No model is configured for that tier.")
	case tier == "":
		fmt.Fprintf(a.output, "Using the active model %s.\n", model.Name)
	default:
		fmt.Fprintf(a.output, "Using the %s tier model %s.\n", tier, model.Name)
	}
	return nil
}

func (a *App) changeActiveModel(ctx context.Context) error {
	a.cfgMu.RLock()
	cfg := a.cfg
	a.cfgMu.RUnlock()

	if len(cfg.Models) == 0 {
		fmt.Fprintf(a.output, "No models configured. Please add entries to %s.\n", a.configFilePath())
		return nil
	}

	fmt.Fprintln(a.output, "Select a model (0 to cancel):")
	for idx, m := range cfg.Models {
		activeMarker := ""
		if m.Active {
			activeMarker = " *"
		}
		tier := ""
		if m.Tier != "" {
			tier = ", " + string(m.Tier)
		}
		fmt.Fprintf(a.output, "  %d) %s (%s%s)%s\n", idx+1, m.Name, m.Provider, tier, activeMarker)
	}

	choice, ok, err := a.readChoice(len(cfg.Models))
	if err != nil || !ok {
		return err
	}

	models := make([]config.Model, len(cfg.Models))
	copy(models, cfg.Models)
	for i := range models {
		models[i].Active = i == choice-1
	}
	cfg.Models = models
	selected := models[choice-1]
	if err := a.store.Save(cfg); err != nil {
		return err
	}

	a.cfgMu.Lock()
	a.cfg = cfg
	a.tier = ""
	a.cfgMu.Unlock()

	a.logger.Info().Str("model", selected.Name).Msg("active model changed")
	fmt.Fprintf(a.output, "Active model set to %s (%s).\n", selected.Name, selected.Provider)
	return nil
}

// readChoice reads a 1-based menu selection. ok is false when the user
// cancelled or entered something invalid.
func (a *App) readChoice(limit int) (int, bool, error) {
	line, err := a.readLine("Choice: ")
	if err != nil {
		return 0, false, err
	}
	if line == "" {
		return 0, false, nil
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 0 || choice > limit {
		fmt.Fprintln(a.output, "Invalid selection.")
		return 0, false, nil
	}
	if choice == 0 {
		fmt.Fprintln(a.output, "Selection cancelled.")
		return 0, false, nil
	}
	return choice, true, nil
}

func (a *App) exportLast(arg string) error {
	a.cfgMu.RLock()
	result := a.last
	a.cfgMu.RUnlock()

	if result.Empty() {
		fmt.Fprintln(a.output, "Nothing to export yet. Generate, edit or summarize a document first.")
		return nil
	}

	fields := strings.Fields(arg)
	formatName, target := "", a.exportDir
	if len(fields) > 0 {
		formatName = fields[0]
	}
	if len(fields) > 1 {
		target = strings.Join(fields[1:], " ")
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	path, err := export.WriteFile(target, result, format)
	if err != nil {
		return err
	}
	a.logger.Info().Str("run_id", result.RunID).Str("path", path).Msg("result exported")
	fmt.Fprintf(a.output, "Saved %s.\n", path)
	return nil
}

func (a *App) configFilePath() string {
	if fs, ok := a.store.(interface{ Path() string }); ok {
		return fs.Path()
	}
	return config.NewFileStore(a.homeDir).Path()
}

// LastResult returns the most recent successful result.
func (a *App) LastResult() assist.Result {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.last
}

func (a *App) enterResponding(cancel context.CancelFunc) {
	a.modeMu.Lock()
	a.mode = modeResponding
	a.cancelCurrent = cancel
	a.modeMu.Unlock()
}

func (a *App) leaveResponding() {
	a.modeMu.Lock()
	a.mode = modeInput
	a.cancelCurrent = nil
	a.modeMu.Unlock()
}

func (a *App) handleInterrupt() {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()

	switch a.mode {
	case modeResponding:
		if a.cancelCurrent != nil {
			a.cancelCurrent()
		}
	case modeInput:
		a.exitRequested = true
	}
}

func (a *App) shouldExit() bool {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.exitRequested
}
