package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gamzabox/humble-doc-cli/internal/assist"
	"github.com/gamzabox/humble-doc-cli/internal/config"
	"github.com/gamzabox/humble-doc-cli/internal/export"
	"github.com/gamzabox/humble-doc-cli/internal/mcp"
	"github.com/gamzabox/humble-doc-cli/internal/tokenizer"
)

// Environment carries the collaborators shared by every command.
type Environment struct {
	Home     string
	Store    config.Store
	Factory  ProviderFactory
	Loader   DocumentLoader
	Logger   zerolog.Logger
	Version  string
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	Splitter assist.Splitter
}

type rootOptions struct {
	language string
	tier     string
	model    string
}

type runOptions struct {
	instruction string
	output      string
	format      string
}

// NewRootCommand builds the command tree. Without a subcommand the
// interactive shell starts.
func NewRootCommand(env Environment) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "humble-doc-cli",
		Short:         "Generate, edit and summarize documents with an LLM",
		Version:       env.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := New(Options{
				Store:       env.Store,
				Factory:     env.Factory,
				Loader:      env.Loader,
				Input:       env.Stdin,
				Output:      env.Stdout,
				ErrorOutput: env.Stderr,
				HomeDir:     env.Home,
				Logger:      env.Logger,
				Splitter:    env.Splitter,
			})
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			return instance.Run(cmd.Context())
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.language, "language", "l", "", "output language code (ko, en, ja, zh, ru, fr, de, it)")
	flags.StringVar(&opts.tier, "tier", "", "model tier to use: quality or fast")
	flags.StringVarP(&opts.model, "model", "m", "", "configured model name to use")

	root.AddCommand(
		newGenerateCommand(env, opts),
		newDocumentCommand(env, opts, assist.OperationEdit),
		newDocumentCommand(env, opts, assist.OperationSummarize),
		newMCPCommand(env, opts),
	)
	return root
}

func newGenerateCommand(env Environment, root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "generate KEYWORD...",
		Short: "Generate a document about a keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, env, *root, *opts, assist.OperationGenerate, "", strings.Join(args, " "))
		},
	}
	addOutputFlags(cmd, opts)
	return cmd
}

func newDocumentCommand(env Environment, root *rootOptions, op assist.Operation) *cobra.Command {
	opts := &runOptions{}
	use, short := "edit SOURCE", "Edit a document chunk by chunk"
	if op == assist.OperationSummarize {
		use, short = "summarize SOURCE", "Summarize a document"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  "SOURCE is a .docx, .pdf, .txt or .md file, an http(s) URL, or - for standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.instruction) == "" {
				return errors.New("--instruction is required")
			}
			text, err := readSource(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}
			return runOnce(cmd, env, *root, *opts, op, text, opts.instruction)
		},
	}
	cmd.Flags().StringVarP(&opts.instruction, "instruction", "i", "", "keyword or sentence guiding the operation")
	addOutputFlags(cmd, opts)
	return cmd
}

func newMCPCommand(env Environment, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the document tools over MCP on standard input and output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolveSession(env, *root)
			if err != nil {
				return err
			}
			logger := env.Logger.With().Str("component", "mcp").Logger()
			assistant, err := buildAssistant(env, s, logger, func(e assist.Event) {
				logger.Debug().Str("operation", string(e.Operation)).Int("chunk", e.Chunk).Int("total", e.Total).Msg(e.String())
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			server := mcp.NewServer(assistant, env.Loader, s.language, env.Version, logger)
			return server.ServeStdio(ctx)
		},
	}
}

func addOutputFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "also save the result to this file or directory")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "docx", "export format: docx, md or html")
}

// session is the model and language resolved for one invocation.
type session struct {
	cfg      config.Config
	model    config.Model
	language assist.Language
}

func resolveSession(env Environment, opts rootOptions) (session, error) {
	cfg, err := config.LoadOrDefault(env.Store)
	if err != nil {
		return session{}, err
	}

	var (
		model config.Model
		ok    bool
	)
	switch {
	case opts.model != "":
		model, ok = cfg.FindModel(opts.model)
	default:
		model, ok = cfg.ModelForTier(config.Tier(strings.ToLower(opts.tier)))
	}
	if !ok {
		return session{}, fmt.Errorf("no configured model matches (model %q, tier %q)", opts.model, opts.tier)
	}

	code := opts.language
	if code == "" {
		code = cfg.Language
	}
	lang, err := assist.LookupLanguage(code)
	if err != nil {
		return session{}, err
	}
	return session{cfg: cfg, model: model, language: lang}, nil
}

func buildAssistant(env Environment, s session, logger zerolog.Logger, observer assist.Observer) (*assist.Assistant, error) {
	generator, err := env.Factory.Create(s.model)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	splitter := env.Splitter
	if splitter == nil {
		if splitter, err = newSplitter(s.cfg.Generation); err != nil {
			return nil, err
		}
	}
	return assist.New(assist.Options{
		Transformer: assist.NewInvoker(generator, s.model.Provider, s.model.Name, logger),
		Chunker:     splitter,
		Generation:  s.cfg.Generation,
		Model:       s.model.Name,
		Logger:      logger,
		Observer:    observer,
	})
}

func newSplitter(gen config.Generation) (assist.Splitter, error) {
	gen = gen.WithDefaults()
	if gen.VocabularyDir != "" {
		tokenizer.UseVocabularyDir(gen.VocabularyDir)
	}
	tok, err := tokenizer.New(gen.Encoding)
	if err != nil {
		return nil, err
	}
	chunker, err := tokenizer.NewChunker(tok, gen.ChunkTokens)
	if err != nil {
		return nil, err
	}
	return chunker, nil
}

func readSource(ctx context.Context, env Environment, ref string) (string, error) {
	if ref != "-" {
		return env.Loader.Load(ctx, ref)
	}
	in := env.Stdin
	if in == nil {
		in = os.Stdin
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read standard input: %w", err)
	}
	return string(data), nil
}

func runOnce(cmd *cobra.Command, env Environment, root rootOptions, opts runOptions, op assist.Operation, text, keyword string) error {
	s, err := resolveSession(env, root)
	if err != nil {
		return err
	}
	assistant, err := buildAssistant(env, s, env.Logger, newProgressPrinter(cmd.ErrOrStderr()).Observe)
	if err != nil {
		return err
	}

	// The interactive shell handles Ctrl+C itself; one-shot runs stop on it.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := assistant.Run(ctx, op, text, keyword, s.language)
	if err != nil {
		return err
	}
	if op != assist.OperationGenerate && result.Chunks == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "The document is empty; nothing was processed.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text)

	if opts.output == "" {
		return nil
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	path, err := export.WriteFile(opts.output, result, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s.\n", path)
	return nil
}
