// Package main is the tanya CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/completion"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/prompt"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tanya/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A .env file in the current directory is loaded first so api_key_env variables can come from it.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	_ = godotenv.Load()
	resolved := path
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				resolved = fallback
			}
		}
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ask":
		runQuery("ask", session.KindDocs)
	case "youtube":
		runQuery("youtube", session.KindYouTube)
	case "table":
		runQuery("table", session.KindTable)
	case "serve", "server":
		runServer()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// queryFlags are the flags shared by ask, youtube and table.
type queryFlags struct {
	configPath  *string
	debug       *bool
	offline     *bool
	chat        *bool
	save        *bool
	maxTokens   *int
	output      *string
	verbose     *bool
	interactive *bool
}

func registerQueryFlags(fs *flag.FlagSet) *queryFlags {
	return &queryFlags{
		configPath:  fs.String("config", defaultConfigPath, "config file path"),
		debug:       fs.Bool("debug", false, "enable debug logging"),
		offline:     fs.Bool("offline", false, "use the local hashing embedder instead of the configured one"),
		chat:        fs.Bool("chat", false, "chat mode: keep a conversation across questions"),
		save:        fs.Bool("save", false, "save answered questions to the configured store"),
		maxTokens:   fs.Int("max-tokens", 0, "context token budget (default from config)"),
		output:      fs.String("output", "text", "output format: text or json"),
		verbose:     fs.Bool("verbose", false, "print the prompt sent to the model"),
		interactive: fs.Bool("i", false, "read questions from stdin until EOF"),
	}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func printQueryUsage(fs *flag.FlagSet, name, target string) {
	fmt.Fprintf(fs.Output(), "Usage: tanya %s [flags] <%s> [question]\n\n", name, target)
	fmt.Fprintf(fs.Output(), "Without a question (or with -i), questions are read from stdin, one per line.\n\n")
	fs.PrintDefaults()
}

func runQuery(name, kind string) {
	target := map[string]string{
		session.KindDocs:    "document.docx|.odt|.rtf|.pdf",
		session.KindYouTube: "video-id",
		session.KindTable:   "table.csv|.xlsx",
	}[kind]

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := registerQueryFlags(fs)
	fs.Usage = func() { printQueryUsage(fs, name, target) }
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*flags.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyQueryFlags(cfg, flags)

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, *flags.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer components.Close()

	orch, err := newOrchestrator(components.Factory, kind, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	budget := *flags.maxTokens
	if budget == 0 {
		budget = cfg.Prompt.MaxTokens
	}
	if q := buildQuery(fs.Args()[1:]); q != "" && !*flags.interactive {
		if err := answer(ctx, os.Stdout, orch, q, budget, format, *flags.verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to answer: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := repl(ctx, os.Stdin, os.Stdout, orch, budget, format, *flags.verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to answer: %v\n", err)
		os.Exit(1)
	}
}

func applyQueryFlags(cfg *config.Config, flags *queryFlags) {
	if *flags.debug {
		cfg.Debug = true
	}
	if *flags.chat {
		cfg.Completion.Chat = true
	}
	if *flags.save {
		cfg.Storage.Save = true
	}
}

func newOrchestrator(f *session.Factory, kind, target string) (*session.Orchestrator, error) {
	switch kind {
	case session.KindYouTube:
		return f.Video(target)
	case session.KindTable:
		return f.Table(target)
	}
	return f.Document(target)
}

func answer(ctx context.Context, w io.Writer, orch *session.Orchestrator, query string, budget int, format cli.OutputFormat, verbose bool) error {
	res, err := orch.Ask(ctx, query, budget)
	if err != nil {
		return err
	}
	return cli.WriteAnswer(w, res, format, verbose)
}

// repl answers one question per input line. Provider failures are reported and the loop
// continues; the conversation is left as it was before the failed question.
func repl(ctx context.Context, in io.Reader, out io.Writer, orch *session.Orchestrator, budget int, format cli.OutputFormat, verbose bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if format == cli.OutputText {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if err := answer(ctx, out, orch, q, budget, format, verbose); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func runServer() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	offline := fs.Bool("offline", false, "use the local hashing embedder instead of the configured one")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || *debug
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
		zap.String("embedding", cfg.Embedding.Extractor),
		zap.String("completion", cfg.Completion.Backend),
	)

	components, err := initializeComponents(context.Background(), cfg, logger, *offline)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Factory, &cfg.Server, logger)
	go func() {
		// Start returns nil once Stop has shut the server down.
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("Shutdown incomplete", zap.Error(err))
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Printf("Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// writeDefaultConfig writes a config holding every default to path.
// An existing file is kept unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		return utils.NewFileLogger(cfg.LogFile, cfg.Debug), nil
	}
	return utils.NewLogger(cfg.Debug)
}

// Components holds initialized services.
type Components struct {
	Store     storage.Store
	Embedder  embedding.Embedder
	Completer completion.Completer
	Factory   *session.Factory
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, offline bool) (*Components, error) {
	c := &Components{}

	if offline {
		c.Embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		emb, err := embedding.New(cfg.Embedding, embedding.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		c.Embedder = emb
	}

	comp, err := completion.New(cfg.Completion, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize completer: %w", err)
	}
	c.Completer = comp

	if cfg.Storage.Save {
		store, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Store = store
		logger.Info("storage initialized", zap.String("driver", cfg.Storage.Driver))
	}

	counter, err := prompt.NewCounter(cfg.Prompt.Tokenizer)
	if err != nil {
		c.Close()
		return nil, err
	}
	extractor := extract.NewExtractor(extract.WithCounter(counter))
	transcriber := extract.NewWhisperTranscriber(extract.WhisperConfig{
		BaseURL:       cfg.Transcript.BaseURL,
		APIKey:        os.Getenv(cfg.Transcript.APIKeyEnv),
		Model:         cfg.Transcript.Model,
		AudioDir:      cfg.Transcript.AudioDir,
		PassageTokens: cfg.Transcript.PassageTokens,
		Timeout:       time.Duration(cfg.Transcript.TimeoutSecs) * time.Second,
	}, extractor, logger)

	factory, err := session.NewFactory(cfg, session.Deps{
		Embedder:    c.Embedder,
		Completer:   c.Completer,
		Store:       c.Store,
		Extractor:   extractor,
		Transcriber: transcriber,
		Logger:      logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Factory = factory
	return c, nil
}

func printUsage() {
	fmt.Println(`tanya - Ask questions about a document, a video transcript or a table

Usage:
  tanya ask [flags] <document> [question]      Answer from a .docx, .odt, .rtf or .pdf file
  tanya youtube [flags] <video-id> [question]  Answer from a video's transcript
  tanya table [flags] <table> [question]       Answer from a .csv or .xlsx passage table
  tanya serve [flags]                          Start the HTTP server
  tanya init [--config path] [--force]         Write a config file with every default
  tanya version                                Show version
  tanya help                                   Show this help

Question Flags:
  --config string     Config file path (default: /usr/local/etc/tanya/config.yaml)
  --chat              Keep a conversation across questions
  --save              Save answered questions to the configured store
  --max-tokens int    Context token budget (default from config)
  --output string     Output format: text or json (default: text)
  --verbose           Print the prompt sent to the model
  --offline           Use the local hashing embedder
  -i                  Read questions from stdin, one per line

Server Flags:
  --config string     Config file path
  --debug             Enable debug logging
  --offline           Use the local hashing embedder

Examples:
  tanya ask report.docx "What was the revenue in 2022?"
  tanya ask --chat -i handbook.pdf
  tanya youtube --save dQw4w9WgXcQ "What is the song about?"
  tanya table --output json faq.csv How long do refunds take?
  tanya init --config ~/.config/tanya/config.yaml
  tanya serve`)
}
