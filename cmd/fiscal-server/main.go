package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
	"github.com/zombor/fiscal-receipts/internal/receipt"
	"github.com/zombor/fiscal-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("fiscal-server")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "fiscal-receipts.db", "Database file path")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory path")
		scannerType = fs.StringLong("scanner", "none", "OCR backend for photos and scans: 'none', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "qwen2.5vl:7b", "Ollama model name (e.g., qwen2.5vl:7b, llava:1.6, minicpm-v)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		tz          = fs.StringLong("tz", "Europe/Belgrade", "Time zone receipt dates are printed in")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FISCAL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		slog.Error("Failed to load time zone", "tz", *tz, "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Get Gemini API key from flag or environment
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	slog.Info("Initializing scanner...", "type", *scannerType)
	scanner, err := scanning.NewScanner(scanning.Config{
		Backend:     *scannerType,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize scanner", "error", err)
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	} else {
		slog.Warn("No OCR scanner configured, only documents with a text layer are accepted")
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	loader := scanning.NewLoader(scanner)
	parser := fiscal.NewParser(fiscal.WithLocation(loc))
	receiptService := receipt.NewService(db, loader, parser, store)

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shut down")
}
