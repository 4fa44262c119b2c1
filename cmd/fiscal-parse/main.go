// Command fiscal-parse prints the bills of Serbian fiscal receipts as JSON or YAML.
//
// Receipts are read from the files given as arguments, or from stdin when
// there are none. Text, saved verification pages and PDFs are read
// directly. Photos need an OCR backend (--scanner).
package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"gopkg.in/yaml.v3"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
	"github.com/zombor/fiscal-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses every input and writes one document per bill to stdout
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := ff.NewFlagSet("fiscal-parse")
	var (
		format      = fs.StringLong("format", "json", "Output format: 'json' or 'yaml'")
		tz          = fs.StringLong("tz", "Europe/Belgrade", "Time zone receipt dates are printed in")
		contentType = fs.StringLong("content-type", "", "Content type of stdin (sniffed when empty)")
		scannerType = fs.StringLong("scanner", "none", "OCR backend for photos and scans: 'none', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "qwen2.5vl:7b", "Ollama model name")
		logLevel    = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("FISCAL")); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", *logLevel)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	encode, err := newEncoder(*format, stdout)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("loading time zone: %w", err)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	scanner, err := scanning.NewScanner(scanning.Config{
		Backend:     *scannerType,
		GeminiKey:   apiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		return fmt.Errorf("initializing scanner: %w", err)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	loader := scanning.NewLoader(scanner)
	parser := fiscal.NewParser(fiscal.WithLocation(loc))

	parse := func(name string, data []byte, contentType string) error {
		text, err := loader.Load(data, contentType)
		if err != nil {
			return fmt.Errorf("loading %s: %w", name, err)
		}
		bill := parser.Parse(text)
		slog.Debug("Parsed receipt", "input", name, "items", len(bill.Items), "total", bill.Price)
		return encode(bill)
	}

	inputs := fs.GetArgs()
	if len(inputs) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		return parse("stdin", data, *contentType)
	}

	// Keep going past bad inputs, report them together
	var errs []error
	for _, name := range inputs {
		data, err := os.ReadFile(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", name, err))
			continue
		}
		if err := parse(name, data, scanning.ContentTypeFromFilename(name)); err != nil {
			slog.Error("Failed to parse receipt", "input", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newEncoder returns a function writing one document per bill
func newEncoder(format string, w io.Writer) (func(*fiscal.Bill) error, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return func(bill *fiscal.Bill) error { return enc.Encode(bill) }, nil
	case "yaml":
		var written int
		return func(bill *fiscal.Bill) error {
			data, err := yaml.Marshal(bill)
			if err != nil {
				return err
			}
			if written > 0 {
				data = append([]byte("---\n"), data...)
			}
			written++
			_, err = w.Write(data)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("invalid format %q, want json or yaml", format)
	}
}
