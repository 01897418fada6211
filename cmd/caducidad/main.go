package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/Alvaro01/caducidad/internal/lookup"
	"github.com/Alvaro01/caducidad/internal/pantry"
	"github.com/Alvaro01/caducidad/internal/scanning"
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

	fs := ff.NewFlagSet("caducidad")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "caducidad.db", "Database file path")
		snapshotPath  = fs.StringLong("snapshots", "./snapshots", "Capture snapshot directory path")
		extractorType = fs.StringLong("extractor", "gemini", "Expiry extractor: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, bakllava, qwen2-vl)")
		lookupURL     = fs.StringLong("lookup-url", lookup.DefaultBaseURL, "Product database base URL")
		cooldownMS    = fs.IntLong("cooldown-window", 5000, "Per-barcode trigger cooldown in milliseconds")
		maxAttempts   = fs.IntLong("max-expiry-attempts", 5, "Automated expiry-detection attempts before manual fallback")
		attemptMS     = fs.IntLong("attempt-interval", 2000, "Interval between expiry attempts in milliseconds")
		frameMaxAge   = fs.IntLong("frame-max-age", 3000, "Age in milliseconds after which the last pushed frame counts as stale")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CADUCIDAD"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Record store
	slog.Info("Initializing database...")
	db, err := pantry.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Expiry extractor backend
	var extractor scanning.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer extractor.Close()

	// Snapshot storage
	slog.Info("Initializing snapshot storage...")
	store, err := pantry.NewLocalStorage(*snapshotPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := pantry.NewService(db, store)
	frames := pantry.NewLatestFrame(time.Duration(*frameMaxAge) * time.Millisecond)
	resolver := lookup.NewClient(*lookupURL)
	detector := scanning.NewZXingDetector()

	engine := pantry.NewEngine(pantry.Config{
		CooldownWindow:    time.Duration(*cooldownMS) * time.Millisecond,
		MaxExpiryAttempts: *maxAttempts,
		AttemptInterval:   time.Duration(*attemptMS) * time.Millisecond,
	}, frames, detector, resolver, extractor, service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Drain engine events into the log; the scan status endpoint
	// carries the same information for clients.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-engine.Events():
				slog.Info("Engine event", "type", ev.Type, "state", ev.State, "barcode", ev.Barcode, "message", ev.Message)
			}
		}
	}()

	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Engine error", "error", err)
			os.Exit(1)
		}
	}()

	basicAuth := pantry.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := pantry.NewServer(service, engine, frames, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	<-ctx.Done()
	slog.Info("Shutting down...")
}
