// Settingsagent is a Telegram front-end for YandexGPT that answers
// system configuration and troubleshooting questions with structured
// JSON responses.
//
// Usage:
//
//	settingsagent serve            Start the Telegram bot
//	settingsagent ask <question>   Ask a single question (for testing)
//	settingsagent test             Probe the YandexGPT connection
//	settingsagent version          Print version and build information
//	settingsagent -o json version  Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mau89/Day2SettingsAI/internal/buildinfo"
	"github.com/mau89/Day2SettingsAI/internal/config"
	"github.com/mau89/Day2SettingsAI/internal/envelope"
	"github.com/mau89/Day2SettingsAI/internal/telegram"
	"github.com/mau89/Day2SettingsAI/internal/yandexgpt"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the settingsagent command. All
// OS-level dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the bot's polling loop.
//   - stdout and stderr receive all program output.
//   - args is os.Args[1:].
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: settingsagent ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, cmdArgs)
	case "test":
		return runTest(ctx, stdout, stderr, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Settingsagent - Settings AI Agent for Telegram")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: settingsagent [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the Telegram bot")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  test         Probe the YandexGPT connection")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration comes from the environment (TELEGRAM_BOT_TOKEN,")
	fmt.Fprintln(w, "YANDEX_API_KEY, YANDEX_FOLDER_ID) with optional overrides from")
	fmt.Fprintln(w, "settingsagent.yaml. Config search order:")
	fmt.Fprintln(w, "  ./settingsagent.yaml, ~/.config/settingsagent/settingsagent.yaml,")
	fmt.Fprintln(w, "  /etc/settingsagent/settingsagent.yaml")
	return nil
}

// runServe handles the "settingsagent serve" subcommand. It is the
// primary operating mode: loads config, builds the YandexGPT client and
// the Telegram bot, and long-polls until a shutdown signal arrives.
// SIGINT and SIGTERM stop the polling loop and exit cleanly.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(stdout, configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stdout, logLevel(cfg))
	logger.Info("starting settings agent",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"built", buildinfo.BuildTime,
	)
	if cfgPath != "" {
		logger.Info("config loaded", "path", cfgPath)
	} else {
		logger.Info("config loaded from environment")
	}

	responder := yandexgpt.NewClient(cfg.Yandex, logger)
	api := telegram.NewAPIClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, logger)
	bot := telegram.NewBot(api, responder, cfg.Telegram.AllowedChatIDs, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx the bot
	// polls with; Run returns nil once the context is done.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}

	logger.Info("settings agent stopped")
	return nil
}

// runAsk handles the "settingsagent ask <question>" subcommand. It runs
// a single question through the completion pipeline and prints the
// resulting envelope JSON to stdout. Useful for smoke tests without a
// Telegram token.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	cfg, _, err := loadConfig(stdout, configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, logLevel(cfg))
	responder := yandexgpt.NewClient(cfg.Yandex, logger)

	question := strings.Join(args, " ")
	resp := responder.GenerateResponse(ctx, question)

	fmt.Fprintln(stdout, resp.JSON())
	return nil
}

// runTest handles the "settingsagent test" subcommand: one connection
// probe, envelope JSON on stdout, non-zero exit when the probe failed.
func runTest(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	cfg, _, err := loadConfig(stdout, configPath)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, logLevel(cfg))
	responder := yandexgpt.NewClient(cfg.Yandex, logger)

	resp := responder.TestConnection(ctx)
	fmt.Fprintln(stdout, resp.JSON())

	if resp.Type == envelope.KindError {
		return fmt.Errorf("connection test failed")
	}
	return nil
}

// loadConfig locates, parses, and validates the configuration. On a
// validation failure an error envelope is written to stdout so callers
// scripting against the JSON output see the same response shape as
// every other failure, and a plain error is returned for the exit code.
func loadConfig(stdout io.Writer, explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	if err := cfg.Validate(); err != nil {
		if env, envErr := envelope.Error(
			"❌ Configuration error",
			envelope.WithErrorDetails(err.Error()),
			envelope.WithSuggestions(
				"Set the required environment variables",
				"Or provide them in settingsagent.yaml",
			),
		); envErr == nil {
			fmt.Fprintln(stdout, env.JSON())
		}
		return nil, cfgPath, fmt.Errorf("configuration invalid: %w", err)
	}

	return cfg, cfgPath, nil
}

// logLevel resolves the configured log level. Validate has already
// checked it, so parse errors fall back to Info.
func logLevel(cfg *config.Config) slog.Level {
	if cfg.LogLevel == "" {
		return slog.LevelInfo
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger creates a structured text logger writing to w. All log
// output goes through slog; this helper standardizes the handler
// configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}
