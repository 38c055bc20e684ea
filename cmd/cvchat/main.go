// Command cvchat is a terminal chat client for the CV assistant endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachkp/zach-dev/internal/chat"
	"github.com/Zachkp/zach-dev/internal/config"
	"github.com/Zachkp/zach-dev/internal/logging"
)

type options struct {
	endpoint       string
	model          string
	contextFile    string
	probeTimeout   time.Duration
	requestTimeout time.Duration
	verbose        bool
	logFile        string
}

func newRootCmd(cfg *config.Client) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cvchat",
		Short: "Ask questions about a CV from the terminal",
		Long: `cvchat talks to a CV assistant endpoint (POST /api/ask by default).

It tests the connection on start, then lets you ask questions. Answers are
revealed word by word with simple inline formatting.

Keys: enter sends, ctrl+r retests the connection, esc or ctrl+c quits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.endpoint, "endpoint", cfg.EndpointURL, "Inference endpoint URL (or set CVCHAT_ENDPOINT)")
	flags.StringVar(&opts.model, "model", cfg.Model, "Model hint sent with each question")
	flags.StringVar(&opts.contextFile, "context-file", cfg.ContextPath, "File whose text is sent as the CV context")
	flags.DurationVar(&opts.probeTimeout, "probe-timeout", cfg.ProbeTimeout, "Connection test timeout")
	flags.DurationVar(&opts.requestTimeout, "request-timeout", cfg.RequestTimeout, "Question timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&opts.logFile, "log-file", "cvchat.log", "Where logs go when --verbose is set")
	return cmd
}

func newLogger(opts *options) (*zap.Logger, error) {
	if !opts.verbose {
		return zap.NewNop(), nil
	}
	return logging.NewFile(opts.logFile, "debug")
}

func readContext(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read context file: %w", err)
	}
	return string(b), nil
}

func run(ctx context.Context, opts *options) error {
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cv, err := readContext(opts.contextFile)
	if err != nil {
		return err
	}

	view := &teaView{}
	ctrl, err := chat.New(chat.Config{
		EndpointURL:    opts.endpoint,
		ProbeTimeout:   opts.probeTimeout,
		RequestTimeout: opts.requestTimeout,
		StaticContext:  cv,
		Model:          opts.model,
	}, view, chat.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(ctx, ctrl, opts.endpoint), tea.WithContext(ctx))
	view.send = p.Send

	logger.Info("starting", zap.String("endpoint", opts.endpoint))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(config.LoadClient()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
