// Package cli implements the pillscope command tree. Commands drive the
// identification pipeline either in-process or against a running API
// server when --server is set.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/bootstrap"
	"github.com/turtacn/PillScope/internal/config"
	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/client"
	"github.com/turtacn/PillScope/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
	Retries      int
}

// Dependencies lets callers supply prebuilt components. Anything left nil
// is built from configuration on first use.
type Dependencies struct {
	Logger   logging.Logger
	Pipeline identification.Pipeline
	Labels   identification.LabelStore
	LASA     *lasa.Table
	Events   EventSource
}

// CLIContext carries lazily initialized dependencies through the command
// tree. Only what a command asks for gets built, so "lasa list" never dials
// redis.
type CLIContext struct {
	opts *RootOptions
	deps Dependencies

	Logger logging.Logger

	mu        sync.Mutex
	cfg       *config.Config
	container *bootstrap.Container
	remote    *client.Client
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand(deps Dependencies) *cobra.Command {
	opts := &RootOptions{}
	cc := &CLIContext{opts: opts, deps: deps}

	cmd := &cobra.Command{
		Use:   "pillscope",
		Short: "Identify pills by imprint and explain what they treat",
		Long: "pillscope resolves a pill imprint to candidate medicines, fetches the\n" +
			"regulatory label and explains its purpose in plain language.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: PILLSCOPE_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "per-command timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address; when set commands run remotely")
	pf.IntVar(&opts.Retries, "retries", 0, "attempts for transient failures (0 uses pipeline.retry_attempts)")

	cmd.AddCommand(
		newIdentifyCmd(cc),
		newExplainCmd(cc),
		newCorrectCmd(cc),
		newExtractCmd(cc),
		newLASACmd(cc),
		newCacheCmd(cc),
		newEventsCmd(cc),
		newVersionCmd(),
	)
	return cmd
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	root := NewRootCommand(Dependencies{})
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

func (c *CLIContext) init(cmd *cobra.Command) error {
	switch strings.ToLower(c.opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.Newf(errors.ErrCodeBadRequest, "unknown output format %q", c.opts.OutputFormat)
	}
	if c.opts.NoColor {
		color.NoColor = true
	}
	if c.opts.Retries < 0 {
		return errors.New(errors.ErrCodeBadRequest, "--retries must be >= 0")
	}

	if c.deps.Logger != nil {
		c.Logger = c.deps.Logger
		return nil
	}
	level := strings.ToLower(c.opts.LogLevel)
	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	c.Logger = logger.Named("cli")
	return nil
}

// runE wraps a command body with the per-command timeout and releases
// whatever the command built.
func (c *CLIContext) runE(fn func(ctx context.Context, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
		}
		defer c.Close()
		return fn(ctx, cmd, args)
	}
}

// Config loads configuration once: the --config file when given, otherwise
// PILLSCOPE_* variables over defaults.
func (c *CLIContext) Config() (*config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configLocked()
}

func (c *CLIContext) configLocked() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if c.opts.ConfigPath != "" {
		cfg, err = config.Load(c.opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *CLIContext) containerLocked(ctx context.Context) (*bootstrap.Container, error) {
	if c.container != nil {
		return c.container, nil
	}
	cfg, err := c.configLocked()
	if err != nil {
		return nil, err
	}
	ctr, err := bootstrap.Build(ctx, cfg, c.logger(), bootstrap.Overrides{})
	if err != nil {
		return nil, err
	}
	c.container = ctr
	return ctr, nil
}

// Remote reports whether commands run against an API server.
func (c *CLIContext) Remote() bool {
	return c.opts.ServerAddr != "" && c.deps.Pipeline == nil
}

// Pipeline returns the injected pipeline, a remote adapter when --server is
// set, or the in-process pipeline.
func (c *CLIContext) Pipeline(ctx context.Context) (identification.Pipeline, error) {
	if c.deps.Pipeline != nil {
		return c.deps.Pipeline, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.ServerAddr != "" {
		if c.remote == nil {
			opts := []client.Option{
				client.WithUserAgent("pillscope-cli/" + Version),
				client.WithLogger(clientLogger{c.logger()}),
			}
			if c.opts.Retries > 1 {
				opts = append(opts, client.WithRetryMax(c.opts.Retries-1))
			}
			api, err := client.NewClient(c.opts.ServerAddr, opts...)
			if err != nil {
				return nil, err
			}
			c.remote = api
		}
		return &remotePipeline{api: c.remote}, nil
	}

	ctr, err := c.containerLocked(ctx)
	if err != nil {
		return nil, err
	}
	return ctr.Pipeline, nil
}

// Labels returns the label cache. It is only reachable in-process.
func (c *CLIContext) Labels(ctx context.Context) (identification.LabelStore, error) {
	if c.deps.Labels != nil {
		return c.deps.Labels, nil
	}
	if c.opts.ServerAddr != "" {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "cache commands are not available with --server")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ctr, err := c.containerLocked(ctx)
	if err != nil {
		return nil, err
	}
	return ctr.Labels, nil
}

// LASA loads the look-alike/sound-alike table from lasa.path.
func (c *CLIContext) LASA() (*lasa.Table, error) {
	if c.deps.LASA != nil {
		return c.deps.LASA, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	return lasa.LoadFile(cfg.LASA.Path)
}

// RetryPolicy applies --retries over the configured policy. Remote calls
// retry inside the client instead.
func (c *CLIContext) RetryPolicy() identification.RetryPolicy {
	p := identification.DefaultRetryPolicy
	if c.Remote() {
		return p
	}
	c.mu.Lock()
	if c.container != nil {
		p = c.container.RetryPolicy()
	}
	c.mu.Unlock()
	if c.opts.Retries > 0 {
		p.Attempts = c.opts.Retries
	}
	return p
}

// Close releases anything built for the current command.
func (c *CLIContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.container == nil {
		return nil
	}
	err := c.container.Close()
	c.container = nil
	return err
}

func (c *CLIContext) logger() logging.Logger {
	if c.Logger == nil {
		return logging.NewNopLogger()
	}
	return c.Logger
}

// withRetry runs op under the effective retry policy.
func withRetry[T any](ctx context.Context, cc *CLIContext, op func(context.Context) (T, error)) (T, error) {
	return identification.Retry(ctx, cc.RetryPolicy(), cc.logger(), op)
}

// clientLogger adapts the structured logger to the SDK's printf logger.
type clientLogger struct{ l logging.Logger }

func (a clientLogger) Debugf(format string, args ...interface{}) { a.l.Debug(fmt.Sprintf(format, args...)) }
func (a clientLogger) Infof(format string, args ...interface{})  { a.l.Info(fmt.Sprintf(format, args...)) }
func (a clientLogger) Errorf(format string, args ...interface{}) { a.l.Error(fmt.Sprintf(format, args...)) }

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pillscope %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate)
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	if appErr, ok := errors.AsAppError(err); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.RedString("Error:"), errors.KindForCode(appErr.Code), appErr.Message)
		if appErr.Detail != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", appErr.Detail)
		}
		return
	}
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", color.RedString("Error:"), apiErr.Kind, apiErr.Message)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// ExitCode maps an error to a process exit status: 2 for input problems,
// 3 for not found, 4 for upstream failures and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 404:
			return 3
		case apiErr.StatusCode >= 500 || apiErr.StatusCode == 429:
			return 4
		case apiErr.StatusCode >= 400:
			return 2
		}
		return 1
	}
	status := errors.HTTPStatusForCode(errors.GetCode(err))
	switch {
	case status == 404:
		return 3
	case status == 502 || status == 503:
		return 4
	case status >= 400 && status < 500:
		return 2
	}
	return 1
}

//Personal.AI order the ending
