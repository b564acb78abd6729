package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/api/handlers"
	"github.com/BaSui01/claritycast/clarity"
	"github.com/BaSui01/claritycast/client"
	"github.com/BaSui01/claritycast/config"
	"github.com/BaSui01/claritycast/internal/tlsutil"
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 💬 客户端命令：clarify / communicate
// =============================================================================

// cliLogger CLI 日志写 stderr，避免污染结果输出
func cliLogger(cfg *config.Config) *zap.Logger {
	lc := cfg.Log
	lc.Format = "console"
	lc.OutputPaths = []string{"stderr"}
	if !cfg.Debug && lc.Level != "error" {
		lc.Level = "warn"
	}
	return initLogger(lc)
}

// newAPIClient 构造带重试策略的底层客户端
func newAPIClient(cfg *config.Config, logger *zap.Logger) (*client.Client, error) {
	httpClient, err := tlsutil.ClientFor(cfg.Client.BaseURL, 0)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Client.BaseURL,
		client.WithLogger(logger),
		client.WithHTTPClient(httpClient),
		client.WithRetryPolicy(client.RetryPolicy{
			MaxRetries: cfg.Client.MaxRetries,
			BaseDelay:  cfg.Client.BaseDelay,
			MaxDelay:   cfg.Client.MaxDelay,
		}),
		client.WithDefaultTimeout(cfg.Client.Timeout),
	), nil
}

// withClarityClient 打开缓存存储，启动时清理过期条目，再执行 fn
func withClarityClient(ctx context.Context, cfg *config.Config, logger *zap.Logger, fn func(*client.ClarityClient) error) error {
	base, err := newAPIClient(cfg, logger)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer func() { _ = closeStore() }()

	cc := client.NewClarityClient(base, newFingerprintCache(store, cfg, nil, logger), logger)
	if _, err := cc.Prune(ctx); err != nil {
		logger.Warn("cache prune failed", zap.Error(err))
	}
	return fn(cc)
}

func retryNotice(w io.Writer) client.CallOption {
	return client.WithOnRetry(func(attempt, maxRetries int, delay time.Duration) {
		fmt.Fprintf(w, "Retrying (%d/%d) in %s...\n", attempt, maxRetries, delay.Round(100*time.Millisecond))
	})
}

// readText 取位置参数；没有参数或参数为 "-" 时读 stdin
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func newClarifyCmd(opts *rootOptions) *cobra.Command {
	var (
		mode     string
		followup string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "clarify [text|-]",
		Short: "Clarify a thought (decision, plan, overwhelm, message_prep)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := clarity.ParseMode(mode)
			if err != nil {
				return err
			}
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			req := clarity.ClarifyRequest{Mode: m, Text: text, FollowupAnswer: followup}
			return withClarityClient(cmd.Context(), cfg, logger, func(cc *client.ClarityClient) error {
				result, err := cc.Clarify(cmd.Context(), req, retryNotice(cmd.ErrOrStderr()))
				if err != nil {
					return reportError(cmd.ErrOrStderr(), err)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				renderSections(cmd.OutOrStdout(), clarity.Sections(result))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(clarity.ModeDecision), "decision, plan, overwhelm or message_prep")
	cmd.Flags().StringVar(&followup, "followup", "", "answer to the previous sharp question (bypasses the cache)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result")
	return cmd
}

func newCommunicateCmd(opts *rootOptions) *cobra.Command {
	var (
		contexts string
		intent   string
		refining string
		asJSON   bool
		options  clarity.Options
	)
	cmd := &cobra.Command{
		Use:   "communicate [message|-]",
		Short: "Rewrite a message for one or more contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctxs, err := clarity.ParseContexts(contexts)
			if err != nil {
				return err
			}
			in, err := clarity.ParseIntent(intent)
			if err != nil {
				return err
			}
			message, err := readText(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			req := clarity.CommunicateRequest{
				Message:        message,
				Contexts:       ctxs,
				Intent:         in,
				Options:        options,
				RefiningAnswer: refining,
			}
			return withClarityClient(cmd.Context(), cfg, logger, func(cc *client.ClarityClient) error {
				result, err := cc.Communicate(cmd.Context(), req, retryNotice(cmd.ErrOrStderr()))
				if err != nil {
					return reportError(cmd.ErrOrStderr(), err)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Render())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contexts, "context", string(clarity.ContextTechnical), "comma-separated contexts (evaluative, technical, persuasive, personal)")
	cmd.Flags().StringVar(&intent, "intent", string(clarity.IntentInform), "inform, persuade, explain or apologise")
	cmd.Flags().StringVar(&refining, "refine", "", "answer to the previous refining question (bypasses the cache)")
	cmd.Flags().BoolVar(&options.PreserveMeaning, "preserve-meaning", true, "keep the original meaning")
	cmd.Flags().BoolVar(&options.Concise, "concise", false, "prefer shorter drafts")
	cmd.Flags().BoolVar(&options.Formal, "formal", false, "use a formal register")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON result")
	return cmd
}

func renderSections(w io.Writer, sections []clarity.Section) {
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "## %s\n", s.Title)
		if len(s.Items) == 1 {
			fmt.Fprintln(w, s.Items[0])
			continue
		}
		for _, item := range s.Items {
			fmt.Fprintf(w, "- %s\n", item)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportError 打印类型化错误的细节并原样返回
func reportError(w io.Writer, err error) error {
	te, ok := types.AsError(err)
	if !ok {
		return err
	}
	for _, issue := range te.Details {
		fmt.Fprintf(w, "  %s: %s\n", issue.Path, issue.Message)
	}
	if te.RetryAfterSeconds > 0 {
		fmt.Fprintf(w, "  retry after %ds\n", te.RetryAfterSeconds)
	}
	if te.Debug != nil {
		fmt.Fprintf(w, "  debug: label=%s\n", te.Debug.Label)
		for i, issues := range te.Debug.AttemptIssues {
			fmt.Fprintf(w, "  attempt %d: %d issue(s)\n", i+1, len(issues))
		}
	}
	return err
}

// =============================================================================
// 🗄️ cache 命令
// =============================================================================

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the request fingerprint cache",
	}
	run := func(clear func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error), verb string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			n, err := clear(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries\n", verb, n)
			return nil
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear-expired",
			Short: "Remove expired or unreadable entries",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error) {
				return withCache(ctx, cfg, logger, func(c cacheClearer) (int, error) { return c.ClearExpired(ctx) })
			}, "Removed"),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every entry under the cache prefix",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error) {
				return withCache(ctx, cfg, logger, func(c cacheClearer) (int, error) { return c.ClearAll(ctx) })
			}, "Removed"),
		},
	)
	return cmd
}

type cacheClearer interface {
	ClearExpired(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int, error)
}

func withCache(ctx context.Context, cfg *config.Config, logger *zap.Logger, fn func(cacheClearer) (int, error)) (int, error) {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return 0, fmt.Errorf("open cache store: %w", err)
	}
	defer func() { _ = closeStore() }()
	return fn(newFingerprintCache(store, cfg, nil, logger))
}

// =============================================================================
// 🏥 health / version
// =============================================================================

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var (
		addr  string
		ready bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Client.BaseURL = addr
			}
			logger := cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			c, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}
			path := api.PathHealth
			if ready {
				path = api.PathReady
			}
			var status handlers.HealthStatus
			if err := c.Get(cmd.Context(), path, &status, client.WithMaxRetries(0), client.WithTimeout(5*time.Second)); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if status.Status != handlers.StatusHealthy {
				return errors.New("health check failed: status " + status.Status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server base URL (default: client.base_url)")
	cmd.Flags().BoolVar(&ready, "ready", false, "check readiness instead of liveness")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ClarityCast %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "  Git Commit: %s\n", info.GitCommit)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
