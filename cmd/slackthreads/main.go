package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"slackthreads/internal/collector"
	"slackthreads/internal/config"
	"slackthreads/internal/export"
	"slackthreads/internal/filter"
	"slackthreads/internal/model"
	"slackthreads/internal/slackapi"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:     "slackthreads",
		Short:   "Collect, filter and export Slack conversation threads",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.slackthreads/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(initCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(convertCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath()
			if err := config.Save(path, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", path)
			return nil
		},
	}
}

// filterFlags are shared between collect and convert.
type filterFlags struct {
	keywords      []string
	matchAll      bool
	caseSensitive bool
	regex         string
	users         []string
	requireAll    bool
	since         string
	until         string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.keywords, "keyword", nil, "keep threads containing this keyword (repeatable)")
	cmd.Flags().BoolVar(&f.matchAll, "match-all", false, "require every keyword instead of any")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "match keywords case-sensitively")
	cmd.Flags().StringVar(&f.regex, "regex", "", "keep threads matching this regular expression")
	cmd.Flags().StringArrayVar(&f.users, "user", nil, "keep threads this user participated in (repeatable)")
	cmd.Flags().BoolVar(&f.requireAll, "require-all", false, "require every --user instead of any")
	cmd.Flags().StringVar(&f.since, "since", "", "keep threads started at or after this time (RFC 3339)")
	cmd.Flags().StringVar(&f.until, "until", "", "keep threads started at or before this time (RFC 3339)")
}

func (f *filterFlags) build() (filter.Filter, error) {
	var filters []filter.Filter

	start, end, err := f.dateBounds()
	if err != nil {
		return nil, err
	}
	filters = append(filters, filter.DateRange(start, end))
	filters = append(filters, filter.Keywords(f.keywords, filter.KeywordOptions{
		MatchAll:      f.matchAll,
		CaseSensitive: f.caseSensitive,
	}))
	if f.regex != "" {
		rf, err := filter.Regexp(f.regex)
		if err != nil {
			return nil, fmt.Errorf("invalid --regex: %w", err)
		}
		filters = append(filters, rf)
	}
	filters = append(filters, filter.Participants(f.users, f.requireAll))

	return filter.Chain(filters...), nil
}

func (f *filterFlags) dateBounds() (start, end time.Time, err error) {
	if f.since != "" {
		start, err = time.Parse(time.RFC3339, f.since)
		if err != nil {
			return start, end, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if f.until != "" {
		end, err = time.Parse(time.RFC3339, f.until)
		if err != nil {
			return start, end, fmt.Errorf("invalid --until: %w", err)
		}
	}
	return start, end, nil
}

// outputFlags are shared between collect and convert.
type outputFlags struct {
	format          string
	out             string
	pretty          bool
	includeUserInfo bool
	separator       string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "output format: snapshot | json | text")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "output file (default: stdout; required for snapshot)")
	cmd.Flags().BoolVar(&o.pretty, "pretty", false, "pretty-print JSON output")
	cmd.Flags().BoolVar(&o.includeUserInfo, "include-user-info", true, "resolve user names in text output")
	cmd.Flags().StringVar(&o.separator, "separator", "", "thread separator line in text output")
}

func (o *outputFlags) write(ctx context.Context, threads []model.Thread, dir export.Directory) error {
	switch o.format {
	case "snapshot":
		if o.out == "" {
			return fmt.Errorf("--out is required for snapshot output")
		}
		return export.SaveSnapshot(o.out, threads)
	case "json":
		if o.out == "" {
			return export.WriteJSON(os.Stdout, threads, o.pretty)
		}
		return export.SaveJSON(o.out, threads, o.pretty)
	case "text":
		opts := export.TextOptions{IncludeUserInfo: o.includeUserInfo, Separator: o.separator}
		if o.out == "" {
			return export.WriteText(ctx, os.Stdout, threads, dir, opts)
		}
		return export.SaveText(ctx, o.out, threads, dir, opts)
	default:
		return fmt.Errorf("unknown format %q (want snapshot, json or text)", o.format)
	}
}

func collectCmd() *cobra.Command {
	var (
		limit      int
		minReplies int
		oldest     string
		latest     string
		ff         filterFlags
		of         outputFlags
	)

	cmd := &cobra.Command{
		Use:   "collect <channel-id>...",
		Short: "Collect threads from one or more channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			client, err := slackapi.New(slackapi.Config{
				Token:           cfg.ResolveToken(),
				RateLimitPerMin: cfg.Slack.RateLimitPerMin,
				Burst:           cfg.Slack.Burst,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			apply, err := ff.build()
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = cfg.Collect.Limit
			}
			if minReplies <= 0 {
				minReplies = cfg.Collect.MinThreadLength
			}
			opts := collector.CollectOptions{
				Limit:           limit,
				Oldest:          oldest,
				Latest:          latest,
				MinThreadLength: minReplies,
			}

			ctx := cmd.Context()
			coll := collector.New(client, logger)

			byChannel, reports := coll.CollectThreadsMany(ctx, args, opts)
			var threads []model.Thread
			for _, channelID := range args {
				threads = append(threads, byChannel[channelID]...)
				report := reports[channelID]
				if report.Err != nil {
					logger.Warn("channel skipped", "channel", channelID, "error", report.Err)
				}
				for _, failed := range report.Failed() {
					logger.Warn("thread skipped", "channel", channelID, "thread_ts", failed.ThreadTS, "error", failed.Err)
				}
			}

			threads = apply(threads)
			logger.Info("export", "threads", len(threads), "format", of.format)
			return of.write(ctx, threads, coll)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max channel messages to scan per channel (default from config)")
	cmd.Flags().IntVar(&minReplies, "min-replies", 0, "minimum reply count for a thread (default from config)")
	cmd.Flags().StringVar(&oldest, "oldest", "", "start of the history window (Slack timestamp)")
	cmd.Flags().StringVar(&latest, "latest", "", "end of the history window (Slack timestamp)")
	ff.register(cmd)
	of.register(cmd)
	return cmd
}

func convertCmd() *cobra.Command {
	var (
		ff filterFlags
		of outputFlags
	)

	cmd := &cobra.Command{
		Use:   "convert <snapshot-file>",
		Short: "Re-filter and re-export a previously saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, err := export.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			apply, err := ff.build()
			if err != nil {
				return err
			}
			threads = apply(threads)

			// Text output resolves names through the API when a token is
			// configured; otherwise fall back to raw IDs.
			var dir export.Directory = offlineDirectory{}
			if of.format == "text" {
				cfg, err := config.Load(resolveConfigPath())
				if err != nil {
					return err
				}
				if token := cfg.ResolveToken(); token != "" {
					client, err := slackapi.New(slackapi.Config{
						Token:           token,
						RateLimitPerMin: cfg.Slack.RateLimitPerMin,
						Burst:           cfg.Slack.Burst,
						Logger:          logger,
					})
					if err != nil {
						return err
					}
					dir = collector.New(client, logger)
				}
			}

			logger.Info("export", "threads", len(threads), "format", of.format)
			return of.write(cmd.Context(), threads, dir)
		},
	}

	ff.register(cmd)
	of.register(cmd)
	return cmd
}

// offlineDirectory is used when no Slack token is available; the text
// exporter then prints raw IDs.
type offlineDirectory struct{}

func (offlineDirectory) GetUser(ctx context.Context, userID string) (model.User, error) {
	return model.User{}, fmt.Errorf("no slack client configured")
}

func (offlineDirectory) GetChannel(ctx context.Context, channelID string) (model.Channel, error) {
	return model.Channel{}, fmt.Errorf("no slack client configured")
}

// resolveConfigPath returns the config path from --config or the default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}
