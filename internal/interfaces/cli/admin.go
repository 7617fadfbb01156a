package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/PillScope/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// lasa
// ─────────────────────────────────────────────────────────────────────────────

func newLASACmd(cc *CLIContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lasa",
		Short: "Inspect the look-alike/sound-alike table",
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List confusable medicine pairs",
		Args:  cobra.NoArgs,
	}
	list.Flags().StringVar(&filter, "filter", "", "only show names containing this text (case-insensitive)")
	list.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		table, err := cc.LASA()
		if err != nil {
			return err
		}
		entries := filterEntries(table.Entries(), filter)
		return PrintResult(cmd, cc.opts.OutputFormat, lasaView(entries))
	})

	lookup := &cobra.Command{
		Use:   "lookup <generic-name>",
		Short: "Show the medicine a name is commonly confused with",
		Args:  cobra.ExactArgs(1),
	}
	lookup.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		table, err := cc.LASA()
		if err != nil {
			return err
		}
		alt, ok := table.Lookup(args[0])
		if !ok {
			return errors.New(errors.ErrCodeCorrectionNotFound, "no look-alike medicine on record").WithDetail(args[0])
		}
		return PrintResult(cmd, cc.opts.OutputFormat, lasaView{{Name: args[0], Confusable: alt}})
	})

	cmd.AddCommand(list, lookup)
	return cmd
}

func filterEntries(entries []lasa.Entry, filter string) []lasa.Entry {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return entries
	}
	out := make([]lasa.Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), filter) || strings.Contains(strings.ToLower(e.Confusable), filter) {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// cache
// ─────────────────────────────────────────────────────────────────────────────

func newCacheCmd(cc *CLIContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or evict cached regulatory labels",
	}

	inspect := &cobra.Command{
		Use:   "inspect <imprint> <generic-name>",
		Short: "Show the cache entry for an identified pill",
		Args:  cobra.ExactArgs(2),
	}
	inspect.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		labels, err := cc.Labels(ctx)
		if err != nil {
			return err
		}
		info, err := labels.Inspect(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return PrintResult(cmd, cc.opts.OutputFormat, cacheView{info})
	})

	evict := &cobra.Command{
		Use:   "evict <imprint> <generic-name>",
		Short: "Remove the cache entry so the next request refetches it",
		Args:  cobra.ExactArgs(2),
	}
	evict.RunE = cc.runE(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		labels, err := cc.Labels(ctx)
		if err != nil {
			return err
		}
		if err := labels.Evict(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s evicted %s\n", color.GreenString("OK:"), pill.CacheKey(args[0], args[1]))
		return nil
	})

	cmd.AddCommand(inspect, evict)
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// events
// ─────────────────────────────────────────────────────────────────────────────

// EventSource yields pipeline events. *kafka.Consumer satisfies it.
type EventSource interface {
	Consume(ctx context.Context, handler kafka.EventHandler) error
	Close() error
}

var errEnoughEvents = stderrors.New("event limit reached")

func newEventsCmd(cc *CLIContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow pipeline events published to the message broker",
	}

	var (
		limit         int
		group         string
		fromBeginning bool
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print events as they arrive",
		Args:  cobra.NoArgs,
	}
	f := tail.Flags()
	f.IntVarP(&limit, "max", "n", 0, "stop after this many events (0 follows until interrupted)")
	f.StringVar(&group, "group", "", "consumer group (default: messaging.group_id)")
	f.BoolVar(&fromBeginning, "from-beginning", false, "start from the earliest retained event")

	tail.RunE = func(cmd *cobra.Command, args []string) error {
		// tail runs until interrupted, so the global timeout does not apply
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		src, err := cc.eventSource(group, fromBeginning)
		if err != nil {
			return err
		}
		defer src.Close()

		seen := 0
		err = src.Consume(ctx, func(_ context.Context, ev pill.Event) error {
			printEvent(cmd, cc.opts.OutputFormat, ev)
			seen++
			if limit > 0 && seen >= limit {
				return errEnoughEvents
			}
			return nil
		})
		if stderrors.Is(err, errEnoughEvents) {
			return nil
		}
		return err
	}

	cmd.AddCommand(tail)
	return cmd
}

func (c *CLIContext) eventSource(group string, fromBeginning bool) (EventSource, error) {
	if c.deps.Events != nil {
		return c.deps.Events, nil
	}
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	if !cfg.Messaging.Enabled {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "messaging is disabled in configuration")
	}
	if group == "" {
		group = cfg.Messaging.GroupID
	}
	reset := "latest"
	if fromBeginning {
		reset = "earliest"
	}
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Messaging.Brokers,
		Topic:           cfg.Messaging.Topic,
		GroupID:         group,
		AutoOffsetReset: reset,
	}, c.logger().Named("events"))
}

func printEvent(cmd *cobra.Command, format string, ev pill.Event) {
	if strings.ToLower(format) == "json" {
		_ = printJSON(cmd, ev)
		return
	}
	line := fmt.Sprintf("%s %-16s %s %s",
		ev.OccurredAt.Local().Format(time.RFC3339),
		ev.Type, ev.ImprintNumber, ev.GenericName)
	if ev.AlternateName != "" {
		line += " -> " + ev.AlternateName
	}
	if ev.CacheHit {
		line += " " + color.GreenString("(cached)")
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}

//Personal.AI order the ending
