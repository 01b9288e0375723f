// Command summarize generates or enqueues coaching summaries for one period
// outside the regular schedule, e.g. to backfill after an outage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/mailer"
	"github.com/pscheid92/coachpulse/internal/adapter/openai"
	"github.com/pscheid92/coachpulse/internal/adapter/postgres"
	"github.com/pscheid92/coachpulse/internal/adapter/queue"
	"github.com/pscheid92/coachpulse/internal/adapter/redis"
	"github.com/pscheid92/coachpulse/internal/app"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/pscheid92/coachpulse/internal/platform/config"
	"github.com/pscheid92/coachpulse/internal/platform/logging"
	"github.com/pscheid92/coachpulse/internal/prompts"
)

type options struct {
	period  domain.Period
	ref     time.Time
	userID  *uuid.UUID
	enqueue bool
	dryRun  bool
}

func parseFlags() (options, error) {
	var (
		period  = flag.String("period", "daily", "Summary period: daily, weekly or monthly")
		date    = flag.String("date", "", "Reference date (YYYY-MM-DD, UTC); summarizes the period before it. Defaults to today")
		user    = flag.String("user", "", "Only this user ID")
		enqueue = flag.Bool("enqueue", false, "Enqueue tasks for the worker instead of generating inline")
		dryRun  = flag.Bool("dry-run", false, "List eligible users and message counts without generating")
	)
	flag.Parse()

	var opts options
	p, err := domain.ParsePeriod(*period)
	if err != nil {
		return opts, err
	}
	opts.period = p

	opts.ref = time.Now().UTC()
	if *date != "" {
		opts.ref, err = time.Parse(time.DateOnly, *date)
		if err != nil {
			return opts, fmt.Errorf("invalid -date %q: %w", *date, err)
		}
	}

	if *user != "" {
		id, err := uuid.Parse(*user)
		if err != nil {
			return opts, fmt.Errorf("invalid -user %q: %w", *user, err)
		}
		opts.userID = &id
	}

	opts.enqueue = *enqueue
	opts.dryRun = *dryRun
	if opts.enqueue && opts.dryRun {
		return opts, errors.New("-enqueue and -dry-run are mutually exclusive")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	queueOpt, err := queue.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to configure task queue: %v", err)
	}
	queueClient := queue.NewClient(queueOpt, nil)
	defer func() { _ = queueClient.Close() }()

	summaries, err := newSummaryService(cfg, pool, queueClient)
	if err != nil {
		log.Fatalf("Failed to set up summaries: %v", err)
	}

	window := opts.period.PreviousWindow(opts.ref)
	cyan := color.New(color.FgCyan)
	cyan.Printf("%s window %s .. %s\n", opts.period, window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly))

	switch {
	case opts.dryRun:
		err = preview(ctx, summaries, opts)
	case opts.enqueue:
		err = enqueue(ctx, queueClient, opts, window)
	default:
		err = runInline(ctx, summaries, opts, window)
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func newSummaryService(cfg *config.Config, pool *pgxpool.Pool, q domain.SummaryQueue) (*app.SummaryService, error) {
	catalog, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	profiles := postgres.NewProfileRepo(pool)
	// No Redis layer: a one-shot run has nothing to share the cache with.
	entitlements := redis.NewEntitlementCache(nil, profiles, cfg.EntitlementCacheTTL, clock, nil)

	var mail domain.Mailer
	if cfg.MailAPIKey != "" {
		mail = mailer.NewClient(cfg.MailAPIKey, cfg.MailFrom)
	}

	return app.NewSummaryService(app.SummaryDeps{
		Messages:  postgres.NewMessageRepo(pool),
		Summaries: postgres.NewSummaryRepo(pool),
		Profiles:  profiles,
		Features:  app.NewAccess(entitlements, clock),
		Completer: openai.NewClient(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, ChatModel: cfg.OpenAIChatModel}),
		Mailer:    mail,
		Queue:     q,
		Prompts:   catalog,
		Model:     cfg.OpenAISummaryModel,
		Clock:     clock,
	}), nil
}

func preview(ctx context.Context, summaries *app.SummaryService, opts options) error {
	_, counts, err := summaries.Preview(ctx, opts.period, opts.ref)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		if opts.userID == nil || *opts.userID == id {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return counts[ids[i]] > counts[ids[j]] })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tMESSAGES")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%d\n", id, counts[id])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	color.New(color.FgYellow).Printf("%d eligible users, nothing generated (dry run)\n", len(ids))
	return nil
}

func enqueue(ctx context.Context, q *queue.Client, opts options, window domain.Window) error {
	green := color.New(color.FgGreen)
	if opts.userID != nil {
		if err := q.EnqueueUser(ctx, *opts.userID, window); err != nil {
			return err
		}
		green.Printf("Enqueued %s summary for %s\n", opts.period, *opts.userID)
		return nil
	}

	if err := q.EnqueuePeriod(ctx, opts.period, opts.ref); err != nil {
		return err
	}
	green.Printf("Enqueued %s fan-out\n", opts.period)
	return nil
}

func runInline(ctx context.Context, summaries *app.SummaryService, opts options, window domain.Window) error {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if opts.userID != nil {
		summary, err := summaries.Generate(ctx, *opts.userID, window)
		if err != nil {
			return err
		}
		if summary == nil {
			yellow.Printf("No messages for %s in this window, skipped\n", *opts.userID)
			return nil
		}
		green.Printf("Generated summary %s from %d messages\n", summary.ID, summary.MessageCount)
		return nil
	}

	report, err := summaries.RunInline(ctx, opts.period, opts.ref)
	if err != nil {
		return err
	}
	green.Printf("Generated %d of %d users", report.Generated, report.Users)
	yellow.Printf(", skipped %d", report.Skipped)
	if report.Failed > 0 {
		color.Red(", failed %d\n", report.Failed)
		return fmt.Errorf("%d summaries failed", report.Failed)
	}
	fmt.Println()
	return nil
}
