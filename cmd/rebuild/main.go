// Command rebuild replays every item's ballot log and persists the derived
// ratings. It can also audit stored ratings and import legacy vote rows.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/okian/ktc/internal/adapters/repository"
	app "github.com/okian/ktc/internal/app"
	"github.com/okian/ktc/internal/config"
	"github.com/okian/ktc/internal/domain/model"
	"github.com/okian/ktc/pkg/logger"
)

var errDrift = errors.New("stored ratings drifted from replay")

// Options defines the command-line flags. Store settings fall back to the
// same KTC_ configuration the server reads.
type Options struct {
	Check   bool   `long:"check" description:"Report items whose stored rating differs from a replay of their log; nothing is written"`
	Legacy  string `long:"legacy" value-name:"FILE" description:"Import legacy votes from a YAML file before rebuilding"`
	Store   string `long:"store" description:"Store driver (memory/sqlite/postgres)"`
	DSN     string `long:"dsn" description:"Store data source name"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	var flagsErr *flags.Error
	switch {
	case err == nil:
	case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
	case errors.Is(err, errDrift):
		stop()
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "rebuild:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[--check | --legacy FILE] [--store DRIVER --dsn DSN]"
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("unexpected arguments: %v", remaining)
	}
	if opts.Check && opts.Legacy != "" {
		return errors.New("--check and --legacy are mutually exclusive")
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.WithFormat(cfg.LogFormat), logger.WithWriter(stderr))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if opts.Verbose {
		_ = logger.SetLevelString("debug")
	}

	store, err := repository.Open(ctx, cfg.Store, cfg.DSN,
		repository.WithMaxOpenConns(cfg.DBMaxOpenConns),
		repository.WithConnMaxLifetime(cfg.DBConnMaxLifetime()),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	svcOpts, err := app.OptionsFromConfig(cfg, store,
		app.WithSynchronousRecompute(true),
		app.WithLogger(log.Named("rebuild")),
	)
	if err != nil {
		return err
	}
	svc := app.New(svcOpts...)

	if opts.Check {
		return check(ctx, svc, stdout)
	}
	if opts.Legacy != "" {
		if err := importLegacy(ctx, svc, opts.Legacy, stdout); err != nil {
			return err
		}
	}
	return rebuild(ctx, svc, stdout)
}

func loadConfig(ctx context.Context, opts Options) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Store != "" {
		cfg.Store = opts.Store
	}
	if opts.DSN != "" {
		cfg.DSN = opts.DSN
	}
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

func rebuild(ctx context.Context, svc *app.Service, w io.Writer) error {
	report, err := svc.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "rebuilt %s items from %s ballots in %s\n",
		humanize.Comma(int64(report.Items)),
		humanize.Comma(int64(report.Ballots)),
		report.Duration,
	)
	return nil
}

func check(ctx context.Context, svc *app.Service, w io.Writer) error {
	drift, err := svc.Audit(ctx)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		fmt.Fprintln(w, "no drift: every stored rating matches its replay")
		return nil
	}
	base := svc.Engine().BaseRating()
	for _, d := range drift {
		stored := base
		if d.StoredRating != nil {
			stored = *d.StoredRating
		}
		fmt.Fprintf(w, "%s (%s): stored %s over %s votes, replay %s over %s votes\n",
			d.Name, d.ItemID,
			humanize.FtoaWithDigits(stored, 4), humanize.Comma(int64(d.StoredVotes)),
			humanize.FtoaWithDigits(d.ReplayRating, 4), humanize.Comma(int64(d.ReplayVotes)),
		)
	}
	fmt.Fprintf(w, "%s items drifted; run without --check to repair\n", humanize.Comma(int64(len(drift))))
	return fmt.Errorf("%w: %d items", errDrift, len(drift))
}

func importLegacy(ctx context.Context, svc *app.Service, path string, w io.Writer) error {
	votes, err := readLegacy(path)
	if err != nil {
		return err
	}
	n, err := svc.ImportLegacy(ctx, votes)
	if err != nil {
		return err
	}
	if len(votes) == 0 {
		fmt.Fprintln(w, "no legacy votes found")
		return nil
	}
	sort.SliceStable(votes, func(i, j int) bool { return votes[i].CreatedAt.Before(votes[j].CreatedAt) })
	fmt.Fprintf(w, "imported %s legacy votes as %s ballots (oldest %s, newest %s)\n",
		humanize.Comma(int64(len(votes))),
		humanize.Comma(int64(n)),
		humanize.Time(votes[0].CreatedAt),
		humanize.Time(votes[len(votes)-1].CreatedAt),
	)
	return nil
}

// readLegacy decodes a YAML sequence of legacy vote rows.
func readLegacy(path string) ([]model.LegacyVote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open legacy votes: %w", err)
	}
	defer f.Close()

	var votes []model.LegacyVote
	if err := yaml.NewDecoder(f).Decode(&votes); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode legacy votes %s: %w", path, err)
	}
	return votes, nil
}
