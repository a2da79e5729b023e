package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/bookops/sierramarc"
	"github.com/bookops/sierramarc/internal/config"
	"github.com/bookops/sierramarc/internal/export"
	"github.com/bookops/sierramarc/internal/metrics"
	"github.com/bookops/sierramarc/internal/source"
	"github.com/bookops/sierramarc/internal/store"
)

const (
	metricsNamespace   = "sierramarc"
	metricLastRunBibs  = "last_run_bibs"
	metricLastRunSaved = "last_run_saved"
	labelCommand       = "command"
)

var errLibraryRequired = errors.New("library is required, use --library or SIERRAMARC_LIBRARY")

// env holds what the commands share once the global flags are processed.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	stdout  io.Writer
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout}

	app := cli.NewApp()
	app.Name = "sierramarc"
	app.Usage = "The sierramarc command provides a set of utilities for working with Sierra MARC 21 exports"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "YAML configuration file", EnvVar: "SIERRAMARC_CONFIG"},
		cli.StringFlag{Name: "library, l", Usage: "library the records were exported from (bpl or nypl)"},
		cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to this textfile on exit"},
	}
	app.Before = func(c *cli.Context) error {
		return e.setup(c, stderr)
	}
	app.After = func(c *cli.Context) error {
		return e.flushMetrics()
	}

	app.Commands = []cli.Command{
		{
			Name:      "pick",
			Usage:     "Pull a single MARC record from the data by control number",
			ArgsUsage: "[controlnum] [file]",
			Action:    e.pick,
		},
		{
			Name:      "orders",
			Usage:     "List the orders of every record as tab separated values",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "sort", Value: sierramarc.SortAscending, Usage: "ascending or descending"},
			},
			Action: e.orders,
		},
		{
			Name:      "oclc",
			Usage:     "List the OCLC numbers of every record as tab separated values",
			ArgsUsage: "[file]",
			Action:    e.oclc,
		},
		{
			Name:      "export",
			Usage:     "Write a JSON summary of every record, one per line",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "supported-subjects", Usage: "drop unsupported subject headings before summarizing"},
			},
			Action: e.export,
		},
		{
			Name:      "index",
			Usage:     "Load record summaries into the catalog database",
			ArgsUsage: "[file]",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "driver", Usage: "sqlite or postgres"},
				cli.StringFlag{Name: "dsn", Usage: "database connection string"},
			},
			Action: e.index,
		},
	}
	return app
}

func (e *env) setup(c *cli.Context, stderr io.Writer) error {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return err
	}
	if v := c.GlobalString("library"); v != "" {
		cfg.Library = v
	}
	if v := c.GlobalString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.GlobalString("metrics-file"); v != "" {
		cfg.MetricsFile = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))
	e.metrics = metrics.New(metricsNamespace)
	return nil
}

func (e *env) flushMetrics() error {
	if e.metrics == nil || e.cfg.MetricsFile == "" {
		return nil
	}
	return e.metrics.WriteTextfile(e.cfg.MetricsFile)
}

func (e *env) library() (sierramarc.Library, error) {
	if e.cfg.Library == "" {
		return "", errLibraryRequired
	}
	return sierramarc.ParseLibrary(e.cfg.Library)
}

// eachBib calls fn for every record of the file at location until fn
// returns false. Records that cannot be parsed are logged by the reader and
// skipped. A framing error ends the run and is returned.
func (e *env) eachBib(ctx context.Context, command, location string, fn func(*sierramarc.Bib) (bool, error)) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	if location == "" {
		return fmt.Errorf("%w: no file given", source.ErrInvalidLocation)
	}
	rc, err := source.New(e.cfg.S3).Open(ctx, location)
	if err != nil {
		return err
	}
	defer rc.Close()

	reader, err := sierramarc.NewReader(rc, lib,
		sierramarc.WithLogger(e.logger),
		sierramarc.WithMetrics(e.metrics),
		sierramarc.WithBibOptions(e.cfg.BibOptions()...),
	)
	if err != nil {
		return err
	}

	seen := 0
	defer func() {
		e.metrics.RecordValue(metricLastRunBibs, float64(seen), map[string]string{labelCommand: command})
	}()
	for reader.Next() {
		bib, err := reader.Value()
		if err != nil {
			if sierramarc.IsFraming(err) {
				return err
			}
			continue
		}
		seen++
		more, err := fn(bib)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

func bibKey(bib *sierramarc.Bib) string {
	if id, ok := bib.SierraBibID(); ok {
		return id
	}
	return bib.ControlNum()
}

func (e *env) pick(c *cli.Context) error {
	id := c.Args().Get(0)
	found := false
	err := e.eachBib(context.Background(), "pick", c.Args().Get(1), func(bib *sierramarc.Bib) (bool, error) {
		if bib.ControlNum() != id {
			return true, nil
		}
		found = true
		_, err := e.stdout.Write(bib.Data)
		return false, err
	})
	if err != nil {
		return err
	}
	if !found {
		e.logger.Warn("record not found", "control_number", id)
	}
	return nil
}

func (e *env) orders(c *cli.Context) error {
	mode := c.String("sort")
	return e.eachBib(context.Background(), "orders", c.Args().Get(0), func(bib *sierramarc.Bib) (bool, error) {
		orders, err := bib.SortOrders(mode)
		if errors.Is(err, sierramarc.ErrInvalidSortMode) {
			return false, err
		}
		if err != nil {
			e.logger.Warn("orders skipped", "bib", bibKey(bib), "error", err)
			return true, nil
		}
		for _, o := range orders {
			created := ""
			if t, ok := o.Created(); ok {
				created = t.Format(time.DateOnly)
			}
			vendor, _ := o.Vendor()
			raw, _ := o.VendorNotes()
			notes, _ := sierramarc.NormalizeVendorNote(raw)
			_, err := fmt.Fprintln(e.stdout, strings.Join([]string{
				bibKey(bib),
				strconv.Itoa(o.OID()),
				created,
				vendor,
				strings.Join(o.Locations(), ","),
				notes,
			}, "\t"))
			if err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func (e *env) oclc(c *cli.Context) error {
	return e.eachBib(context.Background(), "oclc", c.Args().Get(0), func(bib *sierramarc.Bib) (bool, error) {
		nos := bib.OclcNumbers()
		tags := make([]string, 0, len(nos))
		for tag := range nos {
			tags = append(tags, tag)
		}
		slices.Sort(tags)
		for _, tag := range tags {
			if _, err := fmt.Fprintf(e.stdout, "%s\t%s\t%s\n", bibKey(bib), tag, nos[tag]); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func (e *env) export(c *cli.Context) error {
	enc := export.NewEncoder(e.stdout)
	supported := c.Bool("supported-subjects")
	return e.eachBib(context.Background(), "export", c.Args().Get(0), func(bib *sierramarc.Bib) (bool, error) {
		if supported {
			if n := bib.RemoveUnsupportedSubjects(); n > 0 {
				e.logger.Debug("unsupported subjects removed", "bib", bibKey(bib), "count", n)
			}
		}
		sum, err := export.FromBib(bib)
		if err != nil {
			e.logger.Warn("record skipped", "bib", bibKey(bib), "error", err)
			return true, nil
		}
		return true, enc.Encode(sum)
	})
}

func (e *env) index(c *cli.Context) error {
	ctx := context.Background()
	cfg := e.cfg.Store
	if v := c.String("driver"); v != "" {
		cfg.Driver = v
	}
	if v := c.String("dsn"); v != "" {
		cfg.DSN = v
	}
	st, err := store.Open(cfg, store.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	loadID := uuid.New()
	saved := 0
	err = e.eachBib(ctx, "index", c.Args().Get(0), func(bib *sierramarc.Bib) (bool, error) {
		sum, err := export.FromBib(bib)
		if err != nil {
			e.logger.Warn("record skipped", "bib", bibKey(bib), "error", err)
			return true, nil
		}
		if err := st.Save(ctx, sum, loadID); err != nil {
			if errors.Is(err, store.ErrMissingBibID) {
				e.logger.Warn("record skipped", "control_number", bib.ControlNum(), "error", err)
				return true, nil
			}
			return false, err
		}
		saved++
		return true, nil
	})
	e.metrics.RecordValue(metricLastRunSaved, float64(saved), map[string]string{labelCommand: "index"})
	e.logger.Info("index finished", "load_id", loadID, "saved", saved)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s\t%d\n", loadID, saved)
	return nil
}
