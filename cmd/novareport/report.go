package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/archive"
	"github.com/david-andreasson/novareport/internal/state"
	"github.com/david-andreasson/novareport/pkg/summary"
	"github.com/david-andreasson/novareport/pkg/surface"
)

type reportOpts struct {
	archive bool
	date    string
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var opts reportOpts

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the latest daily report",
		Long: `Fetches the latest daily report and renders its summary as text, JSON or HTML.
With --archive the raw report is also stored in the configured archive.
With --date a previously archived report is shown without contacting the backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Store the fetched report in the archive")
	cmd.Flags().StringVar(&opts.date, "date", "", "Show the archived report for this date (YYYY-MM-DD)")

	return cmd
}

func runReport(ctx context.Context, a *app, opts reportOpts) error {
	var (
		report *api.DailyReport
		err    error
	)
	if opts.date != "" {
		report, err = loadArchivedReport(ctx, a, opts.date)
		if err != nil {
			return err
		}
		a.store.Dispatch(state.ReportLoaded{Report: report})
	} else {
		if err := a.requireSession(); err != nil {
			return err
		}
		a.store.Dispatch(state.ReportRequested{})
		report, err = a.client.LatestReport(ctx)
		if err != nil {
			a.store.Dispatch(state.ReportFailed{Err: err})
			return a.handleAuthError(err)
		}
		a.store.Dispatch(state.ReportLoaded{Report: report})
	}

	rs := a.store.Snapshot().Report
	if rs.Report == nil {
		fmt.Fprintln(a.out, "Ingen rapport har publicerats ännu.")
		return nil
	}

	if opts.archive && opts.date == "" {
		if err := archiveReport(ctx, a, rs.Report); err != nil {
			return err
		}
	}

	return renderReport(a, rs.Report, *rs.Document)
}

func loadArchivedReport(ctx context.Context, a *app, date string) (*api.DailyReport, error) {
	storage, err := archive.New(ctx, a.cfg.Archive)
	if err != nil {
		return nil, err
	}
	data, err := storage.GetReport(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("read archived report %s: %w", date, err)
	}
	var r api.DailyReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode archived report %s: %w", date, err)
	}
	return &r, nil
}

func archiveReport(ctx context.Context, a *app, r *api.DailyReport) error {
	d, err := r.Date()
	if err != nil {
		return err
	}
	date := d.Format(time.DateOnly)

	storage, err := archive.New(ctx, a.cfg.Archive)
	if err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := storage.PutReport(ctx, date, data); err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "Arkiverad: %s\n", storage.Ref(date))
	return nil
}

type reportJSON struct {
	ReportDate string          `json:"reportDate"`
	ReportID   string          `json:"reportId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt,omitzero"`
	Summary    json.RawMessage `json:"summary"`
}

func renderReport(a *app, r *api.DailyReport, doc summary.Document) error {
	header := surface.ReportHeader(r.Timestamp())

	switch a.format {
	case "json":
		var buf bytes.Buffer
		if err := (&surface.JSONRenderer{}).Render(&buf, doc); err != nil {
			return err
		}
		return a.printJSON(reportJSON{
			ReportDate: r.ReportDate,
			ReportID:   r.Key(),
			CreatedAt:  r.CreatedAt,
			Summary:    json.RawMessage(buf.Bytes()),
		})
	case "html":
		return (&surface.HTMLRenderer{Title: header}).Render(a.out, doc)
	default:
		fmt.Fprintf(a.out, "%s\n\n", header)
		return (&surface.TerminalRenderer{Width: a.cfg.Output.Width}).Render(a.out, doc)
	}
}
