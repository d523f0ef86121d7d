package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	From string
	To   string
	ICS  string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List persisted events in a date range",
		Long: `Events lists persisted events with their sermons. Dates are ISO-8601;
a date without a time covers the whole day. Without --from/--to the
calendar window from CALENDAR_DEFAULT_DAYS_BACK/AHEAD is used.

With --ics the range is written as an iCalendar file instead ("-" for stdout).

Example:
  sermonctl events --from 2024-03-01 --to 2024-03-31
  sermonctl events --ics sermons.ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "start of range (ISO-8601)")
	cmd.Flags().StringVar(&opts.To, "to", "", "end of range (ISO-8601)")
	cmd.Flags().StringVar(&opts.ICS, "ics", "", "write an iCalendar feed to this file")

	return cmd
}

func runEvents(cmd *cobra.Command, opts *EventsOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	svc, closeStore, err := opts.openService(ctx)
	if err != nil {
		formatter.Error(err)
		return err
	}
	defer closeStore()

	from, to, err := svc.ResolveRange(opts.From, opts.To, time.Now())
	if err != nil {
		formatter.Error(err)
		return WrapExitError(ExitCommandError, "invalid range", err)
	}
	formatter.VerboseLog("range %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	if opts.ICS != "" {
		return writeFeed(cmd, opts.ICS, func(w io.Writer) error {
			feed, err := svc.CalendarFeed(ctx, from, to)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, feed)
			return err
		})
	}

	events, err := svc.Events(ctx, from, to)
	if err != nil {
		formatter.Error(err)
		return WrapExitError(ExitCommandError, "list events failed", err)
	}
	return formatter.Events(events)
}

func writeFeed(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "create "+path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return WrapExitError(ExitCommandError, "write feed", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitCommandError, "write feed", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
