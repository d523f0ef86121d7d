package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// BatchOptions holds flags shared by check and import.
type BatchOptions struct {
	Statuses []string
}

func (o *BatchOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.Statuses, "status", nil,
		"only list rows with these statuses, e.g. --status invalid,duplicate")
}

// statusFilter parses --status values into a lookup set.
func (o *BatchOptions) statusFilter() (map[sermonimport.Status]bool, error) {
	if len(o.Statuses) == 0 {
		return nil, nil
	}
	only := make(map[sermonimport.Status]bool, len(o.Statuses))
	for _, code := range o.Statuses {
		st, err := sermonimport.ParseStatus(code)
		if err != nil {
			return nil, err
		}
		only[st] = true
	}
	return only, nil
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{}
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Classify a batch without writing anything",
		Long: `Check reads a batch of sermon rows and reports, per row, whether it is new,
already exists, is a duplicate within the file, or is invalid.

Use "-" to read the batch from stdin.

Example:
  sermonctl check schedule.json
  sermonctl check --format json schedule.yaml
  sermonctl check --status invalid,duplicate schedule.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, rootOpts, opts, args[0], false)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{}
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Check a batch and write new and changed sermons",
		Long: `Import runs the same classification as check and then creates new sermons
and updates existing ones whose title, speaker or collections differ.

Example:
  sermonctl import schedule.json
  DB_DRIVER=sqlite DB_SQLITE_PATH=./sermons.db sermonctl import schedule.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, rootOpts, opts, args[0], true)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, opts *RootOptions, batchOpts *BatchOptions, path string, write bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	only, err := batchOpts.statusFilter()
	if err != nil {
		formatter.Error(err)
		return WrapExitError(ExitCommandError, "invalid --status", err)
	}

	rows, err := LoadRows(path, cmd.InOrStdin())
	if err != nil {
		formatter.Error(err)
		return WrapExitError(ExitCommandError, "failed to load batch", err)
	}
	formatter.VerboseLog("loaded %d rows from %s", len(rows), path)

	ctx := cmd.Context()
	svc, closeStore, err := opts.openService(ctx)
	if err != nil {
		formatter.Error(err)
		return err
	}
	defer closeStore()

	op, run := "check", svc.Check
	if write {
		op, run = "import", svc.Import
	}

	results, err := run(ctx, rows)
	if err != nil {
		formatter.Error(err)
		return WrapExitError(ExitCommandError, op+" failed", err)
	}

	if err := formatter.Rows(results, only); err != nil {
		return err
	}

	if n := countRejected(results, write); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d row(s) rejected", op, n))
	}
	return nil
}

// countRejected counts rows the caller has to act on. An import also fails
// for rows whose write failed.
func countRejected(rows []sermonimport.ResultRow, write bool) int {
	n := 0
	for _, row := range rows {
		switch row.Status {
		case sermonimport.StatusInvalid, sermonimport.StatusEmpty:
			n++
		case sermonimport.StatusError:
			if write {
				n++
			}
		}
	}
	return n
}
