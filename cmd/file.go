package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/notify"
	"thoreinstein.com/intake/pkg/report"
	"thoreinstein.com/intake/pkg/ui"
)

// FileOptions holds flags for the file command.
type FileOptions struct {
	Yes    bool
	DryRun bool
}

var fileOptions FileOptions

// fileCmd files a report written by hand.
var fileCmd = &cobra.Command{
	Use:   "file <draft.yaml>",
	Short: "File a report from a YAML draft",
	Long: `File a report from a YAML draft without a conversation.

The draft maps field names to values:

  description: The export button does nothing
  expected_behaviour: A CSV download starts
  steps_to_reproduce: Open Reports, click Export
  priority: High
  issue_type: bug
  browser: Firefox 131

The summary is printed and filed after you confirm it.

Examples:
  intake file draft.yaml             # Confirm interactively
  intake file draft.yaml --yes       # Skip the confirmation
  intake file draft.yaml --dry-run   # Print the summary, file into memory`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		logger := slog.Default()

		trk, err := newTracker(ctx, cfg, fileOptions.DryRun, os.Stderr, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, intakeerrors.FormatUserError(err))
			return err
		}

		notifier, err := newNotifier(&cfg.Notify, logger, notify.NewWriter(os.Stdout))
		if err != nil {
			return err
		}

		session := report.NewSession(trk, sessionOptions(cfg, logger, notifier)...)
		defer session.Close()

		return runFile(ctx, args[0], fileOptions, session, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(fileCmd)

	fileCmd.Flags().BoolVarP(&fileOptions.Yes, "yes", "y", false, "File without asking for confirmation")
	fileCmd.Flags().BoolVar(&fileOptions.DryRun, "dry-run", false, "Keep the filed report in memory instead of a tracker")
}

func runFile(ctx context.Context, path string, opts FileOptions, session *report.Session, in io.Reader, out io.Writer) error {
	draft, err := loadDraft(path)
	if err != nil {
		return err
	}

	if err := applyDraft(session, draft, out); err != nil {
		return err
	}

	summary, err := session.RequestSummary()
	if err != nil {
		return err
	}
	session.Publish(ctx, notify.KindSummary, summary.Text())

	if !opts.Yes {
		ok, err := ui.NewTerminal(in, out).Confirm("File this report?", false)
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrap(err, "failed to read confirmation")
		}
		if !ok {
			fmt.Fprintln(out, "Aborted. Nothing was filed.")
			return nil
		}
	}

	if _, err := session.Confirm(); err != nil {
		return err
	}

	url, err := session.Submit(ctx)
	if err != nil {
		fmt.Fprintln(out, intakeerrors.FormatUserError(err))
		return err
	}

	if verbose {
		fmt.Fprintf(out, "Filed as %s\n", url)
	}
	return nil
}

// loadDraft reads a YAML mapping of field names to values.
func loadDraft(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read draft %s", path)
	}

	var draft map[string]string
	if err := yaml.Unmarshal(data, &draft); err != nil {
		return nil, errors.Wrapf(err, "failed to parse draft %s", path)
	}
	if len(draft) == 0 {
		return nil, errors.Newf("draft %s has no fields", path)
	}
	return draft, nil
}

// applyDraft saves draft values in field order. Unknown names are rejected
// before anything is saved.
func applyDraft(session *report.Session, draft map[string]string, out io.Writer) error {
	known := make(map[string]bool)
	for _, name := range report.FieldNames() {
		known[name] = true
	}

	var unknown []string
	for name := range draft {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Newf("unknown fields in draft: %s (valid fields: %s)",
			strings.Join(unknown, ", "), strings.Join(report.FieldNames(), ", "))
	}

	for _, name := range report.FieldNames() {
		value, ok := draft[name]
		if !ok {
			continue
		}
		result, err := session.SetFieldByName(name, value)
		if err != nil {
			return errors.Wrapf(err, "field %s", name)
		}
		if result.Warning != "" {
			fmt.Fprintf(out, "Warning: %s: %s\n", name, result.Warning)
		}
	}
	return nil
}
