package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/scrapemapper/internal/config"
	"github.com/nao1215/scrapemapper/internal/database"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares archived runs of the same root.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [root-url]",
		Short: "Compare archived crawl runs of a site",
		Long: `Compare displays differences between the latest and a previous crawl of a site.

It shows:
- Pages that appeared since the previous run
- Pages that are no longer reachable
- Pages whose title or link counts changed

Runs are archived automatically after every crawl unless --no-archive is
given. Identical runs are detected by their digest.

Examples:
  # Compare the latest two runs
  scrapemapper compare https://example.com

  # List the archived runs of a site
  scrapemapper compare --list https://example.com

  # Compare the latest run with run 5
  scrapemapper compare --with-run-id 5 https://example.com

  # Compare with the first run since a date
  scrapemapper compare --since 2026-01-01 https://example.com

  # Output the comparison as JSON
  scrapemapper compare --json https://example.com

  # List all archived sites
  scrapemapper compare --list-roots`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List archived runs for the specified root URL")
	cmd.Flags().BoolP("list-roots", "L", false,
		"List all archived root URLs")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listRoots, err := cmd.Flags().GetBool("list-roots")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var root string
	if !listRoots {
		if len(args) == 0 {
			return errors.New("root URL is required (use --list-roots to see archived sites)")
		}
		root = args[0]
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	db, err := database.Open(dbDirFlag(cmd), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listRoots {
		return listArchivedRoots(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, out, db, root)
	}

	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	result, err := runComparison(ctx, db, root, withRunID, sinceDate)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// dbDirFlag returns the archive directory, falling back to the XDG data
// directory when the command runs without its parent.
func dbDirFlag(cmd *cobra.Command) string {
	if f := cmd.Flag("db-dir"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return config.XDGDataDir()
}

// listArchivedRoots lists every site with archived runs.
func listArchivedRoots(ctx context.Context, out io.Writer, db *database.RunDB) error {
	roots, err := db.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roots: %w", err)
	}

	if len(roots) == 0 {
		fmt.Fprintln(out, "No archived runs found in the database.")
		fmt.Fprintln(out, "\nUse 'scrapemapper <root-url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Archived sites (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Fprintf(out, "  • %s\n", root)
	}
	fmt.Fprintln(out, "\nUse 'scrapemapper compare --list <root-url>' to see the runs of a site.")

	return nil
}

// listRunHistory lists the archived runs of root.
func listRunHistory(ctx context.Context, out io.Writer, db *database.RunDB, root string) error {
	runs, err := db.GetRunHistory(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No archived runs found for %s\n", root)
		fmt.Fprintln(out, "\nUse 'scrapemapper <root-url>' to crawl this site.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", root, len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-9s  %s\n", "ID", "Date", "Pages", "Status", "Digest")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 62))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-9s  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.PageCount,
			runStatus(run.Partial),
			shortDigest(run.Digest),
		)
	}

	fmt.Fprintln(out, "\nUse 'scrapemapper compare <root-url>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'scrapemapper compare --with-run-id <id> <root-url>' to compare with a specific run.")

	return nil
}

// runComparison selects the two runs to compare and diffs their pages.
func runComparison(ctx context.Context, db *database.RunDB, root string, withRunID int64, sinceDate string) (*ComparisonResult, error) {
	runs, err := db.GetRunHistory(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("no archived runs found for %s", root)
	}

	if len(runs) < 2 && withRunID == 0 && sinceDate == "" {
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// The latest run is always the current one.
	current := runs[0]
	var previous database.RunMetadata

	switch {
	case withRunID > 0:
		run, err := db.GetRun(ctx, withRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if run.Root != root {
			return nil, fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, run.Root, root)
		}
		if run.ID == current.ID {
			return nil, fmt.Errorf("run ID %d is the latest run; choose an earlier run to compare with", withRunID)
		}
		previous = run.RunMetadata
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Runs are newest first, so walk backwards to the oldest match.
		found := false
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].StartedAt.Before(parsedDate) {
				previous = runs[i]
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no runs found since %s", sinceDate)
		}
		if previous.ID == current.ID {
			return nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", sinceDate)
		}
	default:
		previous = runs[1]
	}

	previousPages, err := db.GetPageRecords(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	currentPages, err := db.GetPageRecords(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	return compareRuns(previous, current, previousPages, currentPages), nil
}

// ComparisonResult holds the result of comparing two archived runs.
type ComparisonResult struct {
	// Root is the crawl root of both runs.
	Root string `json:"root"`

	// PreviousRun summarizes the older run.
	PreviousRun RunSummary `json:"previous_run"`

	// CurrentRun summarizes the newer run.
	CurrentRun RunSummary `json:"current_run"`

	// Identical is true when both runs produced the same sitemap.
	Identical bool `json:"identical"`

	// PagesAdded are pages only found by the current run.
	PagesAdded []string `json:"pages_added,omitempty"`

	// PagesRemoved are pages only found by the previous run.
	PagesRemoved []string `json:"pages_removed,omitempty"`

	// ChangedPages are pages found by both runs whose title or link counts differ.
	ChangedPages []PageChange `json:"changed_pages,omitempty"`

	// UnchangedCount is the number of pages found by both runs without changes.
	UnchangedCount int `json:"unchanged_count"`
}

// RunSummary contains the totals of one run.
type RunSummary struct {
	ID            int64     `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	Partial       bool      `json:"partial"`
	Digest        string    `json:"digest"`
	Pages         int       `json:"pages"`
	InternalLinks int       `json:"internal_links"`
	ExternalLinks int       `json:"external_links"`
	PageLinks     int       `json:"page_links"`
	MediaSources  int       `json:"media_sources"`
}

// PageChange describes how one page differs between two runs.
type PageChange struct {
	URL           string `json:"url"`
	PreviousTitle string `json:"previous_title"`
	CurrentTitle  string `json:"current_title"`
	InternalDelta int    `json:"internal_delta"`
	ExternalDelta int    `json:"external_delta"`
	PageDelta     int    `json:"page_delta"`
	MediaDelta    int    `json:"media_delta"`
}

// TitleChanged reports whether the page title differs.
func (c PageChange) TitleChanged() bool {
	return c.PreviousTitle != c.CurrentTitle
}

func (c PageChange) linksChanged() bool {
	return c.InternalDelta != 0 || c.ExternalDelta != 0 || c.PageDelta != 0 || c.MediaDelta != 0
}

// newRunSummary totals the page records of a run.
func newRunSummary(meta database.RunMetadata, pages []database.PageRecord) RunSummary {
	s := RunSummary{
		ID:        meta.ID,
		StartedAt: meta.StartedAt,
		Partial:   meta.Partial,
		Digest:    meta.Digest,
		Pages:     len(pages),
	}
	for _, p := range pages {
		s.InternalLinks += p.InternalLinks
		s.ExternalLinks += p.ExternalLinks
		s.PageLinks += p.PageLinks
		s.MediaSources += p.MediaSources
	}
	return s
}

// compareRuns diffs the pages of two runs. Pages are matched by URL.
// Added and removed pages keep the crawl order of their run.
func compareRuns(previous, current database.RunMetadata, previousPages, currentPages []database.PageRecord) *ComparisonResult {
	result := &ComparisonResult{
		Root:        current.Root,
		PreviousRun: newRunSummary(previous, previousPages),
		CurrentRun:  newRunSummary(current, currentPages),
	}

	if previous.Digest != "" && previous.Digest == current.Digest {
		result.Identical = true
		result.UnchangedCount = len(currentPages)
		return result
	}

	before := make(map[string]database.PageRecord, len(previousPages))
	for _, p := range previousPages {
		before[p.URL] = p
	}
	after := make(map[string]struct{}, len(currentPages))

	for _, p := range currentPages {
		after[p.URL] = struct{}{}
		old, ok := before[p.URL]
		if !ok {
			result.PagesAdded = append(result.PagesAdded, p.URL)
			continue
		}
		change := PageChange{
			URL:           p.URL,
			PreviousTitle: old.Title,
			CurrentTitle:  p.Title,
			InternalDelta: p.InternalLinks - old.InternalLinks,
			ExternalDelta: p.ExternalLinks - old.ExternalLinks,
			PageDelta:     p.PageLinks - old.PageLinks,
			MediaDelta:    p.MediaSources - old.MediaSources,
		}
		if !change.TitleChanged() && !change.linksChanged() {
			result.UnchangedCount++
			continue
		}
		result.ChangedPages = append(result.ChangedPages, change)
	}

	for _, p := range previousPages {
		if _, ok := after[p.URL]; !ok {
			result.PagesRemoved = append(result.PagesRemoved, p.URL)
		}
	}

	return result
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1f("Crawl Comparison: %s", result.Root)
	md.PlainText("")

	if result.Identical {
		md.Note("Both runs produced the same sitemap.")
		md.PlainText("")
	}

	prev, cur := result.PreviousRun, result.CurrentRun
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "#" + strconv.FormatInt(prev.ID, 10), "#" + strconv.FormatInt(cur.ID, 10), "-"},
			{"Date", prev.StartedAt.Local().Format("2006-01-02 15:04"), cur.StartedAt.Local().Format("2006-01-02 15:04"), "-"},
			{"Status", runStatus(prev.Partial), runStatus(cur.Partial), "-"},
			{"Pages", strconv.Itoa(prev.Pages), strconv.Itoa(cur.Pages), formatDelta(cur.Pages - prev.Pages)},
			{"Internal links", strconv.Itoa(prev.InternalLinks), strconv.Itoa(cur.InternalLinks), formatDelta(cur.InternalLinks - prev.InternalLinks)},
			{"External links", strconv.Itoa(prev.ExternalLinks), strconv.Itoa(cur.ExternalLinks), formatDelta(cur.ExternalLinks - prev.ExternalLinks)},
			{"In-page anchors", strconv.Itoa(prev.PageLinks), strconv.Itoa(cur.PageLinks), formatDelta(cur.PageLinks - prev.PageLinks)},
			{"Media sources", strconv.Itoa(prev.MediaSources), strconv.Itoa(cur.MediaSources), formatDelta(cur.MediaSources - prev.MediaSources)},
		},
	})
	md.PlainText("")

	if cur.Partial || prev.Partial {
		md.Warning("At least one run stopped early. Missing pages may not have been removed from the site.")
		md.PlainText("")
	}

	if len(result.PagesAdded) > 0 {
		md.H2f("Pages Added (%d)", len(result.PagesAdded))
		md.PlainText("")
		md.BulletList(result.PagesAdded...)
		md.PlainText("")
	}

	if len(result.PagesRemoved) > 0 {
		md.H2f("Pages Removed (%d)", len(result.PagesRemoved))
		md.PlainText("")
		md.BulletList(result.PagesRemoved...)
		md.PlainText("")
	}

	if len(result.ChangedPages) > 0 {
		md.H2f("Changed Pages (%d)", len(result.ChangedPages))
		md.PlainText("")
		rows := make([][]string, 0, len(result.ChangedPages))
		for _, c := range result.ChangedPages {
			title := "-"
			if c.TitleChanged() {
				title = fmt.Sprintf("%q → %q", c.PreviousTitle, c.CurrentTitle)
			}
			rows = append(rows, []string{
				c.URL,
				title,
				formatDelta(c.InternalDelta),
				formatDelta(c.ExternalDelta),
				formatDelta(c.PageDelta),
				formatDelta(c.MediaDelta),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Title", "Internal", "External", "Anchors", "Media"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d pages unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var sb strings.Builder
	prev, cur := result.PreviousRun, result.CurrentRun

	fmt.Fprintf(&sb, "Crawl Comparison: %s\n", result.Root)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "\nPrevious run: #%d  %s  %s\n", prev.ID, prev.StartedAt.Local().Format("2006-01-02 15:04:05"), runStatus(prev.Partial))
	fmt.Fprintf(&sb, "Current run:  #%d  %s  %s\n", cur.ID, cur.StartedAt.Local().Format("2006-01-02 15:04:05"), runStatus(cur.Partial))

	if result.Identical {
		sb.WriteString("\nNo changes: both runs produced the same sitemap.\n")
	}

	rows := []struct {
		label     string
		prev, cur int
	}{
		{"Pages", prev.Pages, cur.Pages},
		{"Internal", prev.InternalLinks, cur.InternalLinks},
		{"External", prev.ExternalLinks, cur.ExternalLinks},
		{"Anchors", prev.PageLinks, cur.PageLinks},
		{"Media", prev.MediaSources, cur.MediaSources},
	}
	sb.WriteString("\nTotals:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", r.label, r.prev, r.cur, formatDelta(r.cur-r.prev))
	}

	if len(result.PagesAdded) > 0 {
		fmt.Fprintf(&sb, "\nPages Added (%d):\n", len(result.PagesAdded))
		for _, u := range result.PagesAdded {
			fmt.Fprintf(&sb, "  [+] %s\n", u)
		}
	}

	if len(result.PagesRemoved) > 0 {
		fmt.Fprintf(&sb, "\nPages Removed (%d):\n", len(result.PagesRemoved))
		for _, u := range result.PagesRemoved {
			fmt.Fprintf(&sb, "  [-] %s\n", u)
		}
	}

	if len(result.ChangedPages) > 0 {
		fmt.Fprintf(&sb, "\nChanged Pages (%d):\n", len(result.ChangedPages))
		for _, c := range result.ChangedPages {
			fmt.Fprintf(&sb, "  [~] %s\n", c.URL)
			if c.TitleChanged() {
				fmt.Fprintf(&sb, "      title: %q -> %q\n", c.PreviousTitle, c.CurrentTitle)
			}
			if deltas := formatPageDeltas(c); deltas != "" {
				fmt.Fprintf(&sb, "      links: %s\n", deltas)
			}
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d pages\n", result.UnchangedCount)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

// formatPageDeltas lists the non-zero link count changes of a page.
func formatPageDeltas(c PageChange) string {
	var parts []string
	for _, d := range []struct {
		name  string
		delta int
	}{
		{"internal", c.InternalDelta},
		{"external", c.ExternalDelta},
		{"anchors", c.PageDelta},
		{"media", c.MediaDelta},
	} {
		if d.delta != 0 {
			parts = append(parts, d.name+" "+formatDelta(d.delta))
		}
	}
	return strings.Join(parts, ", ")
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}

func runStatus(partial bool) string {
	if partial {
		return "Partial"
	}
	return "Complete"
}

// shortDigest abbreviates a digest for tables.
func shortDigest(digest string) string {
	const n = 12
	if len(digest) <= n {
		return digest
	}
	return digest[:n]
}
