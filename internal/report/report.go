// Package report renders the outcome of a run for people: a summary table
// for the terminal and a markdown report listing every change and finding.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/packsync"
	"github.com/agentstation/packsync/pkg/constants"
	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/errors"
)

var titler = cases.Title(language.English)

// KindTitle renders a diagnostic kind for headings, e.g. "Match Gap".
func KindTitle(k diagnostics.Kind) string {
	return titler.String(strings.ReplaceAll(string(k), "_", " "))
}

// WriteSummary writes the run totals as a table.
func WriteSummary(w io.Writer, res *packsync.Result) error {
	config := tablewriter.Config{}
	align := []tw.Align{tw.AlignLeft, tw.AlignRight}
	config.Header.Alignment = tw.CellAlignment{PerColumn: align}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header("Metric", "Value")

	persisted := "Documents persisted"
	written := res.Store.Persisted
	if res.DryRun {
		persisted = "Documents not written (dry run)"
		written = res.Store.Suppressed
	}
	rows := [][]any{
		{"Records", res.Records},
		{"Skipped hits", res.Skipped},
		{"Matches", res.Matches},
		{"Documents opened", res.Store.Opened},
		{"Field changes", len(res.Changes)},
		{persisted, written},
	}
	counts := res.DiagnosticCounts()
	for _, k := range diagnostics.Kinds {
		rows = append(rows, []any{KindTitle(k), counts[k]})
	}
	for _, row := range rows {
		if err := table.Append(row[0], strconv.Itoa(row[1].(int))); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteMarkdown writes the full report.
func WriteMarkdown(w io.Writer, res *packsync.Result) error {
	doc := md.NewMarkdown(w)
	doc.H1("packsync report")
	doc.BulletList(
		"Run: "+res.RunID,
		"Store: "+res.Root,
		fmt.Sprintf("Dry run: %t", res.DryRun),
		"Duration: "+res.Duration.String(),
		res.Summary(),
	).LF()

	doc.H2("Changes")
	if len(res.Changes) == 0 {
		doc.PlainText("No field changed.").LF()
	} else {
		rows := make([][]string, 0, len(res.Changes))
		for _, c := range res.Changes {
			newValue := formatValue(c.New)
			if c.Deleted {
				newValue = "(deleted)"
			}
			rows = append(rows, []string{c.Location.String(), c.Path, formatValue(c.Old), newValue})
		}
		doc.Table(md.TableSet{
			Header: []string{"Document", "Path", "Old", "New"},
			Rows:   rows,
		})
	}

	var diags diagnostics.Collector
	diags.Merge(res.Diagnostics)
	for _, k := range diagnostics.Kinds {
		items := diags.ByKind(k)
		doc.H2(fmt.Sprintf("%s (%d)", KindTitle(k), len(items)))
		if len(items) == 0 {
			doc.PlainText("None.").LF()
			continue
		}
		rows := make([][]string, 0, len(items))
		for _, d := range items {
			rows = append(rows, []string{d.Record, d.Location, d.Message})
		}
		doc.Table(md.TableSet{
			Header: []string{"Record", "Document", "Message"},
			Rows:   rows,
		})
	}

	if len(res.MultiHits) > 0 {
		doc.H2("Documents matched by several records")
		items := make([]string, 0, len(res.MultiHits))
		for _, mh := range res.MultiHits {
			items = append(items, mh.Location.String()+": "+strings.Join(mh.Records, "; "))
		}
		doc.BulletList(items...).LF()
	}

	if len(res.Allowlist) > 0 {
		doc.H2("Known unmatched documents")
		rows := make([][]string, 0, len(res.Allowlist))
		for _, a := range res.Allowlist {
			rows = append(rows, []string{a.Location.String(), a.Reason})
		}
		doc.Table(md.TableSet{
			Header: []string{"Document", "Reason"},
			Rows:   rows,
		})
	}
	return doc.Build()
}

// WriteMarkdownFile writes the markdown report to path.
func WriteMarkdownFile(path string, res *packsync.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := WriteMarkdown(f, res); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

// formatValue renders a document value compactly as JSON.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
