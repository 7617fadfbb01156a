package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/PillScope/internal/application/identification"
	"github.com/turtacn/PillScope/internal/domain/lasa"
	"github.com/turtacn/PillScope/internal/domain/pill"
)

// tableProvider is implemented by results that have a tabular form.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// textProvider is implemented by results that have a human-readable form.
type textProvider interface {
	Text() string
}

// jsonProvider returns the value encoded for --output json.
type jsonProvider interface {
	JSONValue() interface{}
}

// PrintResult outputs data in the requested format. Results without a
// table form fall back to text.
func PrintResult(cmd *cobra.Command, format string, data interface{}) error {
	switch strings.ToLower(format) {
	case "json":
		return printJSON(cmd, data)
	case "table":
		if tp, ok := data.(tableProvider); ok {
			fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
			return nil
		}
	}
	return printText(cmd, data)
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	if jp, ok := data.(jsonProvider); ok {
		data = jp.JSONValue()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case textProvider:
		fmt.Fprintln(cmd.OutOrStdout(), v.Text())
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// FormatTable renders headers and rows with tablewriter.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return buf.String()
}

func label(s string) string { return color.New(color.Bold).Sprint(s) }

func cacheMark(hit bool) string {
	if hit {
		return color.GreenString("hit")
	}
	return color.YellowString("miss")
}

func joinStages(stages []pill.Stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = string(s)
	}
	return strings.Join(parts, " > ")
}

func formatDescription(d map[string]string) string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + d[k]
	}
	return strings.Join(parts, ", ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

type identifyView struct{ *identification.IdentifyResult }

func (v identifyView) JSONValue() interface{} { return v.IdentifyResult }

func (v identifyView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", label("Imprint:"), v.ImprintNumber)
	fmt.Fprintf(&sb, "%s %s\n", label("Medicine:"), v.Canonical.GenericName)
	fmt.Fprintf(&sb, "%s %s\n", label("Label cache:"), cacheMark(v.CacheHit))
	fmt.Fprintf(&sb, "%s %s\n", label("Stages:"), joinStages(v.Stages))
	if len(v.Candidates) > 1 {
		others := make([]string, 0, len(v.Candidates)-1)
		for _, c := range v.Candidates[1:] {
			others = append(others, c.GenericName)
		}
		fmt.Fprintf(&sb, "%s %s\n", label("Other candidates:"), strings.Join(others, ", "))
	}
	fmt.Fprintf(&sb, "\n%s", v.Summary)
	return sb.String()
}

func (v identifyView) TableHeaders() []string {
	return []string{"Rank", "Imprint", "Medicine", "Confidence", "Description"}
}

func (v identifyView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Candidates))
	for _, c := range v.Candidates {
		rows = append(rows, []string{
			strconv.Itoa(c.Rank),
			c.Imprint,
			c.GenericName,
			strconv.FormatFloat(c.Confidence, 'f', 2, 64),
			formatDescription(c.Description),
		})
	}
	return rows
}

type conversationView struct {
	*identification.ConversationResult
}

func (v conversationView) JSONValue() interface{} { return v.ConversationResult }

func (v conversationView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s (%s)\n", label("Medicine:"), v.GenericName, v.ImprintNumber)
	if v.Message != "" {
		fmt.Fprintf(&sb, "%s\n", color.YellowString(v.Message))
	}
	fmt.Fprintf(&sb, "\n%s", v.Explanation)
	return sb.String()
}

type correctionView struct {
	*identification.CorrectionResult
}

func (v correctionView) JSONValue() interface{} { return v.CorrectionResult }

func (v correctionView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", label("Reported:"), v.ReportedName)
	fmt.Fprintf(&sb, "%s %s\n", label("Likely meant:"), color.CyanString(v.AlternateName))
	fmt.Fprintf(&sb, "\n%s", v.Summary)
	return sb.String()
}

func (v correctionView) TableHeaders() []string {
	return []string{"Reported", "Alternate", "Alternate purpose"}
}

func (v correctionView) TableRows() [][]string {
	return [][]string{{v.ReportedName, v.AlternateName, v.AlternatePurpose}}
}

type extractView struct{ *identification.ExtractResult }

func (v extractView) JSONValue() interface{} { return v.ExtractResult }

func (v extractView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", label("Imprint:"), v.ImprintCode)
	if v.ImageURL != "" {
		fmt.Fprintf(&sb, "\n%s %s", label("Image:"), v.ImageURL)
	}
	return sb.String()
}

func (v extractView) TableHeaders() []string { return []string{"#", "Text", "Confidence"} }

func (v extractView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Detections))
	for i, d := range v.Detections {
		rows = append(rows, []string{strconv.Itoa(i + 1), d.Text, strconv.FormatFloat(d.Confidence, 'f', 1, 64)})
	}
	return rows
}

type lasaView []lasa.Entry

func (v lasaView) JSONValue() interface{} { return []lasa.Entry(v) }

func (v lasaView) Text() string {
	lines := make([]string, len(v))
	for i, e := range v {
		lines[i] = e.Name + " -> " + e.Confusable
	}
	return strings.Join(lines, "\n")
}

func (v lasaView) TableHeaders() []string { return []string{"Name", "Often confused with"} }

func (v lasaView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, e := range v {
		rows[i] = []string{e.Name, e.Confusable}
	}
	return rows
}

type cacheView struct{ identification.CacheEntryInfo }

func (v cacheView) JSONValue() interface{} { return v.CacheEntryInfo }

func (v cacheView) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", label("Key:"), v.Key)
	switch {
	case !v.Present:
		fmt.Fprintf(&sb, "%s absent", label("State:"))
	case v.Corrupt:
		fmt.Fprintf(&sb, "%s %s (ttl %s)", label("State:"), color.RedString("corrupt"), v.TTL)
	default:
		fmt.Fprintf(&sb, "%s live (ttl %s)", label("State:"), v.TTL)
		if v.Record != nil {
			fmt.Fprintf(&sb, "\n%s %s", label("Purpose:"), v.Record.Purpose)
		}
	}
	return sb.String()
}

func (v cacheView) TableHeaders() []string { return []string{"Key", "Present", "TTL", "Corrupt"} }

func (v cacheView) TableRows() [][]string {
	return [][]string{{v.Key, strconv.FormatBool(v.Present), v.TTL.String(), strconv.FormatBool(v.Corrupt)}}
}

//Personal.AI order the ending
