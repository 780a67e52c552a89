// Package output renders resolution reports for the terminal: a sectioned
// table with one block per entity, a plain line-oriented form, or JSON.
package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/apimgr/sfind/src/model"
)

// Dracula theme
const (
	foreground = lipgloss.Color("#f8f8f2")
	comment    = lipgloss.Color("#6272a4")
	cyan       = lipgloss.Color("#8be9fd")
	green      = lipgloss.Color("#50fa7b")
	pink       = lipgloss.Color("#ff79c6")
	red        = lipgloss.Color("#ff5555")
	yellow     = lipgloss.Color("#f1fa8c")
)

var (
	idStyle      = lipgloss.NewStyle().Bold(true)
	fieldStyle   = lipgloss.NewStyle().Foreground(cyan)
	valueStyle   = lipgloss.NewStyle().Foreground(green)
	dateStyle    = lipgloss.NewStyle().Foreground(yellow)
	missingStyle = lipgloss.NewStyle().Foreground(comment)
	warningStyle = lipgloss.NewStyle().Foreground(red).Bold(true)

	kindStyles = map[model.EntityKind]lipgloss.Style{
		model.KindAccount:     lipgloss.NewStyle().Foreground(foreground).Bold(true),
		model.KindContact:     lipgloss.NewStyle().Foreground(pink).Bold(true),
		model.KindAsset:       lipgloss.NewStyle().Foreground(yellow).Bold(true),
		model.KindOpportunity: lipgloss.NewStyle().Foreground(green).Bold(true),
	}
)

const missingValue = "<missing>"

// Renderer writes reports to a terminal or file.
type Renderer struct {
	w      io.Writer
	fields model.FieldConfig
	color  bool
}

// NewRenderer creates a renderer. Colors are only emitted when color is
// true; callers disable it for non-terminal output or --no-color.
func NewRenderer(w io.Writer, fields model.FieldConfig, color bool) *Renderer {
	return &Renderer{w: w, fields: fields, color: color}
}

// Render writes the report in the requested format. Formats other than
// "json" and "plain" fall back to the sectioned table.
func (r *Renderer) Render(report *model.Report, format string) error {
	switch format {
	case "json":
		return report.ToJSON(r.w, true)
	case "plain":
		r.renderPlain(report)
	default:
		r.renderTable(report)
	}
	return nil
}

func (r *Renderer) renderTable(report *model.Report) {
	r.section(report.Root.Kind.String(), report.Root)

	counts := make(map[string]int)
	for _, e := range report.Related {
		title := e.Kind.String()
		if e.Label != model.KindAccount.RelationshipLabel() {
			counts[e.Label]++
			title = fmt.Sprintf("%s #%d", e.Kind, counts[e.Label])
		}
		r.section(title, e)
	}

	for _, w := range report.Warnings {
		fmt.Fprintln(r.w, r.styled(warningStyle, "warning: "+w.Message))
	}
}

// section prints one entity as a titled block of field rows. The id lives in
// the title, so the Id field is not repeated as a row.
func (r *Renderer) section(title string, e model.Entity) {
	fmt.Fprintf(r.w, "%s  %s\n", r.styled(titleStyle(e.Kind), title), r.styled(idStyle, e.ID))

	rows := r.rowFields(e)
	width := 0
	for _, field := range rows {
		if len(field) > width {
			width = len(field)
		}
	}
	for _, field := range rows {
		name := fmt.Sprintf("%-*s", width, field)
		text, style := r.fieldValue(e.Fields, field)
		fmt.Fprintf(r.w, "  %s  %s\n", r.styled(fieldStyle, name), r.styled(style, text))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) renderPlain(report *model.Report) {
	r.plainSection(report.Root)
	for _, e := range report.Related {
		r.plainSection(e)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(r.w, "warning: %s\n", w.Message)
	}
}

func (r *Renderer) plainSection(e model.Entity) {
	fmt.Fprintf(r.w, "%s %s (%s)\n", e.Kind, e.ID, e.Label)
	for _, field := range r.rowFields(e) {
		text, _ := r.fieldValue(e.Fields, field)
		fmt.Fprintf(r.w, "%s: %s\n", field, text)
	}
	fmt.Fprintln(r.w)
}

// rowFields returns the fields to print for an entity: every configured
// field for its kind except Id, then any remaining record fields sorted by
// name. Nothing fetched is dropped.
func (r *Renderer) rowFields(e model.Entity) []string {
	configured := r.fields.FieldsFor(e.Kind)
	rows := make([]string, 0, len(configured)+len(e.Fields))
	for _, field := range configured {
		if field == "Id" {
			continue
		}
		rows = append(rows, field)
	}
	return append(rows, extraFields(e.Fields, configured)...)
}

// fieldValue resolves one field to its display text and style. Configured
// fields that are absent or null render as a placeholder; compound fields
// such as BillingAddress are assembled from their flattened components.
func (r *Renderer) fieldValue(rec model.RawRecord, field string) (string, lipgloss.Style) {
	v, ok := rec[field]
	if !ok {
		if s := compoundValue(rec, field); s != "" {
			return s, valueStyle
		}
		return missingValue, missingStyle
	}
	if v == nil {
		return missingValue, missingStyle
	}
	text := formatScalar(v)
	if strings.Contains(field, "Date") {
		return cleanDate(text), dateStyle
	}
	return text, valueStyle
}

func (r *Renderer) styled(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

func titleStyle(kind model.EntityKind) lipgloss.Style {
	if style, ok := kindStyles[kind]; ok {
		return style
	}
	return idStyle
}

// extraFields lists record fields not covered by the configured set, so
// user-invisible additions (foreign keys, server extras) still show up.
func extraFields(rec model.RawRecord, configured []string) []string {
	var extras []string
	for key := range rec {
		if key == "Id" || coveredBy(key, configured) {
			continue
		}
		extras = append(extras, key)
	}
	sort.Strings(extras)
	return extras
}

func coveredBy(key string, configured []string) bool {
	for _, field := range configured {
		if key == field || strings.HasPrefix(key, field+".") {
			return true
		}
	}
	return false
}

// compoundValue joins the flattened components of a compound field, for
// instance BillingAddress.city and BillingAddress.country, into one row.
func compoundValue(rec model.RawRecord, field string) string {
	prefix := field + "."
	var keys []string
	for key := range rec {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if rec[key] == nil {
			continue
		}
		parts = append(parts, strings.TrimPrefix(key, prefix)+": "+formatScalar(rec[key]))
	}
	return strings.Join(parts, ", ")
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// cleanDate strips the constant zero-offset suffix the remote service puts
// on timestamps and separates date and time with a space.
func cleanDate(s string) string {
	s = strings.ReplaceAll(s, ".000+0000", "")
	return strings.ReplaceAll(s, "T", " ")
}
