package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/xcs-tools/bcg-ident/lib/history"
	"gopkg.in/yaml.v3"
)

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	keyStyle   = lipgloss.NewStyle().Bold(true)
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

func renderOK(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", okStyle.Render("OK"), fmt.Sprintf(format, args...))
}

// reportedError marks an error that has already been explained to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// renderFailure explains err, naming the field for drift and guarded-field
// errors, and returns err marked as reported.
func renderFailure(w io.Writer, err error) error {
	var drift *history.DriftError
	var guarded *history.GuardedFieldError
	switch {
	case errors.As(err, &drift):
		fmt.Fprintf(w, "%s configuration drift in %s\n", failStyle.Render("FAIL"), fieldStyle.Render(drift.Field))
		fmt.Fprintf(w, "  history:    %s\n", compact(drift.Recorded))
		fmt.Fprintf(w, "  configured: %s\n", compact(drift.Declared))
		fmt.Fprintln(w, dimStyle.Render("  revert the configuration or start a new project"))
	case errors.As(err, &guarded):
		fmt.Fprintf(w, "%s %s is fixed for this project\n", failStyle.Render("FAIL"), fieldStyle.Render(guarded.Field))
	case errors.Is(err, history.ErrMissingProject):
		fmt.Fprintf(w, "%s no project history found; run %s first\n", failStyle.Render("FAIL"), keyStyle.Render("bcgident setup"))
	default:
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAIL"), err)
	}
	return &reportedError{err: err}
}

// renderRecord prints one key per line in sorted order.
func renderRecord(w io.Writer, rec history.Record) {
	keys := lo.Keys(rec)
	slices.Sort(keys)
	width := lo.Max(lo.Map(keys, func(k string, _ int) int { return len(k) }))
	guarded := history.GuardedFields()
	for _, k := range keys {
		label := keyStyle.Width(width + 2).Render(k)
		line := label + compact(rec[k])
		if slices.Contains(guarded, k) {
			line += dimStyle.Render("  (guarded)")
		}
		fmt.Fprintln(w, line)
	}
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(v)); err != nil {
		return err
	}
	return enc.Close()
}

// plainNumbers replaces json.Number values with int64 or float64 so YAML
// prints them as numbers rather than quoted strings.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case history.Record:
		return plainNumbers(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plainNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainNumbers(e)
		}
		return out
	}
	return v
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(data))
}
