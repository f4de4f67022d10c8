package history

import (
	"bytes"
	"encoding/json"
	"io"
	"slices"

	"github.com/samber/oops"
)

// Guarded field names.
const (
	FieldProjectName    = "project_name"
	FieldChosenMissions = "chosen_missions"
	FieldCosmoRepr      = "cosmo_repr"
	FieldSideLength     = "side_length"
)

// Record is the decoded history document. Numbers are held as json.Number.
type Record map[string]any

// Entry is one set of keys to merge into a Record.
type Entry map[string]any

// Declared is the configuration the current process runs under.
type Declared struct {
	ProjectName    string
	ChosenMissions []string
	CosmoRepr      string
	// SideLength is in kpc.
	SideLength float64
}

// value returns the declared value for a guarded field in its JSON shape.
func (d Declared) value(field string) any {
	switch field {
	case FieldProjectName:
		return d.ProjectName
	case FieldChosenMissions:
		return append([]string(nil), d.ChosenMissions...)
	case FieldCosmoRepr:
		return d.CosmoRepr
	case FieldSideLength:
		return d.SideLength
	}
	return nil
}

// record builds the initial record for a new project.
func (d Declared) record() Record {
	return Record{
		FieldProjectName:    d.ProjectName,
		FieldChosenMissions: append([]string(nil), d.ChosenMissions...),
		FieldCosmoRepr:      d.CosmoRepr,
		FieldSideLength:     d.SideLength,
	}
}

type guardedField struct {
	name   string
	reason string
	match  func(v any, d Declared) bool
}

// guardedFields are checked in this order by Load.
var guardedFields = []guardedField{
	{
		name:   FieldProjectName,
		reason: "the current project name is different from the history file value",
		match: func(v any, d Declared) bool {
			s, ok := v.(string)
			return ok && s == d.ProjectName
		},
	},
	{
		name: FieldChosenMissions,
		reason: "chosen missions in the history file are different than currently configured; " +
			"adding new missions to an identification project is not supported",
		match: func(v any, d Declared) bool {
			got, ok := stringSlice(v)
			return ok && slices.Equal(got, d.ChosenMissions)
		},
	},
	{
		name: FieldCosmoRepr,
		reason: "cosmology in the history file is different than currently configured; " +
			"configuration changes require a new project",
		match: func(v any, d Declared) bool {
			s, ok := v.(string)
			return ok && s == d.CosmoRepr
		},
	},
	{
		name: FieldSideLength,
		reason: "the side length in the history file is different than currently configured; " +
			"configuration changes require a new project",
		match: func(v any, d Declared) bool {
			f, ok := number(v)
			return ok && f == d.SideLength
		},
	},
}

// GuardedFields lists the fields that may never change once a record exists.
func GuardedFields() []string {
	names := make([]string, len(guardedFields))
	for i, f := range guardedFields {
		names[i] = f.name
	}
	return names
}

func lookupGuarded(name string) (guardedField, bool) {
	for _, f := range guardedFields {
		if f.name == name {
			return f, true
		}
	}
	return guardedField{}, false
}

func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// decodeRecord parses a history document, keeping numbers as json.Number.
func decodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, oops.Wrapf(ErrCorruptRecord, "decoding JSON: %s", err)
	}
	if rec == nil {
		return nil, oops.Wrapf(ErrCorruptRecord, "document is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, oops.Wrapf(ErrCorruptRecord, "trailing data after JSON object")
	}
	return rec, nil
}

// normalizeEntries round-trips entries through JSON so merged values have the
// same shape as values read from disk and share nothing with the caller.
func normalizeEntries(entries []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, oops.Wrapf(ErrUnserializableEntry, "entry %d: %s", i, err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n Entry
		if err := dec.Decode(&n); err != nil {
			return nil, oops.Wrapf(ErrUnserializableEntry, "entry %d: %s", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}
