package history

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPath  = "history/bcg_ident_proj_save.json"
	testCosmo = "LambdaCDM(H0=70.0 km / (Mpc s), Om0=0.3, Ode0=0.7, Tcmb0=0.0 K, Neff=3.04, m_nu=None, Ob0=None)"
)

func testDeclared() Declared {
	return Declared{
		ProjectName:    "sdssrm-xcs_txerr_lim_clusters",
		ChosenMissions: []string{"xmm", "desi-ls", "vlass"},
		CosmoRepr:      testCosmo,
		SideLength:     2000,
	}
}

// writeRaw stores a record document exactly as given, bypassing the guard.
func writeRaw(t *testing.T, fsys afero.Fs, doc map[string]any) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, fsys.MkdirAll(filepath.Dir(testPath), 0o755))
	require.NoError(t, afero.WriteFile(fsys, testPath, data, 0o644))
}

func validDoc() map[string]any {
	return map[string]any{
		FieldProjectName:    "sdssrm-xcs_txerr_lim_clusters",
		FieldChosenMissions: []string{"xmm", "desi-ls", "vlass"},
		FieldCosmoRepr:      testCosmo,
		FieldSideLength:     2000.0,
	}
}

func newTestGuard(t *testing.T, doc map[string]any) (*Guard, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if doc != nil {
		writeRaw(t, fsys, doc)
	}
	return NewGuard(fsys, testPath, testDeclared()), fsys
}

func TestGuard_Load_Valid(t *testing.T) {
	doc := validDoc()
	doc["stage"] = "downloaded"
	g, _ := newTestGuard(t, doc)

	rec, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, "sdssrm-xcs_txerr_lim_clusters", rec[FieldProjectName])
	assert.Equal(t, []any{"xmm", "desi-ls", "vlass"}, rec[FieldChosenMissions])
	assert.Equal(t, json.Number("2000"), rec[FieldSideLength])
	assert.Equal(t, "downloaded", rec["stage"])
}

func TestGuard_Load_AcceptsFloatSideLengthText(t *testing.T) {
	g, fsys := newTestGuard(t, nil)
	raw := `{"project_name": "sdssrm-xcs_txerr_lim_clusters", "chosen_missions": ["xmm", "desi-ls", "vlass"], ` +
		`"cosmo_repr": "` + testCosmo + `", "side_length": 2000.0}`
	require.NoError(t, fsys.MkdirAll("history", 0o755))
	require.NoError(t, afero.WriteFile(fsys, testPath, []byte(raw), 0o644))

	_, err := g.Load()
	assert.NoError(t, err)
}

func TestGuard_Load_MissingProject(t *testing.T) {
	g, _ := newTestGuard(t, nil)

	_, err := g.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingProject)
	assert.False(t, errors.Is(err, ErrConfigurationDrift), "missing project must never be reported as drift")
}

func TestGuard_Load_Drift(t *testing.T) {
	cases := []struct {
		name  string
		field string
		edit  func(doc map[string]any)
	}{
		{
			name:  "project name",
			field: FieldProjectName,
			edit:  func(doc map[string]any) { doc[FieldProjectName] = "other-sample" },
		},
		{
			name:  "mission added to configuration",
			field: FieldChosenMissions,
			edit:  func(doc map[string]any) { doc[FieldChosenMissions] = []string{"xmm", "desi-ls"} },
		},
		{
			name:  "mission order",
			field: FieldChosenMissions,
			edit:  func(doc map[string]any) { doc[FieldChosenMissions] = []string{"desi-ls", "xmm", "vlass"} },
		},
		{
			name:  "cosmology",
			field: FieldCosmoRepr,
			edit: func(doc map[string]any) {
				doc[FieldCosmoRepr] = "LambdaCDM(H0=67.7 km / (Mpc s), Om0=0.3, Ode0=0.7, Tcmb0=0.0 K, Neff=3.04, m_nu=None, Ob0=None)"
			},
		},
		{
			name:  "side length",
			field: FieldSideLength,
			edit:  func(doc map[string]any) { doc[FieldSideLength] = 1800 },
		},
		{
			name:  "side length wrong type",
			field: FieldSideLength,
			edit:  func(doc map[string]any) { doc[FieldSideLength] = "2000 kpc" },
		},
		{
			name:  "guarded field absent",
			field: FieldCosmoRepr,
			edit:  func(doc map[string]any) { delete(doc, FieldCosmoRepr) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validDoc()
			tc.edit(doc)
			g, _ := newTestGuard(t, doc)

			_, err := g.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigurationDrift)
			assert.False(t, errors.Is(err, ErrMissingProject))

			var drift *DriftError
			require.True(t, errors.As(err, &drift))
			assert.Equal(t, tc.field, drift.Field)
		})
	}
}

func TestGuard_Load_DriftMessagesAreFieldSpecific(t *testing.T) {
	seen := make(map[string]string)
	for _, f := range guardedFields {
		assert.NotEmpty(t, f.reason)
		for other, reason := range seen {
			assert.NotEqual(t, reason, f.reason, "%s and %s share a message", f.name, other)
		}
		seen[f.name] = f.reason
	}
	assert.Equal(t, []string{FieldProjectName, FieldChosenMissions, FieldCosmoRepr, FieldSideLength}, GuardedFields())
}

func TestGuard_Load_Corrupt(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      "{project_name",
		"array":         `["xmm"]`,
		"null":          "null",
		"trailing data": `{"a": 1} {"b": 2}`,
	} {
		t.Run(name, func(t *testing.T) {
			g, fsys := newTestGuard(t, nil)
			require.NoError(t, afero.WriteFile(fsys, testPath, []byte(raw), 0o644))

			_, err := g.Load()
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestGuard_Update_EmptyEntryIsIdempotent(t *testing.T) {
	doc := validDoc()
	doc["bcg_count"] = 12
	doc["notes"] = map[string]any{"reviewer": "dt"}
	g, _ := newTestGuard(t, doc)

	before, err := g.Load()
	require.NoError(t, err)

	after, err := g.Update(Entry{})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	reloaded, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, before, reloaded)
}

func TestGuard_Update_LastWriteWins(t *testing.T) {
	g, _ := newTestGuard(t, validDoc())

	rec, err := g.Update(Entry{"a": 1}, Entry{"a": 2})
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), rec["a"])

	reloaded, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), reloaded["a"])
}

func TestGuard_Update_OverridesExistingKeys(t *testing.T) {
	doc := validDoc()
	doc["stage"] = "setup"
	g, _ := newTestGuard(t, doc)

	rec, err := g.Update(Entry{"stage": "downloaded"})
	require.NoError(t, err)
	assert.Equal(t, "downloaded", rec["stage"])
}

func TestGuard_Update_SupersetMerge(t *testing.T) {
	doc := validDoc()
	doc["a"] = 1
	g, _ := newTestGuard(t, doc)

	rec, err := g.Update(Entry{"x": 1}, Entry{"y": 2})
	require.NoError(t, err)

	want := Record{
		FieldProjectName:    "sdssrm-xcs_txerr_lim_clusters",
		FieldChosenMissions: []any{"xmm", "desi-ls", "vlass"},
		FieldCosmoRepr:      testCosmo,
		FieldSideLength:     json.Number("2000"),
		"a":                 json.Number("1"),
		"x":                 json.Number("1"),
		"y":                 json.Number("2"),
	}
	assert.Equal(t, want, rec)

	reloaded, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, want, reloaded)
}

func TestGuard_Update_DoesNotAliasCallerData(t *testing.T) {
	g, _ := newTestGuard(t, validDoc())

	bands := []string{"g", "r", "z"}
	rec, err := g.Update(Entry{"bands": bands})
	require.NoError(t, err)

	bands[0] = "changed"
	assert.Equal(t, []any{"g", "r", "z"}, rec["bands"])
}

func TestGuard_Update_PropagatesLoadErrors(t *testing.T) {
	g, fsys := newTestGuard(t, nil)
	_, err := g.Update(Entry{"a": 1})
	assert.ErrorIs(t, err, ErrMissingProject)

	exists, err := afero.Exists(fsys, testPath)
	require.NoError(t, err)
	assert.False(t, exists, "a failed update must not create the record")

	doc := validDoc()
	doc[FieldSideLength] = 1800
	g, fsys = newTestGuard(t, doc)
	before, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)

	_, err = g.Update(Entry{"a": 1})
	var drift *DriftError
	require.True(t, errors.As(err, &drift))
	assert.Equal(t, FieldSideLength, drift.Field)

	after, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGuard_Update_GuardedFields(t *testing.T) {
	g, fsys := newTestGuard(t, validDoc())
	before, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)

	_, err = g.Update(Entry{"a": 1}, Entry{FieldSideLength: 1800})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGuardedField)
	var guarded *GuardedFieldError
	require.True(t, errors.As(err, &guarded))
	assert.Equal(t, FieldSideLength, guarded.Field)

	after, err := afero.ReadFile(fsys, testPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected update must leave the record untouched")

	// Restating the declared values is allowed.
	_, err = g.Update(Entry{
		FieldProjectName:    "sdssrm-xcs_txerr_lim_clusters",
		FieldChosenMissions: []string{"xmm", "desi-ls", "vlass"},
		FieldSideLength:     2000,
	})
	assert.NoError(t, err)
}

func TestGuard_Update_UnserializableEntry(t *testing.T) {
	g, _ := newTestGuard(t, validDoc())

	_, err := g.Update(Entry{"callback": func() {}})
	assert.ErrorIs(t, err, ErrUnserializableEntry)
}

func TestGuard_Update_WriteFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	writeRaw(t, base, validDoc())
	g := NewGuard(afero.NewReadOnlyFs(base), testPath, testDeclared())

	_, err := g.Update(Entry{"a": 1})
	assert.ErrorIs(t, err, ErrWriteRecord)
}

func TestGuard_Update_LeavesNoTemporaryFiles(t *testing.T) {
	g, fsys := newTestGuard(t, validDoc())

	_, err := g.Update(Entry{"a": 1})
	require.NoError(t, err)

	entries, err := afero.ReadDir(fsys, "history")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bcg_ident_proj_save.json", entries[0].Name())
}

func TestGuard_Create(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	assert.False(t, g.Exists())

	rec, err := g.Create()
	require.NoError(t, err)
	assert.True(t, g.Exists())
	assert.Equal(t, "sdssrm-xcs_txerr_lim_clusters", rec[FieldProjectName])
	assert.Equal(t, []any{"xmm", "desi-ls", "vlass"}, rec[FieldChosenMissions])
	assert.Len(t, rec, 4)

	_, err = g.Create()
	assert.ErrorIs(t, err, ErrProjectExists)
}

func TestGuard_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "bcg_ident_proj_save.json")
	g := NewGuard(afero.NewOsFs(), path, testDeclared())

	_, err := g.Create()
	require.NoError(t, err)

	rec, err := g.Update(Entry{"stage": "images"})
	require.NoError(t, err)
	assert.Equal(t, "images", rec["stage"])

	reloaded, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, rec, reloaded)
}

func TestGuard_DeclaredIsCopied(t *testing.T) {
	g, _ := newTestGuard(t, nil)
	d := g.Declared()
	d.ChosenMissions[0] = "changed"
	assert.Equal(t, "xmm", g.Declared().ChosenMissions[0])
	assert.Equal(t, testPath, g.Path())
}

func TestErrors_SentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrMissingProject, ErrProjectExists, ErrConfigurationDrift, ErrGuardedField,
		ErrCorruptRecord, ErrReadRecord, ErrWriteRecord, ErrUnserializableEntry,
	}
	for i, s := range sentinels {
		wrapped := oops.Wrapf(s, "loading %s", testPath)
		for j, other := range sentinels {
			assert.Equal(t, i == j, errors.Is(wrapped, other), "%q matched against %q", wrapped, other)
		}
	}

	drift := oops.Wrapf(&DriftError{Field: FieldSideLength, reason: "side length changed"}, "checking")
	assert.ErrorIs(t, drift, ErrConfigurationDrift)
	assert.False(t, errors.Is(drift, ErrGuardedField))
	assert.False(t, errors.Is(drift, ErrMissingProject))
}
