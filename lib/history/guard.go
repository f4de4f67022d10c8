package history

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/xcs-tools/bcg-ident/lib/util"
	"github.com/xcs-tools/bcg-ident/lib/util/logger"
)

var log = logger.GetLogger()

const (
	recordFilePermissions = 0o644
	recordDirPermissions  = 0o755
)

// Guard validates and updates the history record of one project.
type Guard struct {
	fs       afero.Fs
	path     string
	declared Declared
}

// NewGuard returns a Guard for the record at path on fsys, checked against
// declared.
func NewGuard(fsys afero.Fs, path string, declared Declared) *Guard {
	return &Guard{
		fs:       fsys,
		path:     path,
		declared: declared,
	}
}

// Path is the location of the record file.
func (g *Guard) Path() string {
	return g.path
}

// Declared returns the configuration the guard checks records against.
func (g *Guard) Declared() Declared {
	d := g.declared
	d.ChosenMissions = append([]string(nil), d.ChosenMissions...)
	return d
}

// Exists reports whether a record file is present.
func (g *Guard) Exists() bool {
	return util.CheckFileExists(g.fs, g.path)
}

// Load reads the record and checks its guarded fields against the declared
// configuration. It returns ErrMissingProject when there is no record and a
// *DriftError for the first guarded field that differs.
func (g *Guard) Load() (Record, error) {
	log.WithFields(logger.Fields{
		"at":   "Guard.Load",
		"path": g.path,
	}).Debug("loading history record")

	if _, err := g.fs.Stat(g.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Wrapf(ErrMissingProject, "no history file at %s", g.path)
		}
		return nil, oops.Wrapf(ErrReadRecord, "stat %s: %s", g.path, err)
	}

	data, err := afero.ReadFile(g.fs, g.path)
	if err != nil {
		log.WithError(err).Error("failed to read history record")
		return nil, oops.Wrapf(ErrReadRecord, "reading %s: %s", g.path, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		log.WithError(err).WithField("path", g.path).Error("history record is corrupt")
		return nil, err
	}

	if err := g.verify(rec); err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"at":   "Guard.Load",
		"path": g.path,
		"keys": len(rec),
	}).Debug("history record matches declared configuration")
	return rec, nil
}

// verify checks each guarded field in order and reports the first mismatch.
func (g *Guard) verify(rec Record) error {
	for _, f := range guardedFields {
		recorded := rec[f.name]
		if f.match(recorded, g.declared) {
			continue
		}
		log.WithFields(logger.Fields{
			"at":       "Guard.verify",
			"reason":   "configuration_drift",
			"field":    f.name,
			"recorded": recorded,
			"declared": g.declared.value(f.name),
		}).Error("history record does not match declared configuration")
		return &DriftError{
			Field:    f.name,
			Recorded: recorded,
			Declared: g.declared.value(f.name),
			reason:   f.reason,
		}
	}
	return nil
}

// Update merges entries into the record, later entries overriding earlier
// ones and the existing record, and writes the result back. The record is
// validated through Load first and any Load error is returned unchanged.
//
// Entries may repeat a guarded field only with its declared value; any other
// value fails with a *GuardedFieldError and the file is left as it was.
func (g *Guard) Update(entries ...Entry) (Record, error) {
	current, err := g.Load()
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeEntries(entries)
	if err != nil {
		return nil, err
	}

	merged := make(Record, len(current))
	for k, v := range current {
		merged[k] = v
	}
	for _, e := range normalized {
		for k, v := range e {
			if err := g.checkGuarded(k, v); err != nil {
				return nil, err
			}
			merged[k] = v
		}
	}

	if err := g.write(merged); err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"at":      "Guard.Update",
		"path":    g.path,
		"entries": len(entries),
		"keys":    len(merged),
	}).Debug("history record updated")
	return merged, nil
}

func (g *Guard) checkGuarded(key string, v any) error {
	f, ok := lookupGuarded(key)
	if !ok || f.match(v, g.declared) {
		return nil
	}
	log.WithFields(logger.Fields{
		"at":     "Guard.checkGuarded",
		"reason": "guarded_field_overwrite",
		"field":  key,
	}).Warn("rejecting update to guarded field")
	return &GuardedFieldError{
		Field:     key,
		Attempted: v,
		Declared:  g.declared.value(key),
	}
}

// Create writes the initial record for a new project from the declared
// configuration. It refuses to replace an existing record.
func (g *Guard) Create() (Record, error) {
	log.WithFields(logger.Fields{
		"at":      "Guard.Create",
		"path":    g.path,
		"project": g.declared.ProjectName,
	}).Debug("creating history record")

	if g.Exists() {
		return nil, oops.Wrapf(ErrProjectExists, "history file %s", g.path)
	}
	if err := g.write(g.declared.record()); err != nil {
		return nil, err
	}
	return g.Load()
}

// write replaces the record file with rec. The data goes to a temporary file
// in the same directory which is then renamed over the record, so readers see
// either the old or the new document.
func (g *Guard) write(rec Record) (err error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Wrapf(ErrWriteRecord, "encoding record: %s", err)
	}

	dir := filepath.Dir(g.path)
	if err := g.fs.MkdirAll(dir, recordDirPermissions); err != nil {
		return oops.Wrapf(ErrWriteRecord, "creating %s: %s", dir, err)
	}

	tmp, err := afero.TempFile(g.fs, dir, filepath.Base(g.path)+".*.tmp")
	if err != nil {
		return oops.Wrapf(ErrWriteRecord, "creating temporary file in %s: %s", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := g.fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				log.WithError(rmErr).WithField("path", tmpName).Warn("could not remove temporary record file")
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return oops.Wrapf(ErrWriteRecord, "writing %s: %s", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return oops.Wrapf(ErrWriteRecord, "syncing %s: %s", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return oops.Wrapf(ErrWriteRecord, "closing %s: %s", tmpName, err)
	}
	if err = g.fs.Chmod(tmpName, recordFilePermissions); err != nil {
		return oops.Wrapf(ErrWriteRecord, "chmod %s: %s", tmpName, err)
	}
	if err = g.fs.Rename(tmpName, g.path); err != nil {
		log.WithError(err).WithField("path", g.path).Error("failed to replace history record")
		return oops.Wrapf(ErrWriteRecord, "renaming %s to %s: %s", tmpName, g.path, err)
	}
	return nil
}
