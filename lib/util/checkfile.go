package util

import (
	"github.com/spf13/afero"
)

// Check if a file exists and is readable etc
// returns false if not
func CheckFileExists(fs afero.Fs, fpath string) bool {
	_, e := fs.Stat(fpath)
	return e == nil
}
