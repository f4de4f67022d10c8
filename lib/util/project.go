package util

import (
	"path/filepath"
	"strings"

	"github.com/xcs-tools/bcg-ident/lib/util/logger"
)

var log = logger.GetLogger()

// ProjectName derives an identification project name from the path of its
// input sample file: the base name up to the first dot, so
// "samples/sdssrm-xcs.v2.csv" names the project "sdssrm-xcs".
func ProjectName(sampleFile string) string {
	base := filepath.Base(sampleFile)
	name, _, _ := strings.Cut(base, ".")
	log.WithFields(logger.Fields{
		"at":          "ProjectName",
		"sample_file": sampleFile,
		"project":     name,
	}).Debug("derived project name")
	return name
}
