package config

import (
	"math"
	"strings"

	"github.com/xcs-tools/bcg-ident/lib/cosmology"
	"github.com/xcs-tools/bcg-ident/lib/mission"
	"github.com/xcs-tools/bcg-ident/lib/units"
	"github.com/xcs-tools/bcg-ident/lib/util/logger"
)

// Defaults returns the configuration of the SDSSRM-XCS identification run.
func Defaults() ProjectConfig {
	return ProjectConfig{
		SampleFile: "input_sample_files/sdssrm-xcs_txerr_lim_clusters.csv",
		Cosmology: CosmologyConfig{
			H0:    70,
			Om0:   0.3,
			Ode0:  0.7,
			Tcmb0: cosmology.DefaultTcmb0,
			Neff:  cosmology.DefaultNeff,
		},
		SideLength: SideLengthConfig{
			Value: 2000,
			Unit:  string(units.Kiloparsec),
		},
		Missions: []MissionToggle{
			{Name: mission.XMM, Include: true},
			{Name: mission.DESILS, Include: true},
			{Name: mission.VLASS, Include: true},
			{Name: mission.LOFARLoTSS, Include: false},
		},
		History: HistoryConfig{
			Dir:  "history",
			File: "bcg_ident_proj_save.json",
		},
	}
}

// Validate checks that the declared configuration is usable.
// Returns an error describing the first invalid value found.
func Validate(cfg *ProjectConfig) error {
	log.WithFields(logger.Fields{
		"at":     "Validate",
		"reason": "verification_requested",
	}).Debug("validating project configuration")

	validators := []func() error{
		func() error { return validateSampleFile(cfg) },
		func() error { return validateCosmology(cfg) },
		func() error { return validateSideLength(cfg) },
		func() error { return validateMissions(cfg) },
		func() error { return validateHistory(cfg) },
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	log.WithFields(logger.Fields{
		"at":     "Validate",
		"reason": "all_validators_passed",
	}).Debug("project configuration is valid")
	return nil
}

func validateSampleFile(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.SampleFile) == "" {
		return newValidationError("sample_file must be set")
	}
	if cfg.ProjectName() == "" {
		return newValidationError("sample_file " + cfg.SampleFile + " does not yield a project name")
	}
	return nil
}

func validateCosmology(cfg *ProjectConfig) error {
	if err := cfg.LambdaCDM().Validate(); err != nil {
		return newValidationError("cosmology: " + err.Error())
	}
	return nil
}

func validateSideLength(cfg *ProjectConfig) error {
	q, err := cfg.SideLengthQuantity()
	if err != nil {
		return newValidationError("side_length.unit: " + err.Error())
	}
	if !(q.Value > 0) || math.IsInf(q.Value, 1) {
		return newValidationError("side_length.value must be positive and finite")
	}
	return nil
}

func validateMissions(cfg *ProjectConfig) error {
	sel, err := cfg.MissionSelection(mission.DefaultRegistry())
	if err != nil {
		return newValidationError("missions: " + err.Error())
	}
	if err := sel.Validate(); err != nil {
		return newValidationError("missions: " + err.Error())
	}
	return nil
}

func validateHistory(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.History.Dir) == "" {
		return newValidationError("history.dir must be set")
	}
	if strings.TrimSpace(cfg.History.File) == "" {
		return newValidationError("history.file must be set")
	}
	return nil
}

// validationError is returned when configuration validation fails
type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
