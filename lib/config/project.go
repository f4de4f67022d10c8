package config

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/xcs-tools/bcg-ident/lib/cosmology"
	"github.com/xcs-tools/bcg-ident/lib/history"
	"github.com/xcs-tools/bcg-ident/lib/mission"
	"github.com/xcs-tools/bcg-ident/lib/units"
	"github.com/xcs-tools/bcg-ident/lib/util"
)

// MissionToggle declares whether one mission is part of the project.
type MissionToggle = mission.Toggle

// ProjectConfig is the declared configuration of an identification project.
type ProjectConfig struct {
	// path to the input cluster sample; its base name names the project
	SampleFile string `mapstructure:"sample_file" yaml:"sample_file"`
	// cosmology used throughout the run
	Cosmology CosmologyConfig `mapstructure:"cosmology" yaml:"cosmology"`
	// full (not half) side length of the images to download or generate
	SideLength SideLengthConfig `mapstructure:"side_length" yaml:"side_length"`
	// missions in declaration order
	Missions []MissionToggle `mapstructure:"missions" yaml:"missions"`
	// location of the project history record
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

type CosmologyConfig struct {
	H0    float64 `mapstructure:"h0" yaml:"h0"`
	Om0   float64 `mapstructure:"om0" yaml:"om0"`
	Ode0  float64 `mapstructure:"ode0" yaml:"ode0"`
	Tcmb0 float64 `mapstructure:"tcmb0" yaml:"tcmb0"`
	Neff  float64 `mapstructure:"neff" yaml:"neff"`
}

type SideLengthConfig struct {
	Value float64 `mapstructure:"value" yaml:"value"`
	Unit  string  `mapstructure:"unit" yaml:"unit"`
}

type HistoryConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	File string `mapstructure:"file" yaml:"file"`
}

// ProjectName is derived from the sample file name.
func (c *ProjectConfig) ProjectName() string {
	return util.ProjectName(c.SampleFile)
}

func (c *ProjectConfig) LambdaCDM() cosmology.LambdaCDM {
	return cosmology.LambdaCDM{
		H0:    c.Cosmology.H0,
		Om0:   c.Cosmology.Om0,
		Ode0:  c.Cosmology.Ode0,
		Tcmb0: c.Cosmology.Tcmb0,
		Neff:  c.Cosmology.Neff,
	}
}

func (c *ProjectConfig) SideLengthQuantity() (units.Quantity, error) {
	return units.New(c.SideLength.Value, c.SideLength.Unit)
}

// MissionSelection checks the declared missions against reg.
func (c *ProjectConfig) MissionSelection(reg *mission.Registry) (*mission.Selection, error) {
	return mission.NewSelection(reg, c.Missions)
}

// HistoryPath is where the project record is stored.
func (c *ProjectConfig) HistoryPath() string {
	return filepath.Join(c.History.Dir, c.History.File)
}

// Declared reduces the configuration to the values guarded by the project
// history record.
func (c *ProjectConfig) Declared() (history.Declared, error) {
	sel, err := c.MissionSelection(mission.DefaultRegistry())
	if err != nil {
		return history.Declared{}, err
	}
	q, err := c.SideLengthQuantity()
	if err != nil {
		return history.Declared{}, err
	}
	kpc, err := q.Kpc()
	if err != nil {
		return history.Declared{}, err
	}
	return history.Declared{
		ProjectName:    c.ProjectName(),
		ChosenMissions: sel.Enabled(),
		CosmoRepr:      c.LambdaCDM().String(),
		SideLength:     kpc,
	}, nil
}

// Guard returns a history guard for this project on fsys.
func (c *ProjectConfig) Guard(fsys afero.Fs) (*history.Guard, error) {
	declared, err := c.Declared()
	if err != nil {
		return nil, err
	}
	return history.NewGuard(fsys, c.HistoryPath(), declared), nil
}
