package mission

import (
	"errors"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/xcs-tools/bcg-ident/lib/util/logger"
)

var log = logger.GetLogger()

// Known mission names.
const (
	XMM        = "xmm"
	DESILS     = "desi-ls"
	VLASS      = "vlass"
	LOFARLoTSS = "lofar-lotss"
)

var (
	ErrUnknownMission   = errors.New("unknown mission")
	ErrDuplicateMission = errors.New("mission declared more than once")
	ErrNoMissions       = errors.New("no missions enabled")
)

// Downloader is the capability the image acquisition pipeline needs from a
// mission. Only its name is used in this repository.
type Downloader interface {
	Name() string
}

// Factory builds a Downloader for a mission. A nil Factory means the mission
// has no downloader (its images are generated rather than fetched).
type Factory func() Downloader

type namedDownloader string

func (n namedDownloader) Name() string { return string(n) }

// External returns a Factory for a downloader identified only by name.
func External(name string) Factory {
	return func() Downloader { return namedDownloader(name) }
}

// Registry maps mission names to downloader factories, preserving the order
// missions were registered in.
type Registry struct {
	order     []string
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a mission.
func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Known reports whether name has been registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names lists registered missions in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Downloader returns the downloader for name, or nil when the mission has
// none.
func (r *Registry) Downloader(name string) (Downloader, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, oops.Wrapf(ErrUnknownMission, "%q", name)
	}
	if f == nil {
		return nil, nil
	}
	return f(), nil
}

// DefaultRegistry holds the missions supported by the everystamp-based
// downloaders, plus XMM whose images are produced locally.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(XMM, nil)
	r.Register(DESILS, External("LegacyDownloader"))
	r.Register(VLASS, External("VLASSDownloader"))
	r.Register(LOFARLoTSS, External("LoTSSDownloader"))
	return r
}

// Toggle is a single mission inclusion flag as declared in configuration.
type Toggle struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Include bool   `mapstructure:"include" yaml:"include"`
}

// Selection is an ordered set of mission inclusion flags checked against a
// registry.
type Selection struct {
	toggles []Toggle
}

// NewSelection validates toggles against reg. Order is preserved.
func NewSelection(reg *Registry, toggles []Toggle) (*Selection, error) {
	seen := make(map[string]struct{}, len(toggles))
	for _, t := range toggles {
		if !reg.Known(t.Name) {
			log.WithFields(logger.Fields{
				"at":      "NewSelection",
				"mission": t.Name,
				"known":   reg.Names(),
			}).Error("unknown mission in selection")
			return nil, oops.Wrapf(ErrUnknownMission, "%q (known: %v)", t.Name, reg.Names())
		}
		if _, dup := seen[t.Name]; dup {
			return nil, oops.Wrapf(ErrDuplicateMission, "%q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return &Selection{toggles: append([]Toggle(nil), toggles...)}, nil
}

// Toggles returns a copy of the declared flags.
func (s *Selection) Toggles() []Toggle {
	return append([]Toggle(nil), s.toggles...)
}

// Enabled lists included missions in declaration order.
func (s *Selection) Enabled() []string {
	return lo.FilterMap(s.toggles, func(t Toggle, _ int) (string, bool) {
		return t.Name, t.Include
	})
}

// Downloaders maps each enabled mission to its downloader. Missions without a
// downloader map to nil, mirroring how they are recorded for the pipeline.
func (s *Selection) Downloaders(reg *Registry) (map[string]Downloader, error) {
	out := make(map[string]Downloader)
	for _, name := range s.Enabled() {
		d, err := reg.Downloader(name)
		if err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

// Validate requires at least one enabled mission.
func (s *Selection) Validate() error {
	if len(s.Enabled()) == 0 {
		return ErrNoMissions
	}
	return nil
}
