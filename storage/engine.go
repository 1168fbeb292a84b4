package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blang/semver"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Engine describes a storage backend that can be compiled into the program.
type Engine interface {
	fmt.Stringer
	GetName() string
	GetDescription() string
	GetSemVer() semver.Version
}

var (
	enginesMu sync.RWMutex
	engines   map[string]Engine
)

// RegisterEngine makes an engine available by name.  Engines register
// themselves in their package init.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if engines == nil {
		engines = make(map[string]Engine)
	}
	name := e.GetName()
	if _, found := engines[name]; found {
		neuprep.Warningf("Engine %q registered more than once; keeping %s\n", name, e)
	}
	engines[name] = e
}

// GetEngine returns the engine registered under name.
func GetEngine(name string) (Engine, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	e, found := engines[name]
	return e, found
}

// Engines returns all registered engines sorted by name.
func Engines() []Engine {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	list := make([]Engine, 0, len(engines))
	for _, e := range engines {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].GetName() < list[j].GetName() })
	return list
}

// EnginesAvailable returns a description of the available storage engines.
func EnginesAvailable() string {
	var descs []string
	for _, e := range Engines() {
		descs = append(descs, fmt.Sprintf("%s: %s [%s]", e.GetName(), e.GetDescription(), e.GetSemVer()))
	}
	return strings.Join(descs, "; ")
}

// BasicEngine is an Engine holding only its identifying information.
type BasicEngine struct {
	name   string
	desc   string
	semver semver.Version
}

// NewEngine returns an engine descriptor.  The version must be a valid
// semantic version.
func NewEngine(name, desc, version string) (BasicEngine, error) {
	ver, err := semver.Make(version)
	if err != nil {
		return BasicEngine{}, fmt.Errorf("bad version %q for engine %q: %v", version, name, err)
	}
	return BasicEngine{name, desc, ver}, nil
}

func (e BasicEngine) GetName() string {
	return e.name
}

func (e BasicEngine) GetDescription() string {
	return e.desc
}

func (e BasicEngine) GetSemVer() semver.Version {
	return e.semver
}

func (e BasicEngine) String() string {
	return fmt.Sprintf("%s [%s]", e.name, e.semver)
}
