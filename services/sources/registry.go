package sources

import (
	"log"
	"sort"

	"streamvault/config"
	"streamvault/models"
)

// builder constructs a hand-written adapter for a configured source.
type builder func(cfg config.SourceSettings) Adapter

// builders maps source names to their dedicated adapters. Sources not
// listed here fall back to the generic selector-driven adapter when the
// catalog carries selector rules for them.
var builders = map[string]builder{
	"mydramalist":  func(cfg config.SourceSettings) Adapter { return NewMyDramaList(cfg) },
	"dramacool":    func(cfg config.SourceSettings) Adapter { return NewDramaCool(cfg) },
	"asianwiki":    func(cfg config.SourceSettings) Adapter { return NewAsianWiki(cfg) },
	"gogoanime":    func(cfg config.SourceSettings) Adapter { return NewGogoanime(cfg) },
	"animefire":    func(cfg config.SourceSettings) Adapter { return NewAnimeFire(cfg) },
	"bollyflix":    func(cfg config.SourceSettings) Adapter { return NewBollyFlix(cfg) },
	"hindilinks4u": func(cfg config.SourceSettings) Adapter { return NewHindiLinks(cfg) },
	"tmdb":         func(cfg config.SourceSettings) Adapter { return NewTMDB(cfg) },
}

// Registry resolves source names to adapter instances. Built once at
// startup from the source catalog; lookups are read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
	configs  map[string]config.SourceSettings
}

// NewRegistry instantiates an adapter per configured source. Disabled
// sources are still registered so operators can trigger them explicitly;
// the scheduler skips them.
func NewRegistry(sources []config.SourceSettings) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter, len(sources)),
		configs:  make(map[string]config.SourceSettings, len(sources)),
	}
	for _, cfg := range sources {
		var adapter Adapter
		if build, ok := builders[cfg.Name]; ok {
			adapter = build(cfg)
		} else if cfg.Selectors != nil {
			adapter = NewGeneric(cfg)
		} else {
			log.Printf("[sources] %s has no adapter and no selector rules, skipping", cfg.Name)
			continue
		}
		r.adapters[cfg.Name] = adapter
		r.configs[cfg.Name] = cfg
	}
	log.Printf("[sources] registered %d adapter(s)", len(r.adapters))
	return r
}

// Get returns the adapter and config for a source name.
func (r *Registry) Get(name string) (Adapter, config.SourceSettings, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, config.SourceSettings{}, &models.UnknownSourceError{Source: name, Available: r.Names()}
	}
	return adapter, r.configs[name], nil
}

// Names lists registered sources in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledNames lists registered sources the scheduler may walk.
func (r *Registry) EnabledNames() []string {
	names := make([]string, 0, len(r.adapters))
	for name, cfg := range r.configs {
		if cfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
