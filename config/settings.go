package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server         ServerSettings         `json:"server"`
	Database       DatabaseSettings       `json:"database"`
	Cache          CacheSettings          `json:"cache"`
	Scraper        ScraperSettings        `json:"scraper"`
	Relay          RelaySettings          `json:"relay"`
	Browser        BrowserSettings        `json:"browser"`
	Streaming      StreamingSettings      `json:"streaming"`
	Images         ImageSettings          `json:"images"`
	Sources        []SourceSettings       `json:"sources"`
	ScheduledTasks ScheduledTasksSettings `json:"scheduledTasks"`
	Log            LogConfig              `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

type CacheSettings struct {
	Directory string `json:"directory"`
}

// ScraperSettings bounds how aggressively the pipeline talks to upstreams.
type ScraperSettings struct {
	GlobalConcurrency       int    `json:"globalConcurrency"`       // ceiling across sources in batch runs
	InterSourcePauseSeconds int    `json:"interSourcePauseSeconds"` // pause between sources in sequential walks
	DefaultLimit            int    `json:"defaultLimit"`
	DefaultTimeoutSeconds   int    `json:"defaultTimeoutSeconds"`
	DiagnosticDir           string `json:"diagnosticDir"` // where empty-extraction HTML dumps go
}

// RelaySettings points at the remote headless-browser relay used for
// JavaScript-dependent sources.
type RelaySettings struct {
	URL            string `json:"url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// BrowserSettings configures the local headless-Chrome fetch path.
type BrowserSettings struct {
	Enabled    bool   `json:"enabled"`
	ChromePath string `json:"chromePath"`
	Headless   bool   `json:"headless"`
	UserAgent  string `json:"userAgent"`
}

type StreamingSettings struct {
	TTLMinutes int `json:"ttlMinutes"` // lifetime of resolved stream URLs
}

// ImageSettings describes the object-storage-backed image endpoint.
type ImageSettings struct {
	StorageBaseURL string            `json:"storageBaseUrl"` // public base for {type}/{category}/{id}_{variant}.jpg keys
	Fallbacks      map[string]string `json:"fallbacks"`      // content type -> default image URL
	ProxyEnabled   bool              `json:"proxyEnabled"`   // serve resized variants locally instead of redirecting
	CacheDir       string            `json:"cacheDir"`
	JPEGQuality    int               `json:"jpegQuality"`
}

// FetchPath selects which executor handles a source's requests.
type FetchPath string

const (
	FetchPathLocal   FetchPath = "local"
	FetchPathRelay   FetchPath = "relay"
	FetchPathBrowser FetchPath = "browser"
	FetchPathCompare FetchPath = "compare" // run local and relay, keep the richer result
)

// SourceSettings is the static per-adapter descriptor. Immutable at run
// time; loaded once at process start.
type SourceSettings struct {
	Name            string            `json:"name"`
	Category        string            `json:"category"` // drama | anime | film | bollywood
	BaseURL         string            `json:"baseUrl"`
	FallbackURLs    []string          `json:"fallbackUrls,omitempty"` // ordered mirrors tried on failure
	Headers         map[string]string `json:"headers,omitempty"`
	Referer         string            `json:"referer,omitempty"` // fixed referer; empty = synthesized
	FetchPath       FetchPath         `json:"fetchPath"`
	TimeoutSeconds  int               `json:"timeoutSeconds"`
	MinIntervalMS   int               `json:"minIntervalMs"` // per-source minimum request spacing
	Enabled         bool              `json:"enabled"`
	Selectors       *SelectorRules    `json:"selectors,omitempty"` // drives the generic adapter when set
	StreamTTLMinute int               `json:"streamTtlMinutes,omitempty"`
}

// SelectorRules declaratively describes a site for the generic adapter.
// Each field maps to an ordered fallback chain of CSS selectors.
type SelectorRules struct {
	ListPath   string              `json:"listPath"`   // e.g. "/popular?page=1"
	SearchPath string              `json:"searchPath"` // %s = query
	DetailPath string              `json:"detailPath"` // %s = source id
	Item       []string            `json:"item"`       // container selector chain for list pages
	Fields     map[string][]string `json:"fields"`     // raw field name -> selector chain (text)
	Attrs      map[string]string   `json:"attrs"`      // raw field name -> attribute to read instead of text
	LinkAttr   string              `json:"linkAttr"`   // attribute carrying the detail URL on the item
}

type ScheduledTasksSettings struct {
	Enabled              bool       `json:"enabled"`
	CheckIntervalSeconds int        `json:"checkIntervalSeconds"`
	Batches              []BatchJob `json:"batches"`
}

// BatchJob is one periodic sequential walk over a subset of sources.
type BatchJob struct {
	ID            string     `json:"id"`
	Sources       []string   `json:"sources"`
	FrequencyHrs  int        `json:"frequencyHours"`
	Limit         int        `json:"limit"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastStatus    string     `json:"lastStatus,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	ItemsImported int        `json:"itemsImported,omitempty"`
}

type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// SourceByName returns the configured source descriptor, or nil.
func (s *Settings) SourceByName(name string) *SourceSettings {
	for i := range s.Sources {
		if s.Sources[i].Name == name {
			return &s.Sources[i]
		}
	}
	return nil
}

// SourceNames lists every configured source, enabled or not.
func (s *Settings) SourceNames() []string {
	names := make([]string, 0, len(s.Sources))
	for i := range s.Sources {
		names = append(names, s.Sources[i].Name)
	}
	return names
}

func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 7878},
		Database: DatabaseSettings{Path: "cache/content.db"},
		Cache:    CacheSettings{Directory: "cache"},
		Scraper: ScraperSettings{
			GlobalConcurrency:       1,
			InterSourcePauseSeconds: 8,
			DefaultLimit:            20,
			DefaultTimeoutSeconds:   45,
			DiagnosticDir:           "cache/diagnostics",
		},
		Relay:   RelaySettings{URL: "", Token: "", TimeoutSeconds: 60},
		Browser: BrowserSettings{Enabled: false, Headless: true},
		Streaming: StreamingSettings{
			TTLMinutes: 240,
		},
		Images: ImageSettings{
			StorageBaseURL: "https://assets.streamvault.example",
			Fallbacks: map[string]string{
				"drama":     "https://assets.streamvault.example/defaults/drama.jpg",
				"anime":     "https://assets.streamvault.example/defaults/anime.jpg",
				"film":      "https://assets.streamvault.example/defaults/film.jpg",
				"bollywood": "https://assets.streamvault.example/defaults/bollywood.jpg",
			},
			ProxyEnabled: false,
			CacheDir:     "cache/images",
			JPEGQuality:  80,
		},
		Sources: DefaultSources(),
		ScheduledTasks: ScheduledTasksSettings{
			Enabled:              true,
			CheckIntervalSeconds: 60,
			Batches: []BatchJob{
				{ID: "nightly-dramas", Sources: []string{"mydramalist", "dramacool", "asianwiki"}, FrequencyHrs: 24, Limit: 40},
				{ID: "nightly-anime", Sources: []string{"gogoanime", "animefire"}, FrequencyHrs: 24, Limit: 40},
			},
		},
		Log: LogConfig{
			File:       "cache/logs/streamvault.log",
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}

	// Older config files predate the source catalog; fill it in so the
	// registry always has something to serve.
	if len(s.Sources) == 0 {
		s.Sources = DefaultSources()
	}
	if s.Scraper.DefaultTimeoutSeconds <= 0 {
		s.Scraper.DefaultTimeoutSeconds = 45
	}
	if s.Scraper.DefaultLimit <= 0 {
		s.Scraper.DefaultLimit = 20
	}
	if s.Streaming.TTLMinutes <= 0 {
		s.Streaming.TTLMinutes = 240
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
