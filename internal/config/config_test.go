package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Rate is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Rate != 1 {
			t.Errorf("expected Rate to be 1, got %d", cfg.Rate)
		}
	})

	t.Run("default Workers is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 1 {
			t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Deadline and MaxPages are unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.Deadline != 0 || cfg.MaxPages != 0 {
			t.Errorf("expected no limits, got deadline %v, max pages %d", cfg.Deadline, cfg.MaxPages)
		}
	})

	t.Run("default OutputFile is sitemap.json", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "sitemap.json" {
			t.Errorf("expected sitemap.json, got %q", cfg.OutputFile)
		}
	})

	t.Run("default UserAgent is the W3C link checker", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "W3C-checklink/4.5 [4.160] libwww-perl/5.823" {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}},
		{name: "empty root", modify: func(c *Config) { c.Root = "" }, wantErr: ErrNoRoot},
		{name: "blank root", modify: func(c *Config) { c.Root = "   " }, wantErr: ErrNoRoot},
		{name: "zero rate", modify: func(c *Config) { c.Rate = 0 }, wantErr: ErrInvalidRate},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative deadline", modify: func(c *Config) { c.Deadline = -time.Second }, wantErr: ErrInvalidDeadline},
		{name: "zero deadline is valid", modify: func(c *Config) { c.Deadline = 0 }},
		{name: "negative max pages", modify: func(c *Config) { c.MaxPages = -1 }, wantErr: ErrInvalidMaxPages},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "empty output", modify: func(c *Config) { c.OutputFile = "" }, wantErr: ErrNoOutputFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Root = "http://site.test"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestParseRate tests parsing of the requests-per-second argument.
func TestParseRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "5", want: 5},
		{input: " 2 ", want: 2},
		{input: "", want: DefaultRate, wantErr: true},
		{input: "fast", want: DefaultRate, wantErr: true},
		{input: "0", want: DefaultRate, wantErr: true},
		{input: "-3", want: DefaultRate, wantErr: true},
		{input: "1.5", want: DefaultRate, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseRate(tt.input)
			if got != tt.want {
				t.Errorf("ParseRate(%q) = %d, want %d", tt.input, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidRateArgument) {
				t.Errorf("expected ErrInvalidRateArgument, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestFileGetSiteConfig tests merging of site configuration with defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "default=1", Rate: 3},
			Sites:    map[string]SiteConfig{},
		}
		got := cf.GetSiteConfig("http://missing.test")
		if got.Cookie != "default=1" || got.Rate != 3 {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("matches root URL with or without trailing slash", func(t *testing.T) {
		t.Parallel()

		cf := &File{Sites: map[string]SiteConfig{
			"http://site.test": {Cookie: "session=xyz"},
		}}
		if got := cf.GetSiteConfig("http://site.test/"); got.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
	})

	t.Run("matches bare host", func(t *testing.T) {
		t.Parallel()

		cf := &File{Sites: map[string]SiteConfig{
			"site.test": {Workers: 4},
		}}
		if got := cf.GetSiteConfig("https://site.test/blog"); got.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", got.Workers)
		}
	})

	t.Run("site headers override default headers", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Headers: map[string]string{"Accept": "text/html", "X-Env": "prod"}},
			Sites: map[string]SiteConfig{
				"site.test": {Headers: map[string]string{"X-Env": "staging"}},
			},
		}
		got := cf.GetSiteConfig("http://site.test")
		if got.Headers["Accept"] != "text/html" || got.Headers["X-Env"] != "staging" {
			t.Errorf("unexpected headers %v", got.Headers)
		}
		if cf.Defaults.Headers["X-Env"] != "prod" {
			t.Error("defaults must not be modified")
		}
	})

	t.Run("disallow patterns accumulate", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Disallow: []string{"/tmp/"}},
			Sites: map[string]SiteConfig{
				"site.test": {Disallow: []string{"/drafts/*"}},
			},
		}
		got := cf.GetSiteConfig("http://site.test")
		if !slices.Equal(got.Disallow, []string{"/tmp/", "/drafts/*"}) {
			t.Errorf("unexpected disallow %v", got.Disallow)
		}
		if len(cf.Defaults.Disallow) != 1 {
			t.Error("defaults must not be modified")
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "a=1", Rate: 2, UserAgent: "bot"},
			Sites:    map[string]SiteConfig{"site.test": {}},
		}
		got := cf.GetSiteConfig("http://site.test")
		if got.Cookie != "a=1" || got.Rate != 2 || got.UserAgent != "bot" {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: SiteConfig{Workers: 2}}
		if got := cf.GetSiteConfig("http://site.test"); got.Workers != 2 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

// TestConfigApplySite tests that flags take precedence over the config file.
func TestConfigApplySite(t *testing.T) {
	t.Parallel()

	file := &File{Sites: map[string]SiteConfig{
		"site.test": {
			Cookie:    "session=file",
			Headers:   map[string]string{"X-Token": "file", "Accept": "text/html"},
			Disallow:  []string{"/private/"},
			Rate:      5,
			Workers:   3,
			UserAgent: "file-agent",
		},
	}}

	t.Run("fills unset values", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Root = "http://site.test"
		cfg.SiteConfigs = file
		cfg.ApplySite()

		if cfg.Cookie != "session=file" || cfg.Rate != 5 || cfg.Workers != 3 || cfg.UserAgent != "file-agent" {
			t.Errorf("unexpected config %+v", cfg)
		}
		if !slices.Equal(cfg.ExtraDisallow, []string{"/private/"}) {
			t.Errorf("unexpected disallow %v", cfg.ExtraDisallow)
		}
	})

	t.Run("keeps flag values", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Root = "http://site.test"
		cfg.SiteConfigs = file
		cfg.Rate = 10
		cfg.RateSet = true
		cfg.Cookie = "session=flag"
		cfg.Headers = map[string]string{"X-Token": "flag"}
		cfg.ApplySite()

		if cfg.Rate != 10 || cfg.Cookie != "session=flag" {
			t.Errorf("flag values overwritten: %+v", cfg)
		}
		if cfg.Headers["X-Token"] != "flag" || cfg.Headers["Accept"] != "text/html" {
			t.Errorf("unexpected headers %v", cfg.Headers)
		}
	})

	t.Run("explicit default values still win", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Root = "http://site.test"
		cfg.SiteConfigs = file
		cfg.Rate, cfg.RateSet = DefaultRate, true
		cfg.Workers, cfg.WorkersSet = DefaultWorkers, true
		cfg.UserAgent, cfg.UserAgentSet = DefaultUserAgent, true
		cfg.ApplySite()

		if cfg.Rate != DefaultRate || cfg.Workers != DefaultWorkers || cfg.UserAgent != DefaultUserAgent {
			t.Errorf("explicit values overwritten: rate=%d workers=%d ua=%q", cfg.Rate, cfg.Workers, cfg.UserAgent)
		}
	})

	t.Run("no file is a no-op", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Root = "http://site.test"
		cfg.ApplySite()
		if cfg.Cookie != "" || len(cfg.ExtraDisallow) != 0 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.scrapemapper")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".scrapemapper")
		content := `defaults:
  rate: 2
  cookie: "default=abc"
sites:
  site.test:
    workers: 4
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    disallow:
      - "/admin/*"
      - "/*.pdf$"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.Rate != 2 || cfg.Defaults.Cookie != "default=abc" {
			t.Errorf("unexpected defaults %+v", cfg.Defaults)
		}

		site, ok := cfg.Sites["site.test"]
		if !ok {
			t.Fatal("expected site.test in sites")
		}
		if site.Workers != 4 || site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("unexpected site %+v", site)
		}
		if len(site.Disallow) != 2 {
			t.Errorf("expected 2 disallow patterns, got %d", len(site.Disallow))
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".scrapemapper")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".scrapemapper")
		if err := os.WriteFile(configPath, []byte("defaults:\n  rate: 3\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("unexpected data dir %q", XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("unexpected config dir %q", XDGConfigDir())
	}
}
