package types

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rendering engines understood by utils.NewRenderer.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
	EngineHTTP     = "http"
)

// Config holds the configuration for a scrape run
type Config struct {
	ListingURL  string `yaml:"listing_url"`
	SiteBaseURL string `yaml:"site_base_url"`
	StoreDSN    string `yaml:"store_dsn"`

	MaxRetries       int           `yaml:"max_retries"`
	DetailMaxRetries int           `yaml:"detail_max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	MaxPages         int           `yaml:"max_pages"`
	MaxEnrichDetails int           `yaml:"max_enrich_details"`
	InterPageDelay   time.Duration `yaml:"inter_page_delay"`
	InterDetailDelay time.Duration `yaml:"inter_detail_delay"`

	Engine               string            `yaml:"engine"`
	Headless             bool              `yaml:"headless"`
	UserAgent            string            `yaml:"user_agent"`
	ViewportWidth        int               `yaml:"viewport_width"`
	ViewportHeight       int               `yaml:"viewport_height"`
	ExtraHeaders         map[string]string `yaml:"extra_headers"`
	NavigationTimeout    time.Duration     `yaml:"navigation_timeout"`
	ReadyTimeout         time.Duration     `yaml:"ready_timeout"`
	ContentWaitSelectors []string          `yaml:"content_wait_selectors"`

	DebugCaptureEnabled bool   `yaml:"debug_capture_enabled"`
	DebugDir            string `yaml:"debug_dir"`

	Selectors Selectors `yaml:"selectors"`
}

// Selectors are the site markers the heuristics look for
type Selectors struct {
	Name           string `yaml:"name"`
	Container      string `yaml:"container"`
	FaceLink       string `yaml:"face_link"`
	Author         string `yaml:"author"`
	Description    string `yaml:"description"`
	Heading        string `yaml:"heading"`
	DetailName     string `yaml:"detail_name"`
	DetailAuthor   string `yaml:"detail_author"`
	DetailImage    string `yaml:"detail_image"`
	DetailDesc     string `yaml:"detail_description"`
	DetailApps     string `yaml:"detail_apps"`
	FacePathMarker string `yaml:"face_path_marker"`
}

// DefaultSelectors returns the markers used by watchfacely.com
func DefaultSelectors() Selectors {
	return Selectors{
		Name:           ".text-block-2",
		Container:      "div, article, section",
		FaceLink:       `a[href*="/face/"]`,
		Author:         `.author_name, [class*="author"], [class*="composer"], [class*="by"]`,
		Description:    `p, .description, [class*="desc"]`,
		Heading:        `h1, h2, h3, h4, h5, .title, [class*="name"], .heading-3`,
		DetailName:     ".heading-3",
		DetailAuthor:   ".author_name",
		DetailImage:    `img[src*="snapshot.png"], img[src*="watchfaces"], img[src*="assets.watchfacely.com"]`,
		DetailDesc:     `p, .description, [class*="desc"], .text-block`,
		DetailApps:     `[class*="apps"], [class*="Apps"], [class*="compatibility"]`,
		FacePathMarker: "/face/",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListingURL:       "https://www.watchfacely.com/latest",
		SiteBaseURL:      "https://www.watchfacely.com",
		StoreDSN:         "sqlite://watchfaces.db",
		MaxRetries:       3,
		DetailMaxRetries: 1,
		RetryBackoff:     3 * time.Second,
		MaxPages:         3,
		MaxEnrichDetails: 5,
		InterPageDelay:   2 * time.Second,
		InterDetailDelay: 2 * time.Second,
		Engine:           EngineChromedp,
		Headless:         true,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:    1366,
		ViewportHeight:   768,
		ExtraHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
		NavigationTimeout:    30 * time.Second,
		ReadyTimeout:         15 * time.Second,
		ContentWaitSelectors: []string{".text-block-2", "img"},
		DebugDir:             ".",
		Selectors:            DefaultSelectors(),
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Selectors.fillDefaults()
	return cfg, nil
}

// ApplyEnv overlays the environment variables the scraper understands
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LISTING_URL"); v != "" {
		c.ListingURL = v
	}
	if v := os.Getenv("SITE_BASE_URL"); v != "" {
		c.SiteBaseURL = v
	}
	if v := os.Getenv("STORE_DSN"); v != "" {
		c.StoreDSN = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" {
		c.StoreDSN = v
	}
	if v := os.Getenv("SCRAPER_ENGINE"); v != "" {
		c.Engine = strings.ToLower(v)
	}
	if v := os.Getenv("DEBUG_MODE"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.DebugCaptureEnabled = enabled
		}
	}
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListingURL) == "" {
		errs = append(errs, errors.New("listing url is required"))
	}
	if strings.TrimSpace(c.SiteBaseURL) == "" {
		errs = append(errs, errors.New("site base url is required"))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max retries must be positive, got %d", c.MaxRetries))
	}
	if c.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("max pages must be positive, got %d", c.MaxPages))
	}
	if c.MaxEnrichDetails < 0 {
		errs = append(errs, fmt.Errorf("max enrich details must not be negative, got %d", c.MaxEnrichDetails))
	}
	if c.InterPageDelay < 0 || c.InterDetailDelay < 0 || c.RetryBackoff < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	switch c.Engine {
	case EngineChromedp, EngineRod, EngineHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	return errors.Join(errs...)
}

func (s *Selectors) fillDefaults() {
	d := DefaultSelectors()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&s.Name, d.Name)
	fill(&s.Container, d.Container)
	fill(&s.FaceLink, d.FaceLink)
	fill(&s.Author, d.Author)
	fill(&s.Description, d.Description)
	fill(&s.Heading, d.Heading)
	fill(&s.DetailName, d.DetailName)
	fill(&s.DetailAuthor, d.DetailAuthor)
	fill(&s.DetailImage, d.DetailImage)
	fill(&s.DetailDesc, d.DetailDesc)
	fill(&s.DetailApps, d.DetailApps)
	fill(&s.FacePathMarker, d.FacePathMarker)
}
