package render

import (
	"fmt"
	"time"
)

type Profile string

const (
	// ProfileLocal drives a full local Chrome/Chromium install.
	ProfileLocal Profile = "local"
	// ProfileConstrained drives a trimmed serverless Chromium build.
	ProfileConstrained Profile = "constrained"
)

const (
	DefaultLaunchTimeout = 30 * time.Second
	DefaultLoadTimeout   = 30 * time.Second
	DefaultImageTimeout  = 5 * time.Second
	DefaultPDFTimeout    = 30 * time.Second
)

// A4 portrait with 10mm margins, in inches.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 10 / 25.4
)

type Viewport struct {
	Width  int
	Height int
}

// Config is the resolved browser setup for one process. It is built once at
// startup and shared read-only by every render attempt.
type Config struct {
	Profile           Profile
	BrowserPath       string
	Flags             []string
	Viewport          *Viewport
	IgnoreHTTPSErrors bool
	// Leakless runs the browser under rod's leakless guard. The guard binary
	// cannot be unpacked on read-only serverless filesystems.
	Leakless bool

	LaunchTimeout time.Duration
	LoadTimeout   time.Duration
	ImageTimeout  time.Duration
	PDFTimeout    time.Duration
}

var localFlags = []string{
	"no-sandbox",
	"disable-setuid-sandbox",
	"disable-gpu",
	"disable-dev-shm-usage",
}

var constrainedFlags = []string{
	"single-process",
	"no-zygote",
	"hide-scrollbars",
	"ignore-certificate-errors",
}

// NewConfig resolves the browser setup for a profile. localPath may be empty,
// in which case the engine looks up a browser itself.
func NewConfig(profile Profile, localPath, serverlessPath string) (Config, error) {
	cfg := Config{
		Profile:       profile,
		LaunchTimeout: DefaultLaunchTimeout,
		LoadTimeout:   DefaultLoadTimeout,
		ImageTimeout:  DefaultImageTimeout,
		PDFTimeout:    DefaultPDFTimeout,
	}

	switch profile {
	case ProfileLocal:
		cfg.BrowserPath = localPath
		cfg.Flags = append([]string(nil), localFlags...)
		cfg.Leakless = true
	case ProfileConstrained:
		if serverlessPath == "" {
			return Config{}, fmt.Errorf("constrained profile requires a serverless chromium path")
		}
		cfg.BrowserPath = serverlessPath
		cfg.Flags = append(append([]string(nil), localFlags...), constrainedFlags...)
		cfg.Viewport = &Viewport{Width: 1920, Height: 1080}
		cfg.IgnoreHTTPSErrors = true
	default:
		return Config{}, fmt.Errorf("unknown render profile %q", profile)
	}

	return cfg, nil
}
