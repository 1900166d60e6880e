// Package platform supplies the color-scheme signal the preference store
// follows while the user preference is "system".
package platform

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/models"
)

// SchemeSource reports the platform's color scheme and notifies on change.
// The stop function returned by Watch must be safe to call more than once.
type SchemeSource interface {
	Current() models.Theme
	Watch(fn func(models.Theme)) (stop func())
}

// Static is a settable source. Set notifies watchers synchronously.
type Static struct {
	mu       sync.Mutex
	theme    models.Theme
	next     int
	watchers map[int]func(models.Theme)
}

func NewStatic(theme models.Theme) *Static {
	return &Static{theme: theme, watchers: map[int]func(models.Theme){}}
}

func (s *Static) Current() models.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Set changes the scheme. Watchers are only called when the value changes.
func (s *Static) Set(theme models.Theme) {
	s.mu.Lock()
	if s.theme == theme {
		s.mu.Unlock()
		return
	}
	s.theme = theme
	fns := make([]func(models.Theme), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(theme)
	}
}

func (s *Static) Watch(fn func(models.Theme)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Watchers returns the number of live subscriptions.
func (s *Static) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// EnvSchemeVar overrides detection when set to "dark" or "light".
const EnvSchemeVar = "TASKDESK_COLOR_SCHEME"

// DefaultPollInterval is used when a poller is built with a non-positive
// interval.
const DefaultPollInterval = 2 * time.Second

const appearanceTimeout = time.Second

// Poller re-reads the platform scheme on every tick. Sources are consulted
// in order and the first that answers wins:
//
//	TASKDESK_COLOR_SCHEME
//	the scheme file ("dark" or "light"; rewritten by desktop hooks)
//	the desktop appearance setting (gsettings, macOS defaults)
//	the terminal background in COLORFGBG
//
// Light is the fallback. The two environment sources are fixed for the life
// of the process, so only the file and the desktop setting can change a
// running session.
type Poller struct {
	interval   time.Duration
	file       string
	lookup     func(string) (string, bool)
	readFile   func(string) ([]byte, error)
	appearance func(context.Context) (models.Theme, bool)
}

// NewPoller builds a poller reading file on every tick. An empty file skips
// that source.
func NewPoller(interval time.Duration, file string) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval:   interval,
		file:       file,
		lookup:     os.LookupEnv,
		readFile:   os.ReadFile,
		appearance: desktopAppearance(),
	}
}

func (p *Poller) Current() models.Theme {
	if v, ok := p.lookup(EnvSchemeVar); ok {
		if th, ok := parseScheme(v); ok {
			return th
		}
	}
	if p.file != "" && p.readFile != nil {
		if b, err := p.readFile(p.file); err == nil {
			if th, ok := parseScheme(string(b)); ok {
				return th
			}
		}
	}
	if p.appearance != nil {
		ctx, cancel := context.WithTimeout(context.Background(), appearanceTimeout)
		th, ok := p.appearance(ctx)
		cancel()
		if ok {
			return th
		}
	}
	if v, ok := p.lookup("COLORFGBG"); ok {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			// ANSI 0-6 and 8 are dark backgrounds.
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return models.ThemeDark
			}
			return models.ThemeLight
		}
	}
	return models.ThemeLight
}

// Watch starts a ticker goroutine that calls fn whenever Current changes.
// stop blocks until the goroutine has exited.
func (p *Poller) Watch(fn func(models.Theme)) func() {
	interval := p.interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	last := p.Current()

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cur := p.Current(); cur != last {
					last = cur
					fn(cur)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

func parseScheme(v string) (models.Theme, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "dark":
		return models.ThemeDark, true
	case "light":
		return models.ThemeLight, true
	}
	return "", false
}

// desktopAppearance returns a reader for the OS appearance setting, or nil
// when the platform tool is not installed.
func desktopAppearance() func(context.Context) (models.Theme, bool) {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("defaults"); err != nil {
			return nil
		}
		return func(ctx context.Context) (models.Theme, bool) {
			out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").Output()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				// The key is absent in light mode.
				return models.ThemeLight, true
			}
			if err != nil {
				return "", false
			}
			return parseAppleStyle(string(out))
		}
	case "windows", "ios", "android", "js", "wasip1", "plan9":
		return nil
	default:
		if _, err := exec.LookPath("gsettings"); err != nil {
			return nil
		}
		return func(ctx context.Context) (models.Theme, bool) {
			out, err := exec.CommandContext(ctx, "gsettings", "get", "org.gnome.desktop.interface", "color-scheme").Output()
			if err != nil {
				return "", false
			}
			return parseGnomeScheme(string(out))
		}
	}
}

func parseAppleStyle(out string) (models.Theme, bool) {
	if strings.EqualFold(strings.TrimSpace(out), "dark") {
		return models.ThemeDark, true
	}
	return models.ThemeLight, true
}

// parseGnomeScheme reads gsettings output such as 'prefer-dark'.
func parseGnomeScheme(out string) (models.Theme, bool) {
	switch strings.Trim(strings.TrimSpace(out), "'\"") {
	case "prefer-dark":
		return models.ThemeDark, true
	case "prefer-light", "default":
		return models.ThemeLight, true
	}
	return "", false
}
