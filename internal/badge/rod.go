package badge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/soyeahso/certagent/internal/logging"
)

// RodLauncher starts a dedicated Chrome process per session using go-rod.
type RodLauncher struct {
	Bin      string   // Chrome binary; empty lets rod find or download one
	Headless bool
	Flags    []string // extra flags such as "--lang=en-US"
	log      *logging.Logger
}

// NewRodLauncher creates a launcher for headless or headed Chrome.
func NewRodLauncher(bin string, headless bool, extraFlags []string, log *logging.Logger) *RodLauncher {
	return &RodLauncher{
		Bin:      bin,
		Headless: headless,
		Flags:    extraFlags,
		log:      log.Sub("badge.rod"),
	}
}

// Launch starts Chrome and connects to it. The returned session owns the
// process and its profile directory.
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	lc := launcher.New().
		Context(ctx).
		Headless(l.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if l.Bin != "" {
		lc = lc.Bin(l.Bin)
	}
	for _, raw := range l.Flags {
		name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if hasVal {
			lc = lc.Set(flags.Flag(name), val)
		} else {
			lc = lc.Set(flags.Flag(name))
		}
	}

	controlURL, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		lc.Kill()
		lc.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	l.log.Debug().Str("controlURL", controlURL).Msg("browser started")
	return &rodSession{launcher: lc, browser: browser, log: l.log}, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	log      *logging.Logger
}

func (s *rodSession) Navigate(ctx context.Context, url string) (Page, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	return &rodPage{page: page}, nil
}

// Close shuts the browser down, then kills the process and removes its
// profile directory even if the graceful close failed.
func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.log.Debug().Msg("browser closed")
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	timed := p.page.Context(ctx).Timeout(timeout)
	defer timed.CancelTimeout()

	_, err := timed.Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrWaitTimeout
		}
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Text(selector string) (string, bool, error) {
	has, el, err := p.page.Has(selector)
	if err != nil {
		return "", false, err
	}
	if !has {
		return "", false, nil
	}
	text, err := el.Text()
	if err != nil {
		return "", true, err
	}
	return text, true, nil
}

func (p *rodPage) HTML() (string, error) {
	return p.page.HTML()
}
