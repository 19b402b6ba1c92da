// Package rod performs resolved actions on a Chromium page through the
// DevTools protocol, addressing elements by screen coordinates.
package rod

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"screen-agent/internal/application/port/output"
	"screen-agent/internal/domain/entity"
)

var _ output.AutomationPort = (*Automation)(nil)

const (
	defaultTimeout = 10 * time.Second
	moveSteps      = 8
)

type Config struct {
	Headless   bool
	NoSandbox  bool
	SlowMotion time.Duration
	Timeout    time.Duration
	StartURL   string
	// DeviceScale converts screenshot pixels to CSS pixels.
	DeviceScale float64
}

func DefaultConfig() Config {
	return Config{
		Timeout:     defaultTimeout,
		StartURL:    "about:blank",
		DeviceScale: 1,
	}
}

type Automation struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      Config
	logger   output.LoggerPort

	mu          sync.Mutex
	lastCapture string
}

func New(ctx context.Context, cfg Config, logger output.LoggerPort) (*Automation, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.DeviceScale <= 0 {
		cfg.DeviceScale = 1
	}
	if cfg.StartURL == "" {
		cfg.StartURL = "about:blank"
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		Context(ctx).
		ControlURL(url).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.StartURL})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	_ = page.WaitLoad()

	logger.Info("Browser ready", "url", cfg.StartURL, "headless", cfg.Headless)
	return &Automation{
		browser:  browser,
		launcher: l,
		page:     page,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (a *Automation) Navigate(ctx context.Context, url string) error {
	p := a.page.Context(ctx).Timeout(a.cfg.Timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load failed: %w", err)
	}
	return nil
}

// Perform replays one command with the mouse and keyboard.
func (a *Automation) Perform(ctx context.Context, cmd output.Command) error {
	p := a.page.Context(ctx).Timeout(a.cfg.Timeout)
	defer p.CancelTimeout()

	at := a.point(cmd.X, cmd.Y)
	mouse := p.Mouse

	if err := mouse.MoveLinear(at, moveSteps); err != nil {
		return fmt.Errorf("move to %v failed: %w", at, err)
	}

	var err error
	switch cmd.Action {
	case entity.ActionLeftClick:
		err = mouse.Click(proto.InputMouseButtonLeft, 1)
	case entity.ActionRightClick:
		err = mouse.Click(proto.InputMouseButtonRight, 1)
	case entity.ActionDoubleClick:
		err = mouse.Click(proto.InputMouseButtonLeft, 2)
	case entity.ActionHover:
	case entity.ActionTypeText:
		if err = mouse.Click(proto.InputMouseButtonLeft, 1); err == nil && cmd.Text != "" {
			err = p.InsertText(cmd.Text)
		}
	case entity.ActionScroll:
		d := a.point(cmd.DX, cmd.DY)
		err = mouse.Scroll(d.X, d.Y, moveSteps)
	case entity.ActionDrag:
		to := a.point(cmd.X+cmd.DX, cmd.Y+cmd.DY)
		if err = mouse.Down(proto.InputMouseButtonLeft, 1); err == nil {
			if err = mouse.MoveLinear(to, moveSteps); err == nil {
				err = mouse.Up(proto.InputMouseButtonLeft, 1)
			}
		}
	default:
		return fmt.Errorf("unsupported action %q", cmd.Action)
	}
	if err != nil {
		return fmt.Errorf("%s at %v failed: %w", cmd.Action, at, err)
	}

	a.logger.Debug("Action performed", "step", cmd.Step, "action", cmd.Action, "x", at.X, "y", at.Y)
	return nil
}

// Capture writes a PNG screenshot of the viewport to path.
func (a *Automation) Capture(ctx context.Context, path string) error {
	p := a.page.Context(ctx).Timeout(a.cfg.Timeout)
	defer p.CancelTimeout()

	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatPng,
		Quality: gson.Int(90),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}

	a.mu.Lock()
	a.lastCapture = path
	a.mu.Unlock()
	return nil
}

// LastCapture is the path of the most recent successful Capture.
func (a *Automation) LastCapture() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastCapture
}

func (a *Automation) Close() error {
	var err error
	if a.browser != nil {
		err = a.browser.Close()
	}
	if a.launcher != nil {
		a.launcher.Kill()
		a.launcher.Cleanup()
	}
	return err
}

func (a *Automation) point(x, y float64) proto.Point {
	return proto.Point{X: x / a.cfg.DeviceScale, Y: y / a.cfg.DeviceScale}
}
