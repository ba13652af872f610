package portal

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session owns one launched browser for one payment attempt. The
// worker that runs the attempt owns the session's lifetime; it may
// outlive the attempt's result when the operator wants the window
// left open for inspection.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	createdAt time.Time
}

// Launch installs (if needed) and starts Playwright, launches a
// Chromium browser, and opens the portal's entry page.
func Launch(cfg Config) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 960},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(cfg.withDefaults().StepTimeout.Milliseconds()))

	if _, err := page.Goto(cfg.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		page.Close()
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to open portal: %w", err)
	}

	return &Session{
		pw:        pw,
		browser:   browser,
		context:   context,
		page:      page,
		createdAt: time.Now(),
	}, nil
}

// Page returns the driver-facing view of the session's page.
func (s *Session) Page() Page {
	return newPlaywrightPage(s.page)
}

// Close tears down the browser and Playwright. Resource close errors
// are ignored during cleanup, matching shutdown-path convention.
func (s *Session) Close() error {
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// playwrightPage adapts a live playwright.Page to the Page interface.
type playwrightPage struct {
	page playwright.Page

	// acceptDialogs is read by the dialog handler registered at
	// construction. Dismissal is the default; only an explicit
	// SetDialogPolicy(true) arms acceptance.
	acceptDialogs atomic.Bool
}

func newPlaywrightPage(page playwright.Page) *playwrightPage {
	p := &playwrightPage{page: page}
	page.OnDialog(func(dialog playwright.Dialog) {
		if p.acceptDialogs.Load() {
			_ = dialog.Accept()
			return
		}
		_ = dialog.Dismiss()
	})
	return p
}

func (p *playwrightPage) Frames() []Frame {
	pwFrames := p.page.Frames()
	frames := make([]Frame, 0, len(pwFrames))
	for _, f := range pwFrames {
		frames = append(frames, &playwrightFrame{frame: f})
	}
	return frames
}

func (p *playwrightPage) SetDialogPolicy(accept bool) {
	p.acceptDialogs.Store(accept)
}

func (p *playwrightPage) PDF() ([]byte, error) {
	return p.page.PDF()
}

// playwrightFrame adapts a playwright.Frame to the Frame interface.
type playwrightFrame struct {
	frame playwright.Frame
}

func (f *playwrightFrame) Name() string {
	return f.frame.Name()
}

func (f *playwrightFrame) Content() (string, error) {
	return f.frame.Content()
}

func (f *playwrightFrame) InnerText() (string, error) {
	return f.frame.InnerText("body", playwright.FrameInnerTextOptions{
		Timeout: playwright.Float(2000),
	})
}

func (f *playwrightFrame) Click(selector string, timeout time.Duration) error {
	return f.frame.Click(selector, playwright.FrameClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (f *playwrightFrame) Fill(selector, value string, timeout time.Duration) error {
	return f.frame.Fill(selector, value, playwright.FrameFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}
