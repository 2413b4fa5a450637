package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeLauncher creates chromedp-backed sessions sharing one browser
// process. Each session is its own tab with its own fingerprint.
type ChromeLauncher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *logrus.Logger
}

// NewChromeLauncher starts the allocator. execPath may be empty to use the
// default browser lookup.
func NewChromeLauncher(headless bool, execPath string, logger *logrus.Logger) *ChromeLauncher {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeLauncher{allocCtx: allocCtx, allocCancel: cancel, logger: logger}
}

// NewSession opens a tab with a freshly randomized fingerprint applied.
func (l *ChromeLauncher) NewSession(ctx context.Context) (Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(l.allocCtx)
	fp := RandomFingerprint()

	s := &chromeSession{ctx: tabCtx, cancel: tabCancel, fingerprint: fp}
	if err := s.run(ctx, s.applyFingerprint()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("apply fingerprint: %w", err)
	}

	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"viewport": fmt.Sprintf("%dx%d", fp.Width, fp.Height),
			"timezone": fp.Timezone,
		}).Debug("Browser session started")
	}
	return s, nil
}

// Close shuts the shared browser process down.
func (l *ChromeLauncher) Close() {
	l.allocCancel()
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	fingerprint Fingerprint
}

// run executes chromedp actions on the tab while honoring the caller's
// context; caller cancellation tears the tab down.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.ctx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *chromeSession) applyFingerprint() chromedp.Action {
	fp := s.fingerprint
	return chromedp.Tasks{
		emulation.SetUserAgentOverride(fp.UserAgent).WithAcceptLanguage("en-US,en;q=0.9"),
		emulation.SetDeviceMetricsOverride(int64(fp.Width), int64(fp.Height), fp.DeviceScale, false),
		emulation.SetTimezoneOverride(fp.Timezone),
		emulation.SetGeolocationOverride().
			WithLatitude(fp.Latitude).
			WithLongitude(fp.Longitude).
			WithAccuracy(50),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(fp.StealthScript()).Do(ctx)
			return err
		}),
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *chromeSession) Links(ctx context.Context, selector string) ([]Link, error) {
	var links []Link
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(a => ({href: a.href || '', text: a.innerText || ''}))`,
		selector,
	)
	if err := s.run(ctx, chromedp.Evaluate(script, &links)); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *chromeSession) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text))
	return text, err
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// SimulateHuman moves the mouse along a few random points, scrolls in steps
// and pauses between actions.
func (s *chromeSession) SimulateHuman(ctx context.Context) error {
	fp := s.fingerprint
	tasks := chromedp.Tasks{}

	for i := 0; i < 3; i++ {
		x := float64(rand.Intn(fp.Width-100) + 50)
		y := float64(rand.Intn(fp.Height-100) + 50)
		tasks = append(tasks,
			chromedp.ActionFunc(func(ctx context.Context) error {
				return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
			}),
			chromedp.Sleep(time.Duration(150+rand.Intn(350))*time.Millisecond),
		)
	}

	for i := 0; i < 2; i++ {
		step := 200 + rand.Intn(400)
		tasks = append(tasks,
			chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, step), nil),
			chromedp.Sleep(time.Duration(300+rand.Intn(500))*time.Millisecond),
		)
	}

	return s.run(ctx, tasks)
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
