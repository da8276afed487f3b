// Package rodbrowser implements scraper.Browser on top of go-rod.
package rodbrowser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"listing-harvester/scraper"
	"listing-harvester/utils"
)

// Options configures the launched browser and its page.
type Options struct {
	BrowserBin     string
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	// OpTimeout bounds every script evaluation and element call.
	OpTimeout time.Duration
}

const defaultOpTimeout = 10 * time.Second

// Browser is one rod page plus the browser process behind it.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page      *rod.Page
	opTimeout time.Duration
	logger    *utils.Logger
}

// New launches a browser and opens a blank page bound to ctx.
func New(ctx context.Context, opts Options, logger *utils.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("window-size"), "1920,1080")
	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("rod: launch: %w", err)
	}
	logger.Info("[rod] Browser launched: %s", controlURL)

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("rod: connect: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("rod: open page: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.AcceptLanguage,
		}); err != nil {
			logger.Warn("[rod] Could not override user agent: %v", err)
		}
	}
	if opts.AcceptLanguage != "" {
		headers := toHeadersMap(map[string]string{"Accept-Language": opts.AcceptLanguage})
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: headers}).Call(page); err != nil {
			logger.Warn("[rod] Could not set extra headers: %v", err)
		}
	}

	opTimeout := opts.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &Browser{launcher: l, browser: browser, page: page, opTimeout: opTimeout, logger: logger}, nil
}

func (b *Browser) Navigate(url string, timeout time.Duration) error {
	p := b.page.Timeout(timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("rod: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("rod: wait load %s: %w", url, err)
	}
	return nil
}

func (b *Browser) WaitReady(selector string, timeout time.Duration) error {
	p := b.page.Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.Element(selector); err != nil {
		return classify(err, "wait ready "+selector)
	}
	return nil
}

func (b *Browser) ScrollHeight() (int64, error) {
	p := b.page.Timeout(b.opTimeout)
	defer p.CancelTimeout()

	res, err := p.Eval(scraper.ScrollHeightJS)
	if err != nil {
		return 0, fmt.Errorf("rod: scroll height: %w", err)
	}
	return int64(res.Value.Int()), nil
}

func (b *Browser) ScrollToBottom() error {
	p := b.page.Timeout(b.opTimeout)
	defer p.CancelTimeout()

	if _, err := p.Eval(scraper.ScrollToBottomJS); err != nil {
		return fmt.Errorf("rod: scroll to bottom: %w", err)
	}
	return nil
}

// FindAll returns elements bound to the page context; each node call sets
// its own deadline.
func (b *Browser) FindAll(selector string) ([]scraper.Node, error) {
	p := b.page.Timeout(b.opTimeout)
	defer p.CancelTimeout()

	els, err := p.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rod: find %s: %w", selector, err)
	}
	out := make([]scraper.Node, 0, len(els))
	for _, el := range els {
		out = append(out, b.node(el))
	}
	return out, nil
}

func (b *Browser) WaitClickable(selector string, timeout time.Duration) (scraper.Node, error) {
	p := b.page.Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return nil, classify(err, "wait clickable "+selector)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, classify(err, "wait visible "+selector)
	}
	if err := el.WaitEnabled(); err != nil {
		return nil, classify(err, "wait enabled "+selector)
	}
	return b.node(el), nil
}

func (b *Browser) node(el *rod.Element) *node {
	return &node{el: el.Context(b.page.GetContext()), timeout: b.opTimeout}
}

func (b *Browser) RemoveLeading(selector string, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	p := b.page.Timeout(b.opTimeout)
	defer p.CancelTimeout()

	res, err := p.Eval(scraper.RemoveLeadingJS, selector, n)
	if err != nil {
		return 0, fmt.Errorf("rod: remove leading %s: %w", selector, err)
	}
	return res.Value.Int(), nil
}

// Close closes the browser and kills the launched process.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.logger.Debug("[rod] Browser process killed")
	if err != nil {
		return fmt.Errorf("rod: close: %w", err)
	}
	return nil
}

func classify(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("rod: %s: %w", what, scraper.ErrAbsent)
	}
	return fmt.Errorf("rod: %s: %w", what, err)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

type node struct {
	el      *rod.Element
	timeout time.Duration
}

// timed returns the element under the node's deadline and its release.
func (n *node) timed() (*rod.Element, func()) {
	el := n.el.Timeout(n.timeout)
	return el, func() { el.CancelTimeout() }
}

func (n *node) Attribute(name string) (string, bool, error) {
	el, done := n.timed()
	defer done()

	v, err := el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("rod: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *node) Text() (string, error) {
	el, done := n.timed()
	defer done()

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("rod: text: %w", err)
	}
	return text, nil
}

func (n *node) OuterHTML() (string, error) {
	el, done := n.timed()
	defer done()

	html, err := el.HTML()
	if err != nil {
		return "", fmt.Errorf("rod: outer html: %w", err)
	}
	return html, nil
}

func (n *node) Find(selector string) (scraper.Node, error) {
	el, done := n.timed()
	defer done()

	els, err := el.Elements(selector)
	if err != nil {
		return nil, classify(err, "find "+selector)
	}
	if els.Empty() {
		return nil, scraper.ErrAbsent
	}
	return &node{el: els.First().Context(n.el.GetContext()), timeout: n.timeout}, nil
}

func (n *node) Click() error {
	el, done := n.timed()
	defer done()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("rod: click: %w", err)
	}
	return nil
}

func (n *node) ScrollIntoView() error {
	el, done := n.timed()
	defer done()

	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("rod: scroll into view: %w", err)
	}
	return nil
}
