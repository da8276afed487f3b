// Package chrome implements scraper.Browser on top of chromedp.
package chrome

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"listing-harvester/scraper"
	"listing-harvester/utils"
)

// Options configures the Chrome process and the single tab it opens.
type Options struct {
	ChromeBin      string
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	// OpTimeout bounds every script evaluation and node call.
	OpTimeout time.Duration
}

const defaultOpTimeout = 10 * time.Second

// Browser is one Chrome tab driven through the DevTools protocol.
type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opTimeout   time.Duration
	logger      *utils.Logger
}

// New starts Chrome and opens a tab bound to parent. The tab lives until
// Close or until parent is cancelled.
func New(parent context.Context, opts Options, logger *utils.Logger) (*Browser, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[chrome] Using browser binary: %s", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// The first Run launches the process and binds the tab to tabCtx, so it
	// must not carry a timeout of its own.
	actions := []chromedp.Action{network.Enable()}
	if opts.AcceptLanguage != "" {
		actions = append(actions, network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": opts.AcceptLanguage,
		}))
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("chrome: start: %w", err)
	}

	opTimeout := opts.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &Browser{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opTimeout:   opTimeout,
		logger:      logger,
	}, nil
}

// run executes actions on the tab under a deadline. Contexts derived from
// the tab after the first Run only bound the actions, never the tab.
func (b *Browser) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (b *Browser) Navigate(url string, timeout time.Duration) error {
	if err := b.run(timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("chrome: navigate %s: %w", url, err)
	}
	return nil
}

func (b *Browser) WaitReady(selector string, timeout time.Duration) error {
	if err := b.run(timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return b.classify(err, "wait ready "+selector)
	}
	return nil
}

func (b *Browser) ScrollHeight() (int64, error) {
	expr, err := scraper.Invoke(scraper.ScrollHeightJS)
	if err != nil {
		return 0, err
	}
	var height int64
	if err := b.run(b.opTimeout, chromedp.Evaluate(expr, &height)); err != nil {
		return 0, fmt.Errorf("chrome: scroll height: %w", err)
	}
	return height, nil
}

func (b *Browser) ScrollToBottom() error {
	expr, err := scraper.Invoke(scraper.ScrollToBottomJS)
	if err != nil {
		return err
	}
	if err := b.run(b.opTimeout, chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("chrome: scroll to bottom: %w", err)
	}
	return nil
}

func (b *Browser) FindAll(selector string) ([]scraper.Node, error) {
	var nodes []*cdp.Node
	err := b.run(b.opTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("chrome: find %s: %w", selector, err)
	}
	return b.wrap(nodes), nil
}

func (b *Browser) WaitClickable(selector string, timeout time.Duration) (scraper.Node, error) {
	ctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil {
		return nil, b.classify(err, "wait clickable "+selector)
	}
	if len(nodes) == 0 {
		return nil, scraper.ErrAbsent
	}
	found := &node{b: b, n: nodes[0]}
	if err := chromedp.Run(ctx, chromedp.WaitEnabled(found.ids(), chromedp.ByNodeID)); err != nil {
		return nil, b.classify(err, "wait enabled "+selector)
	}
	return found, nil
}

func (b *Browser) RemoveLeading(selector string, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	expr, err := scraper.Invoke(scraper.RemoveLeadingJS, selector, n)
	if err != nil {
		return 0, err
	}
	var removed int
	if err := b.run(b.opTimeout, chromedp.Evaluate(expr, &removed)); err != nil {
		return 0, fmt.Errorf("chrome: remove leading %s: %w", selector, err)
	}
	return removed, nil
}

// Close closes the tab and kills the Chrome process.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancelTab()
	b.cancelAlloc()
	if err != nil {
		return fmt.Errorf("chrome: close: %w", err)
	}
	return nil
}

// classify turns a wait that ran out of time into scraper.ErrAbsent.
func (b *Browser) classify(err error, what string) error {
	if scraper.IsAbsent(err) && b.ctx.Err() == nil {
		return fmt.Errorf("chrome: %s: %w", what, scraper.ErrAbsent)
	}
	return fmt.Errorf("chrome: %s: %w", what, err)
}

func (b *Browser) wrap(nodes []*cdp.Node) []scraper.Node {
	out := make([]scraper.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &node{b: b, n: n})
	}
	return out
}

// node addresses one element by its DOM node id.
type node struct {
	b *Browser
	n *cdp.Node
}

func (n *node) ids() []cdp.NodeID { return []cdp.NodeID{n.n.NodeID} }

func (n *node) Attribute(name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := n.b.run(n.b.opTimeout, chromedp.AttributeValue(n.ids(), name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", false, fmt.Errorf("chrome: attribute %s: %w", name, err)
	}
	return value, ok, nil
}

func (n *node) Text() (string, error) {
	var text string
	if err := n.b.run(n.b.opTimeout, chromedp.Text(n.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("chrome: text: %w", err)
	}
	return text, nil
}

func (n *node) OuterHTML() (string, error) {
	var html string
	if err := n.b.run(n.b.opTimeout, chromedp.OuterHTML(n.ids(), &html, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("chrome: outer html: %w", err)
	}
	return html, nil
}

func (n *node) Find(selector string) (scraper.Node, error) {
	var nodes []*cdp.Node
	err := n.b.run(n.b.opTimeout, chromedp.Nodes(selector, &nodes,
		chromedp.ByQueryAll, chromedp.FromNode(n.n), chromedp.AtLeast(0)))
	if err != nil {
		return nil, n.b.classify(err, "find "+selector)
	}
	if len(nodes) == 0 {
		return nil, scraper.ErrAbsent
	}
	return &node{b: n.b, n: nodes[0]}, nil
}

func (n *node) Click() error {
	if err := n.b.run(n.b.opTimeout, chromedp.Click(n.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("chrome: click: %w", err)
	}
	return nil
}

func (n *node) ScrollIntoView() error {
	if err := n.b.run(n.b.opTimeout, chromedp.ScrollIntoView(n.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("chrome: scroll into view: %w", err)
	}
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
