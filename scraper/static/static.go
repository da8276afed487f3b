// Package static implements scraper.Browser over saved HTML snapshots.
//
// The first snapshot is the initial page. Clicking a node returned by
// WaitClickable appends the items of the next snapshot after the last item
// currently in the document; once every snapshot has been revealed the
// clicked control is removed. Scrolling does nothing and the page height is
// the length of the rendered body, so it only grows when items are added.
package static

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listing-harvester/scraper"
)

// Browser is an in-memory page built from HTML snapshots. Not safe for
// concurrent use.
type Browser struct {
	itemSelector string
	doc          *goquery.Document
	pending      [][]string // outer HTML of items, one slice per snapshot
	closed       bool
}

// New builds a Browser from page HTML. pages[0] is the initial document.
func New(itemSelector string, pages ...string) (*Browser, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("static: no pages")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pages[0]))
	if err != nil {
		return nil, fmt.Errorf("static: parse page 1: %w", err)
	}

	b := &Browser{itemSelector: itemSelector, doc: doc}
	for i, page := range pages[1:] {
		next, err := goquery.NewDocumentFromReader(strings.NewReader(page))
		if err != nil {
			return nil, fmt.Errorf("static: parse page %d: %w", i+2, err)
		}
		var items []string
		next.Find(itemSelector).Each(func(_ int, s *goquery.Selection) {
			if html, err := goquery.OuterHtml(s); err == nil {
				items = append(items, html)
			}
		})
		b.pending = append(b.pending, items)
	}
	return b, nil
}

// Load reads every page-*.html file in dir, in lexical order.
func Load(dir, itemSelector string) (*Browser, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "page-*.html"))
	if err != nil {
		return nil, fmt.Errorf("static: glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("static: no page-*.html files in %s", dir)
	}
	sort.Strings(paths)

	pages := make([]string, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("static: read %s: %w", p, err)
		}
		pages = append(pages, string(raw))
	}
	return New(itemSelector, pages...)
}

// Navigate is a no-op: the snapshot is already loaded.
func (b *Browser) Navigate(string, time.Duration) error {
	if b.closed {
		return fmt.Errorf("static: browser closed")
	}
	return nil
}

func (b *Browser) WaitReady(selector string, _ time.Duration) error {
	if b.doc.Find(selector).Length() == 0 {
		return scraper.ErrAbsent
	}
	return nil
}

func (b *Browser) ScrollHeight() (int64, error) {
	html, err := b.doc.Find("body").Html()
	if err != nil {
		return 0, fmt.Errorf("static: render body: %w", err)
	}
	return int64(len(html)), nil
}

func (b *Browser) ScrollToBottom() error { return nil }

func (b *Browser) FindAll(selector string) ([]scraper.Node, error) {
	var out []scraper.Node
	b.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &node{b: b, sel: s})
	})
	return out, nil
}

func (b *Browser) WaitClickable(selector string, _ time.Duration) (scraper.Node, error) {
	var found *goquery.Selection
	b.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, disabled := s.Attr("disabled"); disabled {
			return true
		}
		found = s
		return false
	})
	if found == nil {
		return nil, scraper.ErrAbsent
	}
	return &node{b: b, sel: found, control: true}, nil
}

func (b *Browser) RemoveLeading(selector string, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	matches := b.doc.Find(selector)
	if n > matches.Length() {
		n = matches.Length()
	}
	matches.Slice(0, n).Remove()
	return n, nil
}

func (b *Browser) Close() error {
	b.closed = true
	return nil
}

// Remaining reports how many snapshots are still waiting to be appended.
func (b *Browser) Remaining() int { return len(b.pending) }

func (b *Browser) loadNext(control *goquery.Selection) {
	if len(b.pending) == 0 {
		control.Remove()
		return
	}
	html := strings.Join(b.pending[0], "")
	b.pending = b.pending[1:]

	if last := b.doc.Find(b.itemSelector).Last(); last.Length() > 0 {
		last.AfterHtml(html)
	} else {
		b.doc.Find("body").PrependHtml(html)
	}
	if len(b.pending) == 0 {
		control.Remove()
	}
}

type node struct {
	b       *Browser
	sel     *goquery.Selection
	control bool
}

func (n *node) Attribute(name string) (string, bool, error) {
	v, ok := n.sel.Attr(name)
	return v, ok, nil
}

// Text approximates innerText: trimmed, with whitespace runs collapsed.
func (n *node) Text() (string, error) {
	return strings.Join(strings.Fields(n.sel.Text()), " "), nil
}

func (n *node) OuterHTML() (string, error) {
	return goquery.OuterHtml(n.sel)
}

func (n *node) Find(selector string) (scraper.Node, error) {
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, scraper.ErrAbsent
	}
	return &node{b: n.b, sel: found}, nil
}

func (n *node) Click() error {
	if n.control {
		n.b.loadNext(n.sel)
	}
	return nil
}

func (n *node) ScrollIntoView() error { return nil }
