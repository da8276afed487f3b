package harvest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"listing-harvester/models"
	"listing-harvester/scraper"
	"listing-harvester/utils"
)

const (
	itemSel     = `[data-testid="property-card-container"]`
	loadMoreSel = `button.load-more`
)

func testOptions() Options {
	return Options{
		URL:                 "https://listings.example/search",
		PageLoadTimeout:     time.Second,
		MaxRetries:          1,
		ScrollPause:         2 * time.Second,
		MaxScrollRounds:     5,
		ScrollIntoViewPause: time.Second,
		ClickTimeout:        5 * time.Second,
		ClickWait:           3 * time.Second,
		MaxAttempts:         50,
		LoadMoreSelector:    loadMoreSel,
		ItemSelector:        itemSel,
		TitleSelector:       `[data-testid="title"]`,
		ScoreSelector:       `[data-testid="review-score"] > div:nth-child(2)`,
		IDAttribute:         "data-id",
		FingerprintChars:    100,
		BatchSize:           25,
	}
}

// newTestSession returns a session that never sleeps and logs at debug
// level into the returned buffer.
func newTestSession(b scraper.Browser, opts Options) (*Session, *bytes.Buffer) {
	var buf bytes.Buffer
	s := NewSession(b, opts, utils.NewWriterLogger(&buf, utils.LevelDebug))
	s.sleep = func(time.Duration) {}
	return s, &buf
}

// card renders one item node. Empty arguments leave the part out.
func card(id, title, score string) string {
	var sb strings.Builder
	sb.WriteString(`<div data-testid="property-card-container"`)
	if id != "" {
		sb.WriteString(` data-id="` + id + `"`)
	}
	sb.WriteString(`>`)
	if title != "" {
		sb.WriteString(`<div data-testid="title">` + title + `</div>`)
	}
	if score != "" {
		sb.WriteString(`<div data-testid="review-score"><div>Scored</div><div>` + score + `</div></div>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

func page(withLoadMore bool, cards ...string) string {
	html := `<html><body><div id="results">` + strings.Join(cards, "\n") + `</div>`
	if withLoadMore {
		html += `<button class="load-more">Load more results</button>`
	}
	return html + `</body></html>`
}

type fakeNode struct {
	attrs    map[string]string
	attrErr  error
	text     string
	textErr  error
	html     string
	htmlErr  error
	children map[string]*fakeNode
	onClick  func() error
}

func (n *fakeNode) Attribute(name string) (string, bool, error) {
	if n.attrErr != nil {
		return "", false, n.attrErr
	}
	v, ok := n.attrs[name]
	return v, ok, nil
}

func (n *fakeNode) Text() (string, error) { return n.text, n.textErr }

func (n *fakeNode) OuterHTML() (string, error) { return n.html, n.htmlErr }

func (n *fakeNode) Find(selector string) (scraper.Node, error) {
	child, ok := n.children[selector]
	if !ok {
		return nil, scraper.ErrAbsent
	}
	return child, nil
}

func (n *fakeNode) Click() error {
	if n.onClick != nil {
		return n.onClick()
	}
	return nil
}

func (n *fakeNode) ScrollIntoView() error { return nil }

// fakeBrowser is a scripted page. Each ScrollToBottom adds grow to the
// height; the load-more control is offered while loadMore is non-nil.
type fakeBrowser struct {
	height      int64
	grow        int64
	items       []scraper.Node
	findErr     error
	loadMore    *fakeNode
	clickErr    error
	navigateErr error
	// stalled pages never finish loading; Navigate gives up at its timeout.
	stalled bool
	removeErr   error
	closeErr    error

	scrolls     int
	clicks      int
	removeCalls []int
	navigations []time.Duration
	closed      int
}

func (b *fakeBrowser) Navigate(_ string, timeout time.Duration) error {
	b.navigations = append(b.navigations, timeout)
	if b.stalled {
		<-time.After(timeout)
		return fmt.Errorf("fake: navigate: %w", context.DeadlineExceeded)
	}
	return b.navigateErr
}

func (b *fakeBrowser) WaitReady(string, time.Duration) error { return nil }

func (b *fakeBrowser) ScrollHeight() (int64, error) { return b.height, nil }

func (b *fakeBrowser) ScrollToBottom() error {
	b.scrolls++
	b.height += b.grow
	return nil
}

func (b *fakeBrowser) FindAll(string) ([]scraper.Node, error) {
	if b.findErr != nil {
		return nil, b.findErr
	}
	return b.items, nil
}

func (b *fakeBrowser) WaitClickable(string, time.Duration) (scraper.Node, error) {
	if b.clickErr != nil {
		return nil, b.clickErr
	}
	if b.loadMore == nil {
		return nil, scraper.ErrAbsent
	}
	return b.loadMore, nil
}

func (b *fakeBrowser) RemoveLeading(_ string, n int) (int, error) {
	b.removeCalls = append(b.removeCalls, n)
	return n, b.removeErr
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return b.closeErr
}

// alwaysMore offers a clickable control forever.
func alwaysMore(b *fakeBrowser) {
	b.loadMore = &fakeNode{onClick: func() error {
		b.clicks++
		return nil
	}}
}

func fakeItem(id, title, score string) *fakeNode {
	n := &fakeNode{
		attrs:    map[string]string{},
		children: map[string]*fakeNode{},
		text:     title + " " + score,
		html:     "<div>" + title + "</div>",
	}
	if id != "" {
		n.attrs["data-id"] = id
	}
	opts := testOptions()
	if title != "" {
		n.children[opts.TitleSelector] = &fakeNode{text: title}
	}
	if score != "" {
		n.children[opts.ScoreSelector] = &fakeNode{text: score}
	}
	return n
}

type recordingSink struct {
	items  []models.ListingItem
	writes int
	err    error
}

func (r *recordingSink) WriteItems(items []models.ListingItem) error {
	r.writes++
	r.items = append(r.items, items...)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func assertLogged(t *testing.T, buf *bytes.Buffer, level, fragment string) {
	t.Helper()
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, level) && strings.Contains(line, fragment) {
			return
		}
	}
	t.Errorf("expected a %s line containing %q, log was:\n%s", level, fragment, buf.String())
}
