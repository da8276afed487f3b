package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page scripts shared by the JavaScript-capable drivers. Each is a function
// literal so rod can call it with arguments and chromedp can inline it via
// Invoke.
const (
	ScrollHeightJS = `() => document.body ? document.body.scrollHeight : 0`

	ScrollToBottomJS = `() => {
		window.scrollTo(0, document.body.scrollHeight);
		return true;
	}`

	RemoveLeadingJS = `(sel, n) => {
		var items = document.querySelectorAll(sel);
		var limit = Math.min(n, items.length);
		for (var i = 0; i < limit; i++) {
			items[i].remove();
		}
		return limit;
	}`
)

// Invoke renders a call of the function literal fn with JSON-encoded args.
func Invoke(fn string, args ...any) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("scraper: encode script arg: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}
