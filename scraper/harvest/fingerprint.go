package harvest

import (
	"fmt"
	"hash/fnv"
	"strings"

	"listing-harvester/scraper"
)

// Fingerprint derives the dedup key of an item node:
//
//	id:<value>    the identifying attribute, when present and non-empty
//	text:<hex>    FNV-64a of the first chars runes of the visible text,
//	              unless it is only whitespace
//	html:<hex>    FNV-64a of the first chars runes of the outer markup
//
// Distinct items whose prefixes hash alike collapse into one. With a 64-bit
// digest that takes on the order of 2^32 items to become likely.
func Fingerprint(n scraper.Node, idAttr string, chars int) (string, error) {
	if idAttr != "" {
		if v, ok, err := n.Attribute(idAttr); err == nil && ok && v != "" {
			return "id:" + v, nil
		}
	}

	if text, err := n.Text(); err == nil && strings.TrimSpace(text) != "" {
		return "text:" + digest(prefix(text, chars)), nil
	}

	html, err := n.OuterHTML()
	if err != nil {
		return "", fmt.Errorf("harvest: fingerprint: %w", err)
	}
	if html == "" {
		return "", fmt.Errorf("harvest: fingerprint: node has no id, text or markup")
	}
	return "html:" + digest(prefix(html, chars)), nil
}

func digest(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
