package snapshot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	domain "frontporch/internal/domain/snapshot"
	"frontporch/internal/domain/signup"
)

// Class names and attributes the public grid renders.
const (
	classSlotWrapper = "slot-wrapper"
	classUnavailable = "unavailable"
	classSignupName  = "signup-name"
	attrDay          = "data-day"
	attrHour         = "data-hour"
)

// ParseHTML recovers signups from a saved copy of the public grid page.
// Each slot-wrapper element is one slot; its day and hour come from the first
// descendant carrying both data-day and data-hour. Slots marked unavailable are
// skipped. Names are the trimmed text of signup-name spans, entity-decoded.
// PRE: r yields an HTML document
// POST: Returns records in document order; an empty slice when nothing matched
func ParseHTML(r io.Reader) ([]domain.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot html: %w", err)
	}

	var records []domain.Record
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, classSlotWrapper) {
			records = append(records, slotRecords(n)...)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return records, nil
}

// slotRecords extracts the signups of one slot container.
func slotRecords(container *html.Node) []domain.Record {
	day, hour, ok := slotPosition(container)
	if !ok || anyNode(container, func(n *html.Node) bool { return hasClass(n, classUnavailable) }) {
		return nil
	}

	var out []domain.Record
	eachNode(container, func(n *html.Node) {
		if n.Data != "span" || !hasClass(n, classSignupName) {
			return
		}
		name := signup.NormalizeName(textContent(n))
		if name == "" {
			return
		}
		out = append(out, domain.Record{Day: day, Hour: hour, Name: name})
	})
	return out
}

func slotPosition(container *html.Node) (string, int, bool) {
	var day string
	var hour int
	found := anyNode(container, func(n *html.Node) bool {
		d, okDay := attr(n, attrDay)
		h, okHour := attr(n, attrHour)
		if !okDay || !okHour {
			return false
		}
		v, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return false
		}
		day, hour = strings.TrimSpace(d), v
		return true
	})
	return day, hour, found
}

// anyNode reports whether pred holds for root or any element beneath it, stopping at the first match.
func anyNode(root *html.Node, pred func(*html.Node) bool) bool {
	if root.Type == html.ElementNode && pred(root) {
		return true
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if anyNode(c, pred) {
			return true
		}
	}
	return false
}

// eachNode calls fn for every element beneath root in document order.
func eachNode(root *html.Node, fn func(*html.Node)) {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		eachNode(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
