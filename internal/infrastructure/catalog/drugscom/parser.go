package drugscom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/turtacn/PillScope/internal/domain/pill"
)

// ParseListing extracts the three result sequences from a catalog page:
//
//	div.ddc-pid-card-header > h2   imprint label
//	a.ddc-text-size-small          generic name
//	dl (dt/dd pairs)               description block
//
// The sequences are returned in document order and are not reconciled with
// each other.
func ParseListing(r io.Reader) (pill.CatalogListing, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return pill.CatalogListing{}, err
	}

	var listing pill.CatalogListing
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Div && hasClass(n, "ddc-pid-card-header"):
				if h2 := findFirst(n, atom.H2); h2 != nil {
					listing.Imprints = append(listing.Imprints, strippedText(h2))
				}
			case n.DataAtom == atom.A && hasClass(n, "ddc-text-size-small"):
				listing.Names = append(listing.Names, strippedText(n))
			case n.DataAtom == atom.Dl:
				listing.Descriptions = append(listing.Descriptions, descriptionPairs(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return listing, nil
}

// descriptionPairs zips the dt and dd descendants of dl by position; a
// repeated term keeps its last value.
func descriptionPairs(dl *html.Node) map[string]string {
	dts := findAll(dl, atom.Dt)
	dds := findAll(dl, atom.Dd)
	n := len(dts)
	if len(dds) < n {
		n = len(dds)
	}
	pairs := make(map[string]string, n)
	for i := 0; i < n; i++ {
		pairs[strippedText(dts[i])] = strippedText(dds[i])
	}
	return pairs
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
		out = append(out, findAll(c, a)...)
	}
	return out
}

// strippedText concatenates every descendant text node, each trimmed, with
// no separator.
func strippedText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

//Personal.AI order the ending
