package docgen

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is a sanitised HTML node: *Element or *Text.
type Node interface {
	node()
}

// Element is a tag with its attributes and children in document order.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Children []Node
}

// Text is a run of character data.
type Text struct {
	Value string
}

func (*Element) node() {}
func (*Text) node()    {}

// Attr returns the attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// parseBody parses an HTML document and returns the children of <body>.
func parseBody(src string) ([]Node, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findBody(doc)
	if body == nil {
		return nil, nil
	}
	return convertChildren(body), nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func convertChildren(n *html.Node) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if conv := convertNode(c); conv != nil {
			out = append(out, conv)
		}
	}
	return out
}

// convertNode drops comments and doctype nodes.
func convertNode(n *html.Node) Node {
	switch n.Type {
	case html.TextNode:
		return &Text{Value: n.Data}
	case html.ElementNode:
		el := &Element{Tag: n.Data, Attrs: make(map[string]string, len(n.Attr))}
		for _, a := range n.Attr {
			el.Attrs[a.Key] = a.Val
		}
		el.Children = convertChildren(n)
		return el
	default:
		return nil
	}
}

// textContent concatenates the character data below n.
func textContent(n Node) string {
	var sb strings.Builder
	writeText(&sb, n)
	return sb.String()
}

func writeText(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Text:
		sb.WriteString(n.Value)
	case *Element:
		for _, c := range n.Children {
			writeText(sb, c)
		}
	}
}

// findAll returns the descendants of n whose tag is in tags, in document order.
func findAll(n *Element, tags ...string) []*Element {
	var out []*Element
	for _, c := range n.Children {
		el, ok := c.(*Element)
		if !ok {
			continue
		}
		for _, t := range tags {
			if el.Tag == t {
				out = append(out, el)
				break
			}
		}
		out = append(out, findAll(el, tags...)...)
	}
	return out
}
