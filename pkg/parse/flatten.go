package parse

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ElementKind classifies the elements the listing scan reacts to
type ElementKind int

const (
	ElementTypeHeading  ElementKind = iota // <h4>: journal/conference section
	ElementLevelHeading                    // <h3>: A/B/C tier section
	ElementList                            // <ul>: candidate data container
)

// Element is one entry of the flattened document: a heading or list container with its text and classes
type Element struct {
	Kind    ElementKind
	Text    string   // Concatenated text of the element and its descendants (headings only)
	Classes []string // Whitespace-separated values of the class attribute
	Node    *html.Node
}

// HasClass reports whether the element carries the given class
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Flatten walks the tree below root in document order and returns every h3, h4 and ul element.
// Nested matches are included after their ancestor, as a pre-order walk yields them.
func Flatten(root *html.Node) []Element {
	var elements []Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H4:
				elements = append(elements, Element{Kind: ElementTypeHeading, Text: nodeText(n), Classes: classesOf(n), Node: n})
			case atom.H3:
				elements = append(elements, Element{Kind: ElementLevelHeading, Text: nodeText(n), Classes: classesOf(n), Node: n})
			case atom.Ul:
				elements = append(elements, Element{Kind: ElementList, Classes: classesOf(n), Node: n})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return elements
}

// descendants returns the element descendants of n (n excluded) whose tag is one of tags, in document order
func descendants(n *html.Node, tags ...atom.Atom) []*html.Node {
	var found []*html.Node
	var walk func(p *html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				for _, t := range tags {
					if c.DataAtom == t {
						found = append(found, c)
						break
					}
				}
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return found
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(p *html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func classesOf(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}
