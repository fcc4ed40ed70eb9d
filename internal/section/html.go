package section

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML is the strategy for HTML content: h1-h6 become section nodes,
// p/li/blockquote text is classified into body nodes.
func parseHTML(data []byte, opts Options) (*Tree, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Reason: "cannot parse html", Err: err}
	}

	tree := &Tree{}
	var stack []int

	addBlock := func(blockText string) {
		blockText = strings.TrimSpace(blockText)
		if blockText == "" {
			return
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		c := classifyBlock(blockText)
		switch {
		case c.Kind == KindParagraph:
			if parent < 0 {
				tree.Add(-1, Node{Kind: KindParagraph, Confidence: 1.0, Paragraphs: []string{blockText}})
			} else {
				tree.Nodes[parent].Paragraphs = append(tree.Nodes[parent].Paragraphs, blockText)
			}
		case c.Confidence < opts.MinConfidence:
			tree.Warn("ambiguous block %q kept as paragraph (%s at %.2f)", truncate(blockText, 40), c.Kind, c.Confidence)
			tree.Add(parent, Node{Kind: KindParagraph, Confidence: c.Confidence, Paragraphs: []string{blockText}})
		default:
			tree.Add(parent, Node{Kind: c.Kind, Confidence: c.Confidence, Paragraphs: []string{blockText}})
		}
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := htmlHeadingLevel(n.Data); level > 0 {
				depth := level - 1
				if depth > len(stack) {
					depth = len(stack)
				}
				stack = stack[:depth]
				parent := -1
				if depth > 0 {
					parent = stack[depth-1]
				}
				kind := KindChapter
				if depth == 1 {
					kind = KindSubchapter
				} else if depth >= 2 {
					kind = KindSubsubchapter
				}
				idx := tree.Add(parent, Node{Title: htmlText(n), Kind: kind, Confidence: 0.95})
				stack = append(stack, idx)
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "li":
				parent := -1
				if len(stack) > 0 {
					parent = stack[len(stack)-1]
				}
				if t := htmlText(n); t != "" {
					tree.Add(parent, Node{Kind: KindListItem, Confidence: 0.9, Paragraphs: []string{t}})
				}
				return
			case "p", "td", "blockquote":
				addBlock(htmlText(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return tree, nil
}

func htmlHeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func htmlText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
