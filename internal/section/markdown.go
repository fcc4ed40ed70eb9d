package section

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// parseMarkdown is the strategy for Markdown content, walking the goldmark
// AST: headings become section nodes, list items become list-item nodes,
// everything else is classified the same way the pattern strategy does it.
func parseMarkdown(data []byte, opts Options) (*Tree, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	tree := &Tree{}
	var stack []int // open node index per depth

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

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			depth := node.Level - 1
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
			title := string(nodeText(node, data))
			idx := tree.Add(parent, Node{Title: title, Kind: kind, Confidence: 0.95})
			stack = append(stack, idx)

		case *ast.List:
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				itemText := strings.TrimSpace(string(nodeText(item, data)))
				if itemText != "" {
					tree.Add(parent, Node{Kind: KindListItem, Confidence: 0.9, Paragraphs: []string{itemText}})
				}
			}

		default:
			addBlock(string(nodeText(n, data)))
		}
	}

	return tree, nil
}

// nodeText extracts the plain text of a goldmark AST node.
func nodeText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		if buf.Len() > 0 {
			return bytes.TrimSpace(buf.Bytes())
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.Write(nodeText(c, src))
		}
	}
	return bytes.TrimSpace(buf.Bytes())
}
