package section

import (
	"regexp"
	"strings"

	"skripsiforge/internal/docfile"
)

var headingStyleRe = regexp.MustCompile(`(?i)^heading\s*([1-9])$`)

// headingDepth derives the tree depth for a paragraph style, using the same
// heading-chain conventions the profiler applies to templates. The content
// and the template are different documents, so this is derived independently
// from the content's own style definitions.
func headingDepth(doc *docfile.Document, styleID string) int {
	if styleID == "" {
		return -1
	}
	resolved := doc.ResolveStyle(styleID)
	if resolved.OutlineLevel != nil {
		return *resolved.OutlineLevel
	}
	for _, candidate := range []string{resolved.Name, styleID} {
		if m := headingStyleRe.FindStringSubmatch(strings.TrimSpace(candidate)); m != nil {
			return int(m[1][0]-'0') - 1
		}
	}
	return -1
}

// parseStructured is the strategy for content that already carries heading
// styles: each styled paragraph maps directly to a tree level.
func parseStructured(data []byte, opts Options) (*Tree, error) {
	doc, err := docfile.ReadDOCX(data)
	if err != nil {
		return nil, &ParseError{Reason: "cannot open content document", Err: err}
	}

	tree := &Tree{}
	// stack[i] is the arena index of the open node at depth i.
	var stack []int
	inBib := false

	kindForDepth := func(depth int) Kind {
		switch depth {
		case 0:
			return KindChapter
		case 1:
			return KindSubchapter
		default:
			return KindSubsubchapter
		}
	}

	for _, para := range doc.Paragraphs {
		text := strings.TrimSpace(para.Text())
		if text == "" {
			continue
		}

		depth := headingDepth(doc, para.StyleID)
		if depth >= 0 {
			// Clamp to one past the deepest open node so the level
			// invariant survives jumps like Heading 1 -> Heading 3.
			if depth > len(stack) {
				depth = len(stack)
			}
			stack = stack[:depth]
			parent := -1
			if depth > 0 {
				parent = stack[depth-1]
			}
			kind := kindForDepth(depth)
			if depth == 0 && bibliographyRe.MatchString(text) {
				inBib = true
			} else {
				inBib = false
			}
			idx := tree.Add(parent, Node{Title: text, Kind: kind, Confidence: 0.95})
			stack = append(stack, idx)
			continue
		}

		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		if inBib {
			tree.Add(parent, Node{Kind: KindBibliography, Confidence: 0.85, Paragraphs: []string{text}})
			continue
		}

		c := classifyBlock(text)
		switch {
		case c.Kind == KindParagraph:
			if parent < 0 {
				tree.Add(-1, Node{Kind: KindParagraph, Confidence: 1.0, Paragraphs: []string{text}})
			} else {
				tree.Nodes[parent].Paragraphs = append(tree.Nodes[parent].Paragraphs, text)
			}
		case c.Confidence < opts.MinConfidence:
			tree.Warn("ambiguous block %q kept as paragraph (%s at %.2f)", truncate(text, 40), c.Kind, c.Confidence)
			tree.Add(parent, Node{Kind: KindParagraph, Confidence: c.Confidence, Paragraphs: []string{text}})
		default:
			tree.Add(parent, Node{Kind: c.Kind, Confidence: c.Confidence, Paragraphs: []string{text}})
		}
	}

	return tree, nil
}
