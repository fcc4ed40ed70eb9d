package merge

import (
	"regexp"
	"strings"

	"skripsiforge/internal/docfile"
	"skripsiforge/internal/section"
)

var chapterTitleRe = regexp.MustCompile(`(?i)^((?:BAB|CHAPTER|BAGIAN|PART)\s+(?:[IVXLC]+|\d+)\.?)\s+(\S.*)$`)

// renderBoundSections materializes the plan's chapter and back-matter
// bindings into the working copy, appended in binding order after the
// template's existing content. Front-matter bindings are deferred to the
// front-matter assembly phase, which controls their position.
func (r *mergeRun) renderBoundSections() {
	for _, b := range r.plan.Bindings {
		switch {
		case b.Slot.Chapter >= 0:
			r.renderSubtree(b.Node, 0)
		case b.Slot.Category == "appendix" || b.Slot.Category == "bibliography":
			r.renderSubtree(b.Node, 0)
		}
	}
}

// renderSubtree appends a node and its descendants as paragraphs. depth is
// the heading depth the node renders at; body blocks carry no heading level.
func (r *mergeRun) renderSubtree(idx, depth int) {
	node := r.tree.Nodes[idx]

	switch node.Kind {
	case section.KindChapter, section.KindSubchapter, section.KindSubsubchapter, section.KindAppendix:
		if strings.TrimSpace(node.Title) != "" {
			r.doc.Paragraphs = append(r.doc.Paragraphs, r.headingParagraph(node, depth))
		}
		for _, text := range node.Paragraphs {
			p := docfile.NewParagraph(r.bodyID, text)
			r.doc.Paragraphs = append(r.doc.Paragraphs, p)
		}
		for _, child := range r.tree.Children(idx) {
			r.renderSubtree(child, depth+1)
		}

	case section.KindListItem, section.KindTableCaption, section.KindFigureCaption,
		section.KindEquation, section.KindBibliography, section.KindParagraph:
		// Back-matter roots like the bibliography arrive as titled
		// paragraph-kind nodes; the title still renders as a heading.
		if strings.TrimSpace(node.Title) != "" {
			r.doc.Paragraphs = append(r.doc.Paragraphs, r.headingParagraph(node, depth))
		}
		for _, text := range node.Paragraphs {
			p := docfile.NewParagraph(r.bodyID, text)
			if node.Kind == section.KindTableCaption || node.Kind == section.KindFigureCaption {
				p.Format = &docfile.Format{Alignment: docfile.AlignCenter}
			}
			r.doc.Paragraphs = append(r.doc.Paragraphs, p)
		}
		for _, child := range r.tree.Children(idx) {
			r.renderSubtree(child, depth+1)
		}
	}
}

// headingParagraph builds the heading paragraph for a section node. Chapter
// titles that carry marker and title text render as one paragraph with a
// forced line break between the two parts.
func (r *mergeRun) headingParagraph(node section.Node, depth int) *docfile.Paragraph {
	styleID := r.headingStyle(depth)
	p := &docfile.Paragraph{
		StyleID:      styleID,
		HeadingLevel: depth,
	}
	if m := chapterTitleRe.FindStringSubmatch(node.Title); m != nil && node.Kind == section.KindChapter {
		p.Runs = []docfile.Run{
			{Text: m[1]},
			{Text: m[2], Break: true},
		}
	} else {
		p.Runs = []docfile.Run{{Text: node.Title}}
	}
	return p
}

// headingStyle maps a depth onto the heading chain, demoting depths past the
// chain's end to its deepest style.
func (r *mergeRun) headingStyle(depth int) string {
	chain := r.prof.HeadingChain
	if depth < len(chain) {
		return chain[depth]
	}
	return chain[len(chain)-1]
}
