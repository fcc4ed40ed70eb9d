package merge

import (
	"context"
	"strings"

	"skripsiforge/internal/docfile"
	"skripsiforge/internal/mapper"
	"skripsiforge/internal/profile"
)

// headingText is the title rendered for each front-matter category.
var headingText = map[string]string{
	profile.CategoryCover:       "HALAMAN JUDUL",
	profile.CategoryApproval:    "LEMBAR PENGESAHAN",
	profile.CategoryStatement:   "PERNYATAAN KEASLIAN",
	profile.CategoryDedication:  "PERSEMBAHAN",
	profile.CategoryMotto:       "MOTTO",
	profile.CategoryPreface:     "KATA PENGANTAR",
	profile.CategoryAbstractID:  "ABSTRAK",
	profile.CategoryAbstractEN:  "ABSTRACT",
	profile.CategoryGlossary:    "GLOSARIUM",
	profile.CategoryTOC:         "DAFTAR ISI",
	profile.CategoryListTables:  "DAFTAR TABEL",
	profile.CategoryListFigures: "DAFTAR GAMBAR",
}

// assembleFrontMatter inserts front-matter sections at the document start in
// the order the template requires. Bound nodes supply their own text;
// missing categories fall back to metadata, then synthesis, then a blank
// templated shell.
func (r *mergeRun) assembleFrontMatter(ctx context.Context) error {
	boundNode := map[string]int{}
	for _, b := range r.plan.Bindings {
		if cat := b.Slot.Category; cat != "" && cat != "appendix" && cat != "bibliography" {
			boundNode[cat] = b.Node
		}
	}
	missing := map[string]string{}
	for _, m := range r.plan.Missing {
		missing[m.Category] = m.Action
	}

	cursor := 0
	emit := func(block []*docfile.Paragraph) {
		// Every front-matter section starts on its own page, except at the
		// very top of the document.
		if len(block) > 0 && cursor > 0 {
			block[0].PageBreakBefore = true
		}
		for _, p := range block {
			r.doc.InsertParagraph(cursor, p)
			cursor++
		}
		r.res.FrontMatterInserted++
	}

	required := map[string]bool{}
	for _, category := range r.prof.RequiredFrontMatter {
		required[category] = true
		if node, ok := boundNode[category]; ok {
			emit(r.contentBlock(category, node))
			continue
		}
		if action, isMissing := missing[category]; isMissing {
			emit(r.fallbackBlock(ctx, category, action))
		}
	}

	// Content sectioned into a category the template never asks for is
	// still the author's work; append it after the required block rather
	// than dropping it.
	for _, b := range r.plan.Bindings {
		cat := b.Slot.Category
		if cat == "" || cat == "appendix" || cat == "bibliography" || required[cat] {
			continue
		}
		r.warnf("front matter %s not required by template, appended after required sections", cat)
		emit(r.contentBlock(cat, b.Node))
	}
	return nil
}

// contentBlock renders a bound front-matter node: its category heading and
// the node's own paragraphs.
func (r *mergeRun) contentBlock(category string, nodeIdx int) []*docfile.Paragraph {
	node := r.tree.Nodes[nodeIdx]
	title := strings.TrimSpace(node.Title)
	if title == "" {
		title = headingText[category]
	}
	block := []*docfile.Paragraph{r.frontHeading(title)}
	for _, text := range node.Paragraphs {
		block = append(block, r.bodyParagraph(text))
	}
	for _, child := range r.tree.Children(nodeIdx) {
		for _, text := range r.tree.Nodes[child].Paragraphs {
			block = append(block, r.bodyParagraph(text))
		}
	}
	if category == profile.CategoryTOC {
		// A bound TOC still becomes a live field; static entries are stale
		// by definition.
		return []*docfile.Paragraph{r.frontHeading(headingText[category]), tocFieldParagraph()}
	}
	return block
}

// fallbackBlock builds the section for a missing category: metadata text
// when supplied, synthesized text when the plan says so and the collaborator
// answers in time, otherwise a blank templated shell.
func (r *mergeRun) fallbackBlock(ctx context.Context, category, action string) []*docfile.Paragraph {
	switch category {
	case profile.CategoryTOC:
		return []*docfile.Paragraph{r.frontHeading(headingText[category]), tocFieldParagraph()}
	case profile.CategoryCover:
		return r.coverBlock()
	}

	block := []*docfile.Paragraph{r.frontHeading(headingText[category])}

	if text := r.meta.categoryText(category); text != "" {
		block = append(block, r.bodyParagraph(text))
		if category == profile.CategoryAbstractID && r.meta.Keywords != "" {
			block = append(block, r.bodyParagraph("Kata Kunci: "+r.meta.Keywords))
		}
		return block
	}

	if action == mapper.ActionSynthesize && r.exec.synth != nil {
		sctx := ctx
		if r.exec.synthTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, r.exec.synthTimeout)
			defer cancel()
		}
		text, err := r.exec.synth.Synthesize(sctx, category, r.meta.Fields())
		if err != nil {
			r.warnf("synthesis collaborator unavailable for %s, inserting blank shell: %v", category, err)
		} else if strings.TrimSpace(text) != "" {
			return append(block, r.bodyParagraph(text))
		}
	}

	shell := headingText[category]
	if shell == "" {
		shell = strings.ToUpper(strings.ReplaceAll(category, "_", " "))
	}
	return append(block, r.bodyParagraph("["+shell+" - lengkapi bagian ini]"))
}

// coverBlock composes a title page from metadata.
func (r *mergeRun) coverBlock() []*docfile.Paragraph {
	centered := func(text string, bold bool, sizePt float64) *docfile.Paragraph {
		p := &docfile.Paragraph{
			StyleID:      r.bodyID,
			HeadingLevel: -1,
			Format:       &docfile.Format{Alignment: docfile.AlignCenter, LineSpacing: 1.5},
		}
		for i, line := range strings.Split(text, "\n") {
			p.Runs = append(p.Runs, docfile.Run{Text: line, Bold: bold, SizePt: sizePt, Break: i > 0})
		}
		return p
	}

	title := r.meta.Title
	if title == "" {
		title = "[Judul]"
	}
	var block []*docfile.Paragraph
	block = append(block, centered(strings.ToUpper(title), true, 14))
	if r.meta.Author != "" {
		author := strings.ToUpper(r.meta.Author)
		if r.meta.Identifier != "" {
			author += "\n" + r.meta.Identifier
		}
		block = append(block, centered("Oleh:", false, 12))
		block = append(block, centered(author, true, 12))
	}
	var footer []string
	if r.meta.Program != "" {
		footer = append(footer, strings.ToUpper(r.meta.Program))
	}
	if r.meta.Institution != "" {
		footer = append(footer, strings.ToUpper(r.meta.Institution))
	}
	if r.meta.Date != "" {
		footer = append(footer, r.meta.Date)
	}
	if len(footer) > 0 {
		block = append(block, centered(strings.Join(footer, "\n"), true, 14))
	}
	return block
}

func (r *mergeRun) frontHeading(title string) *docfile.Paragraph {
	return &docfile.Paragraph{
		StyleID:      r.prof.HeadingChain[0],
		HeadingLevel: 0,
		Runs:         []docfile.Run{{Text: title}},
	}
}

func (r *mergeRun) bodyParagraph(text string) *docfile.Paragraph {
	p := docfile.NewParagraph(r.bodyID, text)
	p.Format = &docfile.Format{
		LineSpacing:   r.prof.BodyAttrs.LineSpacing,
		FirstLineCm:   r.prof.BodyAttrs.FirstLineCm,
		Alignment:     docfile.AlignJustify,
		SpaceBeforePt: 0,
		SpaceAfterPt:  0,
	}
	return p
}

func tocFieldParagraph() *docfile.Paragraph {
	return &docfile.Paragraph{
		HeadingLevel: -1,
		FieldInstr:   tocInstruction,
		FieldText:    "[Daftar Isi - refresh fields to update]",
	}
}
