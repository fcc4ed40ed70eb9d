package merge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"skripsiforge/internal/docfile"
	"skripsiforge/internal/profile"
)

// substitutePlaceholders replaces every bound placeholder token with the
// user's metadata value, case-insensitively, preserving the run-level
// formatting of the first run at the token's location.
func (r *mergeRun) substitutePlaceholders(ctx context.Context) error {
	fields := r.meta.Fields()
	for _, pattern := range r.prof.Placeholders {
		field, bound := r.plan.Placeholders[pattern]
		if !bound {
			continue
		}
		value := fields[field]
		if value == "" {
			r.warnf("placeholder %q bound to empty metadata field %s", pattern, field)
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(pattern))
		if err != nil {
			return fmt.Errorf("placeholder %q: %w", pattern, err)
		}
		for _, p := range r.doc.Paragraphs {
			text := p.Text()
			if !re.MatchString(text) {
				continue
			}
			replaced := re.ReplaceAllLiteralString(text, value)
			// Collapse onto the first run so its formatting carries over.
			first := docfile.Run{}
			if len(p.Runs) > 0 {
				first = p.Runs[0]
			}
			first.Text = replaced
			first.Break = false
			p.Runs = []docfile.Run{first}
			r.res.Substitutions++
		}
	}
	return nil
}

var markerOnlyRe = regexp.MustCompile(`(?i)^(BAB|CHAPTER|BAGIAN|PART)\s+([IVXLC]+|\d+)\.?$`)

// mergeHeadings joins template skeleton paragraphs where a chapter marker
// and its title are still two paragraphs: the pair becomes one paragraph
// with a forced line break, adopting the first paragraph's style.
func (r *mergeRun) mergeHeadings(ctx context.Context) error {
	// Walk backwards so removals do not shift unvisited indices.
	for i := len(r.doc.Paragraphs) - 2; i >= 0; i-- {
		curr := r.doc.Paragraphs[i]
		next := r.doc.Paragraphs[i+1]
		currText := strings.TrimSpace(curr.Text())
		nextText := strings.TrimSpace(next.Text())

		if !markerOnlyRe.MatchString(currText) {
			continue
		}
		// Titles come in any case; a trailing period marks prose, not a title.
		if nextText == "" || len(nextText) >= 100 || strings.HasSuffix(nextText, ".") {
			continue
		}
		curr.Runs = append(curr.Runs, docfile.Run{Text: nextText, Break: true})
		curr.HeadingLevel = 0
		if curr.StyleID == "" {
			curr.StyleID = r.prof.HeadingChain[0]
		}
		r.doc.RemoveParagraph(i + 1)
		r.res.HeadingMerges++
	}
	return nil
}

// enforceStyles applies the canonical body attributes to every body
// paragraph and heading discipline to every heading paragraph.
func (r *mergeRun) enforceStyles(ctx context.Context) error {
	demoted := false
	for _, p := range r.doc.Paragraphs {
		if p.FieldInstr != "" {
			continue
		}

		if p.HeadingLevel >= 0 || r.chainOK[p.StyleID] {
			level := p.HeadingLevel
			if level < 0 {
				level = r.chainLevel(p.StyleID)
			}
			if level >= len(r.prof.HeadingChain) {
				if !demoted {
					r.warnf("section depth %d exceeds template heading chain (%d levels); demoting to deepest style", level, len(r.prof.HeadingChain))
					demoted = true
				}
				level = len(r.prof.HeadingChain) - 1
			}
			p.StyleID = r.prof.HeadingChain[level]
			p.HeadingLevel = level
			r.res.HeadingsDisciplined++
			continue
		}

		if strings.TrimSpace(p.Text()) == "" || skipStyleEnforcement(p.StyleID) {
			continue
		}
		p.StyleID = r.bodyID
		p.Format = &docfile.Format{
			LineSpacing:   r.prof.BodyAttrs.LineSpacing,
			FirstLineCm:   r.prof.BodyAttrs.FirstLineCm,
			Alignment:     docfile.AlignJustify,
			SpaceBeforePt: 0,
			SpaceAfterPt:  0,
		}
		r.res.ParagraphsStyled++
	}
	return nil
}

func (r *mergeRun) chainLevel(styleID string) int {
	for i, id := range r.prof.HeadingChain {
		if id == styleID {
			return i
		}
	}
	return 0
}

func skipStyleEnforcement(styleID string) bool {
	lower := strings.ToLower(styleID)
	for _, marker := range []string{"toc", "caption", "table", "title"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// tocInstruction scopes the reference field to heading levels 0 and 1 only.
const tocInstruction = `TOC \o "1-2" \h \z \u`

var tocEntryRe = regexp.MustCompile(`\.{3,}\s*\d+\s*$`)

// rebuildTOC removes any static table-of-contents content and replaces it
// with a live, auto-updating reference field.
func (r *mergeRun) rebuildTOC(ctx context.Context) error {
	tocIdx := -1
	for i, p := range r.doc.Paragraphs {
		text := strings.TrimSpace(p.Text())
		// Short lines only; body prose can mention the contents page.
		if len(text) <= 80 && profile.MatchCategory(text) == profile.CategoryTOC {
			tocIdx = i
			break
		}
	}
	if tocIdx < 0 {
		return nil
	}

	// Drop static entries: TOC-styled paragraphs or dot-leader lines
	// following the heading, up to the next structural paragraph.
	for i := tocIdx + 1; i < len(r.doc.Paragraphs); {
		p := r.doc.Paragraphs[i]
		text := strings.TrimSpace(p.Text())
		isEntry := strings.Contains(strings.ToLower(p.StyleID), "toc") ||
			tocEntryRe.MatchString(text) ||
			(p.FieldInstr != "" && strings.HasPrefix(p.FieldInstr, "TOC"))
		if !isEntry {
			break
		}
		r.doc.RemoveParagraph(i)
		r.res.TOCEntriesRemoved++
	}

	field := &docfile.Paragraph{
		HeadingLevel: -1,
		FieldInstr:   tocInstruction,
		FieldText:    "[Daftar Isi - refresh fields to update]",
	}
	r.doc.InsertParagraph(tocIdx+1, field)
	return nil
}

// insertPageBreaks forces a page break before every chapter except the
// first and restarts page numbering at the first chapter.
func (r *mergeRun) insertPageBreaks(ctx context.Context) error {
	seenFirst := false
	for _, p := range r.doc.Paragraphs {
		if p.HeadingLevel != 0 {
			continue
		}
		if !isChapterHeadingText(p.Text()) {
			continue
		}
		if !seenFirst {
			seenFirst = true
			continue
		}
		if !p.PageBreakBefore {
			p.PageBreakBefore = true
			r.res.PageBreaksInserted++
		}
	}
	if seenFirst {
		r.doc.PageNumberStart = 1
	}
	return nil
}

var chapterHeadRe = regexp.MustCompile(`(?i)^(BAB|CHAPTER|BAGIAN|PART)\s+([IVXLC]+|\d+)`)

func isChapterHeadingText(text string) bool {
	return chapterHeadRe.MatchString(strings.TrimSpace(text))
}
