// Package profile derives a TemplateProfile from a template document: its
// heading chain, canonical body attributes, placeholder tokens, and the
// front-matter sections the template structurally expects.
package profile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"skripsiforge/internal/docfile"
)

// StyleAttrs are the formatting attributes the pipeline cares about for one style.
type StyleAttrs struct {
	Font        string
	SizePt      float64
	LineSpacing float64
	FirstLineCm float64
	Alignment   docfile.Alignment
	Indent      float64
}

// TemplateProfile is everything the mapper and executor need to know about a
// template. Derived once per template, read-only afterwards.
type TemplateProfile struct {
	Source *docfile.Document // the template itself; the executor clones it

	Margins      docfile.Margins
	StyleCatalog map[string]StyleAttrs
	HeadingChain []string // style IDs, index = heading depth (0 = chapter)

	// BodyStyleID and BodyAttrs describe the canonical body text style,
	// computed as the statistical mode over paragraphs classified as body.
	BodyStyleID string
	BodyAttrs   StyleAttrs

	Placeholders        []string
	RequiredFrontMatter []string // category ids in template order
}

// ParseError reports a template that cannot be profiled. It is fatal; the
// profiler never guesses a heading chain.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template parse: %s: %v", e.Reason, e.Err)
	}
	return "template parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

var headingNameRe = regexp.MustCompile(`(?i)^heading\s*([1-9])$`)

var placeholderRes = []*regexp.Regexp{
	regexp.MustCompile(`\{\{[^{}]+\}\}`),
	regexp.MustCompile(`\[[^\[\]]+\]`),
	regexp.MustCompile(`\{[^{}]+\}`),
	regexp.MustCompile(`<[^<>]+>`),
}

// Literal placeholder phrases: template-author instructions that mark a spot
// for user content rather than being content themselves.
var literalPlaceholderRe = regexp.MustCompile(`(?i)^(TULIS|TULISKAN|BAGIAN|ISI)\s+\S.*$`)

// ProfileDOCX reads and profiles a raw template file.
func ProfileDOCX(data []byte) (*TemplateProfile, error) {
	doc, err := docfile.ReadDOCX(data)
	if err != nil {
		return nil, &ParseError{Reason: "cannot open template", Err: err}
	}
	return Profile(doc)
}

// Profile derives a TemplateProfile from an already-loaded document.
// Read-only over the input.
func Profile(doc *docfile.Document) (*TemplateProfile, error) {
	chain := headingChain(doc)
	if len(chain) == 0 {
		return nil, &ParseError{Reason: "no heading styles discoverable"}
	}

	p := &TemplateProfile{
		Source:       doc,
		Margins:      doc.Margins,
		StyleCatalog: map[string]StyleAttrs{},
		HeadingChain: chain,
	}
	for _, s := range doc.Styles {
		resolved := doc.ResolveStyle(s.ID)
		p.StyleCatalog[s.ID] = StyleAttrs{
			Font:        resolved.Font,
			SizePt:      resolved.SizePt,
			LineSpacing: resolved.LineSpacing,
			FirstLineCm: resolved.FirstLineCm,
			Alignment:   resolved.Alignment,
			Indent:      resolved.FirstLineCm,
		}
	}

	p.BodyStyleID, p.BodyAttrs = bodyStyle(doc, chain)
	p.Placeholders = scanPlaceholders(doc)
	p.RequiredFrontMatter = scanFrontMatter(doc)
	return p, nil
}

// headingChain orders heading styles by depth. Outline levels win; styles
// following the "Heading N" naming convention fill gaps the levels leave.
func headingChain(doc *docfile.Document) []string {
	byLevel := map[int]string{}
	maxLevel := -1

	record := func(level int, id string) {
		if level < 0 || level > 8 {
			return
		}
		if _, taken := byLevel[level]; !taken {
			byLevel[level] = id
			if level > maxLevel {
				maxLevel = level
			}
		}
	}

	for _, s := range doc.Styles {
		if s.OutlineLevel != nil {
			record(*s.OutlineLevel, s.ID)
		}
	}
	for _, s := range doc.Styles {
		for _, candidate := range []string{s.Name, s.ID} {
			if m := headingNameRe.FindStringSubmatch(strings.TrimSpace(candidate)); m != nil {
				record(int(m[1][0]-'0')-1, s.ID)
				break
			}
		}
	}

	var levels []int
	for lvl := range byLevel {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	// The chain must be contiguous from depth 0: a template whose shallowest
	// heading is level 2 has no usable chapter style.
	var chain []string
	for i, lvl := range levels {
		if lvl != i {
			break
		}
		chain = append(chain, byLevel[lvl])
	}
	return chain
}

// bodyStyle computes the mode of formatting attributes over body paragraphs.
func bodyStyle(doc *docfile.Document, chain []string) (string, StyleAttrs) {
	headings := map[string]bool{}
	for _, id := range chain {
		headings[id] = true
	}

	styleVotes := map[string]int{}
	fontVotes := map[string]int{}
	sizeVotes := map[float64]int{}
	spacingVotes := map[float64]int{}
	indentVotes := map[float64]int{}
	alignVotes := map[docfile.Alignment]int{}

	for _, para := range doc.Paragraphs {
		text := strings.TrimSpace(para.Text())
		if text == "" {
			continue
		}
		if headings[para.StyleID] || skipForBody(para.StyleID) {
			continue
		}
		// Front-matter markers are structural, not body prose.
		if len(text) <= 80 && MatchCategory(text) != "" {
			continue
		}
		styleVotes[para.StyleID]++
		attrs := doc.ResolveStyle(para.StyleID)
		if attrs.Font != "" {
			fontVotes[attrs.Font]++
		}
		if attrs.SizePt > 0 {
			sizeVotes[attrs.SizePt]++
		}
		if attrs.LineSpacing > 0 {
			spacingVotes[attrs.LineSpacing]++
		}
		if attrs.FirstLineCm > 0 {
			indentVotes[attrs.FirstLineCm]++
		}
		if attrs.Alignment != "" {
			alignVotes[attrs.Alignment]++
		}
	}

	attrs := StyleAttrs{
		Font:        modeOf(fontVotes, "Times New Roman"),
		SizePt:      modeOf(sizeVotes, 12),
		LineSpacing: modeOf(spacingVotes, 1.5),
		FirstLineCm: modeOf(indentVotes, 1.0),
		Alignment:   modeOf(alignVotes, docfile.AlignJustify),
	}
	attrs.Indent = attrs.FirstLineCm
	return modeOf(styleVotes, ""), attrs
}

func skipForBody(styleID string) bool {
	lower := strings.ToLower(styleID)
	for _, marker := range []string{"heading", "toc", "list", "caption", "table", "title"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// modeOf returns the most voted key, breaking ties deterministically by
// preferring the smaller formatted key. Falls back when nothing voted.
func modeOf[K comparable](votes map[K]int, fallback K) K {
	best := fallback
	bestCount := 0
	for k, n := range votes {
		if n > bestCount || (n == bestCount && fmt.Sprint(k) < fmt.Sprint(best)) {
			best = k
			bestCount = n
		}
	}
	return best
}

func scanPlaceholders(doc *docfile.Document) []string {
	seen := map[string]bool{}
	var out []string
	add := func(tok string) {
		tok = strings.TrimSpace(tok)
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		out = append(out, tok)
	}
	for _, para := range doc.Paragraphs {
		text := para.Text()
		for _, re := range placeholderRes {
			for _, m := range re.FindAllString(text, -1) {
				add(m)
			}
		}
		if literalPlaceholderRe.MatchString(strings.TrimSpace(text)) {
			add(strings.TrimSpace(text))
		}
	}
	return out
}

func scanFrontMatter(doc *docfile.Document) []string {
	seen := map[string]bool{}
	var out []string
	for _, para := range doc.Paragraphs {
		text := strings.TrimSpace(para.Text())
		// Only title-ish paragraphs count as structural markers.
		if text == "" || len(text) > 80 {
			continue
		}
		cat := MatchCategory(text)
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	return out
}
