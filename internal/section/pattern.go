package section

import (
	"bufio"
	"regexp"
	"strings"
	"unicode"
)

var (
	chapterMarkerRe = regexp.MustCompile(`(?i)^(BAB|CHAPTER|BAGIAN|PART)\s+([IVXLC]+|\d+)\.?$`)
	chapterInlineRe = regexp.MustCompile(`(?i)^(BAB|CHAPTER|BAGIAN|PART)\s+([IVXLC]+|\d+)\.?\s+(\S.*)$`)
	subsubRe        = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)\.?\s+(\S.*)$`)
	subRe           = regexp.MustCompile(`^(\d+)\.(\d+)\.?\s+(\S.*)$`)

	listItemRe      = regexp.MustCompile(`^([-•*]|\d+[.)]|[a-z][.)])\s+\S`)
	tableCaptionRe  = regexp.MustCompile(`(?i)^(tabel|table)\s+\d`)
	figureCaptionRe = regexp.MustCompile(`(?i)^(gambar|figure|fig\.)\s+\d`)
	equationRe      = regexp.MustCompile(`^[^A-Za-z]{0,4}\S+\s*=\s*\S.*\(\d+\)\s*$`)
	appendixRe      = regexp.MustCompile(`(?i)^(LAMPIRAN|APPENDIX)(\s+([A-Z]|\d+|[IVX]+))?\s*$`)
	bibliographyRe  = regexp.MustCompile(`(?i)^(DAFTAR\s+PUSTAKA|REFERENCES|BIBLIOGRAPHY)\s*$`)
)

// classification is a rule-based guess for one non-heading text block.
type classification struct {
	Kind       Kind
	Confidence float64
}

// classifyBlock applies pattern heuristics to a body block. Heading detection
// happens earlier in each strategy; this covers everything below headings.
func classifyBlock(text string) classification {
	trimmed := strings.TrimSpace(text)
	switch {
	case tableCaptionRe.MatchString(trimmed):
		return classification{KindTableCaption, 0.9}
	case figureCaptionRe.MatchString(trimmed):
		return classification{KindFigureCaption, 0.9}
	case appendixRe.MatchString(trimmed):
		return classification{KindAppendix, 0.9}
	case listItemRe.MatchString(trimmed):
		return classification{KindListItem, 0.8}
	case equationRe.MatchString(trimmed):
		// Equations are hard to tell from fragments of prose, so the score
		// deliberately sits below the usual threshold.
		return classification{KindEquation, 0.55}
	default:
		return classification{KindParagraph, 1.0}
	}
}

// allCapsTitle reports whether a line looks like a shouted section title.
func allCapsTitle(s string) bool {
	if len(s) <= 3 || len(s) >= 100 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// patternState tracks the insertion points while scanning lines.
type patternState struct {
	tree    *Tree
	opts    Options
	chapter int // arena index of current chapter, -1
	section int // current subchapter, -1
	subsub  int // current subsubchapter, -1
	lastTop int // most recent non-chapter top-level node, -1
	inBib   bool
}

// parsePattern is the strategy for plain, pattern-bearing text: chapter
// markers, multi-level numbered headings, and per-line classification.
func parsePattern(text string, opts Options) (*Tree, error) {
	st := &patternState{tree: &Tree{}, opts: opts, chapter: -1, section: -1, subsub: -1, lastTop: -1}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Reason: "read content", Err: err}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}

		if chapterMarkerRe.MatchString(line) {
			// A bare chapter marker followed by a non-empty line is one
			// logical chapter node: marker and title merge so the heading
			// phase of the merge gets full chapter text in a single title.
			title := line
			conf := 0.7
			if j := nextNonEmpty(lines, i+1); j >= 0 && looksLikeTitle(lines[j]) {
				title = line + " " + lines[j]
				conf = 0.95
				i = j
			}
			st.startChapter(title, conf)
			continue
		}
		if m := chapterInlineRe.FindStringSubmatch(line); m != nil {
			st.startChapter(line, 0.9)
			continue
		}
		if m := subsubRe.FindStringSubmatch(line); m != nil {
			st.startSubsub(line, 0.9)
			continue
		}
		if m := subRe.FindStringSubmatch(line); m != nil {
			st.startSection(line, 0.9)
			continue
		}
		if bibliographyRe.MatchString(line) {
			st.startTopLevel(line, KindParagraph, 0.9)
			st.inBib = true
			continue
		}
		if appendixRe.MatchString(line) {
			st.startTopLevel(line, KindAppendix, 0.9)
			st.inBib = false
			continue
		}
		if allCapsTitle(line) {
			if st.chapter >= 0 && !st.inBib {
				st.startSection(line, 0.7)
			} else {
				// Before any chapter, an all-caps line is most likely a
				// front-matter section title; the mapper classifies it.
				st.startTopLevel(line, KindParagraph, 0.65)
			}
			continue
		}

		st.addBlock(line)
	}

	return st.tree, nil
}

func nextNonEmpty(lines []string, from int) int {
	for j := from; j < len(lines); j++ {
		if lines[j] != "" {
			return j
		}
	}
	return -1
}

func looksLikeTitle(s string) bool {
	return len(s) > 3 && len(s) < 100 && !listItemRe.MatchString(s)
}

// IsBibliographyTitle reports whether a line introduces the bibliography.
func IsBibliographyTitle(s string) bool {
	return bibliographyRe.MatchString(strings.TrimSpace(s))
}

func (st *patternState) startChapter(title string, conf float64) {
	st.chapter = st.tree.Add(-1, Node{Title: title, Kind: KindChapter, Confidence: conf})
	st.section, st.subsub = -1, -1
	st.inBib = false
}

func (st *patternState) startSection(title string, conf float64) {
	if st.chapter < 0 {
		// Numbered headings without a chapter still need a legal parent to
		// keep the level invariant, so an implicit chapter is created.
		st.startChapter("", 0.5)
		st.tree.Warn("subchapter %q appeared before any chapter marker", title)
	}
	st.section = st.tree.Add(st.chapter, Node{Title: title, Kind: KindSubchapter, Confidence: conf})
	st.subsub = -1
}

func (st *patternState) startSubsub(title string, conf float64) {
	if st.section < 0 {
		st.startSection("", 0.5)
	}
	st.subsub = st.tree.Add(st.section, Node{Title: title, Kind: KindSubsubchapter, Confidence: conf})
}

func (st *patternState) startTopLevel(title string, kind Kind, conf float64) {
	st.chapter = -1
	st.section, st.subsub = -1, -1
	st.lastTop = st.tree.Add(-1, Node{Title: title, Kind: kind, Confidence: conf})
}

// addBlock classifies a body line and attaches it to the current node.
func (st *patternState) addBlock(line string) {
	parent := st.currentParent()

	if st.inBib {
		st.tree.Add(parent, Node{Kind: KindBibliography, Confidence: 0.85, Paragraphs: []string{line}})
		return
	}

	c := classifyBlock(line)
	if c.Kind == KindParagraph {
		st.appendParagraph(parent, line)
		return
	}
	if c.Confidence < st.opts.MinConfidence {
		st.tree.Warn("ambiguous block %q kept as paragraph (%s at %.2f)", truncate(line, 40), c.Kind, c.Confidence)
		idx := st.appendParagraphNode(parent, line)
		st.tree.Nodes[idx].Confidence = c.Confidence
		return
	}
	st.tree.Add(parent, Node{Kind: c.Kind, Confidence: c.Confidence, Paragraphs: []string{line}})
}

// currentParent returns the deepest open node, or -1 when text precedes any
// structure (front matter).
func (st *patternState) currentParent() int {
	switch {
	case st.subsub >= 0:
		return st.subsub
	case st.section >= 0:
		return st.section
	case st.chapter >= 0:
		return st.chapter
	case st.lastTop >= 0:
		return st.lastTop
	default:
		return -1
	}
}

// appendParagraph adds the line to the parent's paragraph sequence, creating
// a top-level paragraph node when there is no structure yet.
func (st *patternState) appendParagraph(parent int, line string) {
	if parent < 0 {
		st.lastTop = st.tree.Add(-1, Node{Kind: KindParagraph, Confidence: 1.0, Paragraphs: []string{line}})
		return
	}
	st.tree.Nodes[parent].Paragraphs = append(st.tree.Nodes[parent].Paragraphs, line)
}

// appendParagraphNode records a low-confidence block as its own paragraph
// node so the score survives for the mapper.
func (st *patternState) appendParagraphNode(parent int, line string) int {
	return st.tree.Add(parent, Node{Kind: KindParagraph, Paragraphs: []string{line}})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
