// Package docfile is the structured-document primitive: an in-memory model
// of a word-processing document (styles, paragraphs, runs, margins, fields)
// with DOCX read/write at the edges. The pipeline stages operate on this
// model only and never touch container formats directly.
package docfile

import "strings"

// Alignment is a paragraph justification value, spelled the way OOXML spells it.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "both"
)

// Style is a named paragraph style definition.
type Style struct {
	ID            string // style identifier referenced by paragraphs
	Name          string // display name
	BasedOn       string // parent style ID, empty if none
	OutlineLevel  *int   // 0-based outline depth, nil when absent
	Font          string
	SizePt        float64
	Bold          bool
	LineSpacing   float64 // multiple, e.g. 1.5; 0 when unset
	FirstLineCm   float64 // first-line indent in cm; 0 when unset
	Alignment     Alignment
	SpaceBeforePt float64
	SpaceAfterPt  float64
}

// Outline wraps an outline depth for use in Style literals.
func Outline(n int) *int { return &n }

// Run is a span of text sharing one set of character formatting.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Font   string
	SizePt float64
	Break  bool // forced line break emitted before Text
}

// Format holds direct paragraph formatting that overrides the style.
// A nil Format on a Paragraph means the style's values apply unchanged.
type Format struct {
	LineSpacing   float64
	FirstLineCm   float64
	Alignment     Alignment
	SpaceBeforePt float64
	SpaceAfterPt  float64
}

// Paragraph is one block of the document body.
type Paragraph struct {
	StyleID         string
	Runs            []Run
	Format          *Format
	PageBreakBefore bool

	// HeadingLevel tags paragraphs rendered from section nodes with their
	// tree depth (-1 for plain body text). It never serializes; the merge
	// phases use it to apply heading discipline and page breaks.
	HeadingLevel int

	// FieldInstr, when non-empty, makes this paragraph a live field
	// (e.g. a TOC reference). FieldText is the placeholder shown until the
	// editor refreshes the field.
	FieldInstr string
	FieldText  string
}

// Text returns the paragraph's plain text with forced breaks as newlines.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		if r.Break {
			sb.WriteString("\n")
		}
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Margins are the four page margins in centimeters.
type Margins struct {
	TopCm    float64
	BottomCm float64
	LeftCm   float64
	RightCm  float64
}

// Document is a complete in-memory document. Styles keep slice order so
// serialization is deterministic.
type Document struct {
	Styles     []*Style
	Paragraphs []*Paragraph
	Margins    Margins

	// PageNumberStart restarts page numbering when > 0.
	PageNumberStart int
}

// StyleByID returns the style with the given ID, or nil.
func (d *Document) StyleByID(id string) *Style {
	for _, s := range d.Styles {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// EnsureStyle adds the style if no style with its ID exists, and returns
// the document's copy.
func (d *Document) EnsureStyle(s Style) *Style {
	if existing := d.StyleByID(s.ID); existing != nil {
		return existing
	}
	copied := s
	d.Styles = append(d.Styles, &copied)
	return &copied
}

// ResolveStyle walks the BasedOn chain and returns the effective attributes
// for a style ID. Fields left zero at every level stay zero.
func (d *Document) ResolveStyle(id string) Style {
	out := Style{ID: id}
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		seen[id] = true
		s := d.StyleByID(id)
		if s == nil {
			break
		}
		if out.Name == "" {
			out.Name = s.Name
		}
		if out.Font == "" {
			out.Font = s.Font
		}
		if out.SizePt == 0 {
			out.SizePt = s.SizePt
		}
		if out.LineSpacing == 0 {
			out.LineSpacing = s.LineSpacing
		}
		if out.FirstLineCm == 0 {
			out.FirstLineCm = s.FirstLineCm
		}
		if out.Alignment == "" {
			out.Alignment = s.Alignment
		}
		if out.OutlineLevel == nil && s.OutlineLevel != nil {
			out.OutlineLevel = Outline(*s.OutlineLevel)
		}
		id = s.BasedOn
	}
	return out
}

// InsertParagraph inserts p before index i. An index at or past the end appends.
func (d *Document) InsertParagraph(i int, p *Paragraph) {
	if i < 0 {
		i = 0
	}
	if i >= len(d.Paragraphs) {
		d.Paragraphs = append(d.Paragraphs, p)
		return
	}
	d.Paragraphs = append(d.Paragraphs, nil)
	copy(d.Paragraphs[i+1:], d.Paragraphs[i:])
	d.Paragraphs[i] = p
}

// RemoveParagraph deletes the paragraph at index i.
func (d *Document) RemoveParagraph(i int) {
	if i < 0 || i >= len(d.Paragraphs) {
		return
	}
	d.Paragraphs = append(d.Paragraphs[:i], d.Paragraphs[i+1:]...)
}

// Clone deep-copies the document. Every merge run works on its own clone so
// concurrent invocations share nothing.
func (d *Document) Clone() *Document {
	out := &Document{
		Margins:         d.Margins,
		PageNumberStart: d.PageNumberStart,
		Styles:          make([]*Style, len(d.Styles)),
		Paragraphs:      make([]*Paragraph, len(d.Paragraphs)),
	}
	for i, s := range d.Styles {
		copied := *s
		if s.OutlineLevel != nil {
			copied.OutlineLevel = Outline(*s.OutlineLevel)
		}
		out.Styles[i] = &copied
	}
	for i, p := range d.Paragraphs {
		copied := *p
		copied.Runs = make([]Run, len(p.Runs))
		copy(copied.Runs, p.Runs)
		if p.Format != nil {
			f := *p.Format
			copied.Format = &f
		}
		out.Paragraphs[i] = &copied
	}
	return out
}

// NewParagraph builds a plain text paragraph with one run.
func NewParagraph(styleID, text string) *Paragraph {
	return &Paragraph{
		StyleID:      styleID,
		Runs:         []Run{{Text: text}},
		HeadingLevel: -1,
	}
}
