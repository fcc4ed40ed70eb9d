package docfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// WriteDOCX serializes the document into a minimal valid DOCX container.
// Output is deterministic for identical input documents: styles and
// paragraphs are emitted in slice order and nothing iterates a map.
func WriteDOCX(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", docRelsXML},
		{"word/styles.xml", stylesXML(d)},
		{"word/document.xml", documentXML(d)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

func stylesXML(d *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString("\n<w:styles " + wNS + ">")
	for _, s := range d.Styles {
		sb.WriteString(`<w:style w:type="paragraph" w:styleId="` + escape(s.ID) + `">`)
		name := s.Name
		if name == "" {
			name = s.ID
		}
		sb.WriteString(`<w:name w:val="` + escape(name) + `"/>`)
		if s.BasedOn != "" {
			sb.WriteString(`<w:basedOn w:val="` + escape(s.BasedOn) + `"/>`)
		}
		sb.WriteString("<w:pPr>")
		writeSpacing(&sb, s.LineSpacing, s.SpaceBeforePt, s.SpaceAfterPt)
		if s.FirstLineCm > 0 {
			sb.WriteString(fmt.Sprintf(`<w:ind w:firstLine="%d"/>`, cmToTwips(s.FirstLineCm)))
		}
		if s.Alignment != "" {
			sb.WriteString(`<w:jc w:val="` + string(s.Alignment) + `"/>`)
		}
		if s.OutlineLevel != nil {
			sb.WriteString(fmt.Sprintf(`<w:outlineLvl w:val="%d"/>`, *s.OutlineLevel))
		}
		sb.WriteString("</w:pPr>")
		sb.WriteString("<w:rPr>")
		if s.Font != "" {
			sb.WriteString(`<w:rFonts w:ascii="` + escape(s.Font) + `" w:hAnsi="` + escape(s.Font) + `"/>`)
		}
		if s.Bold {
			sb.WriteString("<w:b/>")
		}
		if s.SizePt > 0 {
			sb.WriteString(fmt.Sprintf(`<w:sz w:val="%d"/>`, int(s.SizePt*2)))
		}
		sb.WriteString("</w:rPr>")
		sb.WriteString("</w:style>")
	}
	sb.WriteString("</w:styles>")
	return sb.String()
}

func documentXML(d *Document) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString("\n<w:document " + wNS + "><w:body>")
	for _, p := range d.Paragraphs {
		writeParagraph(&sb, p)
	}
	sb.WriteString("<w:sectPr>")
	m := d.Margins
	if m != (Margins{}) {
		sb.WriteString(fmt.Sprintf(`<w:pgMar w:top="%d" w:bottom="%d" w:left="%d" w:right="%d"/>`,
			cmToTwips(m.TopCm), cmToTwips(m.BottomCm), cmToTwips(m.LeftCm), cmToTwips(m.RightCm)))
	}
	if d.PageNumberStart > 0 {
		sb.WriteString(fmt.Sprintf(`<w:pgNumType w:start="%d"/>`, d.PageNumberStart))
	}
	sb.WriteString("</w:sectPr>")
	sb.WriteString("</w:body></w:document>")
	return sb.String()
}

func writeParagraph(sb *strings.Builder, p *Paragraph) {
	sb.WriteString("<w:p><w:pPr>")
	if p.StyleID != "" {
		sb.WriteString(`<w:pStyle w:val="` + escape(p.StyleID) + `"/>`)
	}
	if p.PageBreakBefore {
		sb.WriteString("<w:pageBreakBefore/>")
	}
	if f := p.Format; f != nil {
		writeSpacing(sb, f.LineSpacing, f.SpaceBeforePt, f.SpaceAfterPt)
		if f.FirstLineCm > 0 {
			sb.WriteString(fmt.Sprintf(`<w:ind w:firstLine="%d"/>`, cmToTwips(f.FirstLineCm)))
		}
		if f.Alignment != "" {
			sb.WriteString(`<w:jc w:val="` + string(f.Alignment) + `"/>`)
		}
	}
	if p.HeadingLevel >= 0 {
		sb.WriteString(fmt.Sprintf(`<w:outlineLvl w:val="%d"/>`, p.HeadingLevel))
	}
	sb.WriteString("</w:pPr>")

	if p.FieldInstr != "" {
		sb.WriteString(`<w:fldSimple w:instr="` + escape(p.FieldInstr) + `">`)
		sb.WriteString(`<w:r><w:t xml:space="preserve">` + escape(p.FieldText) + `</w:t></w:r>`)
		sb.WriteString("</w:fldSimple>")
	}
	for _, r := range p.Runs {
		sb.WriteString("<w:r>")
		if r.Bold || r.Italic || r.Font != "" || r.SizePt > 0 {
			sb.WriteString("<w:rPr>")
			if r.Font != "" {
				sb.WriteString(`<w:rFonts w:ascii="` + escape(r.Font) + `" w:hAnsi="` + escape(r.Font) + `"/>`)
			}
			if r.Bold {
				sb.WriteString("<w:b/>")
			}
			if r.Italic {
				sb.WriteString("<w:i/>")
			}
			if r.SizePt > 0 {
				sb.WriteString(fmt.Sprintf(`<w:sz w:val="%d"/>`, int(r.SizePt*2)))
			}
			sb.WriteString("</w:rPr>")
		}
		if r.Break {
			sb.WriteString("<w:br/>")
		}
		if r.Text != "" {
			sb.WriteString(`<w:t xml:space="preserve">` + escape(r.Text) + `</w:t>`)
		}
		sb.WriteString("</w:r>")
	}
	sb.WriteString("</w:p>")
}

func writeSpacing(sb *strings.Builder, lineSpacing, beforePt, afterPt float64) {
	if lineSpacing <= 0 && beforePt <= 0 && afterPt <= 0 {
		return
	}
	sb.WriteString("<w:spacing")
	if lineSpacing > 0 {
		sb.WriteString(fmt.Sprintf(` w:line="%d" w:lineRule="auto"`, int(lineSpacing*240)))
	}
	sb.WriteString(fmt.Sprintf(` w:before="%d" w:after="%d"/>`, int(beforePt*20), int(afterPt*20)))
}

func cmToTwips(cm float64) int {
	return int(cm*twipsPerCm + 0.5)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escape(s string) string {
	return xmlReplacer.Replace(s)
}
