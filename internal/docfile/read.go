package docfile

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

const twipsPerCm = 566.93

// ReadDOCX parses a DOCX container into a Document. Paragraph text and style
// assignments come from the document body; style definitions and page margins
// are read from styles.xml and the body sectPr inside the same archive.
func ReadDOCX(data []byte) (*Document, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &Document{}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	if styles, err := readStylesPart(zr); err == nil {
		out.Styles = styles
	}
	if m, ok := readMargins(zr); ok {
		out.Margins = m
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		p := &Paragraph{HeadingLevel: -1}
		if para.Properties != nil && para.Properties.Style != nil {
			p.StyleID = para.Properties.Style.Val
		}
		text := bodyParagraphText(para)
		if text != "" {
			p.Runs = []Run{{Text: text}}
		}
		out.Paragraphs = append(out.Paragraphs, p)
	}

	return out, nil
}

func bodyParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// styles.xml shapes. Namespace prefixes are ignored on purpose: encoding/xml
// matches local names, which is all we need here.
type xmlStyles struct {
	Styles []xmlStyle `xml:"style"`
}

type xmlStyle struct {
	Type    string  `xml:"type,attr"`
	StyleID string  `xml:"styleId,attr"`
	Name    *xmlVal `xml:"name"`
	BasedOn *xmlVal `xml:"basedOn"`
	PPr     *xmlPPr `xml:"pPr"`
	RPr     *xmlRPr `xml:"rPr"`
}

type xmlVal struct {
	Val string `xml:"val,attr"`
}

type xmlPPr struct {
	OutlineLvl *xmlVal     `xml:"outlineLvl"`
	Spacing    *xmlSpacing `xml:"spacing"`
	Ind        *xmlInd     `xml:"ind"`
	Jc         *xmlVal     `xml:"jc"`
}

type xmlSpacing struct {
	Line   string `xml:"line,attr"`
	Before string `xml:"before,attr"`
	After  string `xml:"after,attr"`
}

type xmlInd struct {
	FirstLine string `xml:"firstLine,attr"`
}

type xmlRPr struct {
	RFonts *struct {
		ASCII string `xml:"ascii,attr"`
	} `xml:"rFonts"`
	Sz *xmlVal  `xml:"sz"`
	B  *xmlFlag `xml:"b"`
}

type xmlFlag struct {
	Val string `xml:"val,attr"`
}

func readStylesPart(zr *zip.Reader) ([]*Style, error) {
	raw, err := readZipFile(zr, "word/styles.xml")
	if err != nil {
		return nil, err
	}
	var parsed xmlStyles
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode styles.xml: %w", err)
	}

	var styles []*Style
	for _, xs := range parsed.Styles {
		if xs.Type != "paragraph" || xs.StyleID == "" {
			continue
		}
		s := &Style{ID: xs.StyleID}
		if xs.Name != nil {
			s.Name = xs.Name.Val
		}
		if xs.BasedOn != nil {
			s.BasedOn = xs.BasedOn.Val
		}
		if pPr := xs.PPr; pPr != nil {
			if pPr.OutlineLvl != nil {
				if lvl, err := strconv.Atoi(pPr.OutlineLvl.Val); err == nil {
					s.OutlineLevel = Outline(lvl)
				}
			}
			if pPr.Spacing != nil {
				if line, err := strconv.ParseFloat(pPr.Spacing.Line, 64); err == nil && line > 0 {
					s.LineSpacing = line / 240.0
				}
				if before, err := strconv.ParseFloat(pPr.Spacing.Before, 64); err == nil {
					s.SpaceBeforePt = before / 20.0
				}
				if after, err := strconv.ParseFloat(pPr.Spacing.After, 64); err == nil {
					s.SpaceAfterPt = after / 20.0
				}
			}
			if pPr.Ind != nil {
				if fl, err := strconv.ParseFloat(pPr.Ind.FirstLine, 64); err == nil && fl > 0 {
					s.FirstLineCm = fl / twipsPerCm
				}
			}
			if pPr.Jc != nil {
				s.Alignment = Alignment(pPr.Jc.Val)
			}
		}
		if rPr := xs.RPr; rPr != nil {
			if rPr.RFonts != nil {
				s.Font = rPr.RFonts.ASCII
			}
			if rPr.Sz != nil {
				if half, err := strconv.ParseFloat(rPr.Sz.Val, 64); err == nil {
					s.SizePt = half / 2.0
				}
			}
			if rPr.B != nil && rPr.B.Val != "false" && rPr.B.Val != "0" {
				s.Bold = true
			}
		}
		styles = append(styles, s)
	}
	return styles, nil
}

type xmlDocBody struct {
	Body struct {
		SectPr struct {
			PgMar *struct {
				Top    string `xml:"top,attr"`
				Bottom string `xml:"bottom,attr"`
				Left   string `xml:"left,attr"`
				Right  string `xml:"right,attr"`
			} `xml:"pgMar"`
		} `xml:"sectPr"`
	} `xml:"body"`
}

func readMargins(zr *zip.Reader) (Margins, bool) {
	raw, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return Margins{}, false
	}
	var parsed xmlDocBody
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return Margins{}, false
	}
	pgMar := parsed.Body.SectPr.PgMar
	if pgMar == nil {
		return Margins{}, false
	}
	toCm := func(v string) float64 {
		tw, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return tw / twipsPerCm
	}
	return Margins{
		TopCm:    toCm(pgMar.Top),
		BottomCm: toCm(pgMar.Bottom),
		LeftCm:   toCm(pgMar.Left),
		RightCm:  toCm(pgMar.Right),
	}, true
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
