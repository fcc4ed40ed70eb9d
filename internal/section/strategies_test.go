package section

import (
	"strings"
	"testing"

	"skripsiforge/internal/docfile"
)

func TestParseMarkdown_HeadingsAndLists(t *testing.T) {
	content := strings.Join([]string{
		"# BAB I PENDAHULUAN",
		"",
		"Latar belakang penelitian.",
		"",
		"## 1.1 Rumusan Masalah",
		"",
		"Uraian rumusan masalah.",
		"",
		"- butir pertama",
		"- butir kedua",
		"",
		"# BAB II TINJAUAN PUSTAKA",
		"",
		"Kajian teori.",
	}, "\n")

	tree, err := Parse([]byte(content), "naskah.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checkLevels(t, tree)

	roots := tree.Roots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 chapters, got %d roots", len(roots))
	}
	ch1 := tree.Nodes[roots[0]]
	if ch1.Kind != KindChapter || ch1.Title != "BAB I PENDAHULUAN" {
		t.Errorf("unexpected first chapter %+v", ch1)
	}
	if len(ch1.Paragraphs) != 1 {
		t.Errorf("expected chapter body attached, got %v", ch1.Paragraphs)
	}

	subs := tree.Children(roots[0])
	if len(subs) != 1 {
		t.Fatalf("expected 1 subchapter, got %d", len(subs))
	}
	sub := tree.Nodes[subs[0]]
	if sub.Kind != KindSubchapter || sub.Level != 1 {
		t.Errorf("unexpected subchapter %+v", sub)
	}

	items := 0
	for _, i := range tree.Children(subs[0]) {
		if tree.Nodes[i].Kind == KindListItem {
			items++
		}
	}
	if items != 2 {
		t.Errorf("expected 2 list items under subchapter, got %d", items)
	}
}

func TestParseMarkdown_HeadingJumpClamped(t *testing.T) {
	content := "# Judul\n\n### Loncat Dua Level\n\nIsi.\n"
	tree, err := Parse([]byte(content), "n.md")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checkLevels(t, tree)
	// h3 right under h1 clamps to depth 1.
	if tree.MaxDepth() != 1 {
		t.Errorf("expected clamped depth 1, got %d", tree.MaxDepth())
	}
}

func TestParseHTML_Structure(t *testing.T) {
	content := `<html><head><title>x</title><script>junk()</script></head><body>
<h1>BAB I PENDAHULUAN</h1>
<p>Latar belakang penelitian.</p>
<h2>1.1 Rumusan Masalah</h2>
<p>Uraian rumusan.</p>
<ul><li>butir satu</li><li>butir dua</li></ul>
</body></html>`

	tree, err := Parse([]byte(content), "naskah.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checkLevels(t, tree)

	roots := tree.Roots()
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	if tree.Nodes[roots[0]].Title != "BAB I PENDAHULUAN" {
		t.Errorf("unexpected chapter title %q", tree.Nodes[roots[0]].Title)
	}
	for _, n := range tree.Nodes {
		if strings.Contains(n.Title, "junk") {
			t.Error("script content leaked into the tree")
		}
		for _, p := range n.Paragraphs {
			if strings.Contains(p, "junk") {
				t.Error("script content leaked into paragraphs")
			}
		}
	}

	items := 0
	for _, n := range tree.Nodes {
		if n.Kind == KindListItem {
			items++
		}
	}
	if items != 2 {
		t.Errorf("expected 2 list items, got %d", items)
	}
}

func styledContentDOCX(t *testing.T) []byte {
	t.Helper()
	d := &docfile.Document{
		Styles: []*docfile.Style{
			{ID: "Normal", Name: "Normal"},
			{ID: "Heading1", Name: "heading 1", OutlineLevel: docfile.Outline(0)},
			{ID: "Heading2", Name: "heading 2", OutlineLevel: docfile.Outline(1)},
		},
	}
	add := func(styleID, text string) {
		d.Paragraphs = append(d.Paragraphs, docfile.NewParagraph(styleID, text))
	}
	add("Heading1", "BAB I PENDAHULUAN")
	add("Normal", "Latar belakang penelitian.")
	add("Heading2", "1.1 Rumusan Masalah")
	add("Normal", "Uraian rumusan masalah.")
	add("Heading1", "DAFTAR PUSTAKA")
	add("Normal", "Sutrisno, A. (2020). Metodologi. Jakarta: Pustaka.")

	data, err := docfile.WriteDOCX(d)
	if err != nil {
		t.Fatalf("write docx fixture: %v", err)
	}
	return data
}

func TestParseStructured_HeadingStylesBecomeLevels(t *testing.T) {
	tree, err := Parse(styledContentDOCX(t), "naskah.docx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	checkLevels(t, tree)

	roots := tree.Roots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	ch := tree.Nodes[roots[0]]
	if ch.Kind != KindChapter || ch.Title != "BAB I PENDAHULUAN" {
		t.Errorf("unexpected chapter %+v", ch)
	}
	if len(ch.Paragraphs) != 1 {
		t.Errorf("expected chapter body, got %v", ch.Paragraphs)
	}
	subs := tree.Children(roots[0])
	if len(subs) != 1 || tree.Nodes[subs[0]].Kind != KindSubchapter {
		t.Fatalf("expected 1 subchapter, got %v", subs)
	}
}

func TestParseStructured_BibliographyMode(t *testing.T) {
	tree, err := Parse(styledContentDOCX(t), "naskah.docx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	entries := 0
	for _, n := range tree.Nodes {
		if n.Kind == KindBibliography {
			entries++
		}
	}
	if entries != 1 {
		t.Errorf("expected 1 bibliography entry, got %d", entries)
	}
}

func TestParseStructured_Garbage(t *testing.T) {
	if _, err := Parse([]byte("not a docx"), "x.docx"); err == nil {
		t.Error("expected error for invalid DOCX content")
	}
}
