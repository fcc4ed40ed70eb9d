package merge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"skripsiforge/internal/mapper"
	"skripsiforge/internal/profile"
	"skripsiforge/internal/section"
)

type fakeSynth struct {
	text   string
	err    error
	kind   string
	called bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, kind string, fields map[string]string) (string, error) {
	f.called = true
	f.kind = kind
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestFrontMatter_OrderFollowsTemplate(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc,
		profile.CategoryCover,
		profile.CategoryApproval,
		profile.CategoryPreface,
		profile.CategoryTOC,
	)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{
		{Category: profile.CategoryCover, Action: mapper.ActionBlank},
		{Category: profile.CategoryApproval, Action: mapper.ActionBlank},
		{Category: profile.CategoryPreface, Action: mapper.ActionBlank},
		{Category: profile.CategoryTOC, Action: mapper.ActionBlank},
	}

	out, res := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{Title: "Judul Uji"})

	if res.FrontMatterInserted != 4 {
		t.Errorf("expected 4 front-matter sections, got %d", res.FrontMatterInserted)
	}
	want := []string{"JUDUL UJI", "LEMBAR PENGESAHAN", "KATA PENGANTAR", "DAFTAR ISI"}
	var got []string
	for _, p := range out.Paragraphs {
		text := strings.TrimSpace(p.Text())
		for _, w := range want {
			if text == w {
				got = append(got, w)
			}
		}
		if text == "BAB I\nPENDAHULUAN" {
			break // chapters follow front matter
		}
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("front matter order = %v, want %v", got, want)
	}
}

func TestFrontMatter_PageBreaksExceptFirst(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryCover, profile.CategoryApproval)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{
		{Category: profile.CategoryCover, Action: mapper.ActionBlank},
		{Category: profile.CategoryApproval, Action: mapper.ActionBlank},
	}

	out, _ := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{Title: "T"})

	first := out.Paragraphs[0]
	if first.PageBreakBefore {
		t.Error("document must not open with a page break")
	}
	approval := findParagraph(out, "LEMBAR PENGESAHAN")
	if approval == nil {
		t.Fatal("approval heading missing")
	}
	if !approval.PageBreakBefore {
		t.Error("second front-matter section must start on a new page")
	}
}

func TestFrontMatter_MissingAbstractFromMetadata(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryAbstractID)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryAbstractID, Action: mapper.ActionSynthesize}}

	synth := &fakeSynth{text: "should not be used"}
	out, _ := mustRun(t, New(synth, time.Second, nil), prof, tree, plan, Metadata{
		AbstractID: "Penelitian ini membahas sistem pakar.",
		Keywords:   "sistem pakar, diagnosa",
	})

	if findParagraph(out, "ABSTRAK") == nil {
		t.Fatal("abstract heading missing")
	}
	if findParagraph(out, "Penelitian ini membahas sistem pakar.") == nil {
		t.Error("metadata abstract text missing")
	}
	if findParagraph(out, "Kata Kunci: sistem pakar, diagnosa") == nil {
		t.Error("keywords line missing")
	}
	if synth.called {
		t.Error("metadata text must take precedence over synthesis")
	}
}

func TestFrontMatter_MissingAbstractSynthesized(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryAbstractID)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryAbstractID, Action: mapper.ActionSynthesize}}

	synth := &fakeSynth{text: "Abstrak yang dihasilkan kolaborator."}
	out, _ := mustRun(t, New(synth, time.Second, nil), prof, tree, plan, Metadata{Title: "T"})

	if !synth.called {
		t.Fatal("expected synthesis call")
	}
	if synth.kind != profile.CategoryAbstractID {
		t.Errorf("synthesize kind = %q", synth.kind)
	}
	if findParagraph(out, "Abstrak yang dihasilkan kolaborator.") == nil {
		t.Error("synthesized text missing from document")
	}
}

func TestFrontMatter_SynthesisFailureFallsBackToShell(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryAbstractID)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryAbstractID, Action: mapper.ActionSynthesize}}

	synth := &fakeSynth{err: errors.New("upstream timeout")}
	out, res := mustRun(t, New(synth, time.Second, nil), prof, tree, plan, Metadata{Title: "T"})

	if findParagraph(out, "[ABSTRAK - lengkapi bagian ini]") == nil {
		t.Error("expected blank shell after synthesis failure")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "synthesis collaborator unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected synthesis warning, got %v", res.Warnings)
	}
}

func TestFrontMatter_BlankActionSkipsSynthesizer(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryPreface)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryPreface, Action: mapper.ActionBlank}}

	synth := &fakeSynth{text: "x"}
	out, _ := mustRun(t, New(synth, time.Second, nil), prof, tree, plan, Metadata{})

	if synth.called {
		t.Error("blank action must not consult the synthesizer")
	}
	if findParagraph(out, "[KATA PENGANTAR - lengkapi bagian ini]") == nil {
		t.Error("expected blank preface shell")
	}
}

func TestFrontMatter_BoundNodeSuppliesContent(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryPreface)
	tree := chapterTree()
	plan := chapterPlan(tree)
	pref := tree.Add(-1, section.Node{
		Title:      "KATA PENGANTAR",
		Kind:       section.KindChapter,
		Confidence: 0.9,
		Paragraphs: []string{"Puji syukur penulis panjatkan."},
	})
	plan.Bindings = append(plan.Bindings, mapper.Binding{
		Node:  pref,
		Slot:  mapper.Slot{Chapter: -1, Category: profile.CategoryPreface},
		Style: "Heading1",
	})

	out, _ := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{})

	heading := findParagraph(out, "KATA PENGANTAR")
	if heading == nil || heading.StyleID != "Heading1" {
		t.Fatalf("expected preface heading in chain style, got %+v", heading)
	}
	body := findParagraph(out, "Puji syukur penulis panjatkan.")
	if body == nil {
		t.Fatal("bound preface body missing")
	}
}

func TestFrontMatter_MissingTOCBecomesField(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryTOC)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryTOC, Action: mapper.ActionBlank}}

	out, _ := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{})

	if findParagraph(out, "DAFTAR ISI") == nil {
		t.Fatal("TOC heading missing")
	}
	for _, p := range out.Paragraphs {
		if p.FieldInstr == tocInstruction {
			return
		}
	}
	t.Error("expected a live TOC field")
}

func TestFrontMatter_CoverBlock(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryCover)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryCover, Action: mapper.ActionBlank}}

	meta := Metadata{
		Title:       "Sistem Pakar Diagnosa",
		Author:      "Budi Santoso",
		Identifier:  "123456",
		Program:     "Teknik Informatika",
		Institution: "Universitas Contoh",
		Date:        "2026",
	}
	out, _ := mustRun(t, New(nil, 0, nil), prof, tree, plan, meta)

	title := findParagraph(out, "SISTEM PAKAR DIAGNOSA")
	if title == nil {
		t.Fatal("cover title missing")
	}
	if len(title.Runs) == 0 || !title.Runs[0].Bold || title.Runs[0].SizePt != 14 {
		t.Errorf("expected bold 14pt cover title, got %+v", title.Runs)
	}
	if findParagraph(out, "Oleh:") == nil {
		t.Error("author lead-in missing")
	}
	if findParagraph(out, "BUDI SANTOSO\n123456") == nil {
		t.Error("author and identifier block missing")
	}
	if findParagraph(out, "TEKNIK INFORMATIKA\nUNIVERSITAS CONTOH\n2026") == nil {
		t.Error("institution footer missing")
	}
}

func TestFrontMatter_UnrequiredCategoryIgnored(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc) // template requires nothing
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryCover, Action: mapper.ActionBlank}}

	out, res := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{Title: "T"})

	if res.FrontMatterInserted != 0 {
		t.Errorf("expected no front matter, got %d", res.FrontMatterInserted)
	}
	if findParagraph(out, "HALAMAN JUDUL") != nil {
		t.Error("unrequested cover must not be inserted")
	}
}

func TestFrontMatter_UnrequiredBoundContentAppended(t *testing.T) {
	doc := skeletonDoc()
	prof := testProfile(doc, profile.CategoryPreface)
	tree := chapterTree()
	plan := chapterPlan(tree)
	plan.Missing = []mapper.Missing{{Category: profile.CategoryPreface, Action: mapper.ActionBlank}}
	motto := tree.Add(-1, section.Node{
		Title:      "MOTTO",
		Kind:       section.KindChapter,
		Confidence: 0.9,
		Paragraphs: []string{"Berakit-rakit ke hulu."},
	})
	plan.Bindings = append(plan.Bindings, mapper.Binding{
		Node:  motto,
		Slot:  mapper.Slot{Chapter: -1, Category: profile.CategoryMotto},
		Style: "Heading1",
	})

	out, res := mustRun(t, New(nil, 0, nil), prof, tree, plan, Metadata{})

	if res.FrontMatterInserted != 2 {
		t.Errorf("expected 2 front-matter sections, got %d", res.FrontMatterInserted)
	}
	heading := findParagraph(out, "MOTTO")
	if heading == nil {
		t.Fatal("bound motto heading missing")
	}
	if !heading.PageBreakBefore {
		t.Error("appended section must start on a new page")
	}
	if findParagraph(out, "Berakit-rakit ke hulu.") == nil {
		t.Error("bound motto body missing")
	}
	// Required sections keep their template position ahead of the extras.
	texts := paragraphTexts(out)
	var prefaceAt, mottoAt int
	for i, text := range texts {
		switch strings.TrimSpace(text) {
		case "KATA PENGANTAR":
			prefaceAt = i
		case "MOTTO":
			mottoAt = i
		}
	}
	if mottoAt < prefaceAt {
		t.Errorf("motto at %d precedes required preface at %d", mottoAt, prefaceAt)
	}
	var warned bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "not required by template") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected warning for unrequired bound category, got %v", res.Warnings)
	}
}
