package profile

import "strings"

// Front-matter category identifiers. These also name the slots the mapper
// binds content into, so they are shared vocabulary across the pipeline.
const (
	CategoryCover       = "cover"
	CategoryApproval    = "approval"
	CategoryStatement   = "statement"
	CategoryDedication  = "dedication"
	CategoryMotto       = "motto"
	CategoryPreface     = "preface"
	CategoryAbstractID  = "abstract_id"
	CategoryAbstractEN  = "abstract_en"
	CategoryGlossary    = "glossary"
	CategoryTOC         = "toc"
	CategoryListTables  = "list_tables"
	CategoryListFigures = "list_figures"
)

// categoryMarker pairs a category with the title keywords that identify it.
// Keywords cover both Indonesian and English template conventions.
type categoryMarker struct {
	Category string
	Keywords []string
}

// CategoryMarkers is ordered from most to least specific so that fuzzy
// containment matching resolves "abstract" vs "abstrak" correctly.
var CategoryMarkers = []categoryMarker{
	{CategoryCover, []string{"halaman judul", "cover page", "title page"}},
	{CategoryApproval, []string{"lembar pengesahan", "halaman pengesahan", "pengesahan", "persetujuan", "approval"}},
	{CategoryStatement, []string{"pernyataan keaslian", "pernyataan", "keaslian", "declaration", "originality"}},
	{CategoryDedication, []string{"persembahan", "dedication"}},
	{CategoryMotto, []string{"motto"}},
	{CategoryPreface, []string{"kata pengantar", "pengantar", "preface", "foreword"}},
	{CategoryAbstractID, []string{"abstrak", "ringkasan", "sari"}},
	{CategoryAbstractEN, []string{"abstract"}},
	{CategoryGlossary, []string{"glosarium", "daftar istilah", "glossary"}},
	{CategoryTOC, []string{"daftar isi", "table of contents"}},
	{CategoryListTables, []string{"daftar tabel", "list of tables"}},
	{CategoryListFigures, []string{"daftar gambar", "list of figures"}},
}

// MatchCategory resolves a section title to a front-matter category by
// normalized containment. Empty string means no category matched.
func MatchCategory(title string) string {
	norm := Normalize(title)
	if norm == "" {
		return ""
	}
	for _, m := range CategoryMarkers {
		for _, kw := range m.Keywords {
			if matchKeyword(norm, kw) {
				return m.Category
			}
		}
	}
	return ""
}

// matchKeyword matches multi-word keywords by containment and single-word
// keywords by whole token, so "glosarium" never matches "sari".
func matchKeyword(norm, kw string) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(norm, kw)
	}
	for _, tok := range strings.Fields(norm) {
		if tok == kw {
			return true
		}
	}
	return false
}

// Normalize lowercases and collapses whitespace for fuzzy title matching.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
