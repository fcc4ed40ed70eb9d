package mapper

import "strings"

// Metadata field keys that placeholder patterns bind to. The merge executor
// resolves these keys against the user-supplied metadata.
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldIdentifier  = "identifier"
	FieldAdvisor     = "advisor"
	FieldInstitution = "institution"
	FieldProgram     = "program"
	FieldDate        = "date"
)

// fieldTable maps placeholder keywords (Indonesian and English) to metadata
// field keys. Order matters: earlier rows are more specific.
var fieldTable = []struct {
	Field    string
	Keywords []string
}{
	{FieldAdvisor, []string{"pembimbing", "advisor", "dosen", "supervisor"}},
	{FieldTitle, []string{"judul", "title"}},
	{FieldAuthor, []string{"penulis", "author", "nama", "name", "mahasiswa"}},
	{FieldIdentifier, []string{"nim", "npm", "identifier", "student id"}},
	{FieldInstitution, []string{"universitas", "institut", "institution", "university", "sekolah"}},
	{FieldProgram, []string{"program studi", "prodi", "jurusan", "program", "department", "fakultas"}},
	{FieldDate, []string{"tanggal", "tahun", "date", "year"}},
}

// matchField resolves a placeholder pattern to a metadata field key, or ""
// when no table row matches.
func matchField(pattern string) string {
	norm := strings.ToLower(pattern)
	for _, row := range fieldTable {
		for _, kw := range row.Keywords {
			if strings.Contains(norm, kw) {
				return row.Field
			}
		}
	}
	return ""
}
