// Package merge applies an ActionPlan against a working copy of the
// template through strictly ordered sub-phases, producing the output
// document and a MergeResult. A failure in any phase aborts the whole run;
// the caller never receives a partially merged document.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skripsiforge/internal/docfile"
	"skripsiforge/internal/enhance"
	"skripsiforge/internal/mapper"
	"skripsiforge/internal/profile"
	"skripsiforge/internal/section"
)

// State is the executor's position in the phase sequence.
type State string

const (
	StatePlanned        State = "planned"
	StateSubstituting   State = "substituting"
	StateHeadingMerging State = "heading_merging"
	StateStyleEnforcing State = "style_enforcing"
	StateTOCRebuilding  State = "toc_rebuilding"
	StatePageBreaking   State = "page_breaking"
	StateFrontMatter    State = "frontmatter_assembling"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Result counts what each sub-phase did. Immutable once returned.
type Result struct {
	Substitutions       int       `json:"substitutions"`
	HeadingMerges       int       `json:"heading_merges"`
	ParagraphsStyled    int       `json:"paragraphs_styled"`
	HeadingsDisciplined int       `json:"headings_disciplined"`
	TOCEntriesRemoved   int       `json:"toc_entries_removed"`
	PageBreaksInserted  int       `json:"page_breaks_inserted"`
	FrontMatterInserted int       `json:"front_matter_inserted"`
	Warnings            []string  `json:"warnings"`
	CompletedAt         time.Time `json:"completed_at"`
}

// MergeError reports which sub-phase failed and why.
type MergeError struct {
	Phase State
	Err   error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed in phase %s: %v", e.Phase, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// Metadata is the user-supplied document metadata.
type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Identifier  string `json:"identifier"`
	Advisor     string `json:"advisor"`
	Institution string `json:"institution"`
	Program     string `json:"program"`
	Date        string `json:"date"`

	AbstractID string `json:"abstract_id"`
	AbstractEN string `json:"abstract_en"`
	Keywords   string `json:"keywords"`
	Preface    string `json:"preface"`
}

// Fields exposes the placeholder-bindable values by field key.
func (m Metadata) Fields() map[string]string {
	return map[string]string{
		mapper.FieldTitle:       m.Title,
		mapper.FieldAuthor:      m.Author,
		mapper.FieldIdentifier:  m.Identifier,
		mapper.FieldAdvisor:     m.Advisor,
		mapper.FieldInstitution: m.Institution,
		mapper.FieldProgram:     m.Program,
		mapper.FieldDate:        m.Date,
	}
}

// categoryText returns metadata-supplied body text for a category, if any.
func (m Metadata) categoryText(category string) string {
	switch category {
	case profile.CategoryAbstractID:
		return m.AbstractID
	case profile.CategoryAbstractEN:
		return m.AbstractEN
	case profile.CategoryPreface:
		return m.Preface
	default:
		return ""
	}
}

// Executor runs merges. Safe for concurrent use: every run clones the
// template and keeps all mutable state local.
type Executor struct {
	synth        enhance.Synthesizer // nil means blank shells only
	synthTimeout time.Duration
	log          *slog.Logger
}

// New builds an executor. synth may be nil.
func New(synth enhance.Synthesizer, synthTimeout time.Duration, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{synth: synth, synthTimeout: synthTimeout, log: log}
}

// Run executes the plan and returns the output document and result.
// On error the working copy is discarded and both returns are nil.
func (e *Executor) Run(ctx context.Context, prof *profile.TemplateProfile, tree *section.Tree, plan *mapper.ActionPlan, meta Metadata) (*docfile.Document, *Result, error) {
	res := &Result{}
	res.Warnings = append(res.Warnings, plan.Warnings...)

	working := prof.Source.Clone()
	run := &mergeRun{
		exec:    e,
		doc:     working,
		prof:    prof,
		tree:    tree,
		plan:    plan,
		meta:    meta,
		res:     res,
		bodyID:  ensureBodyStyle(working, prof),
		chainOK: map[string]bool{},
	}
	for _, id := range prof.HeadingChain {
		run.chainOK[id] = true
	}
	run.renderBoundSections()

	phases := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateSubstituting, run.substitutePlaceholders},
		{StateHeadingMerging, run.mergeHeadings},
		{StateStyleEnforcing, run.enforceStyles},
		{StateTOCRebuilding, run.rebuildTOC},
		{StatePageBreaking, run.insertPageBreaks},
		{StateFrontMatter, run.assembleFrontMatter},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return nil, nil, &MergeError{Phase: phase.state, Err: err}
		}
		if err := phase.fn(ctx); err != nil {
			e.log.Error("merge phase failed", "phase", string(phase.state), "error", err)
			return nil, nil, &MergeError{Phase: phase.state, Err: err}
		}
	}

	res.CompletedAt = time.Now()
	return working, res, nil
}

// mergeRun is the per-invocation state shared by phases.
type mergeRun struct {
	exec *Executor
	doc  *docfile.Document
	prof *profile.TemplateProfile
	tree *section.Tree
	plan *mapper.ActionPlan
	meta Metadata
	res  *Result

	bodyID  string
	chainOK map[string]bool
}

func (r *mergeRun) warnf(format string, args ...any) {
	r.res.Warnings = append(r.res.Warnings, fmt.Sprintf(format, args...))
}

// ensureBodyStyle guarantees the canonical body style exists on the working
// copy and returns its ID.
func ensureBodyStyle(doc *docfile.Document, prof *profile.TemplateProfile) string {
	id := prof.BodyStyleID
	if id == "" {
		id = "BodyText"
	}
	doc.EnsureStyle(docfile.Style{
		ID:          id,
		Name:        id,
		Font:        prof.BodyAttrs.Font,
		SizePt:      prof.BodyAttrs.SizePt,
		LineSpacing: prof.BodyAttrs.LineSpacing,
		FirstLineCm: prof.BodyAttrs.FirstLineCm,
		Alignment:   prof.BodyAttrs.Alignment,
	})
	return id
}
