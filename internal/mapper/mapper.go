// Package mapper reconciles a TemplateProfile with a SectionTree into an
// ActionPlan. Pure planning: no document is touched here.
package mapper

import (
	"context"
	"fmt"
	"time"

	"skripsiforge/internal/enhance"
	"skripsiforge/internal/profile"
	"skripsiforge/internal/section"
)

// Slot is a binding target: either a sequential chapter ordinal or a
// front-matter category from the template's required list.
type Slot struct {
	Chapter  int    // 0-based chapter ordinal, -1 when Category is set
	Category string // front-matter category, "" when Chapter is set
}

// Binding ties one section node to its target slot and style.
type Binding struct {
	Node  int // arena index into the SectionTree
	Slot  Slot
	Style string // target style ID from the heading chain
}

// Missing actions for a front-matter category with no bound content.
const (
	ActionSynthesize = "synthesize"
	ActionBlank      = "blank"
)

// Missing is a required category the content did not supply.
type Missing struct {
	Category string
	Action   string
}

// ActionPlan is the reconciliation result applied later by the executor.
type ActionPlan struct {
	// Placeholders maps a placeholder pattern to the metadata field key
	// whose value replaces it at merge time. Unmatched patterns are absent
	// and reported in Warnings.
	Placeholders map[string]string

	Bindings []Binding
	Missing  []Missing
	Warnings []string
}

// MappingError reports a template that structurally demands more than the
// content can supply. Fatal; the caller sees it unchanged.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string { return "mapping: " + e.Reason }

// Options carry the optional classification collaborator and thresholds.
type Options struct {
	Classifier      enhance.Classifier // nil for rule-based only
	ClassifyTimeout time.Duration

	// MinConfidence marks classifications below it with a warning.
	MinConfidence float64
	// DelegateBelow triggers collaborator delegation for rule-based matches
	// below it. Must be >= MinConfidence to be useful.
	DelegateBelow float64

	// Synthesizable enables the "synthesize" action for missing categories
	// (requires a synthesis collaborator to be configured downstream).
	Synthesizable bool
}

// synthesizableCategories are the categories whose filler text can be
// generated. Everything else gets a blank shell.
var synthesizableCategories = map[string]bool{
	profile.CategoryAbstractID: true,
	profile.CategoryAbstractEN: true,
	profile.CategoryPreface:    true,
}

// Plan reconciles profile and tree. The coverage invariant holds on return:
// every required front-matter category is in exactly one of Bindings or
// Missing.
func Plan(ctx context.Context, prof *profile.TemplateProfile, tree *section.Tree, opts Options) (*ActionPlan, error) {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.6
	}
	if opts.DelegateBelow <= 0 {
		opts.DelegateBelow = opts.MinConfidence
	}

	plan := &ActionPlan{Placeholders: map[string]string{}}
	plan.Warnings = append(plan.Warnings, tree.Warnings...)

	// 1. Placeholder bindings by fixed name-matching table.
	for _, pattern := range prof.Placeholders {
		if field := matchField(pattern); field != "" {
			plan.Placeholders[pattern] = field
		} else {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("placeholder %q matches no metadata field", pattern))
		}
	}

	// 2. Section bindings. Chapters bind in encountered order; order is the
	// single source of truth and nothing re-sorts by title.
	chapterStyle := prof.HeadingChain[0]
	nextChapter := 0
	bound := map[string]bool{} // front-matter categories already bound

	type fmCandidate struct {
		node     int
		category string
		conf     float64
	}
	var candidates []fmCandidate

	for _, root := range tree.Roots() {
		node := tree.Nodes[root]
		if isBibliographyRoot(tree, root) {
			plan.Bindings = append(plan.Bindings, Binding{
				Node:  root,
				Slot:  Slot{Chapter: -1, Category: "bibliography"},
				Style: chapterStyle,
			})
			continue
		}
		switch node.Kind {
		case section.KindChapter:
			plan.Bindings = append(plan.Bindings, Binding{
				Node:  root,
				Slot:  Slot{Chapter: nextChapter, Category: ""},
				Style: chapterStyle,
			})
			nextChapter++
		case section.KindAppendix:
			plan.Bindings = append(plan.Bindings, Binding{
				Node:  root,
				Slot:  Slot{Chapter: -1, Category: "appendix"},
				Style: chapterStyle,
			})
		default:
			category := profile.MatchCategory(node.Title)
			conf := node.Confidence
			if category != "" && conf < 0.8 {
				conf = 0.8
			}
			if category == "" {
				conf = 0.3
			}
			candidates = append(candidates, fmCandidate{node: root, category: category, conf: conf})
		}
	}

	if nextChapter == 0 && len(prof.HeadingChain) > 0 {
		return nil, &MappingError{Reason: "template requires chapter structure but content provides no chapters"}
	}

	// Delegate low-confidence candidates to the classification collaborator.
	// Unavailability is a warning, never an error.
	var lowIdx []int
	for i, c := range candidates {
		if c.conf < opts.DelegateBelow {
			lowIdx = append(lowIdx, i)
		}
	}
	if len(lowIdx) > 0 && opts.Classifier != nil {
		blocks := make([]string, len(lowIdx))
		for i, ci := range lowIdx {
			blocks[i] = blockText(tree, candidates[ci].node)
		}
		cctx := ctx
		if opts.ClassifyTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, opts.ClassifyTimeout)
			defer cancel()
		}
		results, err := opts.Classifier.Classify(cctx, blocks)
		if err != nil {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("classification collaborator unavailable, using rule-based guesses: %v", err))
		} else {
			for i, ci := range lowIdx {
				r := results[i]
				if r.Category != "" && r.Category != "unknown" && r.Confidence > candidates[ci].conf {
					candidates[ci].category = r.Category
					candidates[ci].conf = r.Confidence
				}
			}
		}
	}

	required := map[string]bool{}
	for _, cat := range prof.RequiredFrontMatter {
		required[cat] = true
	}

	for _, c := range candidates {
		title := tree.Nodes[c.node].Title
		if c.category == "" {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("section %q matches no template slot", truncateTitle(title)))
			continue
		}
		if !required[c.category] || bound[c.category] {
			if bound[c.category] {
				plan.Warnings = append(plan.Warnings, fmt.Sprintf("duplicate content for category %s ignored (%q)", c.category, truncateTitle(title)))
				continue
			}
			// Content the template does not require is still carried.
		}
		if c.conf < opts.MinConfidence {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("low-confidence classification of %q as %s (%.2f)", truncateTitle(title), c.category, c.conf))
		}
		plan.Bindings = append(plan.Bindings, Binding{
			Node:  c.node,
			Slot:  Slot{Chapter: -1, Category: c.category},
			Style: chapterStyle,
		})
		bound[c.category] = true
	}

	// 3. Required categories with no bound content.
	for _, cat := range prof.RequiredFrontMatter {
		if bound[cat] {
			continue
		}
		action := ActionBlank
		if opts.Synthesizable && synthesizableCategories[cat] {
			action = ActionSynthesize
		}
		plan.Missing = append(plan.Missing, Missing{Category: cat, Action: action})
	}

	return plan, nil
}

// isBibliographyRoot matches a top-level node that introduces the
// bibliography, either by its title or by the entries it carries. Both the
// pattern and the structured strategies produce such roots, with differing
// kinds.
func isBibliographyRoot(tree *section.Tree, idx int) bool {
	if section.IsBibliographyTitle(tree.Nodes[idx].Title) {
		return true
	}
	for _, child := range tree.Children(idx) {
		if tree.Nodes[child].Kind == section.KindBibliography {
			return true
		}
	}
	return false
}

// blockText joins a node's title and paragraphs for classification.
func blockText(tree *section.Tree, idx int) string {
	node := tree.Nodes[idx]
	text := node.Title
	for _, p := range node.Paragraphs {
		if len(text) > 1500 {
			break
		}
		text += "\n" + p
	}
	return text
}

func truncateTitle(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:40] + "..."
}
