package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"skripsiforge/internal/config"
	"skripsiforge/internal/docfile"
	"skripsiforge/internal/enhance"
	"skripsiforge/internal/mapper"
	"skripsiforge/internal/merge"
	"skripsiforge/internal/profile"
	"skripsiforge/internal/section"
)

// Worker runs the four formatting stages for a single job.
type Worker struct {
	client *enhance.Client // nil when no collaborator is configured
	log    *slog.Logger
	cfg    config.Config
}

func NewWorker(client *enhance.Client, log *slog.Logger, cfg config.Config) *Worker {
	return &Worker{client: client, log: log, cfg: cfg}
}

// Process runs the full pipeline for a job: profile the template, section
// the content, plan the mapping, execute the merge, serialize the output.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	templateData, contentData, meta := job.Inputs()
	job.SetContentHash(ContentHashHex(contentData))

	// Stage 1: Template profiling.
	job.SetStatus(StatusProfiling, "profiling")
	prof, err := profile.ProfileDOCX(templateData)
	if err != nil {
		log.Error("template profiling failed", "error", err)
		job.AddError(fmt.Sprintf("profile: %s", err))
		job.SetStatus(StatusFailed, "profiling")
		return
	}
	log.Info("template profiled",
		"styles", len(prof.StyleCatalog),
		"heading_chain", len(prof.HeadingChain),
		"placeholders", len(prof.Placeholders),
		"front_matter", len(prof.RequiredFrontMatter))

	// Stage 2: Content sectioning.
	job.SetStatus(StatusSectioning, "sectioning")
	tree, err := section.ParseWithOptions(contentData, job.ContentFilename, section.Options{
		MinConfidence:     w.cfg.MinConfidence,
		FallbackPdftotext: w.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		log.Error("content sectioning failed", "error", err)
		job.AddError(fmt.Sprintf("section: %s", err))
		job.SetStatus(StatusFailed, "sectioning")
		return
	}
	job.AddWarnings(tree.Warnings)
	log.Info("content sectioned", "nodes", len(tree.Nodes), "warnings", len(tree.Warnings))

	// Stage 3: Mapping plan.
	job.SetStatus(StatusPlanning, "planning")
	opts := mapper.Options{
		ClassifyTimeout: w.cfg.ClassifyTimeout,
		MinConfidence:   w.cfg.MinConfidence,
		DelegateBelow:   w.cfg.DelegateBelow,
		Synthesizable:   w.client != nil,
	}
	if w.client != nil {
		opts.Classifier = w.client
	}
	plan, err := mapper.Plan(ctx, prof, tree, opts)
	if err != nil {
		log.Error("mapping failed", "error", err)
		job.AddError(fmt.Sprintf("map: %s", err))
		job.SetStatus(StatusFailed, "planning")
		return
	}
	log.Info("plan built",
		"bindings", len(plan.Bindings),
		"placeholders", len(plan.Placeholders),
		"missing", len(plan.Missing))

	// Stage 4: Merge execution.
	job.SetStatus(StatusMerging, "merging")
	var synth enhance.Synthesizer
	if w.client != nil {
		synth = w.client
	}
	exec := merge.New(synth, w.cfg.SynthesisTimeout, w.log)
	doc, result, err := exec.Run(ctx, prof, tree, plan, meta)
	if err != nil {
		log.Error("merge failed", "error", err)
		job.AddError(fmt.Sprintf("merge: %s", err))
		job.SetStatus(StatusFailed, "merging")
		return
	}

	output, err := docfile.WriteDOCX(doc)
	if err != nil {
		log.Error("serialization failed", "error", err)
		job.AddError(fmt.Sprintf("write: %s", err))
		job.SetStatus(StatusFailed, "merging")
		return
	}

	job.AddWarnings(result.Warnings)
	job.SetOutput(output, result)
	job.SetStatus(StatusCompleted, "done")
	log.Info("job completed",
		"substitutions", result.Substitutions,
		"heading_merges", result.HeadingMerges,
		"page_breaks", result.PageBreaksInserted,
		"front_matter", result.FrontMatterInserted,
		"output_bytes", len(output))
}
