package provision

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// StepStatus is the outcome of one workflow step.
type StepStatus string

// Step outcomes.
const (
	StepSkipped   StepStatus = "skipped"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// User-facing warnings. The project record is kept whatever happens here.
const (
	WarnFolderFailed = "Project saved. Failed to create folder in cloud"
	WarnCopyFailed   = "Project saved. Failed to copy contents in cloud"
	WarnRenameFailed = "Project saved. Failed to rename contents in cloud"
)

// Settings are read at the start of every run so a reloaded config applies
// to the next project without a restart.
type Settings struct {
	EnableContentSync bool
	TemplateFolder    string
}

// Report summarizes one workflow run.
type Report struct {
	RunID     string     `json:"run_id"`
	ProjectID string     `json:"project_id"`
	Folder    StepStatus `json:"folder"`
	Copy      StepStatus `json:"copy"`
	Rename    StepStatus `json:"rename"`
	Warnings  []string   `json:"warnings,omitempty"`
	Err       error      `json:"-"`
}

// OK reports whether every step that ran succeeded.
func (r *Report) OK() bool {
	return r.Err == nil
}

// Workflow runs folder provisioning for a project: ensure the folder, then,
// when content sync is enabled, copy the template and rename its documents.
type Workflow struct {
	provisioner *Provisioner
	sync        *Synchronizer
	renamer     *Renamer
	settings    func() Settings
	logger      *slog.Logger
}

// NewWorkflow creates a Workflow. sync and renamer may be nil when no WebDAV
// backend is configured; content sync then reports a failure if enabled.
func NewWorkflow(p *Provisioner, s *Synchronizer, r *Renamer, settings func() Settings, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}

	return &Workflow{provisioner: p, sync: s, renamer: r, settings: settings, logger: logger}
}

// Run provisions the folder for projectID. It never returns an error; the
// report carries per-step outcomes, warnings, and the first failure.
func (w *Workflow) Run(ctx context.Context, projectID string) *Report {
	rep := &Report{
		RunID:     uuid.NewString(),
		ProjectID: projectID,
		Folder:    StepSkipped,
		Copy:      StepSkipped,
		Rename:    StepSkipped,
	}

	logger := w.logger.With(slog.String("run_id", rep.RunID), slog.String("project_id", projectID))
	settings := w.settings()

	logger.Info("provisioning project folder",
		slog.Bool("content_sync", settings.EnableContentSync),
	)

	if err := w.provisioner.EnsureFolder(ctx, projectID); err != nil {
		rep.Folder = StepFailed
		rep.Err = err
		rep.Warnings = append(rep.Warnings, WarnFolderFailed)
		logger.Warn("folder provisioning failed, project kept")

		return rep
	}

	rep.Folder = StepSucceeded

	if !settings.EnableContentSync {
		logger.Info("content sync disabled")

		return rep
	}

	if w.sync == nil || w.renamer == nil {
		rep.Copy = StepFailed
		rep.Err = &OpError{Op: OpCopyContents, Err: errNoStorage}
		rep.Warnings = append(rep.Warnings, WarnCopyFailed)
		logger.Error("content sync enabled but no WebDAV backend configured")

		return rep
	}

	if err := w.sync.CopyContents(ctx, settings.TemplateFolder, projectID); err != nil {
		rep.Copy = StepFailed
		rep.Err = err
		rep.Warnings = append(rep.Warnings, WarnCopyFailed)

		return rep
	}

	rep.Copy = StepSucceeded

	if err := w.renamer.RenameMatching(ctx, projectID); err != nil {
		rep.Rename = StepFailed
		rep.Err = err
		rep.Warnings = append(rep.Warnings, WarnRenameFailed)

		return rep
	}

	rep.Rename = StepSucceeded
	logger.Info("project folder provisioned")

	return rep
}
