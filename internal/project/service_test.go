package project

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/projectfolders/internal/provision"
)

type stubRunner struct {
	calls []string
	rep   *provision.Report
}

func (r *stubRunner) Run(_ context.Context, projectID string) *provision.Report {
	r.calls = append(r.calls, projectID)

	rep := *r.rep
	rep.ProjectID = projectID

	return &rep
}

func TestService_CreateDispatchesEvent(t *testing.T) {
	svc := NewService(newTestStore(t), testLogger(t))

	var seen []int64

	svc.Subscribe(ListenerFunc(func(_ context.Context, ev *CreatedEvent) {
		seen = append(seen, ev.Project.ID)
	}))

	res, err := svc.Create(context.Background(), "  Werkhalle  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Werkhalle", res.Project.Name)
	assert.Equal(t, []int64{res.Project.ID}, seen)
	assert.Empty(t, res.Warnings)
}

func TestService_CreateRequiresName(t *testing.T) {
	svc := NewService(newTestStore(t), testLogger(t))

	_, err := svc.Create(context.Background(), "   ", "")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestService_FolderFailureKeepsProject(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testLogger(t))
	runner := &stubRunner{rep: &provision.Report{
		Folder:   provision.StepFailed,
		Warnings: []string{provision.WarnFolderFailed},
		Err:      errors.New("provision: ensure_folder: boom"),
	}}
	svc.Subscribe(NewFolderListener(runner, store, testLogger(t)))

	res, err := svc.Create(context.Background(), "Halle", "")
	require.NoError(t, err)
	assert.Equal(t, []string{provision.WarnFolderFailed}, res.Warnings)
	assert.Equal(t, FolderFailed, res.Project.FolderStatus)
	assert.Contains(t, res.Project.FolderError, "boom")

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{res.Project.FolderName()}, runner.calls)
}

func TestService_ReprovisionRecordsReady(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testLogger(t))
	runner := &stubRunner{rep: &provision.Report{
		Folder:   provision.StepFailed,
		Warnings: []string{provision.WarnFolderFailed},
		Err:      errors.New("down"),
	}}
	svc.Subscribe(NewFolderListener(runner, store, testLogger(t)))

	res, err := svc.Create(context.Background(), "Halle", "")
	require.NoError(t, err)
	require.Equal(t, FolderFailed, res.Project.FolderStatus)

	runner.rep = &provision.Report{Folder: provision.StepSucceeded}

	res, err = svc.Reprovision(context.Background(), res.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, FolderReady, res.Project.FolderStatus)
	assert.Empty(t, res.Project.FolderError)
	assert.Empty(t, res.Warnings)
	assert.Len(t, runner.calls, 2)
}

func TestService_ReprovisionMissing(t *testing.T) {
	svc := NewService(newTestStore(t), testLogger(t))

	_, err := svc.Reprovision(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_FolderStatusWrittenAfterCancel(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, testLogger(t))
	runner := &stubRunner{rep: &provision.Report{Folder: provision.StepSucceeded}}
	svc.Subscribe(NewFolderListener(runner, store, testLogger(t)))

	p, err := store.Create(context.Background(), "Halle", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewFolderListener(runner, store, testLogger(t)).ProjectCreated(ctx, &CreatedEvent{Project: p})

	got, err := store.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, FolderReady, got.FolderStatus)
}
