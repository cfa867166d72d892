package locate

import (
	"context"
	"errors"
	"testing"

	convoyerrors "github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/host"
)

type fakeJobLister struct {
	jobs []host.Job
	err  error
}

func (f *fakeJobLister) ListJobs(ctx context.Context, unitID, runID int64) ([]host.Job, error) {
	return f.jobs, f.err
}

func TestLatestJobDeterministicSelection(t *testing.T) {
	// The documented selection property: max job id among artifact-bearing
	// matches.
	l := New(&fakeJobLister{jobs: []host.Job{
		{ID: 10, Name: "run", HasArtifacts: true},
		{ID: 12, Name: "publish_success", HasArtifacts: true},
		{ID: 7, Name: "run", HasArtifacts: false},
	}})

	job, err := l.LatestJob(context.Background(), 7, 99, "run|publish_success")
	if err != nil {
		t.Fatalf("LatestJob failed: %v", err)
	}
	if job.ID != 12 {
		t.Errorf("expected job 12, got %d", job.ID)
	}
}

func TestLatestJobRetriedJobsLatestWins(t *testing.T) {
	l := New(&fakeJobLister{jobs: []host.Job{
		{ID: 5, Name: "run", HasArtifacts: true},
		{ID: 9, Name: "run", HasArtifacts: true},
		{ID: 3, Name: "run", HasArtifacts: true},
	}})

	job, err := l.LatestJob(context.Background(), 7, 99, "run")
	if err != nil {
		t.Fatalf("LatestJob failed: %v", err)
	}
	if job.ID != 9 {
		t.Errorf("expected latest attempt 9, got %d", job.ID)
	}
}

func TestLatestJobIgnoresJobsWithoutArtifacts(t *testing.T) {
	l := New(&fakeJobLister{jobs: []host.Job{
		{ID: 20, Name: "run", HasArtifacts: false},
	}})

	_, err := l.LatestJob(context.Background(), 7, 99, "run")
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeArtifactNotFound) {
		t.Errorf("expected ARTIFACT_NOT_FOUND, got %v", err)
	}
}

func TestLatestJobNoNameMatch(t *testing.T) {
	l := New(&fakeJobLister{jobs: []host.Job{
		{ID: 20, Name: "lint", HasArtifacts: true},
	}})

	_, err := l.LatestJob(context.Background(), 7, 99, "run")
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeArtifactNotFound) {
		t.Errorf("expected ARTIFACT_NOT_FOUND, got %v", err)
	}
}

func TestLatestJobInvalidPattern(t *testing.T) {
	l := New(&fakeJobLister{})
	_, err := l.LatestJob(context.Background(), 7, 99, "(unclosed")
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeInvalidRun) {
		t.Errorf("expected INVALID_RUN, got %v", err)
	}
}

func TestLatestJobHostFailure(t *testing.T) {
	l := New(&fakeJobLister{err: errors.New("503")})
	_, err := l.LatestJob(context.Background(), 7, 99, "run")
	if !convoyerrors.HasCode(err, convoyerrors.ErrCodeTransportFailed) {
		t.Errorf("expected TRANSPORT_FAILED, got %v", err)
	}
}
