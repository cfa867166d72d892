package locate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kbukum/convoy/errors"
	"github.com/kbukum/convoy/host"
)

// JobLister lists the executed jobs of a downstream run.
type JobLister interface {
	ListJobs(ctx context.Context, unitID, runID int64) ([]host.Job, error)
}

// Locator selects the job to harvest from a downstream run.
type Locator struct {
	host JobLister
}

// New creates a locator.
func New(h JobLister) *Locator {
	return &Locator{host: h}
}

// LatestJob keeps the downstream run's jobs that produced artifacts and
// whose name matches pattern, then selects the one with the maximum job id.
// Job ids are monotonically increasing, so this picks the most recently
// created match: when retried jobs share a name, the latest attempt wins.
func (l *Locator) LatestJob(ctx context.Context, unitID, runID int64, pattern string) (host.Job, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return host.Job{}, errors.InvalidRun(fmt.Sprintf("invalid job pattern %q: %v", pattern, err))
	}

	jobs, err := l.host.ListJobs(ctx, unitID, runID)
	if err != nil {
		return host.Job{}, errors.TransportFailed("list jobs", err)
	}

	var best host.Job
	found := false
	for _, job := range jobs {
		if !job.HasArtifacts || !re.MatchString(job.Name) {
			continue
		}
		if !found || job.ID > best.ID {
			best = job
			found = true
		}
	}

	if !found {
		return host.Job{}, errors.ArtifactNotFound(pattern, unitID, runID)
	}
	return best, nil
}
