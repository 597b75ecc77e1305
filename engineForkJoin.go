package task

import (
	"context"
)

type reportMsg struct {
	job Job
	err error
}

// ForkJoin launches every job on exec (DefaultExecutor, if nil), and waits for all of them.
//
// If any job fails, or ctx is cancelled, every job still outstanding is cancelled,
// and ForkJoin returns that first error once all jobs have reported.
// A job reports when its Promise resolves, which for a cancelled job is right away,
// even if its body hasn't noticed the cancellation yet.
//
// Jobs are run by RunAsync, so a job which was already run reports its existing outcome.
func ForkJoin(ctx Context, exec Executor, jobs ...Job) error {
	reportCh := make(chan reportMsg, len(jobs))
	groupCtx, groupCancel := context.WithCancel(ctx)
	defer groupCancel()

	// Launch everything.
	awaiting := make(map[Job]struct{}, len(jobs))
	for _, job := range jobs {
		if _, dup := awaiting[job]; dup {
			continue
		}
		awaiting[job] = struct{}{}
		job.launch(groupCtx, exec, reportCh)
	}

	// Watch reports.
	//  This is the happy-path loop.
	//  If anyone errors or we're cancelled, jump down.
	var firstErr error
	for len(awaiting) > 0 && firstErr == nil {
		select {
		case report := <-reportCh:
			delete(awaiting, report.job)
			firstErr = report.err
		case <-ctx.Done():
			firstErr = ctx.Err()
		}
	}
	if firstErr == nil {
		return nil
	}

	// We're halting, not entirely happily.  Cancel all children.
	groupCancel()
	for job := range awaiting {
		job.Cancel()
	}

	// Keep watching reports, so nothing outlives us unaccounted for.
	for len(awaiting) > 0 {
		report := <-reportCh
		delete(awaiting, report.job)
	}
	return firstErr
}
