package task

import (
	"context"
)

// Stream launches each job received from jobs on exec (DefaultExecutor, if nil),
// until jobs is closed, and then waits for every launched job to report.
//
// Like ForkJoin, the first failure (or ctx finishing) cancels every job still outstanding,
// and Stream returns that first error once they've all reported.
// Jobs sent after that point are never received, so senders should also watch ctx,
// or whatever they use to know Stream has returned.
func Stream(ctx Context, exec Executor, jobs <-chan Job) error {
	mgr := &streamMgr{
		exec:     exec,
		jobs:     jobs,
		awaiting: make(map[Job]struct{}),
	}
	// Step through phases (the halting phase will return a nil next phase).
	for phase := mgr._running; phase != nil; {
		phase = phase(ctx)
	}
	return mgr.firstErr
}

type phaseFn func(ctx Context) phaseFn

type streamMgr struct {
	exec        Executor
	jobs        <-chan Job
	reportCh    chan reportMsg
	groupCancel context.CancelFunc
	awaiting    map[Job]struct{}
	firstErr    error
}

func (mgr *streamMgr) _running(parentCtx Context) phaseFn {
	// Build the report channel we'll be watching,
	// and the groupCtx which will let us cancel all children in bulk.
	mgr.reportCh = make(chan reportMsg)
	groupCtx, groupCancel := context.WithCancel(parentCtx)
	mgr.groupCancel = groupCancel

	// Loop selecting over new job submissions, report collection, or
	//  the parent being cancelled.  We'll only break out on
	//  errors, cancels, or if the jobs channel is closed.
	for {
		select {
		case job, ok := <-mgr.jobs:
			if !ok {
				return mgr._collecting
			}
			if _, dup := mgr.awaiting[job]; dup {
				continue
			}
			mgr.awaiting[job] = struct{}{}
			job.launch(groupCtx, mgr.exec, mgr.reportCh)
		case report := <-mgr.reportCh:
			if next := mgr.accept(report); next != nil {
				return next
			}
		case <-parentCtx.Done():
			mgr.firstErr = parentCtx.Err()
			return mgr._halting
		}
	}
}

func (mgr *streamMgr) _collecting(parentCtx Context) phaseFn {
	// We're not accepting new jobs anymore, so this loop is now only
	//  for collecting reports or noticing the parent's cancellation;
	//  and it can move directly to halt if there are no disruptions.
	for len(mgr.awaiting) > 0 {
		select {
		case report := <-mgr.reportCh:
			if next := mgr.accept(report); next != nil {
				return next
			}
		case <-parentCtx.Done():
			mgr.firstErr = parentCtx.Err()
			return mgr._halting
		}
	}
	return mgr._halt
}

func (mgr *streamMgr) _halting(_ Context) phaseFn {
	// We're halting, not entirely happily.  Cancel all children.
	mgr.groupCancel()
	for job := range mgr.awaiting {
		job.Cancel()
	}

	// Keep watching reports.
	for len(mgr.awaiting) > 0 {
		report := <-mgr.reportCh
		delete(mgr.awaiting, report.job)
	}
	return mgr._halt
}

func (mgr *streamMgr) _halt(_ Context) phaseFn {
	mgr.groupCancel()
	return nil
}

// accept records a report, returning the halting phase if it's a failure.
func (mgr *streamMgr) accept(report reportMsg) phaseFn {
	delete(mgr.awaiting, report.job)
	if report.err != nil {
		mgr.firstErr = report.err
		return mgr._halting
	}
	return nil
}
