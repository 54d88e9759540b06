package gpu

// retiredSubmission groups the releases that must wait for one submission.
type retiredSubmission struct {
	index    uint64
	releases []func()
}

// retireQueue defers destruction of GPU objects until the GPU has finished
// with them.
//
// Objects are first added to the pending list. When the frame that may still
// reference them is submitted, seal tags the pending list with that
// submission index. collect runs every release whose submission has
// completed.
type retireQueue struct {
	pending  []func()
	inflight []retiredSubmission
}

// add parks a release until the next sealed submission completes.
func (q *retireQueue) add(release func()) {
	q.pending = append(q.pending, release)
}

// seal tags everything pending with the submission index that last used it.
func (q *retireQueue) seal(index uint64) {
	if len(q.pending) == 0 {
		return
	}
	q.inflight = append(q.inflight, retiredSubmission{index: index, releases: q.pending})
	q.pending = nil
}

// collect runs the releases of every submission with index <= completed and
// returns how many ran. Submissions are sealed in increasing order, so the
// scan stops at the first one still in flight.
func (q *retireQueue) collect(completed uint64) int {
	n := 0
	cutoff := 0
	for i := range q.inflight {
		sub := &q.inflight[i]
		if sub.index > completed {
			break
		}
		for _, release := range sub.releases {
			release()
		}
		n += len(sub.releases)
		cutoff = i + 1
	}
	if cutoff > 0 {
		q.inflight = q.inflight[cutoff:]
	}
	return n
}

// drain runs every release, sealed or not. The caller must have waited for
// the device to become idle.
func (q *retireQueue) drain() int {
	n := 0
	for _, sub := range q.inflight {
		for _, release := range sub.releases {
			release()
		}
		n += len(sub.releases)
	}
	for _, release := range q.pending {
		release()
	}
	n += len(q.pending)
	q.inflight = nil
	q.pending = nil
	return n
}

// len returns the number of releases not yet run.
func (q *retireQueue) len() int {
	n := len(q.pending)
	for _, sub := range q.inflight {
		n += len(sub.releases)
	}
	return n
}
