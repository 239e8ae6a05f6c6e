// Package asyncx holds the small set of concurrency helpers the service
// uses, all with context support.
//
// # Fan-out
//
// [AllSettled] runs functions concurrently and returns one [Result] per
// function in input order. It never short-circuits, so a failing function
// does not hide the others' results. The warm-up job loads each store's
// templates and languages this way.
//
//	loaded := asyncx.AllSettled(ctx, loadStore1, loadStore2)
//	for _, r := range loaded {
//	    if !r.OK() {
//	        // record r.Err, keep going
//	    }
//	}
//
// # Worker pool
//
// [Pool] processes items with at most n goroutines and returns results in
// input order. The mail sender delivers a batch of queued messages with it.
//
// # Timeouts
//
// [WithTimeout] bounds a single call; it returns context.DeadlineExceeded
// when fn does not finish in time.
package asyncx
