// Package workflow runs the ingestion pipeline.
//
// The Supervisor owns one drive watcher and one rip lane per configured
// optical drive, plus singleton encode, identify, and move lanes. Watchers
// poll drives for disc insertions and queue pending jobs; lanes claim jobs
// through the queue's status graph, feed them to their stage handlers, and
// record progress and failures. Claims race deliberately: the store's
// capacity guards keep one encode running globally and one rip per drive,
// and a lane that loses a claim simply looks for other work.
//
// Shutdown is cooperative. Cancelling the Start context stops watchers and
// lanes after their current pass; an interrupted encode reverts its job to
// the ripped queue so the next daemon run picks it up.
package workflow
