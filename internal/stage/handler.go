package stage

import (
	"context"

	"platter/internal/queue"
)

// Handler is the contract the workflow supervisor needs from each pipeline
// stage. Prepare runs after the job is claimed and before Execute; progress
// field mutations made by either are persisted by the supervisor. A handler
// may set job.Status to steer the job somewhere other than the lane's
// default done status; the supervisor performs the actual transition.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}
