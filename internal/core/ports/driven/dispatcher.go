package driven

import "context"

// Dispatcher hands job IDs to the worker layer.
//
// Delivery is at-least-once: the same job ID may reach a worker more than
// once, and two workers may receive it concurrently. The pipeline's atomic
// job claim makes redelivery safe, so dispatchers never need to deduplicate.
type Dispatcher interface {
	// Dispatch enqueues a job for processing. It returns once the job is
	// accepted for delivery, not once it is processed.
	Dispatch(ctx context.Context, jobID string) error

	// Close stops delivery and releases resources.
	Close() error
}
