package activity

import "context"

type ListOpts struct {
	CourseID string
	Topic    string
	Type     Type
	Status   Status
	Limit    int
	Offset   int
}

// Store persists activity definitions. Get returns the full definition,
// answer keys included; callers serving students strip them (see
// Activity.StripAnswerKeys) rather than the store guessing the viewer.
type Store interface {
	Put(ctx context.Context, a Activity) error
	Get(ctx context.Context, id string) (Activity, error)

	// Publish flips DRAFT->READY at publishedAt, after CanPublish has been
	// checked against the stored row. There is no reverse transition.
	Publish(ctx context.Context, id string, publishedAt int64) (Activity, error)

	List(ctx context.Context, opts ListOpts) ([]Activity, error)
}
