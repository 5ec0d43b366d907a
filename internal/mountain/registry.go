package mountain

import "context"

// Registry is a read-only source of mountains.
type Registry interface {
	// List returns every mountain in catalog order.
	List(ctx context.Context) ([]Mountain, error)

	// Get returns a single mountain by id.
	Get(ctx context.Context, id string) (*Mountain, error)
}
