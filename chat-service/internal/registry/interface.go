package registry

import "context"

// Registry records which user owns each live connection of this instance.
type Registry interface {
	Register(ctx context.Context, connectionID, userID string) error
	Deregister(ctx context.Context, connectionID string, extraKeys ...string) error
	Lookup(ctx context.Context, connectionID string) (string, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
}
