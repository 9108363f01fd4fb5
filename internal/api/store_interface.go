package api

import "github.com/soaringjerry/teacheval/internal/services"

// Store is the server's local state: the public results allow-list and the
// cached copy of the remote submissions.
type Store interface {
	services.LinkFlagStore
	services.SubmissionCache
}

var _ Store = (*memoryStore)(nil)
