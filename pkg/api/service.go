package api

import (
	"github.com/voidshard/b2b/internal/core"
	"github.com/voidshard/b2b/pkg/queue"
	"github.com/voidshard/b2b/pkg/repository"
)

// NewAPI returns the b2b API. The queue may be nil if runs won't be requested.
func NewAPI(repo *repository.Repository, qu queue.Queue, opts *Options) (*core.Service, error) {
	return core.NewService(repo, qu, opts)
}
