// Package router resolves the per-blockchain service for a call and fans
// calls out across all enabled blockchains with per-chain failure
// isolation: one chain going down never takes down the aggregate view.
package router

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

// Router holds the statically-built blockchain→service map for one
// client type. The map is assembled once at startup and injected; there
// is no global registry.
type Router[S any] struct {
	services map[domain.Blockchain]S
	enabled  []domain.Blockchain
	log      *logger.Logger
}

func New[S any](services map[domain.Blockchain]S, log *logger.Logger) *Router[S] {
	enabled := make([]domain.Blockchain, 0, len(services))
	for _, b := range domain.AllBlockchains {
		if _, ok := services[b]; ok {
			enabled = append(enabled, b)
		}
	}
	return &Router[S]{
		services: services,
		enabled:  enabled,
		log:      log.With("component", "router"),
	}
}

// GetService resolves the service for one blockchain. Asking for an
// unregistered blockchain is caller misuse and surfaces as a hard error.
func (r *Router[S]) GetService(blockchain domain.Blockchain) (S, error) {
	s, ok := r.services[blockchain]
	if !ok {
		var zero S
		return zero, fmt.Errorf("%s: %w", blockchain, apperr.ErrBlockchainNotSupported)
	}
	return s, nil
}

// Enabled intersects the requested set with the enabled set; an empty
// request means "all enabled". Unknown requested chains are dropped, not
// failed: a subset request is a filter, not a resolution.
func (r *Router[S]) Enabled(requested []domain.Blockchain) []domain.Blockchain {
	if len(requested) == 0 {
		out := make([]domain.Blockchain, len(r.enabled))
		copy(out, r.enabled)
		return out
	}
	var out []domain.Blockchain
	for _, b := range r.enabled {
		for _, req := range requested {
			if b == req {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Result pairs one blockchain's fan-out outcome with its origin.
type Result[R any] struct {
	Blockchain domain.Blockchain
	Value      R
}

// ForAll runs call concurrently against every enabled blockchain (or the
// requested subset). A chain whose call fails is logged and excluded
// from the results; it never fails the aggregate call.
func ForAll[S, R any](ctx context.Context, r *Router[S], requested []domain.Blockchain, call func(ctx context.Context, blockchain domain.Blockchain, service S) (R, error)) []Result[R] {
	chains := r.Enabled(requested)
	slots := make([]*Result[R], len(chains))

	g := &errgroup.Group{}
	for i, blockchain := range chains {
		i, blockchain := i, blockchain
		service := r.services[blockchain]
		g.Go(func() error {
			value, err := call(ctx, blockchain, service)
			if err != nil {
				r.log.Error("blockchain call failed, excluding from aggregate",
					"blockchain", blockchain, "error", err)
				return nil
			}
			slots[i] = &Result[R]{Blockchain: blockchain, Value: value}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Result[R], 0, len(chains))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
