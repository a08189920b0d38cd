package router

import (
	"context"
	"errors"
	"testing"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

type fakeClient struct {
	name string
	err  error
}

func testRouter() *Router[*fakeClient] {
	return New(map[domain.Blockchain]*fakeClient{
		domain.BlockchainEthereum: {name: "eth"},
		domain.BlockchainPolygon:  {name: "pol"},
		domain.BlockchainFlow:     {name: "flow", err: errors.New("boom")},
	}, logger.NewNop())
}

func TestGetService(t *testing.T) {
	r := testRouter()

	s, err := r.GetService(domain.BlockchainEthereum)
	if err != nil || s.name != "eth" {
		t.Fatalf("GetService: %v, %v", s, err)
	}

	_, err = r.GetService(domain.BlockchainTezos)
	if !errors.Is(err, apperr.ErrBlockchainNotSupported) {
		t.Fatalf("want ErrBlockchainNotSupported, got %v", err)
	}
}

func TestEnabledIntersection(t *testing.T) {
	r := testRouter()

	if got := r.Enabled(nil); len(got) != 3 {
		t.Fatalf("Enabled(nil) = %v", got)
	}
	got := r.Enabled([]domain.Blockchain{domain.BlockchainPolygon, domain.BlockchainTezos})
	if len(got) != 1 || got[0] != domain.BlockchainPolygon {
		t.Fatalf("Enabled(subset) = %v", got)
	}
}

func TestForAllIsolatesFailures(t *testing.T) {
	r := testRouter()

	results := ForAll(context.Background(), r, nil,
		func(_ context.Context, _ domain.Blockchain, c *fakeClient) (string, error) {
			if c.err != nil {
				return "", c.err
			}
			return c.name, nil
		})

	if len(results) != 2 {
		t.Fatalf("want 2 results (flow excluded), got %v", results)
	}
	for _, res := range results {
		if res.Blockchain == domain.BlockchainFlow {
			t.Fatalf("failed chain leaked into results")
		}
	}
}

func TestForAllSubset(t *testing.T) {
	r := testRouter()

	results := ForAll(context.Background(), r, []domain.Blockchain{domain.BlockchainEthereum},
		func(_ context.Context, b domain.Blockchain, c *fakeClient) (string, error) {
			return c.name, nil
		})
	if len(results) != 1 || results[0].Value != "eth" {
		t.Fatalf("subset fan-out = %v", results)
	}
}
