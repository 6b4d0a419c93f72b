package oracle

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"banksim/internal/bank"
)

// PriorityClient is the subset of a generated gRPC stub this package needs.
// A real deployment supplies a client generated from a .proto describing
// the same request/response shape; this interface is what oracle depends
// on so the rest of the package never imports generated code directly.
type PriorityClient interface {
	GetPriority(ctx context.Context, req *PriorityRequest) (*PriorityResponse, error)
}

// PriorityRequest mirrors the wire shape sent to the external oracle
// service: the same fields exposed via bank.Observation, flattened.
type PriorityRequest struct {
	Leverage       float64
	LiquidityRatio float64
	MarketExposure float64
	LocalStress    float64
	RiskAppetite   float64
}

// PriorityResponse carries the decided priority as a string matching
// bank.Priority's constants.
type PriorityResponse struct {
	Priority string
}

// GRPCOracle calls an external priority service over gRPC. On any
// transport or decode error it returns ErrUnavailable so the caller
// substitutes the rule-based fallback rather than blocking the kernel.
type GRPCOracle struct {
	client  PriorityClient
	timeout time.Duration
}

// Dial connects to an external PriorityOracle service at target using an
// insecure transport (suitable for a trusted internal network; production
// deployments should supply TLS credentials instead).
func Dial(target string, timeout time.Duration) (*grpc.ClientConn, error) {
	return grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// NewGRPCOracle wraps a PriorityClient with a bounded per-call timeout.
func NewGRPCOracle(client PriorityClient, timeout time.Duration) *GRPCOracle {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &GRPCOracle{client: client, timeout: timeout}
}

// Priority implements Oracle.
func (g *GRPCOracle) Priority(ctx context.Context, obs bank.Observation) (bank.Priority, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.GetPriority(ctx, &PriorityRequest{
		Leverage:       obs.Leverage,
		LiquidityRatio: obs.LiquidityRatio,
		MarketExposure: obs.MarketExposure,
		LocalStress:    obs.LocalStress,
		RiskAppetite:   obs.RiskAppetite,
	})
	if err != nil {
		return "", ErrUnavailable
	}
	switch bank.Priority(resp.Priority) {
	case bank.PriorityProfit, bank.PriorityLiquidity, bank.PriorityStability:
		return bank.Priority(resp.Priority), nil
	default:
		return "", ErrUnavailable
	}
}
