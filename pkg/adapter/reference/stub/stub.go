// Package stub is a placeholder adapter for action kinds that do not yet
// have a reference implementation. Binding it explicitly to a kind turns
// an unbound NO_ADAPTER rejection into a distinguishable
// "not yet implemented" ADAPTER_ERROR, which is useful while a deployment
// is rolling out coverage for a new action family incrementally.
package stub

import (
	"context"
	"fmt"

	"github.com/quietcore/gateway/pkg/protocol"
)

// Adapter always fails, naming the action kind it was invoked for.
type Adapter struct{}

// New builds a stub Adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	return nil, fmt.Errorf("stub: %s has no adapter implementation in this deployment", req.Action)
}
