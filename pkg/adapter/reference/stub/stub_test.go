package stub

import (
	"context"
	"testing"

	"github.com/quietcore/gateway/pkg/protocol"
)

func TestExecuteAlwaysFails(t *testing.T) {
	a := New()
	_, err := a.Execute(context.Background(), protocol.ActionRequest{Action: "finance.categorize"})
	if err == nil {
		t.Fatal("expected an error naming the unimplemented action")
	}
}
