package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx from bare context, got %v", tx)
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Errorf("expected nil tx for mismatched value, got %v", tx)
	}
}

// stubTx stands in for a live transaction. Only identity matters here;
// the embedded interface panics if any method is actually called.
type stubTx struct {
	pgx.Tx
}

func TestWithTx_JoinsExistingTransaction(t *testing.T) {
	outer := &stubTx{}
	ctx := ContextWithTx(context.Background(), outer)

	called := false
	err := WithTx(ctx, nil, func(inner context.Context) error {
		called = true
		if TxFromContext(inner) != pgx.Tx(outer) {
			t.Error("callback did not receive the caller's transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("callback was not invoked")
	}
}

func TestContextWithTx_RoundTrip(t *testing.T) {
	tx := &stubTx{}
	ctx := ContextWithTx(context.Background(), tx)
	if got := TxFromContext(ctx); got != pgx.Tx(tx) {
		t.Errorf("expected stored tx back, got %v", got)
	}
}
