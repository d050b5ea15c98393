package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pump-trader/internal/domain"
	"pump-trader/internal/storage"
)

func trade(id string, exit time.Time) *domain.ClosedTrade {
	return &domain.ClosedTrade{
		TradeID:  id,
		Mint:     "mint-" + id,
		ExitTime: exit,
		PnLSOL:   0.05,
		Outcome:  domain.OutcomeProfit,
	}
}

func TestTradeStore_AppendAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Append(ctx, trade("trade1", time.Unix(100, 0))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PnLSOL != 0.05 || got.Outcome != domain.OutcomeProfit {
		t.Errorf("unexpected trade %+v", got)
	}

	got.PnLSOL = 99
	again, _ := store.GetByID(ctx, "trade1")
	if again.PnLSOL != 0.05 {
		t.Error("GetByID must return a copy")
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	tr := trade("trade1", time.Unix(100, 0))
	if err := store.Append(ctx, tr); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	if err := store.Append(ctx, tr); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestTradeStore_NotFoundAndInvalid(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Append(ctx, &domain.ClosedTrade{Mint: "m"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_ListOrdered(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()
	base := time.Unix(1000, 0)

	for _, tr := range []*domain.ClosedTrade{
		trade("c", base.Add(2*time.Second)),
		trade("b", base),
		trade("a", base),
	} {
		if err := store.Append(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, tr := range list {
		ids = append(ids, tr.TradeID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("List order = %v, want [a b c]", ids)
	}
}

func TestSnapshotStore(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	got, err := store.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty store: got %v, %v", got, err)
	}

	snap := &domain.Snapshot{CurrentCapital: 2.5, InitialCapital: 2, TradeCount: 3}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.CurrentCapital = 0

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentCapital != 2.5 || got.TradeCount != 3 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(ctx); got != nil {
		t.Error("Reset should drop the snapshot")
	}
	if err := store.Save(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Save(nil) = %v", err)
	}
}

func TestSeenMintStore(t *testing.T) {
	store := NewSeenMintStore()
	ctx := context.Background()

	seen, err := store.IsMintSeen(ctx, "mintA")
	if err != nil || seen {
		t.Fatalf("IsMintSeen before mark = %v, %v", seen, err)
	}

	for _, m := range []string{"mintB", "mintA", "mintA"} {
		if err := store.MarkMintSeen(ctx, m); err != nil {
			t.Fatal(err)
		}
	}
	if seen, _ := store.IsMintSeen(ctx, "mintA"); !seen {
		t.Error("mintA should be seen")
	}

	mints, err := store.LoadSeenMints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mints) != 2 || mints[0] != "mintA" || mints[1] != "mintB" {
		t.Errorf("LoadSeenMints = %v", mints)
	}

	if _, err := store.IsMintSeen(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := store.MarkMintSeen(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
