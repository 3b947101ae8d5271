package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryFlagStore_SetPop(t *testing.T) {
	t.Parallel()

	store := NewMemoryFlagStore(time.Minute)
	ctx := context.Background()
	user := uuid.New()

	if set, err := store.Pop(ctx, user, FlagShowMoodPrompt); err != nil || set {
		t.Fatalf("Pop() on empty store = %v, %v", set, err)
	}
	if err := store.Set(ctx, user, FlagShowMoodPrompt); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if set, _ := store.Pop(ctx, user, FlagSuppressAutoActivate); set {
		t.Error("Pop() returned a flag that was never set")
	}
	if set, _ := store.Pop(ctx, uuid.New(), FlagShowMoodPrompt); set {
		t.Error("Pop() leaked a flag across users")
	}
	if set, _ := store.Pop(ctx, user, FlagShowMoodPrompt); !set {
		t.Error("Pop() = false, want true")
	}
	if set, _ := store.Pop(ctx, user, FlagShowMoodPrompt); set {
		t.Error("second Pop() = true, want the flag consumed")
	}
}

func TestMemoryFlagStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewMemoryFlagStore(time.Minute)
	clock := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()
	user := uuid.New()

	if err := store.Set(ctx, user, FlagSuppressAutoActivate); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(2 * time.Minute)
	if set, _ := store.Pop(ctx, user, FlagSuppressAutoActivate); set {
		t.Error("Pop() returned an expired flag")
	}
}

func TestFlagKey(t *testing.T) {
	t.Parallel()

	user := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if got := flagKey(user, FlagShowMoodPrompt); got != "focusquest:flag:11111111-2222-3333-4444-555555555555:show_mood_prompt" {
		t.Errorf("flagKey() = %q", got)
	}
}
