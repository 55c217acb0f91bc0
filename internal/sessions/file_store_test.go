package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestFileStoreLoadMissingSessionReturnsEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	messages, err := store.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %d", len(messages))
	}
}

func TestFileStoreSaveThenLoadRoundTrips(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	want := []models.Message{
		{ID: "1", Role: models.RoleUser, Content: "hi", CreatedAt: time.Now()},
		{ID: "2", Role: models.RoleAssistant, Content: "hello", CreatedAt: time.Now()},
	}
	if err := store.Save(ctx, "sess/weird:id", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "sess/weird:id")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Content != want[i].Content || got[i].Role != want[i].Role {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFileStoreSaveOverwritesPreviousContent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	first := []models.Message{{ID: "1", Role: models.RoleUser, Content: "first"}}
	second := []models.Message{{ID: "1", Role: models.RoleUser, Content: "second"}}

	if err := store.Save(ctx, "s1", first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "s1", second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != "second" {
		t.Fatalf("got = %+v, want one message with content %q", got, "second")
	}
}
