package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"otp-session-auth/internal/otp/domain"
)

func TestMemoryRepository_PutGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	exp := time.Now().UTC().Add(time.Minute)

	if err := repo.Put(ctx, "a@example.com", &domain.Record{Code: "123456", ExpiresAt: exp}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	r, err := repo.Get(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r == nil {
		t.Fatal("Get should return the record after Put")
	}
	if r.Code != "123456" || r.Attempts != 0 || !r.ExpiresAt.Equal(exp) {
		t.Errorf("record = %+v", r)
	}
}

func TestMemoryRepository_GetMissing(t *testing.T) {
	repo := NewMemoryRepository()
	r, err := repo.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r != nil {
		t.Errorf("Get = %+v, want nil", r)
	}
}

func TestMemoryRepository_KeepsExpired(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "123456", ExpiresAt: time.Now().Add(-time.Minute)})

	r, _ := repo.Get(ctx, "a@example.com")
	if r == nil {
		t.Fatal("expired records should still be returned")
	}
	if repo.Len() != 1 {
		t.Errorf("Len = %d, want 1", repo.Len())
	}
}

func TestMemoryRepository_PutOverwrites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "111111", Attempts: 2})
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "222222"})

	r, _ := repo.Get(ctx, "a@example.com")
	if r.Code != "222222" || r.Attempts != 0 {
		t.Errorf("record = %+v, want overwritten", r)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	in := &domain.Record{Code: "123456"}
	_ = repo.Put(ctx, "a@example.com", in)
	in.Attempts = 5

	r, _ := repo.Get(ctx, "a@example.com")
	r.Attempts = 9
	again, _ := repo.Get(ctx, "a@example.com")
	if again.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", again.Attempts)
	}
}

func TestMemoryRepository_IncrementAttempts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "123456"})

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementAttempts(ctx, "a@example.com")
		if err != nil {
			t.Fatalf("IncrementAttempts: %v", err)
		}
		if got != want {
			t.Errorf("IncrementAttempts = %d, want %d", got, want)
		}
	}
	if _, err := repo.IncrementAttempts(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementAttempts(missing) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "123456"})

	if err := repo.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if r, _ := repo.Get(ctx, "a@example.com"); r != nil {
		t.Error("Get after Delete should return nil")
	}
	if err := repo.Delete(ctx, "a@example.com"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestMemoryRepository_Concurrent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_ = repo.Put(ctx, "a@example.com", &domain.Record{Code: "123456"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementAttempts(ctx, "a@example.com")
			_, _ = repo.Get(ctx, "a@example.com")
		}()
	}
	wg.Wait()
	r, _ := repo.Get(ctx, "a@example.com")
	if r.Attempts != 50 {
		t.Errorf("Attempts = %d, want 50", r.Attempts)
	}
}
