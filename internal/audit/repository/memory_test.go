package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"otp-session-auth/internal/audit/domain"
)

func seed(t *testing.T, repo Repository) {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []struct{ event, email string }{
		{"OTP_GENERATED", "a@example.com"},
		{"OTP_VALIDATION_FAILURE", "a@example.com"},
		{"OTP_VALIDATION_SUCCESS", "a@example.com"},
		{"OTP_GENERATED", "b@example.com"},
		{"LOGOUT", "a@example.com"},
	}
	for i, e := range events {
		err := repo.Create(context.Background(), &domain.AuditLog{
			ID:        fmt.Sprintf("id-%d", i),
			Event:     e.event,
			Email:     e.email,
			Details:   map[string]string{"email": e.email},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo)
	ctx := context.Background()

	testCases := []struct {
		name          string
		filter        domain.Filter
		limit, offset int32
		wantIDs       []string
	}{
		{"all", domain.Filter{}, 10, 0, []string{"id-0", "id-1", "id-2", "id-3", "id-4"}},
		{"page", domain.Filter{}, 2, 1, []string{"id-1", "id-2"}},
		{"by email", domain.Filter{Email: "b@example.com"}, 10, 0, []string{"id-3"}},
		{"by event", domain.Filter{Event: "OTP_GENERATED"}, 10, 0, []string{"id-0", "id-3"}},
		{"both", domain.Filter{Email: "a@example.com", Event: "LOGOUT"}, 10, 0, []string{"id-4"}},
		{"offset past end", domain.Filter{}, 10, 99, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.List(ctx, tc.filter, tc.limit, tc.offset)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tc.wantIDs))
			}
			for i, id := range tc.wantIDs {
				if got[i].ID != id {
					t.Errorf("[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMemoryRepository_ListOrdersByCreatedAtThenID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, a := range []*domain.AuditLog{
		{ID: "c", Event: "LOGOUT", CreatedAt: base.Add(2 * time.Second)},
		{ID: "b", Event: "OTP_GENERATED", CreatedAt: base},
		{ID: "a", Event: "OTP_GENERATED", CreatedAt: base},
		{ID: "d", Event: "OTP_VALIDATION_SUCCESS", CreatedAt: base.Add(time.Second)},
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.List(ctx, domain.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"a", "b", "d", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}

	page, err := repo.List(ctx, domain.Filter{}, 2, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].ID != "b" || page[1].ID != "d" {
		t.Errorf("page = %v, want [b d]", page)
	}
}

func TestMemoryRepository_ListReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo)
	ctx := context.Background()

	got, err := repo.List(ctx, domain.Filter{}, 1, 2)
	if err != nil || len(got) != 1 {
		t.Fatalf("List = %v, %v", got, err)
	}
	got[0].Details["email"] = "mutated"
	again, _ := repo.List(ctx, domain.Filter{}, 1, 2)
	if again[0].Details["email"] != "a@example.com" {
		t.Error("List should return copies")
	}
}

func TestMemoryRepository_Clear(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo)
	n, err := repo.Clear(context.Background())
	if err != nil || n != 5 {
		t.Fatalf("Clear = %d, %v; want 5, nil", n, err)
	}
	got, _ := repo.List(context.Background(), domain.Filter{}, 10, 0)
	if len(got) != 0 {
		t.Errorf("len after Clear = %d", len(got))
	}
}
