package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/solariq/solariq/internal/apperror"
	"github.com/solariq/solariq/internal/auth"
)

// mockUserRepo implements auth.UserRepository for testing. Only the methods
// the profile service touches get function fields.
type mockUserRepo struct {
	updateProfileFn func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error)
	updateCalls     int
}

func (m *mockUserRepo) Create(ctx context.Context, user *auth.User) error { return nil }

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*auth.User, error) {
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
	m.updateCalls++
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, patch)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) ListUsers(ctx context.Context) ([]auth.User, error) { return nil, nil }

// newTestService creates a profile service with a mock repo and a session
// store backed by an in-process Redis. Returns the store too so tests can
// seed and inspect sessions.
func newTestService(t *testing.T, repo *mockUserRepo) (Service, *auth.SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	sessions := auth.NewSessionStore(rdb, 0)
	return NewService(repo, sessions), sessions
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func TestApplyPatch_MixedFields(t *testing.T) {
	// One numeric field, one string numeric, one unparsable: the first two
	// commit, the third is dropped without failing the update.
	var captured auth.ProfilePatch
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			captured = patch
			return &auth.User{ID: id, Username: "alice", Latitude: patch.Latitude, AvgPower: patch.AvgPower}, nil
		},
	}

	svc, _ := newTestService(t, repo)
	user, err := svc.ApplyPatch(context.Background(), "user-123", "token", PatchRequest{
		Latitude:  55.67,
		Longitude: "not-a-number",
		AvgPower:  "450.5",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected updated user, got nil")
	}

	if captured.Latitude == nil || *captured.Latitude != 55.67 {
		t.Errorf("expected latitude 55.67 in patch, got %v", captured.Latitude)
	}
	if captured.Longitude != nil {
		t.Errorf("expected unparsable longitude dropped, got %v", *captured.Longitude)
	}
	if captured.AvgPower == nil || *captured.AvgPower != 450.5 {
		t.Errorf("expected avg power 450.5 in patch, got %v", captured.AvgPower)
	}
}

func TestApplyPatch_NoValidFields(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _ := newTestService(t, repo)

	tests := []struct {
		name string
		req  PatchRequest
	}{
		{"all absent", PatchRequest{}},
		{"all unparsable", PatchRequest{Latitude: "north", Longitude: "west", AvgPower: "lots"}},
		{"non-finite", PatchRequest{Latitude: "NaN", Longitude: "+Inf", AvgPower: "-Inf"}},
		{"wrong types", PatchRequest{Latitude: true, Longitude: []any{1.0}, AvgPower: map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyPatch(context.Background(), "user-123", "token", tt.req)
			assertAppError(t, err, 422)
		})
	}

	// The store must never be touched when nothing survives coercion.
	if repo.updateCalls != 0 {
		t.Errorf("expected no store updates, got %d", repo.updateCalls)
	}
}

func TestApplyPatch_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			return nil, apperror.NewNotFound("user not found")
		},
	}

	svc, _ := newTestService(t, repo)
	_, err := svc.ApplyPatch(context.Background(), "ghost", "token", PatchRequest{Latitude: 1.0})
	assertAppError(t, err, 404)
}

func TestApplyPatch_StoreError(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			return nil, errors.New("db write error")
		},
	}

	svc, _ := newTestService(t, repo)
	_, err := svc.ApplyPatch(context.Background(), "user-123", "token", PatchRequest{Latitude: 1.0})
	assertAppError(t, err, 500)
}

func TestApplyPatch_RefreshesSession(t *testing.T) {
	newPower := 450.0
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			return &auth.User{ID: id, Username: "alice", AvgPower: &newPower}, nil
		},
	}

	svc, sessions := newTestService(t, repo)
	ctx := context.Background()

	oldPower := 300.0
	token, err := sessions.Start(ctx, &auth.User{ID: "user-123", Username: "alice", AvgPower: &oldPower})
	if err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	if _, err := svc.ApplyPatch(ctx, "user-123", token, PatchRequest{AvgPower: 450.0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := sessions.Get(ctx, token)
	if err != nil {
		t.Fatalf("expected session to stay valid: %v", err)
	}
	if session.AvgPower == nil || *session.AvgPower != 450 {
		t.Errorf("expected refreshed snapshot with avg power 450, got %v", session.AvgPower)
	}
}

func TestApplyPatch_FailedUpdateSkipsRefresh(t *testing.T) {
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			return nil, errors.New("db write error")
		},
	}

	svc, sessions := newTestService(t, repo)
	ctx := context.Background()

	oldPower := 300.0
	token, err := sessions.Start(ctx, &auth.User{ID: "user-123", Username: "alice", AvgPower: &oldPower})
	if err != nil {
		t.Fatalf("seeding session: %v", err)
	}

	if _, err := svc.ApplyPatch(ctx, "user-123", token, PatchRequest{AvgPower: 450.0}); err == nil {
		t.Fatal("expected error")
	}

	// The snapshot still holds the pre-update values.
	session, err := sessions.Get(ctx, token)
	if err != nil {
		t.Fatalf("expected session to stay valid: %v", err)
	}
	if session.AvgPower == nil || *session.AvgPower != 300 {
		t.Errorf("expected untouched snapshot with avg power 300, got %v", session.AvgPower)
	}
}

func TestApplyPatch_LoggedOutTokenStillCommits(t *testing.T) {
	// A concurrent logout means the token resolves to nothing by the time
	// the refresh runs. The committed update survives; no session reappears.
	newPower := 450.0
	repo := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id string, patch auth.ProfilePatch) (*auth.User, error) {
			return &auth.User{ID: id, Username: "alice", AvgPower: &newPower}, nil
		},
	}

	svc, sessions := newTestService(t, repo)
	ctx := context.Background()

	user, err := svc.ApplyPatch(ctx, "user-123", "gone-token", PatchRequest{AvgPower: 450.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.AvgPower == nil || *user.AvgPower != 450 {
		t.Errorf("expected committed update, got %v", user.AvgPower)
	}

	_, err = sessions.Get(ctx, "gone-token")
	assertAppError(t, err, 401)
}

// --- Coercion Tests ---

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *float64
	}{
		{"json number", 55.67, floatPtr(55.67)},
		{"numeric string", "12.56", floatPtr(12.56)},
		{"padded string", "  300  ", floatPtr(300)},
		{"negative", -7.5, floatPtr(-7.5)},
		{"zero", 0.0, floatPtr(0)},
		{"absent", nil, nil},
		{"word", "north", nil},
		{"empty string", "", nil},
		{"nan string", "NaN", nil},
		{"inf string", "Inf", nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceNumeric(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %v, got nil", *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
