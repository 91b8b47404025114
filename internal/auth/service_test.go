package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/lifesync/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	updateThemeFn    func(ctx context.Context, id, theme string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateTheme(ctx context.Context, id, theme string) error {
	if m.updateThemeFn != nil {
		return m.updateThemeFn(ctx, id, theme)
	}
	return nil
}

func (m *mockUserRepo) ListWithEmail(_ context.Context) ([]*model.User, error) {
	return nil, nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(_ context.Context, _ string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(userRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 3600})
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(_ context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(_ context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := newTestService(userRepo, sessionRepo)

	user, session, err := svc.Register(context.Background(), RegisterInput{
		Username: "hitoshi",
		Email:    "Hitoshi@Example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("ユーザーが作成されていない")
	}
	if user.Username != "hitoshi" {
		t.Errorf("Username = %q, want %q", user.Username, "hitoshi")
	}
	// メールアドレスは小文字に正規化される
	if user.Email != "hitoshi@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "hitoshi@example.com")
	}
	if user.Theme != "light" {
		t.Errorf("Theme = %q, want %q", user.Theme, "light")
	}
	// パスワードは平文保存されない
	if user.PasswordHash == "secret123" {
		t.Error("パスワードが平文で保存されている")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("パスワードハッシュが検証できない: %v", err)
	}

	if createdSession == nil {
		t.Fatal("セッションが作成されていない")
	}
	if session.UserID != user.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, user.ID)
	}
	if len(session.ID) != 64 {
		t.Errorf("セッションIDは32バイトのhex（64文字）であるべき: len=%d", len(session.ID))
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{
			name:  "ユーザー名が短すぎる",
			input: RegisterInput{Username: "ab", Email: "a@example.com", Password: "secret123"},
		},
		{
			name: "ユーザー名が長すぎる",
			input: RegisterInput{
				Username: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				Email:    "a@example.com",
				Password: "secret123",
			},
		},
		{
			name:  "メールアドレスが不正",
			input: RegisterInput{Username: "hitoshi", Email: "not-an-email", Password: "secret123"},
		},
		{
			name:  "パスワードが短すぎる",
			input: RegisterInput{Username: "hitoshi", Email: "a@example.com", Password: "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tt.input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIErrorを期待したが: %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidRequest {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "hitoshi",
		Email:    "a@example.com",
		Password: "secret123",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("DUPLICATE_USERを期待したが: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		findByEmailFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Username: "hitoshi",
		Email:    "a@example.com",
		Password: "secret123",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("DUPLICATE_USERを期待したが: %v", err)
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if username != "hitoshi" {
				return nil, nil
			}
			return &model.User{ID: "user-1", Username: "hitoshi", PasswordHash: string(hash)}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	user, session, err := svc.Login(context.Background(), "hitoshi", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if session.UserID != "user-1" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-1")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	userRepo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: string(hash)}, nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	_, _, err := svc.Login(context.Background(), "hitoshi", "wrong")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeBadCredentials {
		t.Errorf("BAD_CREDENTIALSを期待したが: %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	_, _, err := svc.Login(context.Background(), "nobody", "secret123")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeBadCredentials {
		t.Errorf("BAD_CREDENTIALSを期待したが: %v", err)
	}
}

// --- Logout / GetCurrentUser ---

func TestLogout_DeletesSession(t *testing.T) {
	var deletedID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "session-abc"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedID != "session-abc" {
		t.Errorf("deletedID = %q, want %q", deletedID, "session-abc")
	}
}

func TestLogout_EmptySessionID(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockSessionRepo{})
	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("空のセッションIDはエラーになるべき")
	}
}

func TestGetCurrentUser_Success(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "hitoshi"}, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	svc := newTestService(userRepo, sessionRepo)

	user, err := svc.GetCurrentUser(context.Background(), "session-abc")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
}

func TestGetCurrentUser_ExpiredSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Session, error) {
			// リポジトリは期限切れセッションにnilを返す
			return nil, nil
		},
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if _, err := svc.GetCurrentUser(context.Background(), "expired"); err == nil {
		t.Error("期限切れセッションはエラーになるべき")
	}
}

// --- UpdateTheme ---

func TestUpdateTheme(t *testing.T) {
	var gotID, gotTheme string
	userRepo := &mockUserRepo{
		updateThemeFn: func(_ context.Context, id, theme string) error {
			gotID, gotTheme = id, theme
			return nil
		},
	}
	svc := newTestService(userRepo, &mockSessionRepo{})

	if err := svc.UpdateTheme(context.Background(), "user-1", "dark"); err != nil {
		t.Fatalf("UpdateTheme() error = %v", err)
	}
	if gotID != "user-1" || gotTheme != "dark" {
		t.Errorf("UpdateTheme(%q, %q)が記録された, want (user-1, dark)", gotID, gotTheme)
	}

	if err := svc.UpdateTheme(context.Background(), "user-1", "neon"); err == nil {
		t.Error("不正なテーマはエラーになるべき")
	}
}
