package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/linkup/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn              func(ctx context.Context, id string) (*model.User, error)
	findByEmailOrUsernameFn func(ctx context.Context, email, username string) (*model.User, error)
	updateFn                func(ctx context.Context, id string, upd model.UserUpdate, updatedAt time.Time) error
	updateProfilePictureFn  func(ctx context.Context, id, ref string, updatedAt time.Time) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id, Name: "Taro", Username: "taro", Email: "taro@example.com"}, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	if m.findByEmailOrUsernameFn != nil {
		return m.findByEmailOrUsernameFn(ctx, email, username)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) Update(ctx context.Context, id string, upd model.UserUpdate, updatedAt time.Time) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd, updatedAt)
	}
	return nil
}
func (m *mockUserRepo) UpdateProfilePicture(ctx context.Context, id, ref string, updatedAt time.Time) error {
	if m.updateProfilePictureFn != nil {
		return m.updateProfilePictureFn(ctx, id, ref, updatedAt)
	}
	return nil
}

type mockProfileRepo struct {
	findByUserIDFn    func(ctx context.Context, userID string) (*model.Profile, error)
	findWithUserFn    func(ctx context.Context, userID string) (*model.UserWithProfile, error)
	updateFn          func(ctx context.Context, userID string, upd model.ProfileUpdate, updatedAt time.Time) error
	listAllWithUserFn func(ctx context.Context) ([]model.UserWithProfile, error)
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error { return nil }
func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return &model.Profile{UserID: userID}, nil
}
func (m *mockProfileRepo) FindWithUser(ctx context.Context, userID string) (*model.UserWithProfile, error) {
	if m.findWithUserFn != nil {
		return m.findWithUserFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockProfileRepo) Update(ctx context.Context, userID string, upd model.ProfileUpdate, updatedAt time.Time) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, upd, updatedAt)
	}
	return nil
}
func (m *mockProfileRepo) ListAllWithUser(ctx context.Context) ([]model.UserWithProfile, error) {
	if m.listAllWithUserFn != nil {
		return m.listAllWithUserFn(ctx)
	}
	return nil, nil
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

func strPtr(v string) *string { return &v }

// --- GetUserAndProfile ---

func TestService_GetUserAndProfile(t *testing.T) {
	profileRepo := &mockProfileRepo{
		findWithUserFn: func(ctx context.Context, userID string) (*model.UserWithProfile, error) {
			return &model.UserWithProfile{
				User:    model.UserSummary{ID: userID, Username: "taro"},
				Profile: model.Profile{UserID: userID, Bio: "hello"},
			}, nil
		},
	}

	svc := NewService(&mockUserRepo{}, profileRepo)

	result, err := svc.GetUserAndProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserAndProfile returned error: %v", err)
	}
	if result.User.Username != "taro" || result.Profile.Bio != "hello" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestService_GetUserAndProfile_Missing(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockProfileRepo{})

	_, err := svc.GetUserAndProfile(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- UpdateUser ---

// 設定されたフィールドのみが更新に渡ることを検証
func TestService_UpdateUser_AllowListedFields(t *testing.T) {
	var applied model.UserUpdate
	userRepo := &mockUserRepo{
		updateFn: func(ctx context.Context, id string, upd model.UserUpdate, updatedAt time.Time) error {
			applied = upd
			return nil
		},
	}

	svc := NewService(userRepo, &mockProfileRepo{})

	upd := model.UserUpdate{Name: strPtr("Jiro")}
	if err := svc.UpdateUser(context.Background(), "user-1", upd); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if applied.Name == nil || *applied.Name != "Jiro" {
		t.Error("name should be updated")
	}
	if applied.Username != nil || applied.Email != nil {
		t.Error("unset fields must stay nil")
	}
}

// 更新後の識別子が他ユーザーと重複する場合にDUPLICATE_USERを返すことを検証。
// 自分自身との一致は重複とみなさない。
func TestService_UpdateUser_DuplicateAgainstOtherUser(t *testing.T) {
	tests := []struct {
		name     string
		conflict *model.User
		wantCode string
	}{
		{name: "他ユーザーと重複", conflict: &model.User{ID: "user-2"}, wantCode: model.ErrCodeDuplicateUser},
		{name: "自分自身との一致は許容", conflict: &model.User{ID: "user-1"}},
		{name: "重複なし", conflict: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByEmailOrUsernameFn: func(ctx context.Context, email, username string) (*model.User, error) {
					return tt.conflict, nil
				},
			}

			svc := NewService(userRepo, &mockProfileRepo{})

			err := svc.UpdateUser(context.Background(), "user-1", model.UserUpdate{Email: strPtr("new@example.com")})
			if tt.wantCode != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				assertAPIErrorCode(t, err, tt.wantCode)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// 更新フィールドにも登録時と同じ検証規則が適用されることを検証
func TestService_UpdateUser_Validation(t *testing.T) {
	tests := []struct {
		name string
		upd  model.UserUpdate
	}{
		{name: "短すぎる名前", upd: model.UserUpdate{Name: strPtr("T")}},
		{name: "短すぎるユーザー名", upd: model.UserUpdate{Username: strPtr("ta")}},
		{name: "不正なメールアドレス", upd: model.UserUpdate{Email: strPtr("not-an-email")}},
		{name: "空の更新", upd: model.UserUpdate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockUserRepo{}, &mockProfileRepo{})

			err := svc.UpdateUser(context.Background(), "user-1", tt.upd)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
		})
	}
}

// --- UpdateProfile ---

func TestService_UpdateProfile(t *testing.T) {
	var applied model.ProfileUpdate
	profileRepo := &mockProfileRepo{
		updateFn: func(ctx context.Context, userID string, upd model.ProfileUpdate, updatedAt time.Time) error {
			applied = upd
			return nil
		},
	}

	svc := NewService(&mockUserRepo{}, profileRepo)

	upd := model.ProfileUpdate{
		Bio:      strPtr("engineer"),
		PastWork: []model.WorkHistory{{Company: "ACME", Position: "dev", Years: "3"}},
	}
	if err := svc.UpdateProfile(context.Background(), "user-1", upd); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if applied.Bio == nil || *applied.Bio != "engineer" {
		t.Error("bio should be updated")
	}
	if len(applied.PastWork) != 1 || applied.PastWork[0].Company != "ACME" {
		t.Errorf("past work = %+v, want 1 entry for ACME", applied.PastWork)
	}
}

func TestService_UpdateProfile_MissingProfile(t *testing.T) {
	profileRepo := &mockProfileRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.Profile, error) {
			return nil, nil
		},
	}

	svc := NewService(&mockUserRepo{}, profileRepo)

	err := svc.UpdateProfile(context.Background(), "missing", model.ProfileUpdate{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// --- UpdateProfilePicture ---

func TestService_UpdateProfilePicture(t *testing.T) {
	var gotRef string
	userRepo := &mockUserRepo{
		updateProfilePictureFn: func(ctx context.Context, id, ref string, updatedAt time.Time) error {
			gotRef = ref
			return nil
		},
	}

	svc := NewService(userRepo, &mockProfileRepo{})

	if err := svc.UpdateProfilePicture(context.Background(), "user-1", "uploads/pic.png"); err != nil {
		t.Fatalf("UpdateProfilePicture returned error: %v", err)
	}
	if gotRef != "uploads/pic.png" {
		t.Errorf("ref = %q, want uploads/pic.png", gotRef)
	}
}

func TestService_UpdateProfilePicture_EmptyRef(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockProfileRepo{})

	err := svc.UpdateProfilePicture(context.Background(), "user-1", "  ")
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

// --- ListAll ---

func TestService_ListAll(t *testing.T) {
	profileRepo := &mockProfileRepo{
		listAllWithUserFn: func(ctx context.Context) ([]model.UserWithProfile, error) {
			return []model.UserWithProfile{
				{User: model.UserSummary{Username: "taro"}},
				{User: model.UserSummary{Username: "jiro"}},
			}, nil
		},
	}

	svc := NewService(&mockUserRepo{}, profileRepo)

	profiles, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
}
