package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

// newAuthService — сервис с реальными часами: подпись и проверка JWT
// идут относительно time.Now.
func newAuthService(t *testing.T) (*Service, *testMocks, *gomock.Controller) {
	t.Helper()

	svc, m, ctrl := newServiceWithMocks(t)
	svc.now = func() time.Time { return time.Now().UTC() }

	return svc, m, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestRegisterUser_OK(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	m.storage.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			require.Equal(t, "user@example.com", u.Email)
			require.True(t, checkPassword(u.PasswordHash, "Abcdef1!"))
			return nil
		})
	m.storage.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "User@Example.com", Password: "Abcdef1!"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, uid)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
	require.WithinDuration(t, time.Now().Add(svc.cfg.Auth.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)

	p, err := svc.ValidateToken(context.Background(), tp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, uid, p.UserID)
	require.Equal(t, "user@example.com", p.Email)
}

func TestRegisterUser_Validation(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newAuthService(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "not-an-email", Password: "Abcdef1!"})
	require.ErrorIs(t, err, ErrInvalidEmail)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Email: "u@e.com"})
	require.ErrorIs(t, err, ErrEmptyPassword)

	for _, pw := range []string{"short1!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial1"} {
		_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Email: "u@e.com", Password: pw})
		require.ErrorIs(t, err, ErrWeakPassword, pw)
	}
}

func TestRegisterUser_EmailTaken(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(&models.User{ID: uuid.New(), Email: "user@example.com"}, nil)

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "Abcdef1!"})
	require.ErrorIs(t, err, ErrEmailTaken)

	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	m.storage.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "Abcdef1!"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_StorageError(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, errors.New("db down"))

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "Abcdef1!"})
	require.ErrorIs(t, err, ErrInternal)
}

func TestRegisterUser_CaptchaRequired(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()
	svc.cfg.Captcha.Required = true

	in := RegisterInput{Email: "user@example.com", Password: "Abcdef1!", RemoteIP: "1.2.3.4"}

	_, _, err := svc.RegisterUser(context.Background(), in)
	require.ErrorIs(t, err, ErrCaptchaFailed)

	in.CaptchaToken = "tok"
	m.captcha.EXPECT().Configured().Return(true).AnyTimes()
	m.captcha.EXPECT().Verify(gomock.Any(), "tok", "1.2.3.4").Return(false, nil)

	_, _, err = svc.RegisterUser(context.Background(), in)
	require.ErrorIs(t, err, ErrCaptchaFailed)

	m.captcha.EXPECT().Verify(gomock.Any(), "tok", "1.2.3.4").Return(true, nil)
	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)
	m.storage.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	m.storage.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err = svc.RegisterUser(context.Background(), in)
	require.NoError(t, err)
}

func TestLoginUser(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: mustHashPW(t, "Abcdef1!")}

	m.storage.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil).Times(2)
	m.storage.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	tp, uid, err := svc.LoginUser(context.Background(), " USER@example.com ", "Abcdef1!")
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, tp.RefreshToken)

	_, _, err = svc.LoginUser(context.Background(), "user@example.com", "Wrong1!!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	m.storage.EXPECT().UserByEmail(gomock.Any(), "nobody@example.com").Return(nil, storage.ErrNotFound)
	_, _, err = svc.LoginUser(context.Background(), "nobody@example.com", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginUser(context.Background(), "bad", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginUser(context.Background(), "user@example.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshToken_OK_WithRotation(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	plain := "refresh-plain"
	hash := hashToken(plain)

	m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).
		Return(&models.RefreshToken{TokenHash: hash, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil)
	m.storage.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(true, nil)
	m.storage.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *models.RefreshToken) error {
			require.NotEqual(t, hash, rt.TokenHash)
			require.Equal(t, user.ID, rt.UserID)
			return nil
		})

	tp, uid, err := svc.RefreshToken(context.Background(), plain)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEqual(t, plain, tp.RefreshToken)
}

func TestRefreshToken_Errors(t *testing.T) {
	t.Parallel()

	plain := "refresh-plain"
	hash := hashToken(plain)
	uid := uuid.New()
	active := &models.RefreshToken{TokenHash: hash, UserID: uid, ExpiresAt: time.Now().Add(time.Hour)}

	tcs := []struct {
		name  string
		setup func(m *testMocks)
		want  error
	}{
		{"not_found", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(nil, storage.ErrNotFound)
		}, ErrInvalidToken},
		{"revoked", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).
				Return(&models.RefreshToken{UserID: uid, Revoked: true, ExpiresAt: time.Now().Add(time.Hour)}, nil)
		}, ErrTokenRevoked},
		{"expired", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).
				Return(&models.RefreshToken{UserID: uid, ExpiresAt: time.Now().Add(-time.Minute)}, nil)
		}, ErrTokenExpired},
		{"lookup_failed", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(nil, errors.New("db down"))
		}, ErrInternal},
		{"user_gone", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(active, nil)
			m.storage.EXPECT().UserByID(gomock.Any(), uid).Return(nil, storage.ErrNotFound)
		}, ErrInvalidToken},
		{"concurrent_rotation", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(active, nil)
			m.storage.EXPECT().UserByID(gomock.Any(), uid).Return(&models.User{ID: uid}, nil)
			m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(false, nil)
		}, ErrTokenRevoked},
		{"rotation_not_found", func(m *testMocks) {
			m.storage.EXPECT().RefreshTokenByHash(gomock.Any(), hash).Return(active, nil)
			m.storage.EXPECT().UserByID(gomock.Any(), uid).Return(&models.User{ID: uid}, nil)
			m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(false, storage.ErrNotFound)
		}, ErrInvalidToken},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, m, ctrl := newAuthService(t)
			defer ctrl.Finish()

			tc.setup(m)

			_, _, err := svc.RefreshToken(context.Background(), plain)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRevokeToken(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	hash := hashToken("rt")

	gomock.InOrder(
		m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(true, nil),
		m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(false, nil),
		m.storage.EXPECT().RevokeRefreshTokenIfActive(gomock.Any(), hash).Return(false, storage.ErrNotFound),
	)

	require.NoError(t, svc.RevokeToken(context.Background(), "rt"))
	require.ErrorIs(t, svc.RevokeToken(context.Background(), "rt"), ErrTokenRevoked)
	require.ErrorIs(t, svc.RevokeToken(context.Background(), "rt"), ErrInvalidToken)
	require.ErrorIs(t, svc.RevokeToken(context.Background(), ""), ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newAuthService(t)
	defer ctrl.Finish()

	uid := uuid.New()
	user := &models.User{ID: uid, PasswordHash: mustHashPW(t, "Abcdef1!")}

	_, err := svc.ValidateToken(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidToken)

	require.ErrorIs(t, svc.ChangePassword(context.Background(), uid, "", "Newpass1!"), ErrEmptyPassword)
	require.ErrorIs(t, svc.ChangePassword(context.Background(), uid, "Abcdef1!", "weak"), ErrWeakPassword)

	m.storage.EXPECT().UserByID(gomock.Any(), uid).Return(user, nil).Times(2)

	require.ErrorIs(t, svc.ChangePassword(context.Background(), uid, "Wrong1!!", "Newpass1!"), ErrInvalidCredentials)

	m.storage.EXPECT().UpdatePassword(gomock.Any(), uid, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, hash string, _ time.Time) error {
			require.True(t, checkPassword(hash, "Newpass1!"))
			return nil
		})
	m.storage.EXPECT().RevokeUserTokens(gomock.Any(), uid).Return(int64(3), nil)

	require.NoError(t, svc.ChangePassword(context.Background(), uid, "Abcdef1!", "Newpass1!"))
}

func TestCleanupExpiredTokens(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	m.storage.EXPECT().DeleteExpiredTokens(gomock.Any(), fixedNow).Return(int64(7), nil)

	n, err := svc.CleanupExpiredTokens(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
}
