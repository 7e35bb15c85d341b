package httpapi

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type fakeSessions struct {
	loginEmail, loginPassword string
	loginResp                 *services.TokenPair
	loginErr                  error

	refreshToken string
	refreshResp  *services.TokenPair
	refreshErr   error

	logoutToken string
	logoutErr   error
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	f.loginEmail, f.loginPassword = email, password
	return f.loginResp, f.loginErr
}

func (f *fakeSessions) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.refreshToken = refreshToken
	return f.refreshResp, f.refreshErr
}

func (f *fakeSessions) Logout(ctx context.Context, accessToken string) error {
	f.logoutToken = accessToken
	return f.logoutErr
}

type fakeRecovery struct {
	verifyToken string
	verifyErr   error

	forgotEmail string
	forgotErr   error

	resetToken, resetPassword string
	resetErr                  error
}

func (f *fakeRecovery) ConfirmEmailVerification(ctx context.Context, token string) error {
	f.verifyToken = token
	return f.verifyErr
}

func (f *fakeRecovery) RequestPasswordReset(ctx context.Context, email string) error {
	f.forgotEmail = email
	return f.forgotErr
}

func (f *fakeRecovery) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	f.resetToken, f.resetPassword = token, newPassword
	return f.resetErr
}

type fakeRegistrar struct {
	in  services.RegisterInput
	err error
}

func (f *fakeRegistrar) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u-new", Email: in.Email}, nil
}

// fakeAuthn maps tokens to principals; unknown tokens get err.
type fakeAuthn struct {
	principals map[string]*services.Principal
	err        error
}

func (f *fakeAuthn) Authenticate(ctx context.Context, token string) (*services.Principal, error) {
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, f.err
}

type fakePurger struct {
	res    *services.PurgeResult
	err    error
	called bool
}

func (f *fakePurger) Purge(ctx context.Context) (*services.PurgeResult, error) {
	f.called = true
	return f.res, f.err
}

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }
