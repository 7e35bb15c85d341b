package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	env := newRecoveryEnv(t)
	reg := NewRegistrationService(env.db, &fakeRepoManager{env.store}, env.svc, testConfig(), nopLogger)

	expectCommits(env.mock, 1)
	u, err := reg.Register(context.Background(), RegisterInput{
		Email: " New@X.com ", Password: "Secret123", FirstName: "Ann", LastName: "Lee",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@x.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "Secret123", u.PasswordHash)

	v := env.verification(t, u.ID)
	assert.False(t, v.IsVerified)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, notify.KindVerifyEmail, env.notifier.sent[0].Kind)
	assert.Equal(t, v.Token, tokenFromLink(t, env.notifier.sent[0].Link))
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRegister_RequireVerificationThenLogin(t *testing.T) {
	env := newRecoveryEnv(t)
	cfg := testConfig()
	cfg.RequireEmailVerification = true
	rm := &fakeRepoManager{env.store}
	reg := NewRegistrationService(env.db, rm, env.svc, cfg, nopLogger)
	sessions := NewSessionService(env.db, rm, cfg, nopLogger, WithClock(env.clock.Now))

	expectCommits(env.mock, 1)
	u, err := reg.Register(context.Background(), RegisterInput{Email: "new@x.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = sessions.Login(context.Background(), "new@x.com", "Secret123")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	expectCommits(env.mock, 2)
	require.NoError(t, env.svc.ConfirmEmailVerification(context.Background(), env.verification(t, u.ID).Token))

	pair, err := sessions.Login(context.Background(), "new@x.com", "Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newRecoveryEnv(t)
	seedUser(t, env.store, "taken@x.com", "Secret123", true)
	reg := NewRegistrationService(env.db, &fakeRepoManager{env.store}, env.svc, testConfig(), nopLogger)

	env.mock.ExpectBegin()
	env.mock.ExpectRollback()

	_, err := reg.Register(context.Background(), RegisterInput{Email: "Taken@x.com", Password: "Secret123"})
	require.ErrorIs(t, err, common.ErrValidation)

	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Empty(t, env.notifier.sent)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRegister_WeakPasswordOpensNoTransaction(t *testing.T) {
	env := newRecoveryEnv(t)
	reg := NewRegistrationService(env.db, &fakeRepoManager{env.store}, env.svc, testConfig(), nopLogger)

	_, err := reg.Register(context.Background(), RegisterInput{Email: "new@x.com", Password: "short"})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, env.store.users)
	require.NoError(t, env.mock.ExpectationsWereMet())
}
