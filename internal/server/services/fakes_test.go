package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/verifications"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

// -------- in-memory ledger --------

type memStore struct {
	mu            sync.Mutex
	seq           int
	users         map[string]*models.User
	sessions      map[string]*models.Session
	blacklist     map[string]time.Time
	verifications map[string]*models.EmailVerification
	resets        map[string]*models.PasswordResetToken
	order         map[string]int

	// fail makes the named operation return the error, e.g. "sessions.Create".
	fail map[string]error
	// onLock runs after LockByID, standing in for a transaction that
	// committed while we waited on the row lock.
	onLock func(userID string)
	locks  int
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*models.User{},
		sessions:      map[string]*models.Session{},
		blacklist:     map[string]time.Time{},
		verifications: map[string]*models.EmailVerification{},
		resets:        map[string]*models.PasswordResetToken{},
		order:         map[string]int{},
		fail:          map[string]error{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	id := fmt.Sprintf("%s-%d", prefix, m.seq)
	m.order[id] = m.seq
	return id
}

func (m *memStore) failed(op string) error {
	return m.fail[op]
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = r.nextID("user")
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) LockByID(_ context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.users[id]
	r.locks++
	hook := r.onLock
	r.mu.Unlock()
	if !ok {
		return common.ErrorNotFound
	}
	if hook != nil {
		hook(id)
	}
	return nil
}

func (r memUsers) SetPassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("users.SetPassword"); err != nil {
		return err
	}
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r memUsers) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = active
	return nil
}

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, s *models.Session) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("sessions.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.sessions {
		if existing.AccessToken == s.AccessToken || existing.RefreshToken == s.RefreshToken {
			return nil, common.ErrorAlreadyExists
		}
	}
	s.ID = r.nextID("session")
	s.CreatedAt = time.Now()
	cp := *s
	r.sessions[s.ID] = &cp
	return s, nil
}

func (r memSessions) FindByRefreshToken(_ context.Context, token string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("sessions.FindByRefreshToken"); err != nil {
		return nil, err
	}
	for _, s := range r.sessions {
		if s.RefreshToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSessions) FindByAccessToken(_ context.Context, userID, token string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.AccessToken == token && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSessions) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("sessions.ListActiveByUser"); err != nil {
		return nil, err
	}
	var out []*models.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].ID] > r.order[out[j].ID] })
	return out, nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("sessions.Delete"); err != nil {
		return err
	}
	delete(r.sessions, id)
	return nil
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("sessions.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type memBlacklist struct{ *memStore }

func (r memBlacklist) Add(_ context.Context, e models.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("blacklist.Add"); err != nil {
		return err
	}
	if cur, ok := r.blacklist[e.Token]; !ok || e.ExpiresAt.After(cur) {
		r.blacklist[e.Token] = e.ExpiresAt
	}
	return nil
}

func (r memBlacklist) IsBlacklisted(_ context.Context, token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("blacklist.IsBlacklisted"); err != nil {
		return false, err
	}
	exp, ok := r.blacklist[token]
	return ok && (&models.BlacklistEntry{Token: token, ExpiresAt: exp}).IsActive(now), nil
}

func (r memBlacklist) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("blacklist.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for token, exp := range r.blacklist {
		if !(&models.BlacklistEntry{Token: token, ExpiresAt: exp}).IsActive(now) {
			delete(r.blacklist, token)
			n++
		}
	}
	return n, nil
}

type memVerifications struct{ *memStore }

func (r memVerifications) GetByUser(_ context.Context, userID string) (*models.EmailVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.verifications {
		if v.UserID == userID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memVerifications) FindByToken(_ context.Context, token string) (*models.EmailVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.verifications {
		if v.Token == token {
			cp := *v
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memVerifications) Create(_ context.Context, v *models.EmailVerification) (*models.EmailVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failed("verifications.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.verifications {
		if existing.UserID == v.UserID {
			return nil, common.ErrorAlreadyExists
		}
	}
	v.ID = r.nextID("verification")
	cp := *v
	r.verifications[v.ID] = &cp
	return v, nil
}

func (r memVerifications) Renew(_ context.Context, id, token string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verifications[id]
	if !ok {
		return common.ErrorNotFound
	}
	v.Token = token
	v.CreatedAt = createdAt
	return nil
}

func (r memVerifications) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verifications[id]
	if !ok {
		return common.ErrorNotFound
	}
	v.IsVerified = true
	return nil
}

type memResets struct{ *memStore }

func (r memResets) FindLatestByUser(_ context.Context, userID string) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.PasswordResetToken
	for _, p := range r.resets {
		if p.UserID == userID && (latest == nil || r.order[p.ID] > r.order[latest.ID]) {
			latest = p
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r memResets) FindByToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.resets {
		if p.Token == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memResets) Create(_ context.Context, p *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID("reset")
	cp := *p
	r.resets[p.ID] = &cp
	return p, nil
}

func (r memResets) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resets, id)
	return nil
}

func (r memResets) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.resets {
		if p.UserID == userID {
			delete(r.resets, id)
		}
	}
	return nil
}

type fakeRepoManager struct{ store *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return memUsers{m.store} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return memSessions{m.store} }
func (m *fakeRepoManager) Blacklist(dbx.DBTX) blacklist.Repository      { return memBlacklist{m.store} }
func (m *fakeRepoManager) Verifications(dbx.DBTX) verifications.Repository {
	return memVerifications{m.store}
}
func (m *fakeRepoManager) ResetTokens(dbx.DBTX) resettokens.Repository { return memResets{m.store} }

// -------- other collaborators --------

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeNotifier struct {
	sent []notify.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type fakeCache struct {
	revoked map[string]time.Time
	err     error
}

func newFakeCache() *fakeCache { return &fakeCache{revoked: map[string]time.Time{}} }

func (c *fakeCache) MarkRevoked(_ context.Context, token string, expiresAt time.Time) error {
	if c.err != nil {
		return c.err
	}
	c.revoked[token] = expiresAt
	return nil
}

func (c *fakeCache) IsRevoked(_ context.Context, token string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.revoked[token]
	return ok, nil
}

// -------- helpers --------

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.BcryptCost = bcrypt.MinCost
	cfg.FrontendURL = "http://front.test"
	return cfg
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// expectCommits queues n successful transactions.
func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func seedUser(t *testing.T, store *memStore, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u, err := memUsers{store}.Create(context.Background(), &models.User{Email: email, PasswordHash: string(hash), IsActive: active})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

var nopLogger = logging.Nop()

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
