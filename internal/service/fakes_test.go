package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/repository"
)

// fakeDB hands out fakeTx values. Repositories in these tests ignore the
// DBTX they receive.
type fakeDB struct {
	begins, commits int
}

func (d *fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("fakeDB: unexpected Exec")
}

func (d *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("fakeDB: unexpected Query")
}

func (d *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begins++
	return &fakeTx{db: d}, nil
}

// fakeTx embeds pgx.Tx so only the methods the services call need bodies.
type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

type fakeBetRepo struct {
	mu      sync.Mutex
	bets    map[uuid.UUID]domain.Bet
	listErr []error
	lists   int
	// afterList runs once a ListByUser snapshot is taken, outside the lock.
	afterList func()
}

func newFakeBetRepo() *fakeBetRepo {
	return &fakeBetRepo{bets: map[uuid.UUID]domain.Bet{}}
}

func (r *fakeBetRepo) Create(_ context.Context, _ repository.DBTX, b *domain.Bet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bets[b.ID] = *b
	return nil
}

func (r *fakeBetRepo) FindByID(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (*domain.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bets[id]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	return &b, nil
}

func (r *fakeBetRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Bet, error) {
	return r.FindByID(ctx, tx, userID, id)
}

func (r *fakeBetRepo) Update(_ context.Context, _ repository.DBTX, b *domain.Bet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return false, nil
	}
	r.bets[b.ID] = *b
	return true, nil
}

func (r *fakeBetRepo) Delete(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bets[id]
	if !ok || b.UserID != userID {
		return false, nil
	}
	delete(r.bets, id)
	return true, nil
}

func (r *fakeBetRepo) ListByUser(ctx context.Context, db repository.DBTX, userID uuid.UUID, limit int) ([]domain.Bet, error) {
	bets, err := r.listByUser(userID, limit)
	r.mu.Lock()
	hook := r.afterList
	r.afterList = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return bets, err
}

func (r *fakeBetRepo) listByUser(userID uuid.UUID, limit int) ([]domain.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if len(r.listErr) > 0 {
		err := r.listErr[0]
		r.listErr = r.listErr[1:]
		return nil, err
	}
	out := r.userBets(userID, time.Time{})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBetRepo) ListCreatedSince(_ context.Context, _ repository.DBTX, userID uuid.UUID, since time.Time) ([]domain.Bet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.userBets(userID, since)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeBetRepo) userBets(userID uuid.UUID, since time.Time) []domain.Bet {
	out := []domain.Bet{}
	for _, b := range r.bets {
		if b.UserID == userID && !b.CreatedAt.Before(since) {
			out = append(out, b)
		}
	}
	return out
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]domain.Profile{}}
}

func (r *fakeProfileRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProfileRepo) CreateIfMissing(_ context.Context, _ repository.DBTX, p *domain.Profile) (*domain.Profile, error) {
	if cur, ok := r.profiles[p.ID]; ok {
		return &cur, nil
	}
	r.profiles[p.ID] = *p
	out := *p
	return &out, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, _ repository.DBTX, p *domain.Profile) error {
	r.profiles[p.ID] = *p
	return nil
}

type fakeUserRepo struct {
	users map[string]domain.AuthUser
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.AuthUser{}}
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.AuthUser, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.AuthUser, error) {
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ repository.DBTX, u *domain.AuthUser) error {
	if _, ok := r.users[u.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	r.users[u.Email] = *u
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, _ repository.DBTX, id uuid.UUID, hash string) error {
	for email, u := range r.users {
		if u.ID == id {
			u.PasswordHash = hash
			r.users[email] = u
			return nil
		}
	}
	return domain.ErrNotFound("Utilisateur introuvable")
}

type fakeResetRepo struct {
	tokens map[string]domain.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]domain.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(_ context.Context, _ repository.DBTX, t *domain.PasswordResetToken) error {
	r.tokens[t.TokenHash] = *t
	return nil
}

func (r *fakeResetRepo) LockByHash(_ context.Context, _ pgx.Tx, hash string) (*domain.PasswordResetToken, error) {
	t, ok := r.tokens[hash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeResetRepo) MarkUsed(_ context.Context, _ repository.DBTX, hash string, at time.Time) error {
	t := r.tokens[hash]
	t.UsedAt = &at
	r.tokens[hash] = t
	return nil
}

type fakeAttempts struct {
	failures map[string]int
}

func (f *fakeAttempts) RecordAttempt(_ context.Context, email, _ string, success bool) error {
	if !success {
		f.failures[email]++
	}
	return nil
}

func (f *fakeAttempts) CountFailures(_ context.Context, email string, _ time.Time) (int, error) {
	return f.failures[email], nil
}

type fakeMailer struct {
	to, link string
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.to, m.link = to, link
	return nil
}

// recorder captures published events.
type recorder struct {
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.Type {
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
