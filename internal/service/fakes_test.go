package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/storage"
	"github.com/wallet-insights/internal/types"
)

// In-memory repositories for service tests

var fakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeSeq struct {
	mu sync.Mutex
	n  int
}

func (s *fakeSeq) next(prefix string) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n), fakeEpoch.Add(time.Duration(s.n) * time.Minute)
}

type fakeUserRepo struct {
	seq   fakeSeq
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, storage.ErrDuplicate)
		}
	}
	user.ID, user.CreatedAt = r.seq.next("user")
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

type fakePreferencesRepo struct {
	seq     fakeSeq
	byUser  map[string]*models.InvestmentPreferences
	getErr  error
	upserts int
}

func newFakePreferencesRepo() *fakePreferencesRepo {
	return &fakePreferencesRepo{byUser: map[string]*models.InvestmentPreferences{}}
}

func (r *fakePreferencesRepo) GetByUserID(ctx context.Context, userID string) (*models.InvestmentPreferences, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if p, ok := r.byUser[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, fmt.Errorf("preferences for %s: %w", userID, storage.ErrNotFound)
}

func (r *fakePreferencesRepo) Upsert(ctx context.Context, p *models.InvestmentPreferences) error {
	r.upserts++
	if existing, ok := r.byUser[p.UserID]; ok {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		p.ID, p.CreatedAt = r.seq.next("prefs")
	}
	p.UpdatedAt = p.CreatedAt
	stored := *p
	r.byUser[p.UserID] = &stored
	return nil
}

type fakeWalletRepo struct {
	seq     fakeSeq
	wallets map[string]*models.ConnectedWallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: map[string]*models.ConnectedWallet{}}
}

func (r *fakeWalletRepo) Create(ctx context.Context, w *models.ConnectedWallet) error {
	for _, existing := range r.wallets {
		if existing.UserID == w.UserID && existing.WalletAddress == w.WalletAddress {
			return fmt.Errorf("wallet %s: %w", w.WalletAddress, storage.ErrDuplicate)
		}
	}
	w.ID, w.CreatedAt = r.seq.next("wallet")
	w.UpdatedAt = w.CreatedAt
	stored := *w
	r.wallets[w.ID] = &stored
	return nil
}

func (r *fakeWalletRepo) ListByUser(ctx context.Context, userID string) ([]*models.ConnectedWallet, error) {
	out := []*models.ConnectedWallet{}
	for _, w := range r.wallets {
		if w.UserID == userID {
			copied := *w
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeWalletRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*models.ConnectedWallet, error) {
	if w, ok := r.wallets[id]; ok && w.UserID == userID {
		copied := *w
		return &copied, nil
	}
	return nil, fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
}

func (r *fakeWalletRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	if w, ok := r.wallets[id]; ok && w.UserID == userID {
		delete(r.wallets, id)
		return nil
	}
	return fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
}

func (r *fakeWalletRepo) SetPrimary(ctx context.Context, id, userID string) (*models.ConnectedWallet, error) {
	target, ok := r.wallets[id]
	if !ok || target.UserID != userID {
		return nil, fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
	}
	for _, w := range r.wallets {
		if w.UserID == userID {
			w.IsPrimary = w.ID == id
		}
	}
	copied := *target
	return &copied, nil
}

func (r *fakeWalletRepo) primaries(userID string) []string {
	var ids []string
	for _, w := range r.wallets {
		if w.UserID == userID && w.IsPrimary {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

type fakeAnalysisRepo struct {
	seq      fakeSeq
	mu       sync.Mutex
	analyses map[string]*models.WalletAnalysis
	err      error
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{analyses: map[string]*models.WalletAnalysis{}}
}

func (r *fakeAnalysisRepo) Upsert(ctx context.Context, a *models.WalletAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}

	_, now := r.seq.next("tick")
	for _, existing := range r.analyses {
		if existing.UserID == a.UserID && existing.WalletAddress == a.WalletAddress {
			a.ID = existing.ID
			a.CreatedAt, a.UpdatedAt = existing.CreatedAt, now
			stored := *a
			r.analyses[a.ID] = &stored
			return nil
		}
	}
	a.ID, _ = r.seq.next("analysis")
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	r.analyses[a.ID] = &stored
	return nil
}

func (r *fakeAnalysisRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*models.WalletAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyses[id]; ok && a.UserID == userID {
		copied := *a
		return &copied, nil
	}
	return nil, fmt.Errorf("analysis %s: %w", id, storage.ErrNotFound)
}

func (r *fakeAnalysisRepo) ListByUser(ctx context.Context, userID string, filter models.AnalysisFilter) ([]*models.WalletAnalysis, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}

	matched := []*models.WalletAnalysis{}
	for _, a := range r.analyses {
		if a.UserID != userID {
			continue
		}
		if filter.Blockchain != nil && a.Blockchain != *filter.Blockchain {
			continue
		}
		copied := *a
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Limit <= 0 {
		return matched, total, nil
	}
	if filter.Offset >= total {
		return []*models.WalletAnalysis{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// Upstream fakes

type fakeTransactions struct {
	txs   []types.Transaction
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeTransactions) FetchTransactions(ctx context.Context, address string, chain types.Blockchain, opts types.FetchOptions) ([]types.Transaction, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

type fakePrices struct {
	prices  types.CurrentPrices
	history []types.PricePoint
	err     error
}

func (f *fakePrices) GetCurrentPrices(ctx context.Context) (types.CurrentPrices, error) {
	return f.prices, f.err
}

func (f *fakePrices) GetCoinPrice(ctx context.Context, coin string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	p, ok := f.prices[coin]
	if !ok {
		return 0, fmt.Errorf("Price not available for %s", coin)
	}
	return p.USD, nil
}

func (f *fakePrices) GetHistoricalPrices(ctx context.Context, coin string, days int) ([]types.PricePoint, error) {
	return f.history, f.err
}

type fakeInsights struct {
	text         string
	err          error
	calls        int
	lastPayload  AIAnalysisPayload
	summaryCalls []float64
}

func (f *fakeInsights) GenerateInsights(ctx context.Context, data AIAnalysisPayload, prefs *models.InvestmentPreferences, chain types.Blockchain) (string, error) {
	f.calls++
	f.lastPayload = data
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeInsights) GenerateQuickSummary(ctx context.Context, profitLoss float64, chain types.Blockchain) (string, error) {
	f.summaryCalls = append(f.summaryCalls, profitLoss)
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSpace(f.text), nil
}

func intPtr(v int) *int { return &v }

func fullUpdate(v int) *models.PreferencesUpdate {
	return uniformPreferences(v).ToUpdate()
}
