package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/utils"
)

type memAccount struct {
	Account
	hash string
}

// MemoryProvider keeps accounts in process memory.  It applies the same
// rules as MySQLProvider and backs the memory store driver.
type MemoryProvider struct {
	Users      *repository.UserRepo
	BcryptCost int

	mu      sync.Mutex
	byEmail map[string]*memAccount
}

func NewMemoryProvider(users *repository.UserRepo, cost int) *MemoryProvider {
	return &MemoryProvider{Users: users, BcryptCost: cost, byEmail: make(map[string]*memAccount)}
}

func (p *MemoryProvider) SignUp(ctx context.Context, email, password, displayName string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if err := checkPassword(password); err != nil {
		return Account{}, err
	}
	hash, err := utils.HashPassword(password, p.BcryptCost)
	if err != nil {
		return Account{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, taken := p.byEmail[email]; taken {
		return Account{}, ErrEmailAlreadyInUse
	}
	acc := Account{
		UID:         uuid.NewString(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.Users.Create(ctx, model.User{ID: acc.UID, Name: acc.DisplayName, Email: email}); err != nil {
		return Account{}, err
	}
	p.byEmail[email] = &memAccount{Account: acc, hash: hash}
	return acc, nil
}

func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	p.mu.Lock()
	a, ok := p.byEmail[email]
	var snapshot memAccount
	if ok {
		snapshot = *a
	}
	p.mu.Unlock()
	if !ok {
		return Account{}, ErrUserNotFound
	}
	a = &snapshot
	if a.Disabled {
		return Account{}, ErrUserDisabled
	}
	if !utils.VerifyPassword(a.hash, password) {
		return Account{}, ErrWrongPassword
	}
	return a.Account, nil
}

// SetDisabled blocks or unblocks sign-in for an account.
func (p *MemoryProvider) SetDisabled(_ context.Context, uid string, disabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.byEmail {
		if a.UID == uid {
			a.Disabled = disabled
			return nil
		}
	}
	return ErrUserNotFound
}
