// Package users keeps the venue's account holders. Referrals are
// resolved here: a new user may hand in another user's referral code,
// and the resulting link is stored as a plain id so the approval
// engine can pay commissions without holding object graphs.
package users

import (
	"math/rand"
	"strings"
	"sync"

	"options_venue/errs"
	"options_venue/models"
)

const referralCodeLen = 6

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Registry struct {
	mtx    sync.RWMutex
	users  map[int64]models.User
	nextID int64
	rng    *rand.Rand
}

func NewRegistry(rng *rand.Rand) *Registry {
	return &Registry{
		users:  make(map[int64]models.User),
		nextID: 1,
		rng:    rng,
	}
}

// Register creates a user. Email must be unique (case-insensitive);
// a supplied referral code must belong to an existing user.
func (r *Registry) Register(name, email, referralCode string) (models.User, error) {
	if name == "" || email == "" {
		return models.User{}, errs.Validationf("name and email are required")
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	emailLower := strings.ToLower(email)
	for _, u := range r.users {
		if strings.ToLower(u.Email) == emailLower {
			return models.User{}, errs.Validationf("an account with this email already exists")
		}
	}

	var referrerID int64
	if code := strings.TrimSpace(referralCode); code != "" {
		referrer, ok := r.byCodeLocked(code)
		if !ok {
			return models.User{}, errs.Validationf("invalid referral code")
		}
		referrerID = referrer.ID
	}

	user := models.User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		ReferralCode: r.newCodeLocked(),
		ReferrerID:   referrerID,
	}
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *Registry) Get(id int64) (models.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, errs.NotFoundf("user %d", id)
	}
	return u, nil
}

// ByReferralCode resolves a referral code to its owner.
func (r *Registry) ByReferralCode(code string) (models.User, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.byCodeLocked(strings.TrimSpace(code))
}

func (r *Registry) byCodeLocked(code string) (models.User, bool) {
	for _, u := range r.users {
		if u.ReferralCode == code {
			return u, true
		}
	}
	return models.User{}, false
}

// SetBlocked flips a user's block flag. Blocked users cannot place
// trades or request transactions.
func (r *Registry) SetBlocked(id int64, blocked bool) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	u, ok := r.users[id]
	if !ok {
		return errs.NotFoundf("user %d", id)
	}
	u.Blocked = blocked
	r.users[id] = u
	return nil
}

func (r *Registry) List() []models.User {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// Restore replaces the registry with a persisted snapshot.
func (r *Registry) Restore(users []models.User) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.users = make(map[int64]models.User, len(users))
	r.nextID = 1
	for _, u := range users {
		if u.ReferralCode == "" {
			u.ReferralCode = r.newCodeLocked()
		}
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
}

func (r *Registry) newCodeLocked() string {
	for {
		var b strings.Builder
		for i := 0; i < referralCodeLen; i++ {
			b.WriteByte(codeAlphabet[r.rng.Intn(len(codeAlphabet))])
		}
		code := b.String()
		if _, taken := r.byCodeLocked(code); !taken {
			return code
		}
	}
}
