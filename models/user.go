package models

// User is a venue account holder. ReferrerID links to the user whose
// referral code was supplied at registration (0 means none); it is an
// id-based weak reference, never an embedded object. Blocked users
// cannot place trades or request transactions.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ReferralCode string `json:"referralCode"`
	ReferrerID   int64  `json:"referrerId,omitempty"`
	Blocked      bool   `json:"blocked"`
}

// Balance holds one user's funds. Real starts at zero and never goes
// negative; demo is seeded by the engine configuration.
type Balance struct {
	Real float64 `json:"real"`
	Demo float64 `json:"demo"`
}
