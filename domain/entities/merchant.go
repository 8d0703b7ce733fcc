package entities

import "time"

// MerchantStatus is the enrollment state of a merchant. Only approved
// merchants can issue bills.
type MerchantStatus string

const (
	MerchantStatusPending   MerchantStatus = "pending"
	MerchantStatusApproved  MerchantStatus = "approved"
	MerchantStatusRejected  MerchantStatus = "rejected"
	MerchantStatusSuspended MerchantStatus = "suspended"
	MerchantStatusCancelled MerchantStatus = "cancelled"
)

// ValidMerchantStatus reports whether s is a known status value.
func ValidMerchantStatus(s MerchantStatus) bool {
	switch s {
	case MerchantStatusPending, MerchantStatusApproved, MerchantStatusRejected,
		MerchantStatusSuspended, MerchantStatusCancelled:
		return true
	}
	return false
}

// Merchant is an enrolled merchant account. InfoID points at the off-chain
// merchant profile.
type Merchant struct {
	Account   string         `db:"account"`
	InfoID    string         `db:"info_id"`
	Status    MerchantStatus `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// IsApproved reports whether the merchant may create bills.
func (m *Merchant) IsApproved() bool {
	return m.Status == MerchantStatusApproved
}
