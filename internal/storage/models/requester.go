package models

// KYCStatus is the identity verification state of a registered requester.
type KYCStatus string

const (
	KYCNone     KYCStatus = "none"
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// Requester is the identity record used for eligibility checks.
type Requester struct {
	ID        string    `json:"id"`
	KYCStatus KYCStatus `json:"kyc_status"`
	Blocked   bool      `json:"blocked"`
}

// CanPickup reports whether the requester may collect a unit in person.
func (r *Requester) CanPickup() bool {
	return r.KYCStatus == KYCVerified && !r.Blocked
}

// GuestInfo is the contact detail of a requester without an account.
type GuestInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// RequesterRef identifies who is booking: a registered user or a guest.
type RequesterRef struct {
	UserID string     `json:"user_id,omitempty"`
	Guest  *GuestInfo `json:"guest,omitempty"`
}

// IsGuest reports whether the requester has no account.
func (r RequesterRef) IsGuest() bool {
	return r.UserID == ""
}
