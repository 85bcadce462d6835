package model

// Resolution is the outcome of resolving a bearer credential.
// It is one of Resolved, Stale or Invalid; callers switch on the concrete type.
type Resolution interface {
	resolution()
}

// Resolved means the credential is valid and the account exists
type Resolved struct {
	Identity Identity
}

// Stale means the credential is well formed and unexpired but the account it
// names no longer exists
type Stale struct {
	AccountID UserID
}

// InvalidReason classifies why a credential was rejected
type InvalidReason string

const (
	InvalidReasonMalformed InvalidReason = "malformed"
	InvalidReasonUnknown   InvalidReason = "unknown"
	InvalidReasonExpired   InvalidReason = "expired"
)

// Invalid means the credential is missing, malformed, unknown or expired
type Invalid struct {
	Reason InvalidReason
}

func (Resolved) resolution() {}
func (Stale) resolution()    {}
func (Invalid) resolution()  {}
