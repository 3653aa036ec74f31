package game

import (
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// RequestStatus is a decryption request's state. Pending requests either
// resolve (result applied) or fail (proof rejected). Both are terminal;
// a failed request is never retried, it can only be superseded by a
// fresh request against the same batch.
type RequestStatus uint8

const (
	RequestPending RequestStatus = iota + 1
	RequestResolved
	RequestFailed
)

// String returns the status name for logs and API responses.
func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestResolved:
		return "resolved"
	case RequestFailed:
		return "failed"
	}
	return "unknown"
}

// DecryptionContext is the capability ticket for one decryption request.
// It references a batch but owns no copy of it: the committed snapshot is
// logical, re-derived by recomputation at callback time and compared
// against Commitment.
type DecryptionContext struct {
	RequestID    oracle.RequestID
	BatchID      uint64
	ModelVersion fhe.ModelVersion
	Commitment   Commitment

	// Processed flips false → true exactly once, when the result is
	// applied. Once true, no further match-count mutation may be
	// attributed to this request.
	Processed bool

	Status RequestStatus
}
