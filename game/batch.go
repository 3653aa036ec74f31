package game

import (
	"github.com/mming1274-7/True-Name-RPG-FHE/crypto"
	"github.com/mming1274-7/True-Name-RPG-FHE/fhe"
	"github.com/mming1274-7/True-Name-RPG-FHE/oracle"
)

// BatchStatus is a batch's lifecycle state. Transitions are monotonic:
// Open → Closed → DecryptionRequested → Resolved, never backward.
type BatchStatus uint8

const (
	StatusOpen BatchStatus = iota + 1
	StatusClosed
	StatusDecryptionRequested
	StatusResolved
)

// String returns the status name for logs and API responses.
func (s BatchStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusDecryptionRequested:
		return "decryption_requested"
	case StatusResolved:
		return "resolved"
	}
	return "unknown"
}

// Guess is one participant's encrypted guess.
type Guess struct {
	Participant crypto.PublicKey
	Ciphertext  fhe.Ciphertext
}

// guessBook is an ordered associative container: O(1) lookup by
// participant and stable first-insertion iteration order in one
// structure. Resubmission overwrites the ciphertext in place without
// moving the participant's position.
type guessBook struct {
	index   map[string]int
	entries []Guess
}

func newGuessBook() *guessBook {
	return &guessBook{index: make(map[string]int)}
}

// Len returns the number of distinct participants.
func (b *guessBook) Len() int {
	return len(b.entries)
}

// Has reports whether the participant already holds a guess.
func (b *guessBook) Has(participant crypto.PublicKey) bool {
	_, ok := b.index[participant.String()]
	return ok
}

// Put inserts or overwrites the participant's guess, preserving their
// original insertion position.
func (b *guessBook) Put(participant crypto.PublicKey, ct fhe.Ciphertext) {
	key := participant.String()
	if i, ok := b.index[key]; ok {
		b.entries[i].Ciphertext = ct
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Guess{Participant: participant, Ciphertext: ct})
}

// Entries returns the guesses in first-insertion order. The returned
// slice is the book's backing storage; callers must not mutate it.
func (b *guessBook) Entries() []Guess {
	return b.entries
}

// Batch groups one encrypted secret with a bounded set of encrypted
// guesses, resolved together as a unit.
type Batch struct {
	ID           uint64
	Status       BatchStatus
	ModelVersion fhe.ModelVersion
	Opener       crypto.PublicKey
	Secret       fhe.Ciphertext
	MatchCount   int
	Resolved     bool

	guesses *guessBook

	// pendingRequest is the id of the outstanding decryption request,
	// empty when none is pending. Cleared on resolution and on
	// verification failure so a fresh request can supersede.
	pendingRequest oracle.RequestID
}

func newBatch(id uint64, opener crypto.PublicKey, version fhe.ModelVersion) *Batch {
	return &Batch{
		ID:           id,
		Status:       StatusOpen,
		ModelVersion: version,
		Opener:       opener,
		guesses:      newGuessBook(),
	}
}

// GuessCount returns the number of distinct participants with a guess.
func (b *Batch) GuessCount() int {
	return b.guesses.Len()
}

// Guesses returns the guesses in first-insertion order.
func (b *Batch) Guesses() []Guess {
	return b.guesses.Entries()
}
