package vault

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

// State is the lifecycle state of a vault as seen by one session.
type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
	StateRecoveryInProgress
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	case StateRecoveryInProgress:
		return "recovery-in-progress"
	}
	return "unknown"
}

// UpdateFunc receives a copy of the current records and returns the new list.
type UpdateFunc func(records []Record) ([]Record, error)

// Session owns the resident master key of one unlocked vault. All writes go
// through its mutex.
type Session struct {
	svc *Service

	mu      sync.Mutex
	state   State
	key     []byte
	records []Record
	env     *Envelope
}

func newSession(svc *Service, state State, key []byte, records []Record, env *Envelope) *Session {
	return &Session{
		svc:     svc,
		state:   state,
		key:     key,
		records: records,
		env:     env,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OwnerID returns the owner of the vault.
func (s *Session) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.OwnerID
}

// Envelope returns a copy of the latest envelope produced or opened by this
// session.
func (s *Session) Envelope() *Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env.Clone()
}

// Records returns a copy of the decrypted records.
func (s *Session) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateLocked {
		return nil, ErrLocked
	}
	return cloneRecords(s.records), nil
}

// Save re-encrypts the full record list under a fresh nonce and returns the
// replacement envelope. Both wraps are carried over unchanged.
func (s *Session) Save(records []Record) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(records)
}

// Update applies fn to the current records and saves the result as one
// atomic step, so concurrent updates cannot drop each other.
func (s *Session) Update(fn UpdateFunc) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return nil, err
	}

	next, err := fn(cloneRecords(s.records))
	if err != nil {
		return nil, err
	}
	return s.saveLocked(next)
}

// CompleteReset finishes a recovery by wrapping the master key under
// newPassword. Only valid in RecoveryInProgress.
func (s *Session) CompleteReset(newPassword []byte) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLocked:
		return nil, ErrLocked
	case StateRecoveryInProgress:
	default:
		return nil, errors.Wrap(ErrInvalidState, "no recovery in progress")
	}

	env, err := s.rewrapPasswordLocked(newPassword)
	if err != nil {
		return nil, err
	}
	s.state = StateUnlocked
	s.svc.log.Infow("password reset via recovery code", "owner", env.OwnerID)
	return env, nil
}

// ChangePassword replaces the password wrap from an unlocked session.
func (s *Session) ChangePassword(newPassword []byte) (*Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return nil, err
	}
	return s.rewrapPasswordLocked(newPassword)
}

// RotateRecoveryCode issues a new recovery code and replaces the recovery
// wrap, invalidating the previous code. Password resets never do this
// implicitly.
func (s *Session) RotateRecoveryCode() (*Envelope, RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return nil, "", err
	}

	code, err := generateRecoveryCode(s.svc.rand)
	if err != nil {
		return nil, "", err
	}

	secret := code.Bytes()
	defer crypto.ClearBytes(secret)

	w, err := wrapKey(s.svc.rand, s.key, secret, RoleRecovery)
	if err != nil {
		return nil, "", err
	}

	next := s.env.Clone()
	next.RecoveryWrap = w
	s.env = next

	s.svc.log.Infow("recovery code rotated", "owner", next.OwnerID)
	return next.Clone(), code, nil
}

// Lock zeroes the master key and drops the decrypted records. The persisted
// envelope is not touched. Lock is idempotent.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	crypto.ClearBytes(s.key)
	s.key = nil
	s.records = nil
	s.state = StateLocked
}

func (s *Session) writableLocked() error {
	switch s.state {
	case StateUnlocked:
		return nil
	case StateLocked:
		return ErrLocked
	case StateRecoveryInProgress:
		return ErrResetRequired
	}
	return ErrInvalidState
}

func (s *Session) saveLocked(records []Record) (*Envelope, error) {
	if err := s.writableLocked(); err != nil {
		return nil, err
	}
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}

	records = cloneRecords(records)
	nonce, ciphertext, err := encryptRecords(s.svc.rand, records, s.key)
	if err != nil {
		return nil, err
	}

	next := s.env.Clone()
	next.DataNonce = nonce
	next.Data = ciphertext

	s.env = next
	s.records = records

	s.svc.log.Debugw("vault saved", "owner", next.OwnerID, "records", len(records))
	return next.Clone(), nil
}

func (s *Session) rewrapPasswordLocked(newPassword []byte) (*Envelope, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	w, err := wrapKey(s.svc.rand, s.key, newPassword, RolePassword)
	if err != nil {
		return nil, err
	}

	next := s.env.Clone()
	next.PasswordWrap = w
	s.env = next
	return next.Clone(), nil
}
