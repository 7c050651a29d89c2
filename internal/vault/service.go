package vault

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/illarion/keepvault/internal/crypto"
)

// Service composes key derivation, key wrapping and the record codec into the
// vault lifecycle. It holds no per-vault state; every unlocked vault is a
// Session.
type Service struct {
	rand io.Reader
	log  *zap.SugaredLogger
}

// Option configures a Service.
type Option func(*Service)

// WithRandom overrides the source of keys, salts and nonces. It must be a
// cryptographically secure source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.rand = r }
}

// WithLogger sets the logger. Secrets are never logged.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		rand: rand.Reader,
		log:  zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create builds a new vault for ownerID. The returned recovery code is not
// retained anywhere; the caller shows it once and discards it.
func (s *Service) Create(ctx context.Context, ownerID string, password []byte, records []Record) (*Session, *Envelope, RecoveryCode, error) {
	if err := validateOwner(ownerID); err != nil {
		return nil, nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, "", err
	}
	if err := ValidateRecords(records); err != nil {
		return nil, nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, "", err
	}

	start := time.Now()

	masterKey, err := crypto.ReadRandom(s.rand, MasterKeySize)
	if err != nil {
		return nil, nil, "", errors.Wrap(err, "failed to generate master key")
	}

	code, err := generateRecoveryCode(s.rand)
	if err != nil {
		crypto.ClearBytes(masterKey)
		return nil, nil, "", err
	}

	// The two derivations are independent and slow; run them side by side.
	var passwordWrap, recoveryWrap WrappedKey
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		w, err := wrapKey(s.rand, masterKey, password, RolePassword)
		passwordWrap = w
		return errors.Wrap(err, "password wrap")
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		w, err := wrapKey(s.rand, masterKey, code.Bytes(), RoleRecovery)
		recoveryWrap = w
		return errors.Wrap(err, "recovery wrap")
	})
	if err := g.Wait(); err != nil {
		crypto.ClearBytes(masterKey)
		return nil, nil, "", err
	}

	records = cloneRecords(records)
	nonce, ciphertext, err := encryptRecords(s.rand, records, masterKey)
	if err != nil {
		crypto.ClearBytes(masterKey)
		return nil, nil, "", err
	}

	env := &Envelope{
		OwnerID:      ownerID,
		DataNonce:    nonce,
		Data:         ciphertext,
		PasswordWrap: passwordWrap,
		RecoveryWrap: recoveryWrap,
	}

	s.log.Debugw("vault created", "owner", ownerID, "records", len(records), "elapsed", time.Since(start))

	return newSession(s, StateUnlocked, masterKey, records, env), env.Clone(), code, nil
}

// UnlockWithPassword opens env with the owner's password.
func (s *Service) UnlockWithPassword(ctx context.Context, env *Envelope, password []byte) (*Session, error) {
	if err := requireSecret("password", password); err != nil {
		return nil, err
	}
	return s.unlock(ctx, env, env.PasswordWrap, password, RolePassword, StateUnlocked)
}

// UnlockWithRecoveryCode opens env with the recovery code. The session is in
// RecoveryInProgress and must complete a password reset before it can write.
func (s *Service) UnlockWithRecoveryCode(ctx context.Context, env *Envelope, code RecoveryCode) (*Session, error) {
	secret := code.Bytes()
	defer crypto.ClearBytes(secret)

	if err := requireSecret("recovery code", secret); err != nil {
		return nil, err
	}
	return s.unlock(ctx, env, env.RecoveryWrap, secret, RoleRecovery, StateRecoveryInProgress)
}

// ResetPassword recovers the master key with code and re-wraps it under
// newPassword. The recovery wrap and the record payload are left untouched.
func (s *Service) ResetPassword(ctx context.Context, env *Envelope, code RecoveryCode, newPassword []byte) (*Session, *Envelope, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return nil, nil, err
	}

	sess, err := s.UnlockWithRecoveryCode(ctx, env, code)
	if err != nil {
		return nil, nil, err
	}

	next, err := sess.CompleteReset(newPassword)
	if err != nil {
		sess.Lock()
		return nil, nil, err
	}
	return sess, next, nil
}

func (s *Service) unlock(ctx context.Context, env *Envelope, w WrappedKey, secret []byte, role WrapRole, state State) (*Session, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	masterKey, err := UnwrapKey(w, secret, role)
	if err != nil {
		s.log.Debugw("unlock failed", "owner", env.OwnerID, "role", role)
		return nil, err
	}

	records, err := DecryptRecords(env.DataNonce, env.Data, masterKey)
	if err != nil {
		crypto.ClearBytes(masterKey)
		s.log.Warnw("record payload failed to decrypt", "owner", env.OwnerID)
		return nil, err
	}

	s.log.Debugw("vault unlocked", "owner", env.OwnerID, "role", role, "records", len(records), "elapsed", time.Since(start))

	return newSession(s, state, masterKey, records, env.Clone()), nil
}
