package vault

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

// Envelope is the only persisted form of a vault. No field holds plaintext
// secret material.
type Envelope struct {
	OwnerID      string
	DataNonce    []byte
	Data         []byte
	PasswordWrap WrappedKey
	RecoveryWrap WrappedKey
}

// Clone returns a deep copy.
func (e *Envelope) Clone() *Envelope {
	return &Envelope{
		OwnerID:      e.OwnerID,
		DataNonce:    append([]byte(nil), e.DataNonce...),
		Data:         append([]byte(nil), e.Data...),
		PasswordWrap: e.PasswordWrap.Clone(),
		RecoveryWrap: e.RecoveryWrap.Clone(),
	}
}

// envelopeJSON is the wire format. encoding/json renders []byte as standard
// base64.
type envelopeJSON struct {
	UserID         string `json:"userId"`
	DataIV         []byte `json:"dataIV"`
	Data           []byte `json:"data"`
	WrappedKeySalt []byte `json:"wrappedKeySalt"`
	WrappedKeyIV   []byte `json:"wrappedKeyIV"`
	WrappedKey     []byte `json:"wrappedKey"`
	RecoverySalt   []byte `json:"recoverySalt"`
	RecoveryIV     []byte `json:"recoveryIV"`
	RecoveryKey    []byte `json:"recoveryKey"`
}

// MarshalJSON implements json.Marshaler.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		UserID:         e.OwnerID,
		DataIV:         e.DataNonce,
		Data:           e.Data,
		WrappedKeySalt: e.PasswordWrap.Salt,
		WrappedKeyIV:   e.PasswordWrap.Nonce,
		WrappedKey:     e.PasswordWrap.Ciphertext,
		RecoverySalt:   e.RecoveryWrap.Salt,
		RecoveryIV:     e.RecoveryWrap.Nonce,
		RecoveryKey:    e.RecoveryWrap.Ciphertext,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = Envelope{
		OwnerID:   w.UserID,
		DataNonce: w.DataIV,
		Data:      w.Data,
		PasswordWrap: WrappedKey{
			Salt:       w.WrappedKeySalt,
			Nonce:      w.WrappedKeyIV,
			Ciphertext: w.WrappedKey,
		},
		RecoveryWrap: WrappedKey{
			Salt:       w.RecoverySalt,
			Nonce:      w.RecoveryIV,
			Ciphertext: w.RecoveryKey,
		},
	}
	return nil
}

// Validate checks field presence and sizes. It never looks inside
// ciphertexts.
func (e *Envelope) Validate() error {
	switch {
	case e.OwnerID == "":
		return errors.Wrap(ErrCorruptData, "envelope has no owner")
	case len(e.DataNonce) != crypto.NonceSize:
		return errors.Wrap(ErrCorruptData, "bad data nonce size")
	case len(e.Data) < crypto.TagSize:
		return errors.Wrap(ErrCorruptData, "data too short")
	}

	for _, w := range []struct {
		name string
		key  WrappedKey
	}{{"password", e.PasswordWrap}, {"recovery", e.RecoveryWrap}} {
		if len(w.key.Salt) != crypto.SaltSize || len(w.key.Nonce) != crypto.NonceSize || len(w.key.Ciphertext) == 0 {
			return errors.Wrapf(ErrCorruptData, "malformed %s wrap", w.name)
		}
	}
	return nil
}

// Encode serializes the envelope to its persisted JSON form.
func (e *Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEnvelope parses and validates a persisted envelope.
func DecodeEnvelope(blob []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(blob, &e); err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
