package vault

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

// recordsAD is bound to every record payload so it cannot be confused with a
// wrapped key.
var recordsAD = []byte("keepvault/records")

// EncodeRecords produces the canonical byte encoding of records: a JSON array
// with fields in declaration order. A nil list encodes as an empty array.
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// DecodeRecords parses the canonical encoding. Unknown fields and invalid
// records are rejected.
func DecodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	if dec.More() {
		return nil, errors.Wrap(ErrCorruptData, "trailing data after record list")
	}
	if records == nil {
		return nil, errors.Wrap(ErrCorruptData, "record list missing")
	}
	if err := ValidateRecords(records); err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}

	return records, nil
}

// EncryptRecords encrypts the record list under masterKey with a fresh random
// nonce.
func EncryptRecords(records []Record, masterKey []byte) (nonce, ciphertext []byte, err error) {
	return encryptRecords(rand.Reader, records, masterKey)
}

func encryptRecords(r io.Reader, records []Record, masterKey []byte) (nonce, ciphertext []byte, err error) {
	plaintext, err := EncodeRecords(records)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode records")
	}
	defer crypto.ClearBytes(plaintext)

	// The encryptor borrows masterKey and must not destroy it.
	enc, err := crypto.NewEncryptorWithRand(masterKey, r)
	if err != nil {
		return nil, nil, err
	}

	nonce, ciphertext, err = enc.Seal(plaintext, recordsAD)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encrypt records")
	}

	return nonce, ciphertext, nil
}

// DecryptRecords authenticates and decrypts a record payload. Any failure is
// reported as ErrCorruptData.
func DecryptRecords(nonce, ciphertext, masterKey []byte) ([]Record, error) {
	enc, err := crypto.NewEncryptor(masterKey)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}

	plaintext, err := enc.Open(nonce, ciphertext, recordsAD)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptData, err.Error())
	}
	defer crypto.ClearBytes(plaintext)

	return DecodeRecords(plaintext)
}
