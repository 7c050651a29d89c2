package vault_test

import (
	"context"
	"crypto/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/keepvault/internal/vault"
)

const testPassword = "CorrectHorseBatteryStaple"

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func noteRecord(id, name, notes string) vault.Record {
	return vault.Record{
		ID:        id,
		Kind:      vault.KindNote,
		Name:      name,
		Notes:     notes,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

func createVault(t *testing.T, records []vault.Record) (*vault.Service, *vault.Session, *vault.Envelope, vault.RecoveryCode) {
	t.Helper()

	svc := vault.NewService()
	sess, env, code, err := svc.Create(context.Background(), "u1", []byte(testPassword), records)
	require.NoError(t, err)
	return svc, sess, env, code
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	svc, sess, e0, c0 := createVault(t, nil)
	require.GreaterOrEqual(t, len(c0.String()), 32)

	s0, err := svc.UnlockWithPassword(ctx, e0, []byte(testPassword))
	require.NoError(t, err)
	recs, err := s0.Records()
	require.NoError(t, err)
	require.Empty(t, recs)

	note := noteRecord("a", "n", "secret")
	e1, err := sess.Save([]vault.Record{note})
	require.NoError(t, err)

	s1, err := svc.UnlockWithPassword(ctx, e1, []byte(testPassword))
	require.NoError(t, err)
	recs, err = s1.Records()
	require.NoError(t, err)
	require.Equal(t, []vault.Record{note}, recs)

	_, err = svc.UnlockWithPassword(ctx, e1, []byte("wrong"))
	require.ErrorIs(t, err, vault.ErrWrongSecret)

	r1, err := svc.UnlockWithRecoveryCode(ctx, e1, c0)
	require.NoError(t, err)
	require.Equal(t, vault.StateRecoveryInProgress, r1.State())
	recs, err = r1.Records()
	require.NoError(t, err)
	require.Equal(t, []vault.Record{note}, recs)

	_, e2, err := svc.ResetPassword(ctx, e1, c0, []byte("NewPass1!"))
	require.NoError(t, err)

	s2, err := svc.UnlockWithPassword(ctx, e2, []byte("NewPass1!"))
	require.NoError(t, err)
	recs, err = s2.Records()
	require.NoError(t, err)
	require.Equal(t, []vault.Record{note}, recs)

	_, err = svc.UnlockWithPassword(ctx, e2, []byte(testPassword))
	require.ErrorIs(t, err, vault.ErrWrongSecret)

	// recovery path survives the reset
	_, err = svc.UnlockWithRecoveryCode(ctx, e2, c0)
	require.NoError(t, err)

	// reset leaves the recovery wrap and the payload untouched
	require.Equal(t, e1.RecoveryWrap, e2.RecoveryWrap)
	require.Equal(t, e1.Data, e2.Data)
	require.Equal(t, e1.DataNonce, e2.DataNonce)
	require.NotEqual(t, e1.PasswordWrap, e2.PasswordWrap)
}

func TestRoundTrip(t *testing.T) {
	key := make([]byte, vault.MasterKeySize)
	for i := range key {
		key[i] = byte(i)
	}

	card := vault.Record{
		ID: "c", Kind: vault.KindPaymentCard, Name: "visa",
		Cardholder: "J Doe", Number: "4111111111111111", Expiry: "12/29", CVV: "123", PIN: "0000",
		CreatedAt: testTime, UpdatedAt: testTime.Add(time.Hour),
	}
	login := vault.Record{
		ID: "l", Kind: vault.KindCredential, Name: "mail",
		Username: "jd", Password: "p@ss", URL: "https://mail.example.com",
		CreatedAt: testTime, UpdatedAt: testTime,
	}

	for _, list := range [][]vault.Record{
		{},
		{noteRecord("a", "n", "secret")},
		{card, login, noteRecord("n", "ünïcødé", "line1\nline2")},
	} {
		nonce, ct, err := vault.EncryptRecords(list, key)
		require.NoError(t, err)

		got, err := vault.DecryptRecords(nonce, ct, key)
		require.NoError(t, err)
		require.Equal(t, list, got)
	}
}

func TestEncodeRecordsCanonical(t *testing.T) {
	rec := noteRecord("a", "n", "secret")

	b1, err := vault.EncodeRecords([]vault.Record{rec})
	require.NoError(t, err)
	b2, err := vault.EncodeRecords([]vault.Record{rec})
	require.NoError(t, err)
	require.Equal(t, b1, b2)
	require.Equal(t,
		`[{"id":"a","kind":"note","name":"n","notes":"secret","createdAt":"2024-03-01T12:00:00Z","updatedAt":"2024-03-01T12:00:00Z"}]`,
		string(b1))

	empty, err := vault.EncodeRecords(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(empty))
}

func TestDecodeRecordsRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`null`,
		`[{"id":"a","kind":"note","name":"n","bogus":1}]`,
		`[{"id":"a","kind":"unknown","name":"n"}]`,
		`[{"id":"a","kind":"note","name":"n"},{"id":"a","kind":"note","name":"m"}]`,
		`[] []`,
	} {
		_, err := vault.DecodeRecords([]byte(in))
		require.ErrorIs(t, err, vault.ErrCorruptData, in)
	}
}

func TestNonceUniqueness(t *testing.T) {
	_, sess, e0, _ := createVault(t, nil)

	seen := map[string]bool{string(e0.DataNonce): true}
	for i := 0; i < 20; i++ {
		env, err := sess.Save([]vault.Record{noteRecord("a", "n", "same")})
		require.NoError(t, err)
		require.False(t, seen[string(env.DataNonce)], "data nonce reused")
		seen[string(env.DataNonce)] = true
	}
}

func TestSavePreservesWraps(t *testing.T) {
	_, sess, e0, _ := createVault(t, nil)

	e1, err := sess.Save([]vault.Record{noteRecord("a", "n", "x")})
	require.NoError(t, err)
	require.Equal(t, e0.PasswordWrap, e1.PasswordWrap)
	require.Equal(t, e0.RecoveryWrap, e1.RecoveryWrap)
	require.Equal(t, e0.OwnerID, e1.OwnerID)
	require.NotEqual(t, e0.Data, e1.Data)
}

func TestTamperDetection(t *testing.T) {
	ctx := context.Background()
	svc, _, env, code := createVault(t, []vault.Record{noteRecord("a", "n", "secret")})

	flip := func(b []byte, i int) []byte {
		out := append([]byte(nil), b...)
		out[i] ^= 0x80
		return out
	}

	for i := range env.Data {
		if i%17 != 0 && i != len(env.Data)-1 {
			continue
		}
		bad := env.Clone()
		bad.Data = flip(env.Data, i)
		_, err := svc.UnlockWithPassword(ctx, bad, []byte(testPassword))
		require.ErrorIs(t, err, vault.ErrCorruptData)
		require.True(t, vault.IsUnlockFailure(err))
	}

	bad := env.Clone()
	bad.PasswordWrap.Ciphertext = flip(env.PasswordWrap.Ciphertext, 3)
	_, err := svc.UnlockWithPassword(ctx, bad, []byte(testPassword))
	require.ErrorIs(t, err, vault.ErrWrongSecret)

	bad = env.Clone()
	bad.RecoveryWrap.Ciphertext = flip(env.RecoveryWrap.Ciphertext, 0)
	_, err = svc.UnlockWithRecoveryCode(ctx, bad, code)
	require.ErrorIs(t, err, vault.ErrWrongSecret)

	bad = env.Clone()
	bad.PasswordWrap.Salt = flip(env.PasswordWrap.Salt, 5)
	_, err = svc.UnlockWithPassword(ctx, bad, []byte(testPassword))
	require.ErrorIs(t, err, vault.ErrWrongSecret)
}

func TestWrapsCannotBeSwapped(t *testing.T) {
	ctx := context.Background()
	svc, _, env, code := createVault(t, nil)

	swapped := env.Clone()
	swapped.PasswordWrap, swapped.RecoveryWrap = swapped.RecoveryWrap, swapped.PasswordWrap

	_, err := svc.UnlockWithPassword(ctx, swapped, code.Bytes())
	require.ErrorIs(t, err, vault.ErrWrongSecret)
}

func TestDualUnlockIndependence(t *testing.T) {
	ctx := context.Background()
	recs := []vault.Record{noteRecord("a", "n", "x"), noteRecord("b", "m", "y")}
	svc, _, env, code := createVault(t, recs)

	require.NotEqual(t, env.PasswordWrap.Salt, env.RecoveryWrap.Salt)

	bySecret, err := svc.UnlockWithPassword(ctx, env, []byte(testPassword))
	require.NoError(t, err)
	byCode, err := svc.UnlockWithRecoveryCode(ctx, env, vault.RecoveryCode(" "+lower(code.String())+" "))
	require.NoError(t, err)

	a, err := bySecret.Records()
	require.NoError(t, err)
	b, err := byCode.Records()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, recs, a)
}

func lower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 'a' - 'A'
		}
	}
	return string(out)
}

func TestRecoverySessionMustReset(t *testing.T) {
	ctx := context.Background()
	svc, _, env, code := createVault(t, nil)

	rs, err := svc.UnlockWithRecoveryCode(ctx, env, code)
	require.NoError(t, err)

	_, err = rs.Save(nil)
	require.ErrorIs(t, err, vault.ErrResetRequired)

	_, err = rs.CompleteReset([]byte("short"))
	require.ErrorIs(t, err, vault.ErrValidation)
	require.Equal(t, vault.StateRecoveryInProgress, rs.State())

	env2, err := rs.CompleteReset([]byte("another-password"))
	require.NoError(t, err)
	require.Equal(t, vault.StateUnlocked, rs.State())

	_, err = rs.Save([]vault.Record{noteRecord("a", "n", "x")})
	require.NoError(t, err)

	_, err = svc.UnlockWithPassword(ctx, env2, []byte("another-password"))
	require.NoError(t, err)

	_, err = rs.CompleteReset([]byte("yet-another-password"))
	require.ErrorIs(t, err, vault.ErrInvalidState)
}

func TestLockDiscardsKey(t *testing.T) {
	_, sess, _, _ := createVault(t, nil)

	sess.Lock()
	require.Equal(t, vault.StateLocked, sess.State())

	_, err := sess.Save(nil)
	require.ErrorIs(t, err, vault.ErrLocked)
	_, err = sess.Records()
	require.ErrorIs(t, err, vault.ErrLocked)

	sess.Lock()
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, sess, _, _ := createVault(t, nil)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := sess.Update(func(recs []vault.Record) ([]vault.Record, error) {
				return append(recs, noteRecord(string(rune('a'+i)), "n", "x")), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reopened, err := svc.UnlockWithPassword(ctx, sess.Envelope(), []byte(testPassword))
	require.NoError(t, err)
	recs, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, recs, writers)
}

func TestUpdateErrorLeavesStateUntouched(t *testing.T) {
	_, sess, e0, _ := createVault(t, nil)

	boom := errors.New("boom")
	_, err := sess.Update(func([]vault.Record) ([]vault.Record, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, e0, sess.Envelope())
}

func TestChangePasswordAndRotateRecovery(t *testing.T) {
	ctx := context.Background()
	svc, sess, _, oldCode := createVault(t, nil)

	env, err := sess.ChangePassword([]byte("changed-password"))
	require.NoError(t, err)
	_, err = svc.UnlockWithPassword(ctx, env, []byte("changed-password"))
	require.NoError(t, err)

	env, newCode, err := sess.RotateRecoveryCode()
	require.NoError(t, err)
	require.NotEqual(t, oldCode, newCode)

	_, err = svc.UnlockWithRecoveryCode(ctx, env, oldCode)
	require.ErrorIs(t, err, vault.ErrWrongSecret)
	_, err = svc.UnlockWithRecoveryCode(ctx, env, newCode)
	require.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	svc := vault.NewService()
	ctx := context.Background()

	_, _, _, err := svc.Create(ctx, "u1", []byte("short"), nil)
	var verr *vault.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "password", verr.Field)

	_, _, _, err = svc.Create(ctx, "", []byte(testPassword), nil)
	require.ErrorIs(t, err, vault.ErrValidation)

	_, _, _, err = svc.Create(ctx, "u1", []byte(testPassword), []vault.Record{{ID: "x", Kind: "bogus", Name: "n"}})
	require.ErrorIs(t, err, vault.ErrValidation)

	_, err = svc.UnlockWithPassword(ctx, &vault.Envelope{}, nil)
	require.ErrorIs(t, err, vault.ErrValidation)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestPrimitiveUnavailable(t *testing.T) {
	svc := vault.NewService(vault.WithRandom(failingReader{}))

	_, _, _, err := svc.Create(context.Background(), "u1", []byte(testPassword), nil)
	require.ErrorIs(t, err, vault.ErrPrimitiveUnavailable)
	require.False(t, vault.IsUnlockFailure(err))
}

// switchableReader serves crypto/rand until broken is set.
type switchableReader struct {
	broken atomic.Bool
}

func (r *switchableReader) Read(p []byte) (int, error) {
	if r.broken.Load() {
		return 0, errors.New("no entropy")
	}
	return rand.Read(p)
}

func TestFailedWritesLeaveSessionUntouched(t *testing.T) {
	ctx := context.Background()
	r := &switchableReader{}
	svc := vault.NewService(vault.WithRandom(r))

	original := []vault.Record{noteRecord("a", "n", "secret")}
	sess, _, code, err := svc.Create(ctx, "u1", []byte(testPassword), original)
	require.NoError(t, err)

	before, err := sess.Envelope().Encode()
	require.NoError(t, err)

	r.broken.Store(true)

	_, err = sess.Save([]vault.Record{noteRecord("b", "other", "x")})
	require.ErrorIs(t, err, vault.ErrPrimitiveUnavailable)

	_, err = sess.Update(func(records []vault.Record) ([]vault.Record, error) {
		return append(records, noteRecord("c", "more", "y")), nil
	})
	require.ErrorIs(t, err, vault.ErrPrimitiveUnavailable)

	_, err = sess.ChangePassword([]byte("another password"))
	require.ErrorIs(t, err, vault.ErrPrimitiveUnavailable)

	_, _, err = sess.RotateRecoveryCode()
	require.ErrorIs(t, err, vault.ErrPrimitiveUnavailable)

	after, err := sess.Envelope().Encode()
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))

	records, err := sess.Records()
	require.NoError(t, err)
	require.Equal(t, original, records)
	require.Equal(t, vault.StateUnlocked, sess.State())

	// The untouched envelope still opens with both original secrets.
	env := sess.Envelope()
	_, err = svc.UnlockWithPassword(ctx, env, []byte(testPassword))
	require.NoError(t, err)
	_, err = svc.UnlockWithRecoveryCode(ctx, env, code)
	require.NoError(t, err)
}

func TestCreateHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := vault.NewService().Create(ctx, "u1", []byte(testPassword), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEnvelopeWireFormat(t *testing.T) {
	_, _, env, _ := createVault(t, nil)

	blob, err := env.Encode()
	require.NoError(t, err)
	for _, key := range []string{
		`"userId":"u1"`, `"dataIV":`, `"data":`, `"wrappedKeySalt":`, `"wrappedKeyIV":`,
		`"wrappedKey":`, `"recoverySalt":`, `"recoveryIV":`, `"recoveryKey":`,
	} {
		require.Contains(t, string(blob), key)
	}

	decoded, err := vault.DecodeEnvelope(blob)
	require.NoError(t, err)
	require.Equal(t, env, decoded)

	_, err = vault.DecodeEnvelope([]byte(`{"userId":"u1"}`))
	require.ErrorIs(t, err, vault.ErrCorruptData)
	_, err = vault.DecodeEnvelope([]byte(`{`))
	require.ErrorIs(t, err, vault.ErrCorruptData)
}
