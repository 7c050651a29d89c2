package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/illarion/keepvault/internal/vault"
)

func TestRecordDiff_Identical(t *testing.T) {
	rec := vault.Record{ID: "1", Kind: vault.KindCredential, Name: "mail", Username: "alice"}

	require.Empty(t, RecordDiff(rec, rec, false))
}

func TestRecordDiff_FieldChange(t *testing.T) {
	before := vault.Record{ID: "1", Kind: vault.KindCredential, Name: "mail", Username: "alice", URL: "https://a"}
	after := before
	after.Username = "bob"

	diff := RecordDiff(before, after, false)
	require.Contains(t, diff, "-username: alice\n")
	require.Contains(t, diff, "+username: bob\n")
	require.Contains(t, diff, " url: https://a\n", "context line should be kept")
}

func TestRecordDiff_MasksSecrets(t *testing.T) {
	before := vault.Record{ID: "1", Kind: vault.KindCredential, Name: "mail", Password: "hunter2"}
	after := before
	after.Password = "hunter3"

	diff := RecordDiff(before, after, false)
	require.NotContains(t, diff, "hunter")
	require.Contains(t, diff, "+password: ******** (changed)\n")

	revealed := RecordDiff(before, after, true)
	require.Contains(t, revealed, "-password: hunter2\n")
	require.Contains(t, revealed, "+password: hunter3\n")
}

func TestFormatRecord(t *testing.T) {
	rec := vault.Record{ID: "1", Kind: vault.KindPaymentCard, Name: "visa", Number: "4111111111111111", CVV: "123"}

	out := FormatRecord(rec, false)
	require.NotContains(t, out, "4111")
	require.NotContains(t, out, "123\n")
	require.Contains(t, out, "kind: payment-card\n")
	require.Contains(t, out, "name: visa\n")
	require.NotContains(t, out, "username", "empty fields should be omitted")

	require.Contains(t, FormatRecord(rec, true), "number: 4111111111111111\n")
}
