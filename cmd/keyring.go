package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/keyring"
)

func newKeyringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the password cached in the OS keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Verify the password and store it in the OS keyring",
			Args:  cobra.NoArgs,
			RunE:  keyringSave,
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored password",
			Args:  cobra.NoArgs,
			RunE:  keyringDelete,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a password is stored",
			Args:  cobra.NoArgs,
			RunE:  keyringStatus,
		},
	)
	return cmd
}

func keyringSave(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	password, err := getPassword("Enter password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	stop := startSpinner("Verifying password...")
	err = m.VerifyPassword(cmd.Context(), password)
	stop()
	if err != nil {
		return err
	}

	if err := keyring.SavePassword(m.KeyringAccount(), string(password)); err != nil {
		return errors.Wrap(err, "failed to save to keyring")
	}

	printSuccess(cmd.OutOrStdout(), "Password saved to keyring")
	return nil
}

func keyringDelete(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := keyring.DeletePassword(m.KeyringAccount()); err != nil {
		return errors.Wrap(err, "failed to delete from keyring")
	}

	printSuccess(cmd.OutOrStdout(), "Password removed from keyring")
	return nil
}

func keyringStatus(cmd *cobra.Command, args []string) error {
	m, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	if keyring.HasPassword(m.KeyringAccount()) {
		fmt.Fprintln(cmd.OutOrStdout(), "Password: stored in keyring")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Password: not stored")
	}
	return nil
}
