package cli

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"ballot-backend/encryption"
	"ballot-backend/models"
)

// hashCmd and keygenCmd never touch the journal.
func hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute commitment and nullifier hashes offline",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "commitment <candidate> <salt>",
			Short: "keccak256(uint256 candidate || salt)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				candidate, err := parseID(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, encryption.CommitmentHash(candidate, args[1]))
			},
		},
		&cobra.Command{
			Use:   "nullifier <voter> <case> <salt>",
			Short: "keccak256(voter || uint256 case || salt)",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				voter, err := models.ParseIdentity(args[0])
				if err != nil {
					return err
				}
				caseID, err := parseID(args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, encryption.NullifierHash(voter, caseID, args[2]))
			},
		},
	)

	// the root pre-run loads configuration, which these do not need
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	return cmd
}

func keygenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 identity",
		Long: `keygen prints fresh credentials. With --out they are stored in a file
usable with --key; an existing file is loaded instead of overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				key *ecdsa.PrivateKey
				err error
			)
			if out != "" {
				key, _, err = encryption.LoadOrGenerateKey(out)
			} else {
				key, err = crypto.GenerateKey()
			}
			if err != nil {
				return err
			}

			return printJSON(cmd, encryption.NewCredentials(key))
		},
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	cmd.Flags().StringVar(&out, "out", "", "credentials file")

	return cmd
}
