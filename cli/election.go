package cli

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ballot-backend/encryption"
	"ballot-backend/models"
	"ballot-backend/service"
)

func (a *app) electionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "election",
		Short: "Manage candidate elections",
	}

	cmd.AddCommand(
		a.electionCreateCmd(),
		a.electionAddCandidateCmd(),
		a.electionPhaseCmd("start", "Open an election for votes", (*service.VotingService).StartVoting),
		a.electionPhaseCmd("end", "Close direct voting and allow reveals", (*service.VotingService).EndVoting),
		a.electionVoteCmd(),
		a.electionCommitCmd(),
		a.electionRevealCmd(),
		a.electionResultsCmd(),
		a.electionListCmd(),
	)

	return cmd
}

func (a *app) electionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create an election (administrator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				id, receipt, err := vs.CreateElection(ctx, caller, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"election_id": id, "receipt": receipt}, nil
			})
		},
	}
}

func (a *app) electionAddCandidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-candidate <election> <name>",
		Short: "Add a candidate before voting starts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return vs.AddCandidate(ctx, caller, id, args[1])
			})
		},
	}
}

type phaseFunc func(*service.VotingService, context.Context, models.Identity, uint64) (*models.Receipt, error)

func (a *app) electionPhaseCmd(use, short string, f phaseFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <election>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return f(vs, ctx, caller, id)
			})
		},
	}
}

func (a *app) electionVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <election> <candidate>",
		Short: "Cast a direct vote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			candidate, err := parseID(args[1])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return vs.Vote(ctx, caller, id, candidate)
			})
		},
	}
}

func (a *app) electionCommitCmd() *cobra.Command {
	var salt, commitment string

	cmd := &cobra.Command{
		Use:   "commit <election> [candidate]",
		Short: "Commit to a hidden choice",
		Long: `commit stores keccak256(candidate || salt). Pass the candidate and an
optional --salt to have the hash computed locally, or --commitment with a
precomputed hash. Keep the salt: it is needed to reveal.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var hash common.Hash
			switch {
			case commitment != "":
				if hash, err = encryption.ParseHash(commitment); err != nil {
					return err
				}
			case len(args) == 2:
				candidate, err := parseID(args[1])
				if err != nil {
					return err
				}
				if salt == "" {
					if salt, err = encryption.GenerateSalt(); err != nil {
						return err
					}
				}
				hash = encryption.CommitmentHash(candidate, salt)
			default:
				return errors.New("pass a candidate or --commitment")
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				receipt, err := vs.CommitVote(ctx, caller, id, hash)
				if err != nil {
					return nil, err
				}
				out := map[string]interface{}{"commitment": hash, "receipt": receipt}
				if salt != "" {
					out["salt"] = salt
				}
				return out, nil
			})
		},
	}

	cmd.Flags().StringVar(&salt, "salt", "", "salt; a random one is generated when empty")
	cmd.Flags().StringVar(&commitment, "commitment", "", "precomputed commitment hash")

	return cmd
}

func (a *app) electionRevealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <election> <candidate> <salt>",
		Short: "Reveal a committed choice and count it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			candidate, err := parseID(args[1])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return vs.RevealVote(ctx, caller, id, candidate, args[2])
			})
		},
	}
}

func (a *app) electionResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <election>",
		Short: "Show candidate names, counts and winners",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.ElectionResults(id)
			})
		},
	}
}

func (a *app) electionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every election",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.Elections(), nil
			})
		},
	}
}
