package cli

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ballot-backend/encryption"
	"ballot-backend/models"
	"ballot-backend/service"
)

func (a *app) caseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Manage ethics-board cases",
	}

	cmd.AddCommand(
		a.caseCreateCmd(),
		a.caseVoteCmd(),
		a.caseResolveCmd(),
		a.caseShowCmd(),
		a.caseListCmd(),
	)

	return cmd
}

func (a *app) caseCreateCmd() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Open a yes/no case (board member only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				id, receipt, err := vs.CreateCase(ctx, caller, args[0], int64(duration/time.Second))
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"case_id": id, "receipt": receipt}, nil
			})
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 72*time.Hour, "voting window")

	return cmd
}

func parseApprove(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "approve", "true":
		return true, nil
	case "no", "n", "reject", "false":
		return false, nil
	default:
		return false, errors.Errorf("invalid decision %q: use yes or no", s)
	}
}

func (a *app) caseVoteCmd() *cobra.Command {
	var token, salt string

	cmd := &cobra.Command{
		Use:   "vote <case> <yes|no>",
		Short: "Vote on a case with a one-time token",
		Long: `vote needs an anti-replay token. Pass --token directly, or --salt to use
keccak256(caller || case || salt).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			approve, err := parseApprove(args[1])
			if err != nil {
				return err
			}

			if token == "" && salt == "" {
				return errors.New("one of --token or --salt is required")
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				var t common.Hash
				if token != "" {
					var err error
					if t, err = encryption.ParseHash(token); err != nil {
						return nil, err
					}
				} else {
					t = encryption.NullifierHash(caller, id, salt)
				}

				receipt, err := vs.SubmitVote(ctx, caller, id, approve, t)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"token": t, "receipt": receipt}, nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "anti-replay token (32 byte hex)")
	cmd.Flags().StringVar(&salt, "salt", "", "derive the token from caller, case and salt")

	return cmd
}

func (a *app) caseResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <case>",
		Short: "Record the outcome after the deadline (board member only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				if _, err := vs.ResolveCase(ctx, caller, id); err != nil {
					return nil, err
				}
				return vs.GetCase(id)
			})
		},
	}
}

func (a *app) caseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <case>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.GetCase(id)
			})
		},
	}
}

func (a *app) caseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.Cases(), nil
			})
		},
	}
}
