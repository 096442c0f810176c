package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ballot-backend/config"
	"ballot-backend/encryption"
	"ballot-backend/models"
	"ballot-backend/service"
)

func (a *app) initCmd() *cobra.Command {
	var genesisFile string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the genesis entry of a new journal",
		Long: `init seeds the role sets. With --genesis the sets come from a YAML file;
without it an administrator key is generated under the data directory and
its address becomes the only administrator and board member.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.genesis(genesisFile)
			if err != nil {
				return err
			}

			return a.query(cmd, func(ctx context.Context, vs *service.VotingService) (interface{}, error) {
				receipt, err := vs.Initialize(ctx, g)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"receipt": receipt,
					"genesis": g,
				}, nil
			})
		},
	}

	cmd.Flags().StringVar(&genesisFile, "genesis", "", "genesis YAML file")

	return cmd
}

func (a *app) genesis(path string) (models.Genesis, error) {
	if path != "" {
		return config.LoadGenesis(path)
	}

	if err := os.MkdirAll(a.cfg.DataDir, 0755); err != nil {
		return models.Genesis{}, errors.Wrap(err, "failed to create data directory")
	}

	key, created, err := encryption.LoadOrGenerateKey(a.adminKeyPath())
	if err != nil {
		return models.Genesis{}, err
	}

	admin := encryption.Address(key)
	if created {
		a.log.Log().Info().Str("address", admin.Hex()).Str("path", a.adminKeyPath()).Msg("generated administrator key")
	}

	return models.Genesis{
		Administrators: []models.Identity{admin},
		BoardMembers:   []models.Identity{admin},
	}, nil
}

func (a *app) registerVoterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register-voter <address>",
		Short: "Register an eligible voter (administrator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			voter, err := models.ParseIdentity(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return vs.RegisterVoter(ctx, caller, voter)
			})
		},
	}
}

func (a *app) verifyVoterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-voter <address>",
		Short: "Grant case voting rights (board member only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			voter, err := models.ParseIdentity(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd, func(ctx context.Context, caller models.Identity, vs *service.VotingService) (interface{}, error) {
				return vs.VerifyVoter(ctx, caller, voter)
			})
		},
	}
}

func (a *app) rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles [address]",
		Short: "Show the roles of one identity, or every role set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
					return map[string]interface{}{
						"administrators": vs.Administrators(),
						"board_members":  vs.BoardMembers(),
						"voters":         vs.Voters(),
					}, nil
				})
			}

			id, err := models.ParseIdentity(args[0])
			if err != nil {
				return err
			}

			return a.query(cmd, func(_ context.Context, vs *service.VotingService) (interface{}, error) {
				return vs.Roles(id), nil
			})
		},
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid id %q", s)
	}
	return id, nil
}
