package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kitties/internal/admin"
	jwttoken "kitties/internal/jwt_token"
	kittyhandler "kitties/internal/kitties/handler"
	"kitties/internal/kitties/models"
	ledgerhandler "kitties/internal/ledger/handler"
	id "kitties/pkg/domain"
)

// withClient resolves settings, builds a client and runs fn under the
// configured request timeout.
func withClient(v *viper.Viper, cmd *cobra.Command, fn func(ctx context.Context, c *client) error) error {
	s, err := resolve(v)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return fn(ctx, newClient(s))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <account>",
		Short: "Issue a development bearer token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := id.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			s, err := resolve(v)
			if err != nil {
				return err
			}
			token, err := jwttoken.NewJWTService(s.SigningKey, s.Issuer, s.Audience).GenerateAccessToken(account, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().String("signing-key", "", "HMAC key shared with the server")
	cmd.Flags().String("issuer", "", "token issuer")
	cmd.Flags().String("audience", "", "token audience")
	_ = v.BindPFlag("signing_key", cmd.Flags().Lookup("signing-key"))
	_ = v.BindPFlag("issuer", cmd.Flags().Lookup("issuer"))
	_ = v.BindPFlag("audience", cmd.Flags().Lookup("audience"))
	return cmd
}

func newMintCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mint",
		Short: "Mint a kitty with a random genome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out kittyhandler.KittyResponse
				if err := c.do(ctx, http.MethodPost, "/kitties", nil, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newBreedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "breed <parent-1> <parent-2>",
		Short: "Breed a kitty from two existing kitties",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p1, err := models.ParseKittyID(args[0])
			if err != nil {
				return err
			}
			p2, err := models.ParseKittyID(args[1])
			if err != nil {
				return err
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out kittyhandler.KittyResponse
				req := kittyhandler.BreedRequest{Parent1: &p1, Parent2: &p2}
				if err := c.do(ctx, http.MethodPost, "/kitties/breed", req, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newTransferCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <kitty-id> <new-owner>",
		Short: "Transfer an owned kitty to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kittyID, err := models.ParseKittyID(args[0])
			if err != nil {
				return err
			}
			newOwner, err := id.ParseAccountID(args[1])
			if err != nil {
				return err
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				path := fmt.Sprintf("/kitties/%d/transfer", kittyID)
				if err := c.do(ctx, http.MethodPost, path, kittyhandler.TransferRequest{NewOwner: newOwner}, nil); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "kitty %d transferred to %s\n", kittyID, newOwner)
				return err
			})
		},
	}
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kitty-id>",
		Short: "Show a kitty and its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kittyID, err := models.ParseKittyID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out kittyhandler.KittyResponse
				if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/kitties/%d", kittyID), nil, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newInventoryCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory <account>",
		Short: "List the kitties an account owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := id.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out kittyhandler.InventoryResponse
				if err := c.do(ctx, http.MethodGet, "/accounts/"+account.String()+"/kitties", nil, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newBalanceCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show the free and reserved balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := id.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out ledgerhandler.BalanceResponse
				if err := c.do(ctx, http.MethodGet, "/accounts/"+account.String()+"/balance", nil, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newDepositCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit <account> <amount>",
		Short: "Credit free collateral to an account (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := id.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			return withClient(v, cmd, func(ctx context.Context, c *client) error {
				var out admin.DepositResponse
				path := "/admin/accounts/" + account.String() + "/deposits"
				if err := c.do(ctx, http.MethodPost, path, admin.DepositRequest{Amount: &amount}, &out); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().String("admin-token", "", "operator token for admin routes")
	_ = v.BindPFlag("admin_token", cmd.Flags().Lookup("admin-token"))
	return cmd
}
