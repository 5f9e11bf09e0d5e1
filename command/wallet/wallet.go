// Package wallet is the command line client of the simplewallet
// family.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/blockberries/simplewallet/client"
	tpgrpc "github.com/blockberries/simplewallet/grpc"
	"github.com/blockberries/simplewallet/signing"
	"github.com/blockberries/simplewallet/wallet"
	"github.com/spf13/cobra"
)

const (
	urlFlag     = "url"
	keyfileFlag = "keyfile"

	// DefaultURL is the validator the client talks to if --url is not set.
	DefaultURL = "tcp://127.0.0.1:4004"

	requestTimeout = 30 * time.Second
)

type walletParams struct {
	url     string
	keyfile string
}

// GetCommand returns the root command of the simplewallet client.
func GetCommand() *cobra.Command {
	params := &walletParams{}

	cmd := &cobra.Command{
		Use:           "simplewallet",
		Short:         "Deposit, withdraw and query a simplewallet balance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&params.url, urlFlag, DefaultURL,
		"the validator endpoint")
	cmd.PersistentFlags().StringVar(&params.keyfile, keyfileFlag, "",
		"the private key file; defaults to ~/.simplewallet/keys/<user>.priv")

	cmd.AddCommand(
		params.actionCommand(wallet.ActionDeposit, "Add an amount to the balance"),
		params.actionCommand(wallet.ActionWithdraw, "Remove an amount from the balance"),
		params.balanceCommand(),
		params.keygenCommand(),
	)

	return cmd
}

// DefaultKeyfile returns ~/.simplewallet/keys/<user>.priv.
func DefaultKeyfile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	u, err := user.Current()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".simplewallet", "keys", u.Username+".priv"), nil
}

func (p *walletParams) keyPath() (string, error) {
	if p.keyfile != "" {
		return p.keyfile, nil
	}

	return DefaultKeyfile()
}

// ParseAmount parses a command line amount with the same rules the
// processor applies to payloads.
func ParseAmount(action wallet.Action, arg string) (uint32, error) {
	payload, err := wallet.ParsePayload([]byte(string(action) + "," + arg))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", arg, err)
	}

	return payload.Amount, nil
}

func (p *walletParams) connect(ctx context.Context) (*client.Client, func(), error) {
	path, err := p.keyPath()
	if err != nil {
		return nil, nil, err
	}

	key, err := signing.LoadPrivateKey(path)
	if err != nil {
		return nil, nil, err
	}

	conn, err := tpgrpc.Dial(ctx, p.url)
	if err != nil {
		return nil, nil, err
	}

	return client.New(conn, signing.NewSigner(key)), func() { _ = conn.Close() }, nil
}

func (p *walletParams) actionCommand(action wallet.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <amount>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := ParseAmount(action, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			c, closeConn, err := p.connect(ctx)
			if err != nil {
				return err
			}
			defer closeConn()

			submit := c.Deposit
			if action == wallet.ActionWithdraw {
				submit = c.Withdraw
			}

			resp, err := submit(ctx, amount)
			if err != nil {
				return err
			}

			cmd.Printf("%s %d committed at version %d\n", action, amount, resp.Version)

			return nil
		},
	}
}

func (p *walletParams) balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the committed balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			c, closeConn, err := p.connect(ctx)
			if err != nil {
				return err
			}
			defer closeConn()

			balance, found, err := c.Balance(ctx)
			if err != nil {
				return err
			}

			if !found {
				return fmt.Errorf("no account at %s", c.Address())
			}

			cmd.Println(balance)

			return nil
		},
	}
}

func (p *walletParams) keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create a new key pair in the key file and <keyfile>.pub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := p.keyPath()
			if err != nil {
				return err
			}

			key, err := signing.GeneratePrivateKey()
			if err != nil {
				return err
			}

			if err := signing.WritePrivateKey(path, key); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("key file %s already exists", path)
				}

				return err
			}

			pub := key.PublicKey().Hex()
			cmd.Printf("wrote %s\npublic key: %s\naddress: %s\n", path, pub, wallet.DeriveAddress(pub))

			return nil
		},
	}
}
