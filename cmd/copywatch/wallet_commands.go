package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/copywatch/client"
	"github.com/urfave/cli/v2"
)

func registerWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "Register a wallet for monitoring",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Human-readable label for the wallet",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			cl := getAPIClient(c)

			wallet, err := cl.Register(context.Background(), address, c.String("label"))
			if err != nil {
				return fmt.Errorf("failed to register wallet: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(wallet)
			}

			fmt.Printf("Wallet registered\n")
			fmt.Printf("Address:  %s\n", wallet.Address)
			if wallet.Label != "" {
				fmt.Printf("Label:    %s\n", wallet.Label)
			}
			fmt.Printf("Watching: %t\n", wallet.Watching)
			return nil
		},
	}
}

func unregisterWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "unregister",
		Usage:     "Stop monitoring a wallet",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			cl := getAPIClient(c)

			if err := cl.Unregister(context.Background(), address); err != nil {
				return fmt.Errorf("failed to unregister wallet: %w", err)
			}

			if !c.Bool("json") {
				fmt.Printf("Wallet %s unregistered\n", address)
			}
			return nil
		},
	}
}

func listWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List all watched wallets",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			cl := getAPIClient(c)

			wallets, err := cl.List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(wallets)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tLABEL\tWATCHING\tCREATED")
			for _, wallet := range wallets {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					wallet.Address,
					wallet.Label,
					wallet.Watching,
					wallet.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d wallets\n", len(wallets))
			return nil
		},
	}
}

// getAPIClient builds an API client from the global server-url flag.
func getAPIClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return client.NewClient(c.String("server-url"), nil, logger)
}
