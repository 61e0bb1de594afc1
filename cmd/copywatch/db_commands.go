package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/copywatch/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func listTradesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-trades",
		Usage:   "List recorded trades",
		Aliases: []string{"trades"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Filter by wallet address",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of trades",
				Value:   50,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			trades, err := store.ListTrades(context.Background(), db.ListTradesParams{
				WalletAddress: c.String("wallet"),
				Limit:         int32(c.Int("limit")),
			})
			if err != nil {
				return fmt.Errorf("failed to list trades: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(trades)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tWALLET\tSIDE\tMINT\tTOKENS\tSOL\tPRICE\tDEX")
			for _, t := range trades {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.6f\t%.6f\t%.9f\t%s\n",
					t.BlockTime.Format(time.RFC3339),
					shortAddress(t.WalletAddress),
					t.Direction,
					shortAddress(t.TokenMint),
					t.TokenAmount,
					t.SolAmount,
					t.Price,
					t.DexName,
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d trades\n", len(trades))
			return nil
		},
	}
}

func positionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "positions",
		Usage:     "Show per-mint positions derived from a wallet's trades",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			positions, err := store.GetPositions(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get positions: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(positions)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MINT\tNET AMOUNT\tSOL SPENT\tSOL RECEIVED\tTRADES\tLAST TRADE")
			for _, p := range positions {
				fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%d\t%s\n",
					p.TokenMint,
					p.NetAmount,
					p.SolSpent,
					p.SolReceived,
					p.TradeCount,
					p.LastTradeAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d positions\n", len(positions))
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show headline aggregates for a wallet",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			stats, err := store.GetWalletStats(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get wallet stats: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(stats)
			}

			fmt.Printf("Wallet:       %s\n", address)
			fmt.Printf("Trades:       %d (%d buys, %d sells)\n", stats.TradeCount, stats.BuyCount, stats.SellCount)
			fmt.Printf("SOL Volume:   %.6f\n", stats.SolVolume)
			if stats.FirstTradeAt != nil {
				fmt.Printf("First Trade:  %s\n", stats.FirstTradeAt.Format(time.RFC3339))
			} else {
				fmt.Printf("First Trade:  never\n")
			}
			if stats.LastTradeAt != nil {
				fmt.Printf("Last Trade:   %s\n", stats.LastTradeAt.Format(time.RFC3339))
			} else {
				fmt.Printf("Last Trade:   never\n")
			}
			return nil
		},
	}
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortAddress abbreviates long base58 addresses for table output.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}
