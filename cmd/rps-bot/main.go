package main

import (
	"context"
	"ctchen222/rps-arena/internal/bot"
	"ctchen222/rps-arena/internal/config"
	"ctchen222/rps-arena/internal/logger"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rps-bot [name]",
	Short: "Connect a bot to an rps-arena server",
	Long: `rps-bot connects to an arena, registers under the given name and plays
every battle it is put in with the chosen strategy until the server shuts
down.

Strategies: rock, paper, scissor, cycle, random, beat.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		strategyName, _ := cmd.Flags().GetString("strategy")
		level, _ := cmd.Flags().GetString("log-level")
		logger.Init(config.LogConfig{Level: level, Format: "text"})

		strategy, err := bot.StrategyFor(strategyName)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := bot.Dial(ctx, addr, args[0], strategy)
		if err != nil {
			return err
		}
		defer c.Close()

		err = c.Play(ctx)
		st := c.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "battles: %d (aborted %d)  rounds: %d  won: %d  lost: %d  tied: %d\n",
			st.Battles, st.Aborted, st.Rounds, st.Wins, st.Losses, st.Ties)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.Flags().String("addr", "localhost:4321", "arena address")
	rootCmd.Flags().String("strategy", "random", "move strategy")
	rootCmd.Flags().String("log-level", "info", "debug, info, warn or error")
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
