package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	inputredis "authwatch/internal/input/redis"
	"authwatch/internal/loggen"
)

var (
	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic sshd auth logs with attack traffic",
		RunE:  runGenerate,
	}

	generateEntries   int
	generateOutput    string
	generateSeed      uint64
	generateRedisKey  string
	generateRedisAddr string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVar(&generateEntries, "entries", 5000, "Number of log lines")
	generateCmd.Flags().StringVar(&generateOutput, "output", filepath.Join("data", "raw", "ssh_auth.log"), "Output log file")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0, "Random seed (0 picks one from the clock)")
	generateCmd.Flags().StringVar(&generateRedisKey, "redis-key", "", "Push lines to this Redis list instead of a file")
	generateCmd.Flags().StringVar(&generateRedisAddr, "redis-addr", "127.0.0.1:6379", "Redis address used with --redis-key")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := loggen.Config{Entries: generateEntries, Seed: generateSeed}

	if generateRedisKey != "" {
		consumer, err := inputredis.NewConsumer(inputredis.Config{Addr: generateRedisAddr, Key: generateRedisKey})
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := consumer.PushLines(ctx, loggen.New(cfg).Lines()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pushed %d log entries to redis list %s\n", generateEntries, generateRedisKey)
		return nil
	}

	if err := loggen.WriteFile(generateOutput, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d log entries in %s\n", generateEntries, generateOutput)
	return nil
}
