package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cold-emailer/internal/logger"
	"github.com/spigell/cold-emailer/internal/portfolio"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Inspect the portfolio index",
}

var portfolioQueryCmd = &cobra.Command{
	Use:   "query SKILL...",
	Short: "Print portfolio techstack matching the given skills",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		queryPortfolio(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioQueryCmd)

	portfolioQueryCmd.Flags().IntP("limit", "n", portfolio.DefaultLimit, "neighbours fetched per skill")
	portfolioQueryCmd.Flags().String("embedder", "", "override portfolio.embedder (gemini or hashed)")

	viper.BindPFlag("portfolio.embedder", portfolioQueryCmd.Flags().Lookup("embedder"))
}

func queryPortfolio(cmd *cobra.Command, skills []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		config = &Config{}
	}

	index, err := newDeps(ctx, config, logger).portfolioIndex()
	if err != nil {
		logger.Fatal("preparing the portfolio", zap.Error(err))
	}

	if err := index.Load(ctx); err != nil {
		logger.Fatal("loading the portfolio", zap.Error(err))
	}

	limit, _ := cmd.Flags().GetInt("limit")
	labels, err := index.Query(ctx, skills, limit)
	if err != nil {
		logger.Fatal("querying the portfolio", zap.Error(err))
	}

	if len(labels) == 0 {
		logger.Info("no portfolio matches", zap.Strings("skills", skills))
		return
	}

	for _, label := range labels {
		fmt.Println(label)
	}
	for _, ref := range index.References(labels) {
		fmt.Printf("  %s\n", ref)
	}
}
