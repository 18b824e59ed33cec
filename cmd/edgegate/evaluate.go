package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oddslab/edgegate/internal/domain/scoring"
	"github.com/oddslab/edgegate/internal/pipeline"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a candidate opportunity and print the breakdown",
		RunE:  runScore,
	}
	addCandidateFlags(cmd)
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the full decision pipeline offline",
		RunE:  runEvaluate,
	}
	addCandidateFlags(cmd)
	cmd.Flags().Float64("bankroll", 1000, "Bankroll in USD")
	cmd.Flags().Float64("max-risk-pct", 1, "Per-trade risk ceiling in percent")
	cmd.Flags().Float64("slippage-tolerance", 1.5, "Slippage tolerance in percent")
	return cmd
}

func addCandidateFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Path to a candidate JSON file (flags override)")
	cmd.Flags().String("market", "", "Market under evaluation")
	cmd.Flags().String("side", "YES", "Position side")
	cmd.Flags().Float64("edge", 0, "Expected edge in percent")
	cmd.Flags().Float64("liquidity", 0, "Liquidity in USD")
	cmd.Flags().Float64("evidence", 0, "Evidence quality 0-100")
	cmd.Flags().Float64("volatility", scoring.DefaultVolatilityRisk, "Volatility risk 0-100")
	cmd.Flags().Float64("odds-at-signal", 0, "Odds when the signal was recorded")
	cmd.Flags().Float64("current-odds", 0, "Current odds")
}

func candidateFromFlags(cmd *cobra.Command) (pipeline.Candidate, error) {
	var c pipeline.Candidate

	if path, _ := cmd.Flags().GetString("input"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := json.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("failed to decode candidate file: %w", err)
		}
	} else {
		c.VolatilityRisk = scoring.DefaultVolatilityRisk
	}

	flagFloat := func(name string, dst *float64) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			*dst = v
		}
	}
	if cmd.Flags().Changed("market") {
		c.Market, _ = cmd.Flags().GetString("market")
	}
	if cmd.Flags().Changed("side") {
		c.Side, _ = cmd.Flags().GetString("side")
	}
	flagFloat("edge", &c.EdgePct)
	flagFloat("liquidity", &c.Liquidity)
	flagFloat("evidence", &c.EvidenceQuality)
	flagFloat("volatility", &c.VolatilityRisk)
	flagFloat("odds-at-signal", &c.OddsAtSignal)
	flagFloat("current-odds", &c.CurrentOdds)
	return c, nil
}

func runScore(cmd *cobra.Command, args []string) error {
	c, err := candidateFromFlags(cmd)
	if err != nil {
		return err
	}

	b := scoring.ScoreWithBreakdown(scoring.Input{
		EdgePct:         c.EdgePct,
		Liquidity:       c.Liquidity,
		EvidenceQuality: c.EvidenceQuality,
		VolatilityRisk:  c.VolatilityRisk,
	})
	return printJSON(b)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	c, err := candidateFromFlags(cmd)
	if err != nil {
		return err
	}

	bankroll, _ := cmd.Flags().GetFloat64("bankroll")
	maxRisk, _ := cmd.Flags().GetFloat64("max-risk-pct")
	tolerance, _ := cmd.Flags().GetFloat64("slippage-tolerance")

	v := pipeline.Evaluate(c, pipeline.RiskContext{
		BankrollUsd:        bankroll,
		MaxRiskPerTradePct: maxRisk,
	}, tolerance)
	return printJSON(v)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
