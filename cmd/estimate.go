package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Conflux-Chain/gas-estimation/cmd/util"
	"github.com/Conflux-Chain/gas-estimation/gasstation"
	"github.com/Conflux-Chain/gas-estimation/types"
	utiljson "github.com/Conflux-Chain/gas-estimation/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type estimateOptions struct {
	gasLimit  float64
	timeLimit time.Duration
	watch     bool
	interval  time.Duration
}

var (
	estimateOpts estimateOptions

	estimateCmd = &cobra.Command{
		Use:   "estimate",
		Short: "Estimate gas price from the configured sources in priority",
		Run:   startEstimate,
	}
)

func init() {
	estimateCmd.Flags().Float64VarP(
		&estimateOpts.gasLimit, "gas-limit", "g", gasstation.DefaultGasLimit, "gas limit of the transaction",
	)

	estimateCmd.Flags().DurationVarP(
		&estimateOpts.timeLimit, "time-limit", "t", gasstation.DefaultTimeLimit, "expected time for the transaction to be mined",
	)

	estimateCmd.Flags().BoolVarP(
		&estimateOpts.watch, "watch", "w", false, "keep estimating until terminated",
	)

	estimateCmd.Flags().DurationVarP(
		&estimateOpts.interval, "interval", "i", 15*time.Second, "interval to estimate in watch mode",
	)

	// overrides `gasStation.priority` of the config file
	estimateCmd.Flags().StringSlice(
		"sources", nil, "gas price sources in priority, among native, node, blocknative, gasnow and gasnow-ws",
	)
	viper.BindPFlag("gasStation.priority", estimateCmd.Flags().Lookup("sources"))
}

type estimateResult struct {
	Time      time.Time            `json:"time"`
	TimeLimit string               `json:"timeLimit"`
	Quote     *types.GasPriceQuote `json:"quote"`
}

func startEstimate(cmd *cobra.Command, args []string) {
	if estimateOpts.gasLimit <= 0 || estimateOpts.timeLimit <= 0 {
		logrus.WithFields(logrus.Fields{
			"gasLimit":  estimateOpts.gasLimit,
			"timeLimit": estimateOpts.timeLimit,
		}).Fatal("Gas limit and time limit must be positive")
	}

	ec := util.MustInitEstimatorContext(context.Background())
	defer ec.Close()

	if !estimateOpts.watch {
		if err := estimate(context.Background(), ec.Priority); err != nil {
			logrus.WithError(err).Fatal("Failed to estimate gas price")
		}

		return
	}

	util.StartAndGracefulShutdown(context.Background(), func(ctx context.Context, wg *sync.WaitGroup) {
		defer wg.Done()

		ticker := time.NewTicker(estimateOpts.interval)
		defer ticker.Stop()

		for {
			if err := estimate(ctx, ec.Priority); err != nil {
				logrus.WithError(err).Warn("Failed to estimate gas price")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

func estimate(ctx context.Context, estimator gasstation.Estimator) error {
	price, err := estimator.EstimateWithLimits(ctx, estimateOpts.gasLimit, estimateOpts.timeLimit)
	if err != nil {
		return err
	}

	if err := price.Validate(); err != nil {
		logrus.WithField("price", price).WithError(err).Warn("Estimated gas price violates EIP-1559 rules")
	}

	fmt.Println(string(utiljson.MustMarshalJson(estimateResult{
		Time:      time.Now(),
		TimeLimit: estimateOpts.timeLimit.String(),
		Quote:     price.Quote(),
	})))

	return nil
}
