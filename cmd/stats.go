package cmd

import (
	"context"
	"fmt"

	"github.com/Conflux-Chain/gas-estimation/cmd/util"
	"github.com/Conflux-Chain/gas-estimation/gasstation"
	"github.com/Conflux-Chain/gas-estimation/types"
	utiljson "github.com/Conflux-Chain/gas-estimation/util"
	"github.com/Conflux-Chain/gas-estimation/util/rpc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print fee suggestions and statistics of the node fee history",
	Run:   startStats,
}

type statsResult struct {
	Stats       gasstation.FeeStats `json:"stats"`
	Suggestions []suggestion        `json:"suggestions"`
}

type suggestion struct {
	TimeFactor float64              `json:"timeFactor"`
	Price      *types.GasPriceQuote `json:"price"`
}

func startStats(cmd *cobra.Command, args []string) {
	config := gasstation.MustNewConfigFromViper()
	config.Priority = []string{"native"}

	ec, err := util.NewEstimatorContext(context.Background(), config)
	if err != nil {
		logrus.WithField("url", rpc.EthNodeURL()).WithError(err).Fatal("Failed to init native fee oracle")
	}
	defer ec.Close()

	stats, err := ec.Native.Stats()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to get fee statistics")
	}

	fees, err := ec.Native.Suggestions()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to get fee suggestions")
	}

	res := statsResult{Stats: stats}
	for _, v := range fees {
		res.Suggestions = append(res.Suggestions, suggestion{TimeFactor: v.TimeFactor, Price: v.Price.Quote()})
	}

	fmt.Println(string(utiljson.MustMarshalJson(res)))
}
