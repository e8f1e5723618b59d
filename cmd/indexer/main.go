package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"grantstream/internal/config"
	"grantstream/internal/registry"
)

func main() {
	root := &cobra.Command{
		Use:          "grantstream",
		Short:        "Multi-chain payout-stream indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile == "" {
		cfgFile, _ = cmd.InheritedFlags().GetString("config")
	}
	return config.Load(cfgFile, cmd.Flags())
}

func buildRegistry(chains []config.ChainConfig) (*registry.Registry, error) {
	out := make([]registry.Chain, 0, len(chains))
	for _, chain := range chains {
		factories := make([]common.Address, 0, len(chain.Factories))
		for _, factory := range chain.Factories {
			if !common.IsHexAddress(factory) {
				return nil, fmt.Errorf("chain %d: invalid factory address: %s", chain.ChainID, factory)
			}
			factories = append(factories, common.HexToAddress(factory))
		}
		out = append(out, registry.Chain{
			ChainID:    chain.ChainID,
			Name:       chain.Name,
			RPCURL:     chain.RPCURL,
			Factories:  factories,
			StartBlock: chain.StartBlock,
		})
	}
	return registry.New(out)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
