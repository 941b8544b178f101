package batch

import (
	"context"
	"fmt"

	"github.com/speedrun-hq/zora-runner/pkg/chainclient"
	"github.com/speedrun-hq/zora-runner/pkg/config"
	"github.com/speedrun-hq/zora-runner/pkg/contracts"
	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/models"
	"github.com/speedrun-hq/zora-runner/pkg/runner"
)

// NewRunnerFactory returns a factory dialing the chains of cfg.Mode through the
// account proxy and building a runner over them
func NewRunnerFactory(cfg *config.Config, opts ...runner.Option) WorkflowFactory {
	settings := runner.SettingsFromConfig(cfg)

	return func(ctx context.Context, account *models.Account, log logger.Logger) (Workflow, func(), error) {
		registry, err := chainclient.DialAll(ctx, cfg.Chains, config.InvolvedChains(cfg.Mode), account.Proxy, log)
		if err != nil {
			return nil, nil, err
		}

		var (
			source runner.ChainClient
			dest   runner.ChainClient
			portal *contracts.Portal
			minter runner.Minter
		)
		if client, err := registry.Get(config.Ethereum); err == nil {
			source = client
			portal = contracts.NewPortal(cfg.BridgeAddress)
		}
		if client, err := registry.Get(config.Zora); err == nil {
			dest = client
			minter, err = newMinter(cfg, client)
			if err != nil {
				registry.Close()
				return nil, nil, err
			}
		}

		r := runner.New(account, source, dest, portal, minter, settings, log, opts...)
		return r, registry.Close, nil
	}
}

func newMinter(cfg *config.Config, client *chainclient.Client) (runner.Minter, error) {
	switch cfg.NFTStandard {
	case config.StandardERC721:
		return contracts.NewERC721Drop(cfg.NFTAddress, client.Caller()), nil
	case config.StandardERC1155:
		return contracts.NewERC1155Collection(cfg.NFTAddress, cfg.TokenID, cfg.MinterAddress, client.Caller()), nil
	}
	return nil, fmt.Errorf("unsupported NFT standard %q", cfg.NFTStandard)
}
