package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ambertime/amberchain/client"
	"github.com/ambertime/amberchain/internal/config"
	"github.com/ambertime/amberchain/internal/logging"
	"github.com/ambertime/amberchain/services/permission"
	"github.com/ambertime/amberchain/store/sqlite"
	"github.com/ambertime/amberchain/utils"
	"github.com/ambertime/amberchain/wallet"
)

// gateway 服务端依赖装配结果
type gateway struct {
	store   *sqlite.Store
	keyring *wallet.Keyring
	node    client.Client
	service permission.Service
}

// openGateway 按配置打开存储、加载钱包、连接节点并创建权限服务
//
// **流程**：
//  1. 打开 SQLite 权限存储，配置了种子文件时导入
//  2. 从 keystore 目录加载钱包，追加只读观察地址
//  3. 创建节点客户端与交易提交器
//  4. 创建权限服务
func openGateway(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*gateway, error) {
	store, err := sqlite.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open permission store: %w", err)
	}
	gw := &gateway{store: store}

	if cfg.Store.Seed != "" {
		if err := seedStore(ctx, store, cfg.Store.Seed); err != nil {
			gw.Close()
			return nil, err
		}
	}

	km, err := wallet.NewKeystoreManager(cfg.Wallet.KeystoreDir)
	if err != nil {
		gw.Close()
		return nil, err
	}
	if gw.keyring, err = km.LoadKeyring(cfg.WalletPassword()); err != nil {
		gw.Close()
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	for _, s := range cfg.Wallet.WatchOnly {
		addr, err := utils.ParseAddress(s)
		if err != nil {
			gw.Close()
			return nil, fmt.Errorf("wallet.watch_only %q: %w", s, err)
		}
		gw.keyring.AddWatchOnly(addr)
	}

	nodeCfg := cfg.Node
	nodeCfg.Logger = logger.With("component", "node")
	if gw.node, err = client.NewClient(&nodeCfg); err != nil {
		gw.Close()
		return nil, fmt.Errorf("connect node: %w", err)
	}

	gw.service, err = permission.NewService(permission.Options{
		Store:     store,
		Entities:  store,
		Wallet:    gw.keyring,
		Submitter: permission.NewNodeSubmitter(gw.node, gw.keyring, logger.With("component", "submitter")),
		Streams:   cfg.Streams,
		Logger:    logger.With("component", "permission"),
	})
	if err != nil {
		gw.Close()
		return nil, err
	}

	logger.Info("Permission gateway ready",
		"store", cfg.Store.Path, "height", store.Height(), "wallet_addresses", gw.keyring.Len())
	return gw, nil
}

// Close 关闭节点连接与存储
func (g *gateway) Close() error {
	var errs []error
	if g.node != nil {
		errs = append(errs, g.node.Close())
	}
	if g.store != nil {
		errs = append(errs, g.store.Close())
	}
	return errors.Join(errs...)
}

func seedStore(ctx context.Context, store *sqlite.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := sqlite.LoadSeed(f)
	if err != nil {
		return err
	}
	if err := store.ApplySeed(ctx, seed); err != nil {
		return fmt.Errorf("apply seed %s: %w", path, err)
	}
	return nil
}

// remoteService 连接 --endpoint 指定的网关
func remoteService() (permission.Service, func(), error) {
	cfg := client.DefaultConfig()
	cfg.Endpoint = gatewayEndpoint
	cfg.Protocol = client.Protocol(gatewayProtocol)

	c, err := client.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect gateway: %w", err)
	}
	return permission.NewRemoteService(c), func() { _ = c.Close() }, nil
}
