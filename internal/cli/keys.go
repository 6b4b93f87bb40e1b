package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambertime/amberchain/internal/config"
	"github.com/ambertime/amberchain/wallet"
)

var keysImport string

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysNewCmd, keysListCmd)
	keysNewCmd.Flags().StringVar(&keysImport, "private-key", "", "Import a hex private key instead of generating one")
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the gateway wallet keystore",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create (or import) a key and store it encrypted in the keystore",
	Long:  "The keystore password is read from the environment variable named by wallet.password_env.",
	Args:  cobra.NoArgs,
	RunE:  runKeysNew,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallet addresses in keystore order",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

func keystore() (*config.Config, *wallet.KeystoreManager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	km, err := wallet.NewKeystoreManager(cfg.Wallet.KeystoreDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, km, nil
}

func runKeysNew(cmd *cobra.Command, args []string) error {
	cfg, km, err := keystore()
	if err != nil {
		return err
	}
	password := cfg.WalletPassword()
	if password == "" {
		return errors.New("keystore password is empty, set the wallet password environment variable")
	}

	var w *wallet.SimpleWallet
	if keysImport != "" {
		w, err = wallet.NewWalletFromPrivateKey(keysImport)
	} else {
		w, err = wallet.NewWallet()
	}
	if err != nil {
		return err
	}

	path, err := km.Save(w, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.Address(), path)
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	cfg, km, err := keystore()
	if err != nil {
		return err
	}
	ring, err := km.LoadKeyring(cfg.WalletPassword())
	if err != nil {
		return err
	}
	for _, addr := range ring.KnownAddresses(cmd.Context()) {
		fmt.Fprintln(cmd.OutOrStdout(), addr)
	}
	return nil
}
