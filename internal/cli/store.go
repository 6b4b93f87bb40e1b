package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ambertime/amberchain/internal/config"
	"github.com/ambertime/amberchain/store/sqlite"
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeSeedCmd, storeHeightCmd, storeEntitiesCmd)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and initialise the permission store",
}

var storeSeedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Import entities and permission changes from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := seedStore(cmd.Context(), store, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s (height %d)\n", args[0], store.Height())
		return nil
	},
}

var storeHeightCmd = &cobra.Command{
	Use:   "height [n]",
	Short: "Print or set the chain height used for permission checks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			h, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid height %q: %w", args[0], err)
			}
			if err := store.SetHeight(cmd.Context(), uint32(h)); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), store.Height())
		return nil
	},
}

var storeEntitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List known streams and assets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		entities, err := store.Entities(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entities {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Type, e.Name, e.TxID)
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (*sqlite.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cmd.Context(), cfg.Store.Path)
}
