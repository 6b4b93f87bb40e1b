package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambertime/amberchain/services/permission"
)

func init() {
	rootCmd.AddCommand(authorityCmd)
	authorityCmd.AddCommand(authorityApproveCmd, authorityRequestCmd)
}

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Authority node approval and requests",
}

var authorityApproveCmd = &cobra.Command{
	Use:   "approve <from> <to> <public-key> <certificate> <certificate-details>",
	Short: "Approve an authority node and publish its certificate",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := remoteService()
		if err != nil {
			return err
		}
		defer closeFn()

		txid, err := svc.ApproveAuthority(cmd.Context(), permission.ApproveAuthorityRequest{
			From:               args[0],
			To:                 args[1],
			PublicKey:          args[2],
			Certificate:        args[3],
			CertificateDetails: args[4],
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), txid)
		return nil
	},
}

var authorityRequestCmd = &cobra.Command{
	Use:   "request <from> <public-key> <csr-token>",
	Short: "Request authority node status",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := remoteService()
		if err != nil {
			return err
		}
		defer closeFn()

		txid, err := svc.RequestAuthority(cmd.Context(), permission.AuthorityRequest{
			From:      args[0],
			PublicKey: args[1],
			CSRToken:  args[2],
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), txid)
		return nil
	},
}
