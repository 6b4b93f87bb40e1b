package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ambertime/amberchain/services/permission"
)

var (
	grantFrom      string
	grantAmount    int64
	grantStart     int64
	grantEnd       int64
	grantMetadata  string
	grantComment   string
	grantCommentTo string

	listAddresses []string
	listVerbose   bool
)

func init() {
	rootCmd.AddCommand(grantCmd, revokeCmd, listCmd)

	for _, cmd := range []*cobra.Command{grantCmd, revokeCmd} {
		cmd.Flags().StringVar(&grantFrom, "from", permission.Wildcard, "Granting address, or * to pick one from the wallet")
		cmd.Flags().Int64Var(&grantAmount, "amount", 0, "Native amount sent with each grant")
		cmd.Flags().StringVar(&grantComment, "comment", "", "Wallet comment")
		cmd.Flags().StringVar(&grantCommentTo, "comment-to", "", "Wallet comment-to")
	}
	grantCmd.Flags().Int64Var(&grantStart, "start", 0, "First block of the window")
	grantCmd.Flags().Int64Var(&grantEnd, "end", -1, "End block of the window (exclusive, -1 for unbounded)")
	grantCmd.Flags().StringVar(&grantMetadata, "metadata", "", `Metadata: hex string or JSON stream item {"for":..,"key":..,"data":..}`)

	listCmd.Flags().StringSliceVar(&listAddresses, "address", nil, "Address filter (repeatable, * for all)")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Include admins and pending consensus")
}

var grantCmd = &cobra.Command{
	Use:   "grant <addresses> <permissions>",
	Short: "Grant permissions through the gateway",
	Long: "Grants one or more comma-separated permissions to comma-separated addresses.\n" +
		"Permissions may carry an entity prefix (stream1.write) and composite names (admin, mine, authority)\n" +
		"expand into several transactions.",
	Args: cobra.ExactArgs(2),
	RunE: runGrant,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <addresses> <permissions>",
	Short: "Revoke permissions through the gateway",
	Args:  cobra.ExactArgs(2),
	RunE:  runRevoke,
}

var listCmd = &cobra.Command{
	Use:   "list [permissions]",
	Short: "List permissions and pending consensus",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func grantRequest(args []string) permission.Request {
	return permission.Request{
		From:       grantFrom,
		Targets:    []string{args[0]},
		Permission: args[1],
		Amount:     grantAmount,
		Comment:    grantComment,
		CommentTo:  grantCommentTo,
	}
}

func runGrant(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := remoteService()
	if err != nil {
		return err
	}
	defer closeFn()

	req := grantRequest(args)
	req.Window = &permission.BlockRange{Start: grantStart, End: grantEnd}
	if grantMetadata != "" {
		if json.Valid([]byte(grantMetadata)) {
			req.Metadata = json.RawMessage(grantMetadata)
		} else {
			raw, _ := json.Marshal(grantMetadata)
			req.Metadata = raw
		}
	}

	res, err := svc.Grant(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.TxID)
	return nil
}

func runRevoke(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := remoteService()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.Revoke(cmd.Context(), grantRequest(args))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.TxID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := remoteService()
	if err != nil {
		return err
	}
	defer closeFn()

	req := permission.ListRequest{Addresses: listAddresses, Verbose: listVerbose}
	if len(args) == 1 {
		req.Permission = args[0]
	}
	rows, err := svc.ListPermissions(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rows)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
