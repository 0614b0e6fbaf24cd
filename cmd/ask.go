package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

var (
	askCustomer int64
	askRemote   bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Route one customer query and print the coordination log",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Int64Var(&askCustomer, "customer", 0, "customer id hint used when the query names none")
	askCmd.Flags().BoolVar(&askRemote, "remote", false, "call specialists over HTTP instead of in-process")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	r, cleanup, err := newRouter(cmd.Context(), askRemote)
	if err != nil {
		return err
	}
	defer cleanup()

	q := contractx.Query{Text: strings.Join(args, " ")}
	if askCustomer > 0 {
		id := askCustomer
		q.CustomerID = &id
	}
	res := r.Handle(cmd.Context(), q)

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprint(out, res.Render())
	return err
}
