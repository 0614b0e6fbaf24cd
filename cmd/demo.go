package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

var demoQueries = []string{
	"Get customer information for ID 5",
	"I'm customer 12345 and need help upgrading my account",
	"Show me all active customers who have open tickets",
	"I've been charged twice, please refund immediately!",
	"Update my email to new@email.com and show my ticket history",
}

var (
	demoCustomer int64
	demoRemote   bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the canonical sample queries",
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().Int64Var(&demoCustomer, "customer", 5, "customer id hint for queries that name none")
	demoCmd.Flags().BoolVar(&demoRemote, "remote", false, "call specialists over HTTP instead of in-process")
}

func runDemo(cmd *cobra.Command, args []string) error {
	r, cleanup, err := newRouter(cmd.Context(), demoRemote)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)
	for _, text := range demoQueries {
		q := contractx.Query{Text: text}
		if demoCustomer > 0 {
			id := demoCustomer
			q.CustomerID = &id
		}
		res := r.Handle(cmd.Context(), q)
		if _, err := fmt.Fprintf(out, "%s\nUSER: %s\n\n%s\n", rule, text, res.Render()); err != nil {
			return err
		}
	}
	return nil
}
