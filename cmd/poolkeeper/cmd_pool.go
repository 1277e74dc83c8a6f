package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"PoolKeeper/internal/notifier"
	"PoolKeeper/internal/registry"
)

var (
	performFlag bool
	callerFlag  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool balances, valuation and swap progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.pool.Summary(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, stripTags(notifier.FormatPoolStatus(summary, a.units)))
		fmt.Fprintln(out, stripTags(notifier.FormatTWAP(summary.TWAP, a.units)))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the upkeep gate, optionally performing upkeep",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		needed, data, err := a.pool.CheckUpkeep(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "upkeep needed: %v\n", needed)
		if !needed || !performFlag {
			return nil
		}
		if err := a.pool.PerformUpkeep(ctx, data); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), a.pool.TWAPSwaps())
	},
}

var callCmd = &cobra.Command{
	Use:   "call <op> [key=value...]",
	Short: "Dispatch a pool operation through the module registry",
	Long: `Dispatch a pool operation. Amounts are human units, for example:

  poolkeeper call deposit amount=1000 --caller alice
  poolkeeper call feesForWithdraw account=alice shares=250
  poolkeeper call setSlippageThreshold bps=100`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()
		req, err := parseCallArgs(args[1:])
		if err != nil {
			return err
		}
		req.Caller = callerFlag
		if req.Caller == "" {
			req.Caller = cfg.Pool.Owner
		}

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.registry.Call(ctx, args[0], req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List installed pool modules and their operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return printJSON(cmd.OutOrStdout(), a.registry.Modules())
	},
}

func parseCallArgs(kvs []string) (registry.Request, error) {
	req := registry.Request{Args: make(map[string]string, len(kvs))}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return req, fmt.Errorf("argument %q is not key=value", kv)
		}
		req.Args[k] = v
	}
	return req, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stripTags drops the HTML markup used by Telegram messages.
func stripTags(s string) string {
	r := strings.NewReplacer("<b>", "", "</b>", "")
	return r.Replace(s)
}
