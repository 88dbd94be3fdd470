package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"credvault/internal/crypto"
)

func statusCmd() *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print key pair and ledger state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			km, err := vault.Keys.KeyPair()
			if err != nil {
				return err
			}
			validUntil := "never"
			if !km.ValidUntil.IsZero() {
				validUntil = km.ValidUntil.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "Backend: %s\n", vault.Config.Backend)
			fmt.Fprintf(out, "Strategy: %s\n", km.Strategy)
			fmt.Fprintf(out, "Fingerprint: %s\n", crypto.Fingerprint(km))
			fmt.Fprintf(out, "Valid until: %s\n", validUntil)
			fmt.Fprintf(out, "Close to expiry: %t\n", vault.Keys.IsCloseToExpiration(vault.Config.ExpiryThreshold))
			fmt.Fprintf(out, "Sessions: %d\n", len(vault.Sessions.Sessions()))
			if showMetrics {
				return printMetrics(out, vault.Registry)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "also print this run's counters")
	return cmd
}

func printMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			fmt.Fprintf(out, "%s %g\n", name, v)
		}
	}
	return nil
}
