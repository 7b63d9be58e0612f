package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"Storefront/internal/config"
	"Storefront/internal/promo"
	"Storefront/pkg/kit"
)

var promoCmd = &cobra.Command{
	Use:   "promo",
	Short: "Manage promo codes",
}

var promoFlags struct {
	discount string
	from     string
	until    string
}

func openPromos(cmd *cobra.Command) (*promo.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := kit.NewLogger(service, cfg.LogLevel)
	return promo.Open(cmd.Context(), cfg.Files.PromoCodes, log)
}

// storefront promo add CODE --discount 15 --until 2026-12-31T23:59:59Z
var promoAddCmd = &cobra.Command{
	Use:   "add CODE",
	Short: "Add a promo code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pct, err := decimal.NewFromString(promoFlags.discount)
		if err != nil {
			return fmt.Errorf("--discount: %w", err)
		}

		from := time.Now().UTC()
		if promoFlags.from != "" {
			if from, err = time.Parse(time.RFC3339, promoFlags.from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
		}
		until, err := time.Parse(time.RFC3339, promoFlags.until)
		if err != nil {
			return fmt.Errorf("--until: %w", err)
		}

		s, err := openPromos(cmd)
		if err != nil {
			return err
		}

		p := promo.PromoCode{Code: args[0], Discount: pct, AvailableAt: from, ExpiredAt: until}
		if err := s.Add(cmd.Context(), p); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s%%)\n", p.Code, pct)
		return nil
	},
}

var promoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List promo codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openPromos(cmd)
		if err != nil {
			return err
		}

		codes, err := s.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CODE\tDISCOUNT\tAVAILABLE\tEXPIRES")
		for _, p := range codes {
			fmt.Fprintf(w, "%s\t%s%%\t%s\t%s\n", p.Code, p.Discount, p.AvailableAt.Format(time.RFC3339), p.ExpiredAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	promoAddCmd.Flags().StringVar(&promoFlags.discount, "discount", "", "percent off, 0 < d <= 100")
	promoAddCmd.Flags().StringVar(&promoFlags.from, "from", "", "start of validity (RFC3339, default now)")
	promoAddCmd.Flags().StringVar(&promoFlags.until, "until", "", "end of validity (RFC3339)")
	_ = promoAddCmd.MarkFlagRequired("discount")
	_ = promoAddCmd.MarkFlagRequired("until")
}
