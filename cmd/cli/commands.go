package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/lotledger/internal/adapter/http/dto"
	"github.com/iho/lotledger/internal/domain"
	"github.com/iho/lotledger/internal/infrastructure/auth"
)

type globalOptions struct {
	baseURL string
	token   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "lotledger-cli",
		Short:         "LotLedger CLI tool",
		Long:          `A command line interface for interacting with the LotLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the LotLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bearer token for authenticated servers")

	client := func() *apiClient {
		return newAPIClient(opts.baseURL, opts.token, opts.timeout)
	}

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}
	ledgerCmd.AddCommand(consistencyCmd(client))

	rootCmd.AddCommand(
		depositCmd(client),
		withdrawCmd(client),
		convertCmd(client),
		balanceCmd(client),
		lotsCmd(client),
		ledgerCmd,
		tokenCmd(),
	)

	return rootCmd
}

func depositCmd(client func() *apiClient) *cobra.Command {
	var req dto.DepositRequest
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit funds as a new lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			var lot dto.LotResponse
			err := client().post("/api/v1/deposits", req, map[string]string{"Idempotency-Key": idempotencyKey}, &lot)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lot)
		},
	}

	cmd.Flags().StringVar(&req.Amount, "amount", "", "Gross amount received")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "Currency code")
	cmd.Flags().StringVar(&req.SourceID, "source-id", "", "Source identifier (generated when empty)")
	cmd.Flags().StringVar(&req.Fee, "fee", "0", "Fee charged on receipt")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("currency")

	return cmd
}

func withdrawCmd(client func() *apiClient) *cobra.Command {
	var req dto.WithdrawalRequest
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw funds, oldest lots first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.WithdrawResponse
			err := client().post("/api/v1/withdrawals", req, map[string]string{"Idempotency-Key": idempotencyKey}, &resp)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tWITHDRAWN\tORIGINAL\tORIGIN")
			for _, r := range resp.Withdrawals {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", truncate(r.SourceID, 28), r.AmountWithdrawn, r.OriginalAmount, r.OriginalCurrency)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&req.Amount, "amount", "", "Amount sent to the recipient")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "Currency code")
	cmd.Flags().StringVar(&req.Fee, "fee", "0", "Fee charged on top of the amount")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("currency")

	return cmd
}

func convertCmd(client func() *apiClient) *cobra.Command {
	var req dto.ConversionRequest
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert funds into another currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ConversionResponse
			err := client().post("/api/v1/conversions", req, map[string]string{"Idempotency-Key": idempotencyKey}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&req.AmountFrom, "amount-from", "", "Amount taken from the source currency")
	cmd.Flags().StringVar(&req.CurrencyFrom, "currency-from", "", "Source currency")
	cmd.Flags().StringVar(&req.AmountTo, "amount-to", "", "Amount received in the destination currency")
	cmd.Flags().StringVar(&req.CurrencyTo, "currency-to", "", "Destination currency")
	cmd.Flags().StringVar(&req.Fee, "fee", "0", "Fee charged in the source currency")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key for safe retries")
	for _, name := range []string{"amount-from", "currency-from", "amount-to", "currency-to"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func balanceCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show balances per currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.BalancesResponse
			if err := client().get("/api/v1/balances", nil, &resp); err != nil {
				return err
			}

			currencies := make([]string, 0, len(resp.Balances))
			for currency := range resp.Balances {
				currencies = append(currencies, currency)
			}
			sort.Strings(currencies)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CURRENCY\tBALANCE\tDEPOSITED")
			for _, currency := range currencies {
				deposited, ok := resp.TotalDeposited[currency]
				depositedText := "-"
				if ok {
					depositedText = deposited.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", currency, resp.Balances[currency], depositedText)
			}
			return w.Flush()
		},
	}
}

func lotsCmd(client func() *apiClient) *cobra.Command {
	var currency string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "lots",
		Short: "List lots, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if currency != "" {
				query.Set("currency", currency)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			var resp dto.LotsResponse
			if err := client().get("/api/v1/lots", query, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CURRENCY\tSOURCE\tCURRENT\tORIGINAL\tORIGIN")
			for _, lot := range resp.Lots {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					lot.Currency, truncate(lot.SourceID, 28), lot.CurrentAmount, lot.OriginalAmount, lot.OriginalCurrency)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "Only list lots of this currency")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of lots")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of lots to skip")

	return cmd
}

func consistencyCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.ConsistencyResponse
			err := client().get("/api/v1/ledger/consistency", nil, &resp)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				return fmt.Errorf("consistency check FAILED: %s", apiErr.Body)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Consistency check PASSED\n")
			fmt.Fprintf(out, "Consistent: %v\n", resp.Consistent)
			fmt.Fprintf(out, "Status: %s\n", resp.Status)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var secret, subject, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token locally from the server's JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(subject, domain.Role(role))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret")
	cmd.Flags().StringVar(&subject, "subject", "cli", "Token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "Role: admin, operator or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
