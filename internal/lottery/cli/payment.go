package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
	"github.com/radieske/lottery-points-platform/internal/lottery/ledger"
	"github.com/radieske/lottery-points-platform/internal/shared/kafka"
	"github.com/radieske/lottery-points-platform/pkg/contracts/events"
)

type paymentFlags struct {
	account, kind, amount, ref string
}

func (f *paymentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.account, "account", "a", "", "Account id")
	cmd.Flags().StringVarP(&f.kind, "kind", "k", string(domain.PaymentDeposit), "deposit | withdrawal")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount in the external unit, e.g. 150.75")
	cmd.Flags().StringVar(&f.ref, "ref", "", "External reference (idempotency key)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("ref")
}

func (f *paymentFlags) event() (events.PaymentSettled, error) {
	switch domain.PaymentKind(f.kind) {
	case domain.PaymentDeposit, domain.PaymentWithdrawal:
	default:
		return events.PaymentSettled{}, fmt.Errorf("invalid kind %q", f.kind)
	}
	if _, err := decimal.NewFromString(f.amount); err != nil {
		return events.PaymentSettled{}, fmt.Errorf("invalid amount %q", f.amount)
	}
	return events.PaymentSettled{
		ExternalRef: f.ref,
		AccountID:   f.account,
		Kind:        f.kind,
		Amount:      f.amount,
		Ts:          time.Now().UTC(),
	}, nil
}

func newPaymentCmd(e *env) *cobra.Command {
	paymentCmd := &cobra.Command{
		Use:   "payment",
		Short: "Send or apply external payment notifications",
	}

	var pub paymentFlags
	publish := &cobra.Command{
		Use:   "publish",
		Short: "Publish a payment_settled notification to Kafka (consumed by payment-worker)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := pub.event()
			if err != nil {
				return err
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			w := kafka.NewWriter(e.cfg.KafkaBrokers, e.cfg.TopicPaymentSettled)
			defer w.Close()
			if err := kafka.WriteJSON(cmd.Context(), w, ev.ExternalRef, payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s to %s\n", ev.Kind, ev.ExternalRef, e.cfg.TopicPaymentSettled)
			return nil
		},
	}
	pub.bind(publish)

	var app paymentFlags
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Apply a payment directly through the ledger, bypassing Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := app.event()
			if err != nil {
				return err
			}
			if err := e.open(); err != nil {
				return err
			}
			l := ledger.New(e.store, e.rules, e.log)
			var (
				p       domain.Payment
				applied bool
			)
			if domain.PaymentKind(ev.Kind) == domain.PaymentWithdrawal {
				p, applied, err = l.Withdraw(cmd.Context(), ev.AccountID, ev.Amount, ev.ExternalRef)
			} else {
				p, applied, err = l.Deposit(cmd.Context(), ev.AccountID, ev.Amount, ev.ExternalRef)
			}
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintf(cmd.ErrOrStderr(), "reference %s was already applied\n", ev.ExternalRef)
			}
			return printJSON(cmd.OutOrStdout(), dto.Payments([]domain.Payment{p})[0])
		},
	}
	app.bind(apply)

	paymentCmd.AddCommand(publish, apply)
	return paymentCmd
}
