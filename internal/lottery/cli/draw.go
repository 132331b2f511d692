package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/domain"
	"github.com/radieske/lottery-points-platform/internal/lottery/draw"
	"github.com/radieske/lottery-points-platform/internal/lottery/dto"
	"github.com/radieske/lottery-points-platform/internal/lottery/report"
	"github.com/radieske/lottery-points-platform/internal/lottery/results"
	"github.com/radieske/lottery-points-platform/internal/lottery/settlement"
	"github.com/radieske/lottery-points-platform/internal/shared/cache"
)

// engine monta o motor de sorteios. Com --notify e REDIS_ADDR o resultado
// também vai para o cache e o canal de broadcast.
func (e *env) engine(cmd *cobra.Command) (*draw.Engine, error) {
	if err := e.open(); err != nil {
		return nil, err
	}
	var opts []draw.Option
	if notify, _ := cmd.Flags().GetBool("notify"); notify && e.cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(cmd.Context(), e.cfg.RedisAddr)
		if err != nil {
			e.log.Warn("redis unavailable, results will not be broadcast", zap.Error(err))
		} else {
			e.rdb = rdb
			n := results.NewRedis(rdb, results.DefaultTTL)
			n.Channel = e.cfg.RedisResultsChannel
			opts = append(opts, draw.WithNotifier(n))
		}
	}
	return draw.NewEngine(e.store, e.rules, settlement.NewProcessor(e.rules, e.log), e.log, opts...), nil
}

func newDrawCmd(e *env) *cobra.Command {
	drawCmd := &cobra.Command{
		Use:   "draw",
		Short: "Conduct or settle draws",
	}

	conduct := &cobra.Command{
		Use:   "conduct",
		Short: "Draw the winning number of a modality and settle its bets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := e.engine(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("modality")
			date, _ := cmd.Flags().GetString("date")
			number, _ := cmd.Flags().GetString("number")

			m, err := domain.ParseModality(name)
			if err != nil {
				return err
			}
			if date == "" {
				date = eng.Today()
			}
			var res domain.DrawResult
			if number != "" {
				res, err = eng.AcceptDraw(cmd.Context(), m, date, number)
			} else {
				res, err = eng.ConductDraw(cmd.Context(), m, date)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.Draw(res.Draw))
		},
	}
	conduct.Flags().StringP("modality", "m", "", "Modality (tens|hundreds|thousands or dezena|centena|milhar)")
	conduct.Flags().StringP("date", "d", "", "Draw date YYYY-MM-DD (default: today in the game timezone)")
	conduct.Flags().StringP("number", "n", "", "Accept this winning number instead of drawing one")
	conduct.Flags().Bool("notify", true, "Cache and broadcast the result through Redis")
	_ = conduct.MarkFlagRequired("modality")

	settle := &cobra.Command{
		Use:   "settle DRAW_ID",
		Short: "Resume settlement of a PENDING draw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := e.engine(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Settle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.Draw(res.Draw))
		},
	}
	settle.Flags().Bool("notify", true, "Cache and broadcast the result through Redis")

	drawCmd.AddCommand(conduct, settle)
	return drawCmd
}

func newResultsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List settled draws",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("modality")
			date, _ := cmd.Flags().GetString("date")

			var m domain.Modality
			if name != "" {
				var err error
				if m, err = domain.ParseModality(name); err != nil {
					return err
				}
			}
			eng := draw.NewEngine(e.store, e.rules, settlement.NewProcessor(e.rules, e.log), e.log)
			res, err := eng.Results(cmd.Context(), m, date)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.Results(res))
		},
	}
	cmd.Flags().StringP("modality", "m", "", "Filter by modality")
	cmd.Flags().StringP("date", "d", "", "Filter by date YYYY-MM-DD")
	return cmd
}

func newDashboardCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the administrative totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			d, err := report.New(e.store).Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.Dashboard(d))
		},
	}
}
