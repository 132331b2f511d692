// Package cli implementa o lotteryctl, a ferramenta de operação do jogo.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radieske/lottery-points-platform/internal/lottery/repo"
	"github.com/radieske/lottery-points-platform/internal/lottery/rules"
	"github.com/radieske/lottery-points-platform/internal/shared/config"
	"github.com/radieske/lottery-points-platform/internal/shared/db"
	"github.com/radieske/lottery-points-platform/internal/shared/logger"
)

// env guarda o que os subcomandos compartilham; abre o banco só quando
// o comando precisa
type env struct {
	cfg   config.Config
	log   *zap.Logger
	rules rules.Rules
	conn  *sqlx.DB
	store *repo.Store
	rdb   *redis.Client
}

func (e *env) open() error {
	if e.store != nil {
		return nil
	}
	conn, err := db.Connect(e.cfg.DBDriver, e.cfg.DSN())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	e.conn = conn
	e.store = repo.NewStore(conn, e.log, e.cfg.TxTimeout)
	return nil
}

func (e *env) close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.conn != nil {
		_ = e.conn.Close()
	}
	if e.log != nil {
		_ = e.log.Sync()
	}
}

// newRootCmd monta a árvore de comandos sobre e
func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "lotteryctl",
		Short:         "Operate the points lottery: schema, draws, results and payments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.cfg = config.Load()
			if e.cfg.ServiceName == "" {
				e.cfg.ServiceName = "lotteryctl"
			}
			level, _ := cmd.Flags().GetString("log-level")
			log, err := logger.New(e.cfg.ServiceName, e.cfg.Env, level)
			if err != nil {
				return err
			}
			e.log = log

			rulesFile, _ := cmd.Flags().GetString("rules")
			if rulesFile == "" {
				rulesFile = e.cfg.RulesFile
			}
			if e.rules, err = rules.Load(rulesFile); err != nil {
				return err
			}
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("rules", "", "Rules file (YAML or TOML); defaults to RULES_FILE")

	root.AddCommand(
		newMigrateCmd(e),
		newDrawCmd(e),
		newResultsCmd(e),
		newDashboardCmd(e),
		newPaymentCmd(e),
	)
	return root
}

// Execute roda o lotteryctl com os argumentos do processo
func Execute(ctx context.Context) error {
	e := &env{}
	defer e.close()
	return newRootCmd(e).ExecuteContext(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			if err := db.Migrate(cmd.Context(), e.conn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", e.cfg.DBDriver)
			return nil
		},
	}
}
