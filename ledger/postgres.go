package ledger

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var postgresLogger = log.With().Str("logger_name", "ledger::postgres").Logger()

const schema = `CREATE TABLE IF NOT EXISTS player_balance (
	player_id TEXT PRIMARY KEY,
	balance BIGINT NOT NULL CHECK (balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresLedger keeps balances in the player_balance table.
type PostgresLedger struct {
	db             *sqlx.DB
	defaultBalance int64
}

func NewPostgresLedger(connStr string, defaultBalance int64) (*PostgresLedger, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to connect to the ledger database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Unable to create player_balance table")
	}
	return &PostgresLedger{db: db, defaultBalance: defaultBalance}, nil
}

func (p *PostgresLedger) ensure(ctx context.Context, playerID string) error {
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO player_balance (player_id, balance) VALUES ($1, $2) ON CONFLICT (player_id) DO NOTHING",
		playerID, p.defaultBalance)
	if err != nil {
		return errors.Wrapf(err, "Unable to create balance row for player %s", playerID)
	}
	return nil
}

func (p *PostgresLedger) Balance(ctx context.Context, playerID string) (int64, error) {
	if err := p.ensure(ctx, playerID); err != nil {
		return 0, err
	}
	var balance int64
	err := p.db.GetContext(ctx, &balance, "SELECT balance FROM player_balance WHERE player_id = $1", playerID)
	if err != nil {
		return 0, errors.Wrap(err, "sqlx Get returned an error")
	}
	return balance, nil
}

func (p *PostgresLedger) Debit(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "debit %d", amount)
	}
	if err := p.ensure(ctx, playerID); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		"UPDATE player_balance SET balance = balance - $1, updated_at = now() WHERE player_id = $2 AND balance >= $1",
		amount, playerID)
	if err != nil {
		return errors.Wrapf(err, "Unable to debit player %s", playerID)
	}
	return checkUpdated(res, playerID, amount)
}

func (p *PostgresLedger) Credit(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "credit %d", amount)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO player_balance (player_id, balance) VALUES ($1, $2 + $3)
		 ON CONFLICT (player_id) DO UPDATE SET balance = player_balance.balance + $3, updated_at = now()`,
		playerID, p.defaultBalance, amount)
	if err != nil {
		return errors.Wrapf(err, "Unable to credit player %s", playerID)
	}
	return nil
}

func (p *PostgresLedger) Close() error {
	return p.db.Close()
}

func checkUpdated(res sql.Result, playerID string, amount int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "RowsAffected returned an error")
	}
	if n == 0 {
		postgresLogger.Debug().Str("playerID", playerID).Int64("amount", amount).Msg("Debit rejected")
		return errors.Wrapf(ErrInsufficientBalance, "player %s cannot cover %d", playerID, amount)
	}
	return nil
}
