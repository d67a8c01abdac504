package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

// PostgresAccountStore persists accounts and the global rate in Postgres.
//
// Schema:
//
//	CREATE TABLE accounts (
//	    id          TEXT PRIMARY KEY,
//	    principal   NUMERIC NOT NULL,
//	    rate        NUMERIC NOT NULL,
//	    last_update TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE global_state (
//	    id          INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
//	    global_rate NUMERIC NOT NULL
//	);
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{
		db: db,
	}
}

func (p *PostgresAccountStore) GetAccount(ctx context.Context, accountId string) (models.Account, error) {
	const query = `SELECT id, principal, rate, last_update FROM accounts WHERE id = $1`

	var acc models.Account
	err := p.db.QueryRowContext(ctx, query, accountId).Scan(
		&acc.ID,
		&acc.Principal,
		&acc.Rate,
		&acc.LastUpdate,
	)
	if err == sql.ErrNoRows {
		return models.NewAccount(accountId), nil
	}
	if err != nil {
		return models.Account{}, err
	}
	return acc, nil
}

func (p *PostgresAccountStore) saveAccount(ctx context.Context, dbTx *sql.Tx, acc models.Account) error {
	const query = `INSERT INTO accounts (id, principal, rate, last_update)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET principal = $2, rate = $3, last_update = $4`

	_, err := dbTx.ExecContext(ctx, query, acc.ID, acc.Principal, acc.Rate, acc.LastUpdate)
	return err
}

// SaveAccounts writes every record inside one database transaction so a
// realize-then-mutate sequence commits as a whole or not at all.
func (p *PostgresAccountStore) SaveAccounts(ctx context.Context, accounts ...models.Account) error {

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	for _, acc := range accounts {
		err = p.saveAccount(ctx, dbTx, acc)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (p *PostgresAccountStore) GlobalRate(ctx context.Context) (decimal.Decimal, error) {
	const query = `SELECT global_rate FROM global_state WHERE id = 1`

	var rate decimal.Decimal
	if err := p.db.QueryRowContext(ctx, query).Scan(&rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func (p *PostgresAccountStore) SetGlobalRate(ctx context.Context, rate decimal.Decimal) error {
	const query = `INSERT INTO global_state (id, global_rate) VALUES (1, $1)
	ON CONFLICT (id) DO UPDATE SET global_rate = $1`

	_, err := p.db.ExecContext(ctx, query, rate)
	return err
}

var _ interfaces.AccountStore = (*PostgresAccountStore)(nil)
