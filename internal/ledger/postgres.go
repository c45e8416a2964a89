// Package ledger moves gems for entry fees, prizes, and refunds. Every
// movement writes a transaction row first; a unique key on
// (user_id, match_id, type, rank) makes retried movements no-ops, so the
// match engine can safely re-run any settlement step. A refund voids its
// paired entry fee, so a later join for the same match captures the fee
// again instead of deduplicating against the abandoned attempt.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/wordgems/backend/internal/match"
	"github.com/wordgems/backend/internal/models"
	"github.com/wordgems/backend/internal/sqlutil"
)

var _ match.Ledger = (*PostgresLedger)(nil)

// Transaction types recorded in the ledger.
const (
	TxTypeEntryFee = "entry_fee"
	TxTypePrize    = "prize"
	TxTypeRefund   = "refund"
)

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

// ErrUserNotFound is returned when a movement references an unknown user.
var ErrUserNotFound = errors.New("user not found")

// PostgresLedger implements the engine's Ledger on a users/transactions
// schema.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger wraps an open database handle.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// TryDebit captures an entry fee, spending regular gems before bonus gems.
// It returns false without any balance change when the user cannot cover
// the amount. A repeated debit for the same reference succeeds without
// moving funds again, unless a refund has since returned the fee, in which
// case the fee is captured anew.
func (l *PostgresLedger) TryDebit(ctx context.Context, userID string, amount int, ref models.TxRef) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	var insufficient bool
	err := sqlutil.Run(ctx, l.db, func(tx *sql.Tx) error {
		inserted, err := insertTx(ctx, tx, userID, TxTypeEntryFee, -amount, ref, 0)
		if err != nil {
			return err
		}
		if !inserted {
			inserted, err = recaptureRefundedFee(ctx, tx, userID, amount, ref)
			if err != nil {
				return err
			}
			if !inserted {
				// Fee already captured and still held.
				return nil
			}
		}

		var gems, bonus int
		err = tx.QueryRowContext(ctx,
			`SELECT gem_balance, bonus_gems FROM users WHERE id = $1 FOR UPDATE`,
			userID,
		).Scan(&gems, &bonus)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}

		if gems+bonus < amount {
			insufficient = true
			return errRollback
		}

		fromGems := amount
		if fromGems > gems {
			fromGems = gems
		}
		fromBonus := amount - fromGems

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET gem_balance = gem_balance - $2, bonus_gems = bonus_gems - $3, updated_at = now() WHERE id = $1`,
			userID, fromGems, fromBonus,
		)
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}
		return nil
	})

	if insufficient {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	log.Debug().
		Str("user_id", userID).
		Str("match_id", ref.MatchID).
		Int("amount", amount).
		Msg("captured entry fee")
	return true, nil
}

// CreditPrize pays winnings into the regular gem balance. A repeated credit
// for the same reference is a no-op.
func (l *PostgresLedger) CreditPrize(ctx context.Context, userID string, amount int, ref models.TxRef) error {
	return l.credit(ctx, userID, TxTypePrize, amount, ref, ref.Rank)
}

// Refund returns a captured entry fee to the regular gem balance. A
// repeated refund for the same reference is a no-op.
func (l *PostgresLedger) Refund(ctx context.Context, userID string, amount int, ref models.TxRef) error {
	if amount <= 0 {
		return nil
	}
	return l.credit(ctx, userID, TxTypeRefund, amount, ref, 0)
}

func (l *PostgresLedger) credit(ctx context.Context, userID, txType string, amount int, ref models.TxRef, rank int) error {
	if amount <= 0 {
		return nil
	}
	return sqlutil.Run(ctx, l.db, func(tx *sql.Tx) error {
		inserted, err := insertTx(ctx, tx, userID, txType, amount, ref, rank)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET gem_balance = gem_balance + $2, updated_at = now() WHERE id = $1`,
			userID, amount,
		)
		if err != nil {
			return fmt.Errorf("failed to credit balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}

		log.Debug().
			Str("user_id", userID).
			Str("match_id", ref.MatchID).
			Str("type", txType).
			Int("amount", amount).
			Msg("credited gems")
		return nil
	})
}

// recaptureRefundedFee handles a retried debit whose earlier capture was
// refunded, for example after an abandoned join. The refund and the stale
// entry fee row are voided together and the fee is recorded again, all
// inside the caller's transaction. It reports false when no refund exists,
// meaning the fee is still held and the retry is a plain duplicate.
func recaptureRefundedFee(ctx context.Context, tx *sql.Tx, userID string, amount int, ref models.TxRef) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND match_id = $2 AND type = $3 AND rank = 0`,
		userID, ref.MatchID, TxTypeRefund,
	)
	if err != nil {
		return false, fmt.Errorf("failed to void refund: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND match_id = $2 AND type = $3 AND rank = 0`,
		userID, ref.MatchID, TxTypeEntryFee,
	); err != nil {
		return false, fmt.Errorf("failed to void refunded fee: %w", err)
	}
	return insertTx(ctx, tx, userID, TxTypeEntryFee, -amount, ref, 0)
}

// insertTx records the movement. It reports false when a row with the same
// idempotency key already exists.
func insertTx(ctx context.Context, tx *sql.Tx, userID, txType string, amount int, ref models.TxRef, rank int) (bool, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, match_id, lobby_type, type, rank, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		uuid.NewString(), userID, ref.MatchID, ref.LobbyType, txType, rank, amount,
	)
	if err == nil {
		return true, nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return false, nil
	}
	return false, fmt.Errorf("failed to record transaction: %w", err)
}

// errRollback aborts a transaction without surfacing an error to callers.
var errRollback = errors.New("rollback")
