package game

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// payReferralEarnings credits the referrer with their cut of a harvest.
// Best effort: runs in its own transaction after the harvest committed, is
// attempted exactly once and only logs on failure. A missing referrer row is
// not an error.
func (s *Service) payReferralEarnings(ctx context.Context, harvesterUsername, referrerUsername string, claimedMicros int64) {
	payout := ReferralPayoutMicros(claimedMicros)
	if payout <= 0 {
		return
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.log.Warn("referral payout skipped", "referrer", referrerUsername, "err", err)
		return
	}
	defer tx.Rollback(ctx)

	// The referrer sees the bonus in both balances immediately, without
	// waiting for their own next harvest.
	var referrerID string
	err = tx.QueryRow(ctx, `
		UPDATE garden.players
		SET total_bud_micros = total_bud_micros + $1,
		    accumulated_bud_micros = accumulated_bud_micros + $1
		WHERE username = $2
		RETURNING player_id
	`, payout, referrerUsername).Scan(&referrerID)
	if err != nil {
		if err != pgx.ErrNoRows {
			s.log.Warn("referral payout failed", "referrer", referrerUsername, "err", err)
		}
		return
	}

	if _, err := tx.Exec(ctx, `
		UPDATE garden.invite_codes
		SET total_referral_earnings_micros = total_referral_earnings_micros + $1
		WHERE owner_player_id = $2
	`, payout, referrerID); err != nil {
		s.log.Warn("referral earnings update failed", "referrer", referrerUsername, "err", err)
		return
	}

	if err := appendLedgerEntries(ctx, tx, referrerID, "referral_bonus", payout, map[string]any{
		"action":    "referral_bonus",
		"harvester": harvesterUsername,
	}); err != nil {
		s.log.Warn("referral ledger append failed", "referrer", referrerUsername, "err", err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		s.log.Warn("referral payout commit failed", "referrer", referrerUsername, "err", err)
		return
	}
	s.log.Info("referral payout", "referrer", referrerUsername, "harvester", harvesterUsername, "payout_micros", payout)
}
