package game

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

// DB is the slice of pgxpool.Pool the service needs. It is satisfied by
// *pgxpool.Pool and by pgxmock.PgxPoolIface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Service struct {
	db  DB
	log *slog.Logger
}

func NewService(db DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

// RegisterPlayer creates the ledger row for a new account. Safe to call on
// every login: an existing player is left untouched.
func (s *Service) RegisterPlayer(ctx context.Context, in RegisterInput) error {
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	if in.WalletAddress == "" {
		in.WalletAddress = "acct:" + in.PlayerID
	}
	in.Username = strings.TrimSpace(in.Username)
	if !usernameRE.MatchString(in.Username) {
		in.Username = usernameFromWallet(in.WalletAddress)
	}
	invite := strings.ToUpper(strings.TrimSpace(in.InviteCode))

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var referredBy *string
	if invite != "" && invite != SystemInviteCode {
		var owner string
		err := tx.QueryRow(ctx, `
			SELECT owner_username
			FROM garden.invite_codes
			WHERE code = $1
		`, invite).Scan(&owner)
		switch {
		case err == nil && owner != in.Username:
			referredBy = &owner
		case err != nil && err != pgx.ErrNoRows:
			return err
		}
	}

	code, err := s.freeReferralCode(ctx, tx)
	if err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `
		INSERT INTO garden.players (player_id, wallet_address, username, referred_by, referral_code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id) DO NOTHING
	`, in.PlayerID, in.WalletAddress, in.Username, referredBy, code)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or wallet already taken")
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO garden.invite_codes (code, owner_player_id, owner_username)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING
	`, code, in.PlayerID, in.Username); err != nil {
		return err
	}
	if referredBy != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE garden.invite_codes
			SET times_used = times_used + 1
			WHERE code = $1
		`, invite); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Balance reports settled and pending BUD without mutating anything, so
// clients can poll it at any frequency.
func (s *Service) Balance(ctx context.Context, playerID string) (BalanceView, error) {
	var out BalanceView
	var dbNow time.Time
	err := s.db.QueryRow(ctx, `
		SELECT p.total_bud_micros, p.accumulated_bud_micros, p.last_reconciled_at, clock_timestamp(),
		       COALESCE((SELECT SUM(pi.rate_micros_per_min) FROM garden.placed_items pi WHERE pi.player_id = p.player_id), 0)
		FROM garden.players p
		WHERE p.player_id = $1
	`, playerID).Scan(&out.TotalBudMicros, &out.AccumulatedBudMicros, &out.LastReconciledAt, &dbNow, &out.RateMicrosPerMin)
	if err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrPlayerNotFound
		}
		return out, err
	}
	pending, err := AccrualMicros(out.RateMicrosPerMin, dbNow.Sub(out.LastReconciledAt))
	if err != nil {
		return out, err
	}
	out.AccumulatedBudMicros += pending
	return out, nil
}

// Claim settles accrued BUD into the accumulated balance. The row lock
// serializes concurrent claims and the database clock bounds the window, so
// the same elapsed time can never be credited twice.
func (s *Service) Claim(ctx context.Context, playerID string) (ClaimResult, error) {
	var out ClaimResult
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	acc, err := lockAccrual(ctx, tx, playerID)
	if err != nil {
		return out, err
	}

	out.ClaimedMicros = acc.deltaMicros
	out.ElapsedMinutes = acc.elapsed.Minutes()
	out.TotalMicros = acc.totalMicros
	out.AccumMicros = acc.accumMicros + acc.deltaMicros

	if _, err := tx.Exec(ctx, `
		UPDATE garden.players
		SET accumulated_bud_micros = accumulated_bud_micros + $1,
		    last_reconciled_at = GREATEST(last_reconciled_at, $2)
		WHERE player_id = $3
	`, acc.deltaMicros, acc.now, playerID); err != nil {
		return out, err
	}
	return out, tx.Commit(ctx)
}

// Harvest settles accrual and moves the whole accumulated balance into the
// spendable total. Harvesting nothing is a successful no-op. The referral
// payout runs after commit and can never unwind the harvest.
func (s *Service) Harvest(ctx context.Context, playerID string) (HarvestResult, error) {
	var out HarvestResult
	var username string
	var referredBy *string

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		SELECT username, referred_by
		FROM garden.players
		WHERE player_id = $1
	`, playerID).Scan(&username, &referredBy); err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrPlayerNotFound
		}
		return out, err
	}

	acc, err := lockAccrual(ctx, tx, playerID)
	if err != nil {
		return out, err
	}

	claimed := acc.accumMicros + acc.deltaMicros
	out.ClaimedMicros = claimed
	out.TotalMicros = acc.totalMicros + claimed

	if _, err := tx.Exec(ctx, `
		UPDATE garden.players
		SET total_bud_micros = total_bud_micros + $1,
		    accumulated_bud_micros = 0,
		    last_reconciled_at = GREATEST(last_reconciled_at, $2)
		WHERE player_id = $3
	`, claimed, acc.now, playerID); err != nil {
		return out, err
	}
	if claimed > 0 {
		if err := appendLedgerEntries(ctx, tx, playerID, "harvest", claimed, map[string]any{"action": "harvest"}); err != nil {
			return out, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	if claimed > 0 && referredBy != nil {
		s.payReferralEarnings(ctx, username, *referredBy, claimed)
	}
	return out, nil
}

// PurchaseItem debits the settled balance and credits inventory atomically.
// Accrued-but-unharvested BUD is not spendable; harvest first.
func (s *Service) PurchaseItem(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	var out PurchaseResult
	in.ItemKind = strings.ToLower(strings.TrimSpace(in.ItemKind))
	if in.ItemKind == "" {
		return out, ErrUnknownItem
	}
	out.ItemKind = in.ItemKind

	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return out, err
		}
		err = func() error {
			defer tx.Rollback(ctx)

			if err := claimIdempotency(ctx, tx, in.PlayerID, in.IdempotencyKey, "purchase"); err != nil {
				return err
			}

			var price int64
			var maxPurchases *int32
			if err := tx.QueryRow(ctx, `
				SELECT price_micros, max_purchases
				FROM garden.items
				WHERE item_kind = $1
			`, in.ItemKind).Scan(&price, &maxPurchases); err != nil {
				if err == pgx.ErrNoRows {
					return ErrUnknownItem
				}
				return err
			}

			var balance int64
			if err := tx.QueryRow(ctx, `
				SELECT total_bud_micros
				FROM garden.players
				WHERE player_id = $1
				FOR UPDATE
			`, in.PlayerID).Scan(&balance); err != nil {
				if err == pgx.ErrNoRows {
					return ErrPlayerNotFound
				}
				return err
			}

			if maxPurchases != nil {
				var owned int64
				if err := tx.QueryRow(ctx, `
					SELECT COALESCE((SELECT count FROM garden.inventory WHERE player_id = $1 AND item_kind = $2), 0)
					     + (SELECT COUNT(1) FROM garden.placed_items WHERE player_id = $1 AND item_kind = $2)
				`, in.PlayerID, in.ItemKind).Scan(&owned); err != nil {
					return err
				}
				if owned >= int64(*maxPurchases) {
					return ErrPurchaseLimitReached
				}
			}

			if balance < price {
				return fmt.Errorf("%w: need %.2f BUD, have %.2f", ErrInsufficientBalance, MicrosToBud(price), MicrosToBud(balance))
			}

			if _, err := tx.Exec(ctx, `
				UPDATE garden.players
				SET total_bud_micros = total_bud_micros - $1
				WHERE player_id = $2
			`, price, in.PlayerID); err != nil {
				return err
			}

			var newCount int
			if err := tx.QueryRow(ctx, `
				INSERT INTO garden.inventory (player_id, item_kind, count)
				VALUES ($1, $2, 1)
				ON CONFLICT (player_id, item_kind) DO UPDATE SET count = garden.inventory.count + 1
				RETURNING count
			`, in.PlayerID, in.ItemKind).Scan(&newCount); err != nil {
				return err
			}

			if price > 0 {
				if err := appendLedgerEntries(ctx, tx, in.PlayerID, "purchase", price, map[string]any{
					"action":    "purchase",
					"item_kind": in.ItemKind,
				}); err != nil {
					return err
				}
			}

			out.NewCount = newCount
			out.BalanceMicros = balance - price
			return tx.Commit(ctx)
		}()
		if err == nil {
			return out, nil
		}
		if !isSerializationError(err) {
			return out, err
		}
		if attempt == maxAttempts-1 {
			return out, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return out, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return out, ErrTxConflict
}

// PlaceItem moves one item from inventory onto the grid. The generation rate
// is copied from the catalog, never taken from the client, and occupancy is
// enforced by the unique tile constraint.
func (s *Service) PlaceItem(ctx context.Context, in PlaceInput) (PlacedItemView, error) {
	var out PlacedItemView
	in.ItemKind = strings.ToLower(strings.TrimSpace(in.ItemKind))
	if err := ValidateTile(in.GridRow, in.GridCol); err != nil {
		return out, err
	}
	if err := ValidateRotation(in.Rotation); err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	if err := claimIdempotency(ctx, tx, in.PlayerID, in.IdempotencyKey, "place"); err != nil {
		return out, err
	}

	var rate int64
	if err := tx.QueryRow(ctx, `
		SELECT rate_micros_per_min
		FROM garden.items
		WHERE item_kind = $1
	`, in.ItemKind).Scan(&rate); err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrUnknownItem
		}
		return out, err
	}

	var remaining int
	if err := tx.QueryRow(ctx, `
		UPDATE garden.inventory
		SET count = count - 1
		WHERE player_id = $1 AND item_kind = $2 AND count > 0
		RETURNING count
	`, in.PlayerID, in.ItemKind).Scan(&remaining); err != nil {
		if err == pgx.ErrNoRows {
			return out, ErrItemNotOwned
		}
		return out, err
	}
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM garden.inventory
			WHERE player_id = $1 AND item_kind = $2
		`, in.PlayerID, in.ItemKind); err != nil {
			return out, err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO garden.placed_items (player_id, item_kind, grid_row, grid_col, rate_micros_per_min, rotation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, placed_at
	`, in.PlayerID, in.ItemKind, in.GridRow, in.GridCol, rate, in.Rotation).Scan(&out.ID, &out.PlacedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return out, ErrTileOccupied
		}
		return out, err
	}

	out.ItemKind = in.ItemKind
	out.GridRow = in.GridRow
	out.GridCol = in.GridCol
	out.RateMicrosPerMin = rate
	out.Rotation = in.Rotation
	return out, tx.Commit(ctx)
}

func (s *Service) MoveItem(ctx context.Context, playerID string, placedID int64, row, col int) error {
	if err := ValidateTile(row, col); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `
		UPDATE garden.placed_items
		SET grid_row = $1, grid_col = $2
		WHERE id = $3 AND player_id = $4
	`, row, col, placedID, playerID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTileOccupied
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPlacedItemNotFound
	}
	return nil
}

func (s *Service) RotateItem(ctx context.Context, playerID string, placedID int64, rotation int16) error {
	if err := ValidateRotation(rotation); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `
		UPDATE garden.placed_items
		SET rotation = $1
		WHERE id = $2 AND player_id = $3
	`, rotation, placedID, playerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPlacedItemNotFound
	}
	return nil
}

// RemoveItem deletes the placement and credits the item back to inventory in
// the same transaction, so the item cannot be lost or duplicated.
func (s *Service) RemoveItem(ctx context.Context, playerID string, placedID int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var itemKind string
	if err := tx.QueryRow(ctx, `
		DELETE FROM garden.placed_items
		WHERE id = $1 AND player_id = $2
		RETURNING item_kind
	`, placedID, playerID).Scan(&itemKind); err != nil {
		if err == pgx.ErrNoRows {
			return ErrPlacedItemNotFound
		}
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO garden.inventory (player_id, item_kind, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (player_id, item_kind) DO UPDATE SET count = garden.inventory.count + 1
	`, playerID, itemKind); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Garden returns the full authoritative view a client needs to render: live
// balance, placements and inventory.
func (s *Service) Garden(ctx context.Context, playerID string) (GardenView, error) {
	var out GardenView
	balance, err := s.Balance(ctx, playerID)
	if err != nil {
		return out, err
	}
	out.Balance = balance

	rows, err := s.db.Query(ctx, `
		SELECT id, item_kind, grid_row, grid_col, rate_micros_per_min, rotation, placed_at
		FROM garden.placed_items
		WHERE player_id = $1
		ORDER BY id
	`, playerID)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PlacedItemView
		if err := rows.Scan(&p.ID, &p.ItemKind, &p.GridRow, &p.GridCol, &p.RateMicrosPerMin, &p.Rotation, &p.PlacedAt); err != nil {
			return out, err
		}
		out.PlacedItems = append(out.PlacedItems, p)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	invRows, err := s.db.Query(ctx, `
		SELECT item_kind, count
		FROM garden.inventory
		WHERE player_id = $1
		ORDER BY item_kind
	`, playerID)
	if err != nil {
		return out, err
	}
	defer invRows.Close()
	for invRows.Next() {
		var v InventoryView
		if err := invRows.Scan(&v.ItemKind, &v.Count); err != nil {
			return out, err
		}
		out.Inventory = append(out.Inventory, v)
	}
	return out, invRows.Err()
}

func (s *Service) Catalog(ctx context.Context) ([]CatalogItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT item_kind, display_name, description, price_micros, rate_micros_per_min, max_purchases
		FROM garden.items
		ORDER BY price_micros, item_kind
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CatalogItem
	for rows.Next() {
		var it CatalogItem
		if err := rows.Scan(&it.ItemKind, &it.DisplayName, &it.Description, &it.PriceMicros, &it.RateMicrosPerMin, &it.MaxPurchases); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Service) ReferralStats(ctx context.Context, playerID string) (ReferralStatsView, error) {
	var out ReferralStatsView
	err := s.db.QueryRow(ctx, `
		SELECT code, times_used, total_referral_earnings_micros
		FROM garden.invite_codes
		WHERE owner_player_id = $1
	`, playerID).Scan(&out.Code, &out.TimesUsed, &out.TotalReferralEarningsMicros)
	if err == pgx.ErrNoRows {
		return out, ErrPlayerNotFound
	}
	return out, err
}

func (s *Service) PlayerCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM garden.players`).Scan(&count)
	return count, err
}

// SeedCatalog inserts the item catalog on first boot. Prices are pinned so a
// generator pays itself back in four days of uptime.
func (s *Service) SeedCatalog(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM garden.items`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	one := int32(1)
	seed := []CatalogItem{
		{ItemKind: "sprout", DisplayName: "Sprout", Description: "The potential to grow into something bigger..", PriceMicros: 5_760_000 * MicrosPerBud, RateMicrosPerMin: 1_000 * MicrosPerBud},
		{ItemKind: "mini-mary", DisplayName: "Mini-Mary", Description: "Now this has some pot-ential..", PriceMicros: 28_800_000 * MicrosPerBud, RateMicrosPerMin: 5_000 * MicrosPerBud},
		{ItemKind: "puff-daddy", DisplayName: "Puff Daddy", Description: "This is one puffy mfer..", PriceMicros: 57_600_000 * MicrosPerBud, RateMicrosPerMin: 10_000 * MicrosPerBud},
		{ItemKind: "radio", DisplayName: "Radio", Description: "A classic radio to keep you company while you grow.", PriceMicros: 0, RateMicrosPerMin: 0, MaxPurchases: &one},
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, it := range seed {
		if _, err := tx.Exec(ctx, `
			INSERT INTO garden.items (item_kind, display_name, description, price_micros, rate_micros_per_min, max_purchases)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ItemKind, it.DisplayName, it.Description, it.PriceMicros, it.RateMicrosPerMin, it.MaxPurchases); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// PruneIdempotencyKeys drops keys older than the TTL.
func (s *Service) PruneIdempotencyKeys(ctx context.Context, olderThan time.Duration) (int64, error) {
	cmd, err := s.db.Exec(ctx, `
		DELETE FROM garden.idempotency_keys
		WHERE created_at < $1
	`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type accrual struct {
	totalMicros int64
	accumMicros int64
	deltaMicros int64
	elapsed     time.Duration
	now         time.Time
}

// lockAccrual takes the player row lock and computes the accrual delta.
// clock_timestamp() is read while projecting the locked row, after any lock
// wait, so serialized claims always observe an advancing clock. now() would
// be pinned at BEGIN and could predate a concurrent claim's commit.
func lockAccrual(ctx context.Context, tx pgx.Tx, playerID string) (accrual, error) {
	var acc accrual
	var last time.Time
	err := tx.QueryRow(ctx, `
		SELECT total_bud_micros, accumulated_bud_micros, last_reconciled_at, clock_timestamp()
		FROM garden.players
		WHERE player_id = $1
		FOR UPDATE
	`, playerID).Scan(&acc.totalMicros, &acc.accumMicros, &last, &acc.now)
	if err != nil {
		if err == pgx.ErrNoRows {
			return acc, ErrPlayerNotFound
		}
		return acc, err
	}

	var rate int64
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(rate_micros_per_min), 0)
		FROM garden.placed_items
		WHERE player_id = $1
	`, playerID).Scan(&rate); err != nil {
		return acc, err
	}

	acc.elapsed = acc.now.Sub(last)
	if acc.elapsed < 0 {
		acc.elapsed = 0
	}
	acc.deltaMicros, err = AccrualMicros(rate, acc.elapsed)
	return acc, err
}

func appendLedgerEntries(ctx context.Context, tx pgx.Tx, playerID, action string, amountMicros int64, metadata map[string]any) error {
	txID := uuid.NewString()
	debit := -amountMicros
	credit := amountMicros
	if action == "harvest" || action == "referral_bonus" {
		debit, credit = credit, debit
	}
	meta, _ := json.Marshal(metadata)
	_, err := tx.Exec(ctx, `
		INSERT INTO garden.ledger_entries (tx_group_id, player_id, account, delta_micros, metadata)
		VALUES
		($1, $2, 'wallet', $3, $5::jsonb),
		($1, $2, 'counterparty', $4, $5::jsonb)
	`, txID, playerID, debit, credit, string(meta))
	return err
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, playerID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO garden.idempotency_keys (player_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (player_id, key) DO NOTHING
	`, playerID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

// freeReferralCode tries random codes, then falls back to a timestamp-derived
// one so registration never fails on code exhaustion.
func (s *Service) freeReferralCode(ctx context.Context, tx pgx.Tx) (string, error) {
	const maxAttempts = 10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", err
		}
		var taken bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM garden.invite_codes WHERE code = $1)
			    OR EXISTS (SELECT 1 FROM garden.players WHERE referral_code = $1)
		`, code).Scan(&taken); err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return fallbackReferralCode(), nil
}

func generateReferralCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, ReferralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = letters[int(buf[i])%len(letters)]
	}
	return string(buf), nil
}

func fallbackReferralCode() string {
	code := strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))
	if len(code) > ReferralCodeLength {
		code = code[len(code)-ReferralCodeLength:]
	}
	return code
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
