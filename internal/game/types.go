package game

import "time"

type BalanceView struct {
	TotalBudMicros       int64     `json:"total_bud_micros"`
	AccumulatedBudMicros int64     `json:"accumulated_bud_micros"`
	RateMicrosPerMin     int64     `json:"rate_micros_per_min"`
	LastReconciledAt     time.Time `json:"last_reconciled_at"`
}

type GardenView struct {
	Balance     BalanceView      `json:"balance"`
	PlacedItems []PlacedItemView `json:"placed_items"`
	Inventory   []InventoryView  `json:"inventory"`
}

type PlacedItemView struct {
	ID               int64     `json:"id"`
	ItemKind         string    `json:"item_kind"`
	GridRow          int       `json:"grid_row"`
	GridCol          int       `json:"grid_col"`
	RateMicrosPerMin int64     `json:"rate_micros_per_min"`
	Rotation         int16     `json:"rotation"`
	PlacedAt         time.Time `json:"placed_at"`
}

type InventoryView struct {
	ItemKind string `json:"item_kind"`
	Count    int    `json:"count"`
}

type CatalogItem struct {
	ItemKind         string `json:"item_kind"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	PriceMicros      int64  `json:"price_micros"`
	RateMicrosPerMin int64  `json:"rate_micros_per_min"`
	MaxPurchases     *int32 `json:"max_purchases,omitempty"`
}

type ClaimResult struct {
	ClaimedMicros  int64   `json:"claimed_micros"`
	ElapsedMinutes float64 `json:"elapsed_minutes"`
	TotalMicros    int64   `json:"total_bud_micros"`
	AccumMicros    int64   `json:"accumulated_bud_micros"`
}

type HarvestResult struct {
	ClaimedMicros int64 `json:"claimed_micros"`
	TotalMicros   int64 `json:"total_bud_micros"`
}

type PurchaseInput struct {
	PlayerID       string
	ItemKind       string
	IdempotencyKey string
}

type PurchaseResult struct {
	ItemKind      string `json:"item_kind"`
	NewCount      int    `json:"new_count"`
	BalanceMicros int64  `json:"balance_micros"`
}

type PlaceInput struct {
	PlayerID       string
	ItemKind       string
	GridRow        int
	GridCol        int
	Rotation       int16
	IdempotencyKey string
}

type RegisterInput struct {
	PlayerID      string
	Username      string
	WalletAddress string
	InviteCode    string
}

type ReferralStatsView struct {
	Code                        string `json:"code"`
	TimesUsed                   int    `json:"times_used"`
	TotalReferralEarningsMicros int64  `json:"total_referral_earnings_micros"`
}
