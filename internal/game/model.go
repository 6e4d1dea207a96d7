package game

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	MicrosPerBud = int64(1_000_000)

	// Referral payout taken from every harvest, in basis points.
	ReferralRateBps = int64(200)

	GridRows = 8
	GridCols = 8

	// SystemInviteCode marks a signup with no referrer.
	SystemInviteCode = "SYSTEM"

	ReferralCodeLength = 5
)

var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrUnknownItem          = errors.New("unknown item")
	ErrPlacedItemNotFound   = errors.New("placed item not found")
	ErrTileOccupied         = errors.New("tile already occupied")
	ErrInvalidTile          = errors.New("tile is out of bounds or blocked")
	ErrInvalidRotation      = errors.New("rotation must be 0 or 1")
	ErrItemNotOwned         = errors.New("item not in inventory")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrPurchaseLimitReached = errors.New("purchase limit reached")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction conflict, retry")
	ErrUnauthorized         = errors.New("unauthorized")
)

var referralCodeRE = regexp.MustCompile(`^[A-Z0-9]{5}$`)

// blockedTiles are the grid cells covered by the house structure.
// The server rejects placements here even when a client skips its own check.
var blockedTiles = map[[2]int]struct{}{
	{0, 0}: {}, {0, 1}: {}, {0, 2}: {},
	{1, 0}: {}, {1, 1}: {},
	{2, 0}: {}, {2, 1}: {},
}

func TileBlocked(row, col int) bool {
	_, blocked := blockedTiles[[2]int{row, col}]
	return blocked
}

func ValidateTile(row, col int) error {
	if row < 0 || row >= GridRows || col < 0 || col >= GridCols {
		return ErrInvalidTile
	}
	if TileBlocked(row, col) {
		return ErrInvalidTile
	}
	return nil
}

func ValidateRotation(rotation int16) error {
	if rotation != 0 && rotation != 1 {
		return ErrInvalidRotation
	}
	return nil
}

func ValidateReferralCode(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == SystemInviteCode {
		return nil
	}
	if !referralCodeRE.MatchString(code) {
		return fmt.Errorf("referral code must be exactly %d letters or digits", ReferralCodeLength)
	}
	return nil
}

func BudToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerBud)))
}

func MicrosToBud(v int64) float64 {
	return float64(v) / float64(MicrosPerBud)
}

// AccrualMicros returns the BUD earned by a combined generation rate over an
// elapsed window, at millisecond resolution so short claim intervals still
// settle fractional earnings.
func AccrualMicros(rateMicrosPerMin int64, elapsed time.Duration) (int64, error) {
	if rateMicrosPerMin <= 0 || elapsed <= 0 {
		return 0, nil
	}
	v := new(big.Int).Mul(big.NewInt(rateMicrosPerMin), big.NewInt(elapsed.Milliseconds()))
	v = v.Div(v, big.NewInt(60_000))
	if !v.IsInt64() {
		return 0, fmt.Errorf("accrual overflow")
	}
	return v.Int64(), nil
}

// ReferralPayoutMicros floors the referrer's cut so payouts can never exceed
// ReferralRateBps of the harvested amount.
func ReferralPayoutMicros(claimedMicros int64) int64 {
	if claimedMicros <= 0 {
		return 0
	}
	return claimedMicros * ReferralRateBps / 10_000
}

func usernameFromWallet(wallet string) string {
	wallet = strings.TrimSpace(wallet)
	if len(wallet) > 10 {
		wallet = wallet[:10]
	}
	return sanitizeUsername(wallet)
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "farmer"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "farmer_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}
