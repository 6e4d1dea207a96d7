package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"budgarden/internal/cache"
	cl "budgarden/internal/cli"
	"budgarden/internal/config"
	"budgarden/internal/game"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "bud",
		Short:        "Budgarden CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newStatusCmd(&apiBase),
		newClaimCmd(&apiBase),
		newHarvestCmd(&apiBase),
		newShopCmd(&apiBase),
		newPlaceCmd(&apiBase),
		newMoveCmd(&apiBase),
		newRotateCmd(&apiBase),
		newRemoveCmd(&apiBase),
		newInviteCmd(&apiBase),
		newWatchCmd(&apiBase, cfg.PollEvery),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func loadSession() (cache.Session, error) {
	store, err := cache.DefaultStore()
	if err != nil {
		return cache.Session{}, err
	}
	sess, err := store.LoadSession()
	if err != nil {
		return cache.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func saveSession(sess cache.Session) error {
	store, err := cache.DefaultStore()
	if err != nil {
		return err
	}
	return store.SaveSession(sess)
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Budgarden account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			wallet, err := promptOptional("Wallet address (optional)")
			if err != nil {
				return err
			}
			invite, err := promptOptional("Invite code (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, username, wallet, strings.ToUpper(strings.TrimSpace(invite)))
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `bud login`.")
				return nil
			}
			if err := saveSession(cache.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Budgarden",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := saveSession(cache.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your garden and balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			garden, err := client.Garden(ctx, sess.AccessToken)
			if err != nil {
				// Unreachable server falls back to the last snapshot, clearly
				// marked stale. Nothing local is ever treated as spendable.
				store, serr := cache.DefaultStore()
				if serr != nil {
					return err
				}
				snap, serr := store.Load()
				if serr != nil {
					return err
				}
				printWarn(fmt.Sprintf("OFFLINE: showing cached state from %s", snap.SavedAt.Local().Format("2006-01-02 15:04")))
				return renderGarden(snap.Garden)
			}
			if store, serr := cache.DefaultStore(); serr == nil {
				_ = store.Save(garden)
			}
			return renderGarden(garden)
		},
	}
}

func newClaimCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Settle accrued earnings into your pending pot",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Claim(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			accent.Println("\n== CLAIM ==")
			fmt.Printf("Claimed:  %s BUD (%.1f min)\n", formatMicros(out.ClaimedMicros), out.ElapsedMinutes)
			fmt.Printf("Pending:  %s BUD\n", formatMicros(out.AccumMicros))
			fmt.Printf("Balance:  %s BUD\n", formatMicros(out.TotalMicros))
			fmt.Println()
			return nil
		},
	}
}

func newHarvestCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Move all pending earnings into your spendable balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Harvest(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			accent.Println("\n== HARVEST ==")
			fmt.Printf("Harvested: %s BUD\n", formatMicros(out.ClaimedMicros))
			fmt.Printf("Balance:   %s BUD\n", formatMicros(out.TotalMicros))
			fmt.Println()
			return nil
		},
	}
}

func newShopCmd(apiBase *string) *cobra.Command {
	shop := &cobra.Command{
		Use:   "shop",
		Short: "Shop commands",
	}
	shop.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List items available for purchase",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			items, err := client.ShopItems(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderShop(items)
		},
	})
	shop.AddCommand(&cobra.Command{
		Use:   "buy [item]",
		Short: "Buy an item into your inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			kind, err := itemKindFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Purchase(ctx, sess.AccessToken, kind, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %s. You now own %d. Balance: %s BUD.", out.ItemKind, out.NewCount, formatMicros(out.BalanceMicros)))
			return nil
		},
	})
	return shop
}

func newPlaceCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "place [item] [row] [col]",
		Short: "Place an inventory item on the garden grid",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			kind, err := itemKindFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			row, err := intFromArgOrPrompt(args, 1, "Row")
			if err != nil {
				return err
			}
			col, err := intFromArgOrPrompt(args, 2, "Col")
			if err != nil {
				return err
			}
			if err := game.ValidateTile(row, col); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Place(ctx, sess.AccessToken, kind, row, col, 0, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Placed %s at (%d,%d) as #%d.", out.ItemKind, out.GridRow, out.GridCol, out.ID))
			return nil
		},
	}
}

func newMoveCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "move [id] [row] [col]",
		Short: "Move a placed item to another tile",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			id, err := int64FromArgOrPrompt(args, 0, "Placed item ID")
			if err != nil {
				return err
			}
			row, err := intFromArgOrPrompt(args, 1, "Row")
			if err != nil {
				return err
			}
			col, err := intFromArgOrPrompt(args, 2, "Col")
			if err != nil {
				return err
			}
			if err := game.ValidateTile(row, col); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.Move(ctx, sess.AccessToken, id, row, col); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Moved #%d to (%d,%d).", id, row, col))
			return nil
		},
	}
}

func newRotateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate [id]",
		Short: "Flip a placed item's facing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			id, err := int64FromArgOrPrompt(args, 0, "Placed item ID")
			if err != nil {
				return err
			}
			rotation, err := promptChoice("Rotation", []string{"0", "1"}, "1")
			if err != nil {
				return err
			}
			r, _ := strconv.ParseInt(rotation, 10, 16)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.Rotate(ctx, sess.AccessToken, id, int16(r)); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Rotated #%d.", id))
			return nil
		},
	}
}

func newRemoveCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Return a placed item to your inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			id, err := int64FromArgOrPrompt(args, 0, "Placed item ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if err := client.Remove(ctx, sess.AccessToken, id); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Removed #%d back to inventory.", id))
			return nil
		},
	}
}

func newInviteCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Show your referral code and earnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			showQR, _ := cmd.Flags().GetBool("qr")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Referral(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderReferral(out, showQR)
		},
	}
	cmd.Flags().Bool("qr", false, "print the invite code as a QR code")
	return cmd
}

func newWatchCmd(apiBase *string, pollEvery time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live garden view that follows the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}
			store, err := cache.DefaultStore()
			if err != nil {
				return err
			}
			rec := cl.NewReconciler(newClient(apiBase), store, sess.AccessToken)
			return runWatch(cmd.Context(), rec, pollEvery)
		},
	}
}

func itemKindFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		kind := strings.ToLower(strings.TrimSpace(args[0]))
		if kind == "" {
			return "", fmt.Errorf("invalid item")
		}
		return kind, nil
	}
	kind, err := promptRequired("Item")
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(kind)), nil
}

func intFromArgOrPrompt(args []string, idx int, label string) (int, error) {
	if len(args) > idx {
		v, err := strconv.Atoi(strings.TrimSpace(args[idx]))
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	v, err := promptInt64(label, 0)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
