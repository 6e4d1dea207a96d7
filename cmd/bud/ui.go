package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"budgarden/internal/game"

	"github.com/fatih/color"
	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgGreen, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Fprintln(os.Stderr, msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(string(raw))
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderGarden(g game.GardenView) error {
	accent.Println("\n== GARDEN ==")
	fmt.Printf("Balance:   %s BUD\n", formatMicros(g.Balance.TotalBudMicros))
	fmt.Printf("Pending:   %s BUD\n", formatMicros(g.Balance.AccumulatedBudMicros))
	fmt.Printf("Rate:      %s BUD/min\n", formatMicros(g.Balance.RateMicrosPerMin))
	if !g.Balance.LastReconciledAt.IsZero() {
		fmt.Printf("Last sync: %s\n", g.Balance.LastReconciledAt.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Println()
	fmt.Print(gridString(g.PlacedItems))

	fmt.Println()
	accent.Println("Placed Items")
	if len(g.PlacedItems) == 0 {
		printInfo("Nothing planted yet.")
	} else {
		fmt.Printf("%-6s %-14s %5s %5s %5s %14s\n", "ID", "ITEM", "ROW", "COL", "ROT", "RATE/MIN")
		for _, p := range g.PlacedItems {
			fmt.Printf("%-6d %-14s %5d %5d %5d %14s\n",
				p.ID,
				truncate(p.ItemKind, 14),
				p.GridRow,
				p.GridCol,
				p.Rotation,
				formatMicros(p.RateMicrosPerMin),
			)
		}
	}

	fmt.Println()
	accent.Println("Inventory")
	if len(g.Inventory) == 0 {
		printInfo("Inventory is empty.")
	} else {
		fmt.Printf("%-14s %6s\n", "ITEM", "COUNT")
		for _, inv := range g.Inventory {
			fmt.Printf("%-14s %6d\n", truncate(inv.ItemKind, 14), inv.Count)
		}
	}
	fmt.Println()
	return nil
}

// gridString draws the 8x8 plot. Blocked tiles render as ##, empty tiles as
// .., occupied tiles as the first two letters of the item kind.
func gridString(placed []game.PlacedItemView) string {
	occupied := make(map[[2]int]string, len(placed))
	for _, p := range placed {
		occupied[[2]int{p.GridRow, p.GridCol}] = p.ItemKind
	}
	var b strings.Builder
	b.WriteString("    ")
	for col := 0; col < game.GridCols; col++ {
		fmt.Fprintf(&b, " %d ", col)
	}
	b.WriteByte('\n')
	for row := 0; row < game.GridRows; row++ {
		fmt.Fprintf(&b, "  %d ", row)
		for col := 0; col < game.GridCols; col++ {
			switch {
			case game.TileBlocked(row, col):
				b.WriteString(" ##")
			case occupied[[2]int{row, col}] != "":
				kind := occupied[[2]int{row, col}]
				if len(kind) < 2 {
					kind += " "
				}
				fmt.Fprintf(&b, " %s", strings.ToUpper(kind[:2]))
			default:
				b.WriteString(" ..")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderShop(items []game.CatalogItem) error {
	accent.Println("\n== SHOP ==")
	if len(items) == 0 {
		printInfo("The shop is empty.")
		return nil
	}
	fmt.Printf("%-14s %-20s %14s %14s %6s\n", "ITEM", "NAME", "PRICE", "RATE/MIN", "LIMIT")
	for _, item := range items {
		limit := "-"
		if item.MaxPurchases != nil {
			limit = strconv.FormatInt(int64(*item.MaxPurchases), 10)
		}
		fmt.Printf("%-14s %-20s %14s %14s %6s\n",
			item.ItemKind,
			truncate(item.DisplayName, 20),
			formatMicros(item.PriceMicros),
			formatMicros(item.RateMicrosPerMin),
			limit,
		)
	}
	fmt.Println()
	return nil
}

func renderReferral(out game.ReferralStatsView, showQR bool) error {
	accent.Println("\n== INVITE ==")
	fmt.Printf("Code:     %s\n", out.Code)
	fmt.Printf("Used:     %d times\n", out.TimesUsed)
	fmt.Printf("Earnings: %s BUD\n", formatMicros(out.TotalReferralEarningsMicros))
	if showQR {
		fmt.Println()
		qrterminal.GenerateWithConfig(out.Code, qrterminal.Config{
			Level:     qrterminal.M,
			Writer:    os.Stdout,
			BlackChar: qrterminal.BLACK,
			WhiteChar: qrterminal.WHITE,
			QuietZone: 1,
		})
	}
	fmt.Println()
	return nil
}

func formatMicros(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / game.MicrosPerBud
	frac := (v % game.MicrosPerBud) / 10_000
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
