package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tokenomy/internal/economy"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type marketPayload struct {
	History []economy.MarketPoint `json:"history"`
}

type tradeLogPayload struct {
	Transactions []economy.Transaction `json:"transactions"`
}

type portfolioPayload struct {
	History []economy.PortfolioPoint `json:"history"`
}

type leaderboardPayload struct {
	Entries []economy.LeaderboardEntry `json:"entries"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
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

// promptPassword reads without echo when stdin is a terminal and falls
// back to a plain prompt when it is not (piped input, CI).
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

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.4f", min))
			continue
		}
		return v, nil
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

func promptSymbol(label string) (string, error) {
	for {
		symbol, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if err := economy.ValidateSymbol(symbol); err != nil {
			printWarn("Symbols are 1-8 uppercase letters.")
			continue
		}
		return symbol, nil
	}
}

func renderWallet(raw map[string]any) error {
	w, err := decodeInto[economy.WalletView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== WALLET ==")
	fmt.Printf("Tokens:    %s\n", comma(w.Tokens))
	fmt.Printf("Holdings:  %s\n", comma(w.HoldingsValue))
	fmt.Printf("Net Worth: %s\n", comma(w.NetWorth))

	fmt.Println()
	accent.Println("Positions")
	if len(w.Positions) == 0 {
		printInfo("No open positions yet.")
	} else {
		fmt.Printf("%-8s %10s %12s %12s %14s\n", "SYMBOL", "QTY", "AVG", "LAST", "VALUE")
		for _, p := range w.Positions {
			fmt.Printf("%-8s %10d %12.2f %12.2f %14s\n",
				p.Symbol, p.Quantity, p.AvgPrice, p.LastPrice, comma(p.MarketValue))
		}
	}
	fmt.Println()
	return nil
}

func renderMarketHistory(raw map[string]any) error {
	payload, err := decodeInto[marketPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TOKEN MARKET ==")
	if len(payload.History) == 0 {
		printInfo("No market history yet.")
		return nil
	}
	fmt.Printf("%-20s %14s %16s %8s\n", "HOUR", "VALUE", "CIRCULATION", "SYNTH")
	for _, p := range payload.History {
		synth := ""
		if p.Synthetic {
			synth = "yes"
		}
		fmt.Printf("%-20s %14.4f %16s %8s\n",
			p.Bucket.Local().Format("2006-01-02 15:04"),
			p.TokenValue,
			comma(p.TokensInCirculation),
			synth,
		)
	}
	fmt.Println()
	return nil
}

func renderTradeResult(raw map[string]any) error {
	out, err := decodeInto[economy.TradeResult](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== TRADE %s ==\n", out.Side)
	fmt.Printf("Symbol:   %s\n", out.Symbol)
	fmt.Printf("Shares:   %d\n", out.Quantity)
	fmt.Printf("Price:    %.4f\n", out.Price)
	fmt.Printf("Total:    %s tokens\n", comma(out.TotalCost))
	fmt.Printf("Balance:  %s tokens\n", comma(out.NewBalance))
	fmt.Println()
	return nil
}

func renderTradeLog(raw map[string]any) error {
	payload, err := decodeInto[tradeLogPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TRADE LOG ==")
	if len(payload.Transactions) == 0 {
		printInfo("No trades yet.")
		return nil
	}
	fmt.Printf("%-20s %-8s %-5s %10s %12s %12s\n", "TIME", "SYMBOL", "SIDE", "QTY", "PRICE", "TOTAL")
	for _, t := range payload.Transactions {
		fmt.Printf("%-20s %-8s %-5s %10d %12.2f %12s\n",
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Symbol, t.Side, t.Quantity, t.Price, comma(t.TotalCost))
	}
	fmt.Println()
	return nil
}

func renderPortfolio(raw map[string]any) error {
	payload, err := decodeInto[portfolioPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PORTFOLIO HISTORY ==")
	if len(payload.History) == 0 {
		printInfo("No history yet.")
		return nil
	}
	fmt.Printf("%-12s %14s %14s %14s\n", "DATE", "CASH", "HOLDINGS", "NET WORTH")
	for _, p := range payload.History {
		fmt.Printf("%-12s %14.0f %14.0f %14.0f\n",
			p.Date.Format("2006-01-02"), p.Cash, p.Holdings, p.NetWorth)
	}
	fmt.Println()
	return nil
}

func renderPot(raw map[string]any) error {
	pot, err := decodeInto[economy.PotView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== DAILY POT ==")
	fmt.Printf("Total: %s tokens across %d entrants\n", comma(pot.TotalTokens), len(pot.Entries))
	if len(pot.Entries) > 0 {
		fmt.Printf("%-38s %12s\n", "USER", "TOKENS")
		for _, e := range pot.Entries {
			fmt.Printf("%-38s %12s\n", truncate(e.UserID, 38), comma(e.Tokens))
		}
	}
	fmt.Println()
	return nil
}

func renderPotEnter(raw map[string]any) error {
	out, err := decodeInto[economy.PotEnterResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Entered pot. Your stake: %s, pot total: %s, balance: %s.",
		comma(out.UserTokens), comma(out.TotalPot), comma(out.NewBalance)))
	return nil
}

func renderReward(raw map[string]any) error {
	out, err := decodeInto[economy.RewardResult](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(out.Kind))
	if out.Prize != "" {
		fmt.Printf("Prize:   %s\n", out.Prize)
	}
	if out.Cost > 0 {
		fmt.Printf("Cost:    %s tokens\n", comma(out.Cost))
	}
	fmt.Printf("Won:     %s\n", colorizeTokens(out.Won))
	fmt.Printf("Balance: %s tokens\n", comma(out.NewBalance))
	fmt.Println()
	return nil
}

func renderLeaderboard(raw map[string]any, title string) error {
	payload, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(payload.Entries) == 0 {
		printInfo("No leaderboard entries yet.")
		return nil
	}
	fmt.Printf("%-6s %-18s %14s %14s %9s\n", "RANK", "PLAYER", "TOTAL", "PROFIT", "CHANGE")
	for _, e := range payload.Entries {
		fmt.Printf("%-6d %-18s %14s %14s %9s\n",
			e.Rank,
			truncate(e.Username, 18),
			comma(e.TotalValue),
			colorizeTokens(e.Profit),
			colorizePercent(e.PercentChange),
		)
	}
	fmt.Println()
	return nil
}

func renderSimpleOK(raw map[string]any, successMessage string) error {
	ok := false
	if v, has := raw["ok"]; has {
		switch t := v.(type) {
		case bool:
			ok = t
		case string:
			ok = strings.EqualFold(strings.TrimSpace(t), "true")
		}
	}
	if ok || successMessage != "" {
		printSuccess(successMessage)
		return nil
	}
	printInfo("Done.")
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeTokens(v int64) string {
	text := comma(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
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
