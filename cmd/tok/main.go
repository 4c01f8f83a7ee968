package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "tokenomy/internal/cli"
	"tokenomy/internal/config"
	"tokenomy/internal/economy"
	"tokenomy/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "tok",
		Short:        "Tokenomy CLI client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newWalletCmd(&apiBase),
		newMarketCmd(&apiBase),
		newTradeCmd(&apiBase),
		newPortfolioCmd(&apiBase),
		newPotCmd(&apiBase),
		newRewardsCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newFriendsCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Tokenomy account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `tok login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
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
		Short: "Login to Tokenomy",
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
			if err := cl.SaveSession(cl.Session{
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
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newWalletCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "wallet",
		Short: "Show your token balance and positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Wallet(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderWallet(out)
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show token value history",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MarketHistory(ctx, sess.AccessToken, limit)
			if err != nil {
				return err
			}
			return renderMarketHistory(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 24, "number of hourly points to show")
	return cmd
}

func newTradeCmd(apiBase *string) *cobra.Command {
	trade := &cobra.Command{
		Use:   "trade",
		Short: "Paper trading commands",
	}
	trade.AddCommand(newTradeSideCmd(apiBase, "BUY"))
	trade.AddCommand(newTradeSideCmd(apiBase, "SELL"))
	trade.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Show your trade log",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Trades(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderTradeLog(out)
		},
	})
	return trade
}

func newTradeSideCmd(apiBase *string, side string) *cobra.Command {
	short := "Buy shares at the quoted price"
	if side == "SELL" {
		short = "Sell shares at the quoted price"
	}
	return &cobra.Command{
		Use:   strings.ToLower(side) + " [symbol]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			quantity, err := promptInt64("Shares", 1)
			if err != nil {
				return err
			}
			price, err := promptFloat("Quoted price (tokens/share)", 0)
			if err != nil {
				return err
			}

			idem := uuid.NewString()
			body := map[string]any{
				"symbol":   symbol,
				"side":     side,
				"quantity": quantity,
				"price":    price,
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.PlaceTrade(ctx, sess.AccessToken, symbol, side, idem, quantity, price)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/trades",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderTradeResult(out)
		},
	}
}

func newPortfolioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show daily net worth history",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PortfolioHistory(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderPortfolio(out)
		},
	}
}

func newPotCmd(apiBase *string) *cobra.Command {
	pot := &cobra.Command{
		Use:   "pot",
		Short: "Daily lottery pot commands",
	}
	pot.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current pot and entrants",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Pot(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderPot(out)
		},
	})
	pot.AddCommand(&cobra.Command{
		Use:   "enter [tokens]",
		Short: "Buy into today's pot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			tokens, err := int64FromArgOrPrompt(args, 0, "Tokens")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{"tokens": tokens}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.EnterPot(ctx, sess.AccessToken, idem, tokens)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/pot/enter",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderPotEnter(out)
		},
	})
	return pot
}

func newRewardsCmd(apiBase *string) *cobra.Command {
	rewards := &cobra.Command{
		Use:   "rewards",
		Short: "Daily bonus, scratch tickets and lootboxes",
	}
	rewards.AddCommand(newRewardSubCmd(apiBase, "daily", "Claim the daily login bonus", "/v1/rewards/daily"))
	rewards.AddCommand(newRewardSubCmd(apiBase, "scratch", fmt.Sprintf("Buy a scratch ticket (%d tokens)", economy.ScratchTicketCost), "/v1/rewards/scratch"))
	rewards.AddCommand(newRewardSubCmd(apiBase, "lootbox", fmt.Sprintf("Open a lootbox (%d tokens)", economy.LootboxCost), "/v1/rewards/lootbox"))
	return rewards
}

func newRewardSubCmd(apiBase *string, name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			idem := uuid.NewString()
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.Do(ctx, "POST", path, sess.AccessToken, map[string]any{}, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           path,
					Body:           map[string]any{},
					IdempotencyKey: idem,
				})
			}
			return renderReward(out)
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	lb := &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard commands",
	}
	lb.AddCommand(&cobra.Command{
		Use:   "global",
		Short: "Global leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LeaderboardGlobal(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderLeaderboard(out, "Global Leaderboard")
		},
	})
	lb.AddCommand(&cobra.Command{
		Use:   "friends",
		Short: "Friends leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LeaderboardFriends(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderLeaderboard(out, "Friends Leaderboard")
		},
	})
	return lb
}

func newFriendsCmd(apiBase *string) *cobra.Command {
	friends := &cobra.Command{
		Use:   "friends",
		Short: "Manage friends by invite code",
	}
	friends.AddCommand(&cobra.Command{
		Use:   "add [invite_code]",
		Short: "Follow a user using invite code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			code, err := inviteCodeFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{"invite_code": code}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := client.AddFriend(ctx, sess.AccessToken, code, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/friends",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderSimpleOK(out, fmt.Sprintf("Now following invite code %s.", code))
		},
	})
	friends.AddCommand(&cobra.Command{
		Use:   "remove [invite_code]",
		Short: "Unfollow a user using invite code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			code, err := inviteCodeFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).RemoveFriend(ctx, sess.AccessToken, code)
			if err != nil {
				return err
			}
			return renderSimpleOK(out, fmt.Sprintf("Stopped following invite code %s.", code))
		},
	})
	return friends
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}

// queueOnNetworkError queues the command locally when the failure is a
// transport problem. Structured API rejections are surfaced immediately;
// replaying those later would fail again.
func queueOnNetworkError(err error, cmd syncq.Command) error {
	if err == nil {
		return nil
	}
	if isAPIStructuredError(err) {
		return err
	}
	if qErr := syncq.Push(cmd); qErr != nil {
		return fmt.Errorf("request failed and could not queue: %v (queue: %v)", err, qErr)
	}
	printWarn(fmt.Sprintf("Offline: queued %s %s for `tok sync`.", cmd.Method, cmd.Path))
	return nil
}

func isAPIStructuredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "api status")
}

func symbolFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		if err := economy.ValidateSymbol(symbol); err != nil {
			return "", err
		}
		return symbol, nil
	}
	return promptSymbol("Symbol")
}

func inviteCodeFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.ToUpper(strings.TrimSpace(args[0])), nil
	}
	code, err := promptRequired("Invite code")
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(code)), nil
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
