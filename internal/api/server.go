package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tokenomy/internal/auth"
	"tokenomy/internal/config"
	"tokenomy/internal/economy"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	auth     *auth.Client
	econ     *economy.Service
	mux      *chi.Mux
	validate *validator.Validate
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.Client, econSvc *economy.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		auth:     authClient,
		econ:     econSvc,
		mux:      chi.NewRouter(),
		validate: validator.New(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/wallet", s.handleWallet)

			r.Post("/ledger/credit", s.handleCredit)
			r.Post("/ledger/debit", s.handleDebit)

			r.Get("/market/history", s.handleMarketHistory)
			r.Post("/market/snapshot", s.handleMarketSnapshot)

			r.Get("/pot", s.handlePot)
			r.Post("/pot/enter", s.handlePotEnter)

			r.Post("/trades", s.handleTrade)
			r.Get("/trades", s.handleTradeLog)
			r.Get("/portfolio/history", s.handlePortfolioHistory)

			r.Get("/leaderboard/global", s.handleLeaderboardGlobal)
			r.Get("/leaderboard/friends", s.handleLeaderboardFriends)

			r.Post("/rewards/daily", s.handleDailyBonus)
			r.Post("/rewards/scratch", s.handleScratchTicket)
			r.Post("/rewards/lootbox", s.handleLootbox)

			r.Post("/friends", s.handleFriendAdd)
			r.Delete("/friends/{invite_code}", s.handleFriendDelete)

			// Acknowledgement only; the CLI replays each queued command
			// against its real endpoint, so no mutation happens here.
			r.Post("/sync/replay", s.handleSyncReplay)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	user, ok := ctx.Value(userContextKey).(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Username string `json:"username" validate:"omitempty,min=3,max=24"`
	}
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.econ.EnsureAccount(r.Context(), session.User.ID, session.User.Email, in.Username); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.econ.EnsureAccount(r.Context(), session.User.ID, session.User.Email, ""); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.econ.Wallet(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type ledgerRequest struct {
	Amount float64 `json:"amount" validate:"required"`
	Reason string  `json:"reason" validate:"required,max=64"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerOp(w, r, s.econ.Credit)
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	s.handleLedgerOp(w, r, s.econ.Debit)
}

func (s *Server) handleLedgerOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int64, string, string) (int64, error)) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in ledgerRequest
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tokens, err := economy.ValidateAmountFloat(in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	newBalance, err := op(r.Context(), user.UserID, tokens, in.Reason, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_balance": newBalance})
}

func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 24)
	out, err := s.econ.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	point, err := s.econ.RecordSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, point)
}

func (s *Server) handlePot(w http.ResponseWriter, r *http.Request) {
	out, err := s.econ.Pot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePotEnter(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Tokens float64 `json:"tokens" validate:"required"`
	}
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tokens, err := economy.ValidateAmountFloat(in.Tokens)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.econ.EnterPot(r.Context(), user.UserID, tokens, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Symbol   string  `json:"symbol" validate:"required"`
		Side     string  `json:"side" validate:"required,oneof=BUY SELL buy sell"`
		Quantity int64   `json:"quantity" validate:"required,gt=0"`
		Price    float64 `json:"price" validate:"required,gt=0"`
	}
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.econ.PlaceTrade(r.Context(), economy.TradeInput{
		UserID:         user.UserID,
		Symbol:         in.Symbol,
		Side:           in.Side,
		Quantity:       in.Quantity,
		Price:          in.Price,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTradeLog(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.econ.Transactions(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = user.UserID
	}
	out, err := s.econ.PortfolioHistory(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleLeaderboardGlobal(w http.ResponseWriter, r *http.Request) {
	out, err := s.econ.GlobalLeaderboard(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleLeaderboardFriends(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.econ.FriendsLeaderboard(r.Context(), user.UserID, queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleDailyBonus(w http.ResponseWriter, r *http.Request) {
	s.handleReward(w, r, s.econ.ClaimDailyBonus)
}

func (s *Server) handleScratchTicket(w http.ResponseWriter, r *http.Request) {
	s.handleReward(w, r, s.econ.OpenScratchTicket)
}

func (s *Server) handleLootbox(w http.ResponseWriter, r *http.Request) {
	s.handleReward(w, r, s.econ.OpenLootbox)
}

func (s *Server) handleReward(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (economy.RewardResult, error)) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := op(r.Context(), user.UserID, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFriendAdd(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		InviteCode string `json:"invite_code" validate:"required,len=8"`
	}
	if err := s.decodeValid(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.econ.AddFriend(r.Context(), user.UserID, in.InviteCode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleFriendDelete(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.econ.RemoveFriend(r.Context(), user.UserID, chi.URLParam(r, "invite_code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleSyncReplay acknowledges a batch of offline commands queued by the
// CLI. The CLI replays each one against its real endpoint with the
// original idempotency key, so double application is impossible.
func (s *Server) handleSyncReplay(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Commands []struct {
			Method         string `json:"method"`
			Path           string `json:"path"`
			IdempotencyKey string `json:"idempotency_key"`
		} `json:"commands"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results := make([]map[string]any, 0, len(in.Commands))
	for _, cmd := range in.Commands {
		results = append(results, map[string]any{
			"method":          cmd.Method,
			"path":            cmd.Path,
			"idempotency_key": cmd.IdempotencyKey,
			"status":          "queued_for_cli_replay",
			"user_id":         user.UserID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrDuplicateIdempotency), errors.Is(err, economy.ErrTxConflict):
		writeTaxonomyError(w, http.StatusConflict, "TransactionFailure", err)
	case errors.Is(err, economy.ErrInsufficientFunds):
		writeTaxonomyError(w, http.StatusBadRequest, "InsufficientFunds", err)
	case errors.Is(err, economy.ErrInsufficientShares),
		errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, economy.ErrInvalidSymbol),
		errors.Is(err, economy.ErrPotEmpty),
		errors.Is(err, economy.ErrRewardCooldown):
		writeTaxonomyError(w, http.StatusBadRequest, "ValidationError", err)
	case errors.Is(err, economy.ErrNotFound):
		writeTaxonomyError(w, http.StatusNotFound, "NotFound", err)
	case errors.Is(err, economy.ErrUnauthorized):
		writeTaxonomyError(w, http.StatusForbidden, "Unauthorized", err)
	default:
		writeTaxonomyError(w, http.StatusInternalServerError, "TransactionFailure", err)
	}
}

func writeTaxonomyError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(err.Error()), "kind": kind})
}

func (s *Server) decodeValid(r *http.Request, out any) error {
	if err := decodeJSON(r, out); err != nil {
		return err
	}
	return s.validate.Struct(out)
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
