package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/auth"
	"fintrack/pkg/events"
	"fintrack/pkg/ledger"
	"fintrack/pkg/store"
	"fintrack/pkg/summary"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// internalKind is reported for failures that carry no apperr kind.
const internalKind apperr.Kind = "internal_error"

type app struct {
	auth    *auth.Service
	ledger  *ledger.Service
	summary *summary.Service
}

func newApp(st store.Store, pub events.Publisher, secret []byte, ttl time.Duration, authOpts ...auth.Option) (*app, error) {
	authSvc, err := auth.NewService(st, secret, ttl, authOpts...)
	if err != nil {
		return nil, err
	}
	ledgerSvc := ledger.NewService(st, pub)
	return &app{
		auth:    authSvc,
		ledger:  ledgerSvc,
		summary: summary.NewService(ledgerSvc),
	}, nil
}

func (a *app) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/register", a.registerHandler)
	api.POST("/auth/login", a.loginHandler)

	authGroup := api.Group("")
	authGroup.Use(jwtAuthMiddleware(a.auth))
	authGroup.GET("/auth/profile", a.profileHandler)
	authGroup.PUT("/auth/budget", a.updateBudgetHandler)
	authGroup.GET("/transactions", a.listTransactionsHandler)
	authGroup.POST("/transactions", a.createTransactionHandler)
	authGroup.GET("/transactions/:id", a.getTransactionHandler)
	authGroup.PUT("/transactions/:id", a.updateTransactionHandler)
	authGroup.DELETE("/transactions/:id", a.deleteTransactionHandler)
	authGroup.GET("/summary", a.summaryHandler)
}

func errorBody(kind apperr.Kind, msg string, fields map[string]string) gin.H {
	body := gin.H{"kind": kind, "message": msg}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	return gin.H{"error": body}
}

// writeError maps err to a status and the JSON error body and aborts the
// chain. Causes of 5xx responses are logged, never returned.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.Storage {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		_ = c.Error(err)
		kind := internalKind
		if ae != nil {
			kind = ae.Kind
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(kind, "internal server error", nil))
		return
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.NotFound:
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, errorBody(ae.Kind, ae.Message, ae.Fields))
}

// bindJSON decodes the body, answering 400 itself on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, apperr.Wrap(apperr.Validation, "invalid request body", err))
		return false
	}
	return true
}

func (a *app) registerHandler(c *gin.Context) {
	var req struct {
		Username      string           `json:"username"`
		Password      string           `json:"password"`
		DisplayName   string           `json:"displayName"`
		MonthlyBudget *decimal.Decimal `json:"monthlyBudget"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sess, err := a.auth.Register(c.Request.Context(), auth.RegisterInput{
		Username:      req.Username,
		Password:      req.Password,
		DisplayName:   req.DisplayName,
		MonthlyBudget: req.MonthlyBudget,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "token": sess.Token, "user": sess.User})
}

func (a *app) loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sess, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": sess.Token, "user": sess.User})
}

func (a *app) profileHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// updateBudgetHandler keeps the current value of any field left out of the
// body.
func (a *app) updateBudgetHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	var req struct {
		MonthlyBudget        *decimal.Decimal `json:"monthlyBudget"`
		BudgetAlertThreshold *int             `json:"budgetAlertThreshold"`
	}
	if !bindJSON(c, &req) {
		return
	}
	budget := user.MonthlyBudget
	if req.MonthlyBudget != nil {
		budget = *req.MonthlyBudget
	}
	threshold := user.BudgetAlertThreshold
	if req.BudgetAlertThreshold != nil {
		threshold = *req.BudgetAlertThreshold
	}
	view, err := a.auth.UpdateBudget(c.Request.Context(), user, budget, threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Budget updated successfully", "user": view})
}

type transactionRequest struct {
	Title    string                 `json:"title"`
	Amount   decimal.Decimal        `json:"amount"`
	Type     models.TransactionType `json:"type"`
	Category string                 `json:"category"`
	Date     string                 `json:"date"`
}

func (r transactionRequest) input() (ledger.Input, error) {
	in := ledger.Input{Title: r.Title, Amount: r.Amount, Type: r.Type, Category: r.Category}
	if r.Date != "" {
		d, err := models.ParseDate(r.Date)
		if err != nil {
			fe := apperr.FieldErrors{}
			fe.Add("date", "must be YYYY-MM-DD or RFC 3339")
			return in, fe.Err()
		}
		in.Date = &d
	}
	return in, nil
}

func transactionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		// a malformed id cannot name a transaction the caller owns
		writeError(c, apperr.New(apperr.NotFound, "transaction not found"))
		return 0, false
	}
	return uint(id), true
}

func (a *app) listTransactionsHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	f := store.Filter{
		Type:     models.TransactionType(c.Query("type")),
		Category: c.Query("category"),
	}
	txs, err := a.ledger.List(c.Request.Context(), user, f)
	if err != nil {
		writeError(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	c.JSON(http.StatusOK, txs)
}

func (a *app) createTransactionHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	var req transactionRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	tx, err := a.ledger.Create(c.Request.Context(), user, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (a *app) getTransactionHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	id, ok := transactionID(c)
	if !ok {
		return
	}
	tx, err := a.ledger.Get(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (a *app) updateTransactionHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	id, ok := transactionID(c)
	if !ok {
		return
	}
	var req transactionRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(c, err)
		return
	}
	tx, err := a.ledger.Update(c.Request.Context(), user, id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (a *app) deleteTransactionHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	id, ok := transactionID(c)
	if !ok {
		return
	}
	if err := a.ledger.Delete(c.Request.Context(), user, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) summaryHandler(c *gin.Context) {
	user := mustUser(c)
	if user == nil {
		return
	}
	sum, err := a.summary.ForUser(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
