package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/middleware"
	ledgerSvc "github.com/NomadCrew/nomad-crew-ledger/models/ledger/service"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/gin-gonic/gin"
)

// LedgerServiceInterface defines the methods used by LedgerHandler,
// allowing the handler to be tested with mocks.
type LedgerServiceInterface interface {
	GetBalances(ctx context.Context, groupID string) (types.Balances, error)
	GetSimplifiedDebts(ctx context.Context, groupID string) ([]types.SimplifiedDebt, error)
	Explain(ctx context.Context, groupID, currency string) ([]types.SimplificationStep, string, error)
	Summary(ctx context.Context, groupID string) (*types.GroupSummary, error)
	AddParticipant(ctx context.Context, groupID string, req types.UpsertParticipantRequest) (*types.Participant, error)
	CreateExpense(ctx context.Context, groupID, userID string, req types.CreateExpenseRequest) (*types.Expense, error)
	PreviewSplit(req types.SplitPreviewRequest) (*types.SplitPreviewResponse, error)
	RecordSettlement(ctx context.Context, groupID string, req types.CreateSettlementRequest) (*types.SettlementResponse, error)
	ConfirmSettlement(ctx context.Context, groupID, settlementID string, strongAuthVerified bool) (*types.SettlementResponse, error)
	RejectSettlement(ctx context.Context, groupID, settlementID string) (*types.SettlementResponse, error)
}

// Ensure the concrete service satisfies the interface at compile time.
var _ LedgerServiceInterface = (*ledgerSvc.LedgerService)(nil)

type LedgerHandler struct {
	ledgerService LedgerServiceInterface
}

func NewLedgerHandler(ledgerService LedgerServiceInterface) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// GetBalancesHandler returns the net balance of every participant
// GET /v1/groups/:groupId/balances
func (h *LedgerHandler) GetBalancesHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	balances, err := h.ledgerService.GetBalances(c.Request.Context(), groupID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types.BalancesResponse{GroupID: groupID, Balances: balances})
}

// GetSimplifiedDebtsHandler returns the payment plan
// GET /v1/groups/:groupId/simplified-debts
func (h *LedgerHandler) GetSimplifiedDebtsHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	debts, err := h.ledgerService.GetSimplifiedDebts(c.Request.Context(), groupID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types.SimplifiedDebtsResponse{GroupID: groupID, Debts: debts})
}

// GetExplanationHandler returns the step-by-step trace of the payment plan
// GET /v1/groups/:groupId/explanation?currency=INR
func (h *LedgerHandler) GetExplanationHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	steps, label, err := h.ledgerService.Explain(c.Request.Context(), groupID, c.Query("currency"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types.ExplanationResponse{GroupID: groupID, Currency: label, Steps: steps})
}

// GET /v1/groups/:groupId/summary
func (h *LedgerHandler) GetSummaryHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	summary, err := h.ledgerService.Summary(c.Request.Context(), groupID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// UpsertParticipantHandler adds or renames a participant
// POST /v1/groups/:groupId/participants
func (h *LedgerHandler) UpsertParticipantHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req types.UpsertParticipantRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	participant, err := h.ledgerService.AddParticipant(c.Request.Context(), groupID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

// CreateExpenseHandler splits and records an expense
// POST /v1/groups/:groupId/expenses
func (h *LedgerHandler) CreateExpenseHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req types.CreateExpenseRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	expense, err := h.ledgerService.CreateExpense(c.Request.Context(), groupID, getUserIDFromContext(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// PreviewSplitHandler computes a split without recording it
// POST /v1/splits/preview
func (h *LedgerHandler) PreviewSplitHandler(c *gin.Context) {
	var req types.SplitPreviewRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	resp, err := h.ledgerService.PreviewSplit(req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordSettlementHandler records a pending payment between two participants
// POST /v1/groups/:groupId/settlements
func (h *LedgerHandler) RecordSettlementHandler(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req types.CreateSettlementRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	resp, err := h.ledgerService.RecordSettlement(c.Request.Context(), groupID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ConfirmSettlementHandler confirms a pending settlement. The body is
// optional; without it strong authentication counts as not verified.
// POST /v1/groups/:groupId/settlements/:settlementId/confirm
func (h *LedgerHandler) ConfirmSettlementHandler(c *gin.Context) {
	groupID, settlementID, ok := settlementParams(c)
	if !ok {
		return
	}

	var req types.ConfirmSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return
	}

	resp, err := h.ledgerService.ConfirmSettlement(c.Request.Context(), groupID, settlementID, req.StrongAuthVerified)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// POST /v1/groups/:groupId/settlements/:settlementId/reject
func (h *LedgerHandler) RejectSettlementHandler(c *gin.Context) {
	groupID, settlementID, ok := settlementParams(c)
	if !ok {
		return
	}

	resp, err := h.ledgerService.RejectSettlement(c.Request.Context(), groupID, settlementID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func groupIDParam(c *gin.Context) (string, bool) {
	groupID := c.Param("groupId")
	if groupID == "" {
		_ = c.Error(apperrors.ValidationFailed("validation_failed", "group ID is required"))
		return "", false
	}
	return groupID, true
}

func settlementParams(c *gin.Context) (string, string, bool) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return "", "", false
	}
	settlementID := c.Param("settlementId")
	if settlementID == "" {
		_ = c.Error(apperrors.ValidationFailed("validation_failed", "settlement ID is required"))
		return "", "", false
	}
	return groupID, settlementID, true
}

// getUserIDFromContext returns the caller set by middleware.UserIdentity, or
// an empty string for anonymous requests.
func getUserIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// bindJSONOrError binds JSON request body and sets validation error if binding fails.
// Returns true if binding succeeded, false if error was set (caller should return).
func bindJSONOrError(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request_payload", err.Error()))
		return false
	}
	return true
}
