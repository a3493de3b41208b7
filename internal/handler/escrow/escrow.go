package escrow

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/history"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
	"github.com/dwarvesf/escrow-history/internal/view"
)

// ChainLister reports which chains have a ledger configured.
type ChainLister interface {
	Chains() []chains.ID
}

type handler struct {
	history   history.IHistory
	sessions  history.ISessionManager
	chains    ChainLister
	logger    *logger.Logger
	validator *validator.Validate
}

func New(history history.IHistory, sessions history.ISessionManager, chains ChainLister, logger *logger.Logger) IHandler {
	return &handler{
		history:   history,
		sessions:  sessions,
		chains:    chains,
		logger:    logger,
		validator: validator.New(),
	}
}

// GetTransfers godoc
// @Summary Get escrow transfer history
// @Description Rebuilds the stablecoin transfers in and out of an escrow account, newest first
// @id getEscrowTransfers
// @Tags Escrow
// @Accept json
// @Produce json
// @Param chain path string true "chain name or chain id"
// @Param address path string true "escrow account address"
// @Param days query int false "days of history, defaults to 3"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /escrows/{chain}/{address}/transfers [get]
func (h *handler) GetTransfers(c *gin.Context) {
	var query TransfersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, query, "invalid request"))
		return
	}
	if err := h.validator.Struct(query); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, query, "invalid request"))
		return
	}

	req := history.Request{
		Chain:         c.Param("chain"),
		EscrowAddress: c.Param("address"),
		Days:          query.Days,
	}
	result, err := h.history.Scan(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("[GetTransfers][Scan]", map[string]string{
			"chain":   req.Chain,
			"address": req.EscrowAddress,
			"error":   err.Error(),
		})
		c.JSON(statusOf(err), view.CreateResponse[any](toHistoryResponse(result), err, req, messageOf(err)))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any](toHistoryResponse(result), nil, nil, ""))
}

// ListSnapshots godoc
// @Summary List stored escrow histories
// @Description Returns the last successfully scanned history of every escrow
// @id listEscrowSnapshots
// @Tags Escrow
// @Produce json
// @Param chain query string false "filter by chain"
// @Success 200 {array} HistoryResponse
// @Failure 400 {object} view.ErrorResponse
// @Router /escrows/snapshots [get]
func (h *handler) ListSnapshots(c *gin.Context) {
	chain := c.Query("chain")
	snapshots, err := h.history.Snapshots(chain)
	if err != nil {
		h.logger.Error("[ListSnapshots][Snapshots]", map[string]string{
			"chain": chain,
			"error": err.Error(),
		})
		c.JSON(statusOf(err), view.CreateResponse[any](nil, err, chain, messageOf(err)))
		return
	}

	out := make([]*HistoryResponse, 0, len(snapshots))
	for i := range snapshots {
		out = append(out, toHistoryResponse(&snapshots[i]))
	}
	c.JSON(http.StatusOK, view.CreateResponse[any](out, nil, nil, ""))
}

// ListChains godoc
// @Summary List supported chains
// @Tags Escrow
// @Produce json
// @Success 200 {array} ChainResponse
// @Router /chains [get]
func (h *handler) ListChains(c *gin.Context) {
	enabled := map[chains.ID]bool{}
	if h.chains != nil {
		for _, id := range h.chains.Chains() {
			enabled[id] = true
		}
	}

	all := chains.All()
	out := make([]ChainResponse, 0, len(all))
	for _, info := range all {
		out = append(out, ChainResponse{Info: info, Enabled: enabled[info.ID]})
	}
	c.JSON(http.StatusOK, view.CreateResponse[any](out, nil, nil, ""))
}

// CreateSession godoc
// @Summary Open a history session
// @Description Starts browsing the history of one escrow with the smallest window
// @id createHistorySession
// @Tags History Session
// @Accept json
// @Produce json
// @Param request body SessionRequest true "escrow to browse"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /history-sessions [post]
func (h *handler) CreateSession(c *gin.Context) {
	req, chainID, ok := h.bindSessionRequest(c)
	if !ok {
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), chainID, req.EscrowAddress)
	if err != nil {
		c.JSON(statusOf(err), view.CreateResponse[any](toSessionResponse(session), err, req, messageOf(err)))
		return
	}
	c.JSON(http.StatusCreated, view.CreateResponse[any](toSessionResponse(session), nil, nil, ""))
}

// GetSession godoc
// @Summary Get a history session
// @Tags History Session
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} view.ErrorResponse
// @Router /history-sessions/{id} [get]
func (h *handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	h.respondSession(c, session, err)
}

// SelectEscrow godoc
// @Summary Switch a session to another escrow
// @Description Resets the window and drops results of scans still running for the previous escrow
// @Tags History Session
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Param request body SessionRequest true "escrow to browse"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /history-sessions/{id}/select [post]
func (h *handler) SelectEscrow(c *gin.Context) {
	req, chainID, ok := h.bindSessionRequest(c)
	if !ok {
		return
	}

	session, err := h.sessions.Select(c.Request.Context(), c.Param("id"), chainID, req.EscrowAddress)
	h.respondSession(c, session, err)
}

// LoadMore godoc
// @Summary Extend a session window
// @Description Extends the window by one step, up to the maximum, and rescans
// @Tags History Session
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /history-sessions/{id}/more [post]
func (h *handler) LoadMore(c *gin.Context) {
	session, err := h.sessions.LoadMore(c.Request.Context(), c.Param("id"))
	h.respondSession(c, session, err)
}

// RefreshSession godoc
// @Summary Rescan a session window
// @Tags History Session
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} view.ErrorResponse
// @Failure 502 {object} view.ErrorResponse
// @Router /history-sessions/{id}/refresh [post]
func (h *handler) RefreshSession(c *gin.Context) {
	session, err := h.sessions.Refresh(c.Request.Context(), c.Param("id"))
	h.respondSession(c, session, err)
}

func (h *handler) bindSessionRequest(c *gin.Context) (SessionRequest, chains.ID, bool) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[bindSessionRequest][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return req, "", false
	}

	req.EscrowAddress = strings.TrimSpace(req.EscrowAddress)
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return req, "", false
	}

	chainID, err := chains.Parse(req.Chain)
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return req, "", false
	}
	return req, chainID, true
}

func (h *handler) respondSession(c *gin.Context, session *history.SessionView, err error) {
	if err != nil {
		if !errors.Is(err, history.ErrSessionNotFound) {
			h.logger.Error("[respondSession]", map[string]string{
				"session": c.Param("id"),
				"error":   err.Error(),
			})
		}
		c.JSON(statusOf(err), view.CreateResponse[any](toSessionResponse(session), err, nil, messageOf(err)))
		return
	}
	c.JSON(http.StatusOK, view.CreateResponse[any](toSessionResponse(session), nil, nil, ""))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, chains.ErrUnsupportedChain),
		errors.Is(err, history.ErrDaysOutOfRange),
		errors.Is(err, escrow.ErrInvalidAddress),
		errors.Is(err, escrow.ErrInvalidHistoryDays):
		return http.StatusBadRequest
	case errors.Is(err, history.ErrSessionNotFound),
		errors.Is(err, evmrpc.ErrChainNotConfigured):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrStaleScan):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrLedgerQueryFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	switch statusOf(err) {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "superseded by a newer scan"
	case http.StatusBadGateway:
		return "can't query ledger"
	default:
		return "can't load escrow history"
	}
}
