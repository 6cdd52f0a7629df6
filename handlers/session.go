package handlers

import (
	"context"
	"log"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"eventbook-client/journal"
	"eventbook-client/models"
	"eventbook-client/session"
)

// SubmissionLister reads back the submission journal.
type SubmissionLister interface {
	Recent(ctx context.Context, f journal.Filter) ([]models.SubmissionRecord, error)
}

type SessionHandler struct {
	ctrl         *session.Controller
	journal      SubmissionLister
	defaultToken common.Address
}

// NewSessionHandler exposes ctrl over HTTP. lister may be nil when no database is configured.
func NewSessionHandler(ctrl *session.Controller, lister SubmissionLister, defaultToken common.Address) *SessionHandler {
	return &SessionHandler{
		ctrl:         ctrl,
		journal:      lister,
		defaultToken: defaultToken,
	}
}

// Register mounts the session routes on api.
func (h *SessionHandler) Register(api *gin.RouterGroup) {
	api.POST("/session/connect", h.Connect)
	api.POST("/session/catalog", h.LoadCatalog)
	api.POST("/session/events", h.CreateEvent)
	api.POST("/session/events/:address/select", h.SelectEvent)
	api.POST("/session/purchase", h.PurchaseTicket)
	api.GET("/session", h.GetView)
	api.GET("/session/balance", h.GetBalance)
	api.GET("/submissions", h.GetSubmissions)
}

type eventResponse struct {
	Address            string `json:"address"`
	Name               string `json:"name"`
	TicketPrice        string `json:"ticket_price"`
	SeatingCapacity    uint64 `json:"seating_capacity"`
	CancellationCharge string `json:"cancellation_charge"`
	Token              string `json:"token_address"`
}

type ticketResponse struct {
	ID       uint64 `json:"ticket_id"`
	Buyer    string `json:"buyer"`
	Attended bool   `json:"attended"`
}

type viewResponse struct {
	SessionID string           `json:"session_id"`
	State     string           `json:"state"`
	Identity  string           `json:"identity,omitempty"`
	Events    []eventResponse  `json:"events"`
	Selected  *eventResponse   `json:"selected,omitempty"`
	SoldCount uint64           `json:"sold_count"`
	Tickets   []ticketResponse `json:"tickets"`
}

type submissionResponse struct {
	EventAddress    string `json:"event_address"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number"`
}

func toEventResponse(ev models.Event) eventResponse {
	return eventResponse{
		Address:            ev.Address.Hex(),
		Name:               ev.Terms.Name,
		TicketPrice:        models.FormatEther(ev.Terms.TicketPrice),
		SeatingCapacity:    ev.Terms.SeatingCapacity,
		CancellationCharge: models.FormatEther(ev.Terms.CancellationCharge),
		Token:              ev.Terms.Token.Hex(),
	}
}

func toViewResponse(v models.ViewState) viewResponse {
	resp := viewResponse{
		SessionID: v.SessionID.String(),
		State:     v.State.String(),
		Events:    make([]eventResponse, 0, len(v.Events)),
		SoldCount: v.SoldCount,
		Tickets:   make([]ticketResponse, 0, len(v.Tickets)),
	}
	if v.State != models.StateDisconnected {
		resp.Identity = v.Identity.Hex()
	}
	for _, ev := range v.Events {
		resp.Events = append(resp.Events, toEventResponse(ev))
	}
	if v.Selected != nil {
		selected := toEventResponse(*v.Selected)
		resp.Selected = &selected
	}
	for _, tk := range v.Tickets {
		resp.Tickets = append(resp.Tickets, ticketResponse{ID: tk.ID, Buyer: tk.Buyer.Hex(), Attended: tk.Attended})
	}
	return resp
}

func toSubmissionResponse(sub models.Submission) *submissionResponse {
	if sub.TxHash == (common.Hash{}) {
		return nil
	}
	return &submissionResponse{
		EventAddress:    sub.Event.Hex(),
		TransactionHash: sub.TxHash.Hex(),
		BlockNumber:     sub.BlockNumber,
	}
}

func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindConnectivity:
		return http.StatusServiceUnavailable
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindSubmission:
		return http.StatusUnprocessableEntity
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusUnauthorized
	case models.KindConflict, models.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "kind": models.KindOf(err).String()})
}

func (h *SessionHandler) Connect(c *gin.Context) {
	if err := h.ctrl.Connect(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponse(h.ctrl.View()))
}

func (h *SessionHandler) LoadCatalog(c *gin.Context) {
	if err := h.ctrl.LoadCatalog(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponse(h.ctrl.View()))
}

func (h *SessionHandler) CreateEvent(c *gin.Context) {
	var req struct {
		Name               string `json:"name" binding:"required"`
		TicketPrice        string `json:"ticket_price" binding:"required"`
		SeatingCapacity    int64  `json:"seating_capacity"`
		CancellationCharge string `json:"cancellation_charge"`
		Token              string `json:"token_address"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": models.KindValidation.String()})
		return
	}

	price, err := models.ParseEther(req.TicketPrice)
	if err != nil {
		respondError(c, models.NewError(models.KindValidation, "create event", "invalid ticket price", err))
		return
	}
	charge := new(big.Int)
	if req.CancellationCharge != "" {
		if charge, err = models.ParseEther(req.CancellationCharge); err != nil {
			respondError(c, models.NewError(models.KindValidation, "create event", "invalid cancellation charge", err))
			return
		}
	}
	token := h.defaultToken
	if req.Token != "" {
		if !common.IsHexAddress(req.Token) {
			respondError(c, models.NewError(models.KindValidation, "create event", "invalid token address", nil))
			return
		}
		token = common.HexToAddress(req.Token)
	}

	log.Printf("Creating event %q: price=%s capacity=%d", req.Name, req.TicketPrice, req.SeatingCapacity)

	sub, err := h.ctrl.CreateEvent(c.Request.Context(), models.CreateEventCommand{
		Name:               req.Name,
		TicketPrice:        price,
		SeatingCapacity:    req.SeatingCapacity,
		CancellationCharge: charge,
		Token:              token,
	})
	h.respondMutation(c, sub, err)
}

func (h *SessionHandler) SelectEvent(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		respondError(c, models.NewError(models.KindValidation, "select event", "invalid event address", nil))
		return
	}
	if err := h.ctrl.SelectEvent(c.Request.Context(), common.HexToAddress(address)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toViewResponse(h.ctrl.View()))
}

func (h *SessionHandler) PurchaseTicket(c *gin.Context) {
	var req struct {
		EventAddress string `json:"event_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": models.KindValidation.String()})
		return
	}
	if !common.IsHexAddress(req.EventAddress) {
		respondError(c, models.NewError(models.KindValidation, "purchase ticket", "invalid event address", nil))
		return
	}

	log.Printf("Purchasing ticket for event %s", req.EventAddress)

	sub, err := h.ctrl.PurchaseTicket(c.Request.Context(), models.PurchaseCommand{Event: common.HexToAddress(req.EventAddress)})
	h.respondMutation(c, sub, err)
}

// respondMutation reports the refreshed view. A submission that confirmed but whose
// follow-up refresh failed is still reported alongside the error.
func (h *SessionHandler) respondMutation(c *gin.Context, sub models.Submission, err error) {
	if err != nil {
		body := gin.H{"error": err.Error(), "kind": models.KindOf(err).String()}
		if s := toSubmissionResponse(sub); s != nil {
			body["submission"] = s
		}
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submission": toSubmissionResponse(sub),
		"view":       toViewResponse(h.ctrl.View()),
	})
}

func (h *SessionHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, toViewResponse(h.ctrl.View()))
}

func (h *SessionHandler) GetBalance(c *gin.Context) {
	token, balance, err := h.ctrl.Balance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"identity":      h.ctrl.View().Identity.Hex(),
		"token_address": token.Hex(),
		"balance":       models.FormatEther(balance),
	})
}

func (h *SessionHandler) GetSubmissions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "submission journal is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := journal.Filter{
		Identity: c.Query("identity"),
		Kind:     c.Query("kind"),
		Limit:    limit,
	}
	filter.Limit = filter.EffectiveLimit()
	if filter.Identity != "" {
		if !common.IsHexAddress(filter.Identity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid identity address"})
			return
		}
		filter.Identity = common.HexToAddress(filter.Identity).Hex()
	}

	records, err := h.journal.Recent(c.Request.Context(), filter)
	if err != nil {
		log.Printf("Failed to read submissions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": records,
		"total":       len(records),
		"limit":       filter.Limit,
	})
}
