package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/chipledger-services/internal/auth"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/service"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/store"
	"github.com/avvvet/chipledger-services/internal/ledgersvc/table"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth      *jwtauth.JWTAuth
	port           string
	SessionService *service.SessionService
	TableService   *service.TableService
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type TableView struct {
	SessionID         string           `json:"session_id"`
	Seats             []*models.Player `json:"seats"`
	Unseated          []models.Player  `json:"unseated"`
	TotalChipsInPlay  int              `json:"total_chips_in_play"`
	TotalEndgameChips int              `json:"total_endgame_chips"`
	Discrepancy       int              `json:"discrepancy"`
}

type playerRequest struct {
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

type endgameChipsRequest struct {
	Value string `json:"value"`
}

type saveEndgameChipsRequest struct {
	Values map[string]int `json:"values"`
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, port string, sessions *service.SessionService, tables *service.TableService) *Handler {
	return &Handler{
		tokenAuth:      tokenAuth,
		port:           port,
		SessionService: sessions,
		TableService:   tables,
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		log.Errorf("request failed: %s", err)
	}
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, table.ErrSeatOutOfRange),
		errors.Is(err, table.ErrInvalidChips),
		errors.Is(err, models.ErrInvalidName),
		errors.Is(err, models.ErrNameTooLong),
		errors.Is(err, models.ErrNegativeChips),
		errors.Is(err, models.ErrTooManyChips),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrSeatOccupied),
		errors.Is(err, table.ErrPlayerSeated),
		errors.Is(err, store.ErrSeatTaken),
		errors.Is(err, store.ErrActiveSessionExists),
		errors.Is(err, service.ErrNoChanges):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, table.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrNoOwner):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("malformed request")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "ledger service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	sessions, err := h.SessionService.ListSessions(r.Context(), owner)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	h.CreateResponse(w, Response{Message: "sessions", Code: http.StatusOK, Data: sessions})
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	session, err := h.SessionService.OpenSession(r.Context(), owner)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "session opened", Code: http.StatusCreated, Data: session})
}

func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	session, err := h.SessionService.GetActiveSession(r.Context(), owner)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "active session", Code: http.StatusOK, Data: session})
}

func (h *Handler) ArchiveSession(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if err := h.SessionService.ArchiveSession(r.Context(), owner, chi.URLParam(r, "sessionID")); err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "session archived", Code: http.StatusOK})
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	t, err := h.TableService.LoadTable(r.Context(), owner)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	view := TableView{
		SessionID:         t.SessionID,
		Seats:             t.SeatSlots(),
		Unseated:          t.Unseated(),
		TotalChipsInPlay:  t.TotalChipsInPlay(),
		TotalEndgameChips: t.TotalEndgameChips(),
		Discrepancy:       t.Discrepancy(),
	}
	h.CreateResponse(w, Response{Message: "table", Code: http.StatusOK, Data: view})
}

func (h *Handler) SeatPlayer(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	seat, err := strconv.Atoi(chi.URLParam(r, "seat"))
	if err != nil {
		h.errorResponse(w, errors.Join(errBadRequest, err))
		return
	}
	var req playerRequest
	if err := decode(r, &req); err != nil {
		h.errorResponse(w, err)
		return
	}
	player, err := h.TableService.SeatPlayer(r.Context(), owner, seat, req.Name, req.Chips)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "player seated", Code: http.StatusCreated, Data: player})
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	player, err := h.TableService.GetPlayer(r.Context(), owner, chi.URLParam(r, "playerID"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "player", Code: http.StatusOK, Data: player})
}

func (h *Handler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if err := h.TableService.RemovePlayer(r.Context(), owner, chi.URLParam(r, "playerID")); err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "player removed", Code: http.StatusOK})
}

func (h *Handler) EditPlayer(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	var req playerRequest
	if err := decode(r, &req); err != nil {
		h.errorResponse(w, err)
		return
	}
	player, err := h.TableService.EditPlayer(r.Context(), owner, chi.URLParam(r, "playerID"), req.Name, req.Chips)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "player updated", Code: http.StatusOK, Data: player})
}

func (h *Handler) UpdateEndgameChips(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	var req endgameChipsRequest
	if err := decode(r, &req); err != nil {
		h.errorResponse(w, err)
		return
	}
	playerID := chi.URLParam(r, "playerID")
	res := h.TableService.UpdateEndgameChips(r.Context(), owner, playerID, req.Value)
	if !res.Ok() {
		h.errorResponse(w, res.Err)
		return
	}
	player, _ := res.Table.Player(playerID)
	h.CreateResponse(w, Response{Message: "endgame chips updated", Code: http.StatusOK, Data: player})
}

func (h *Handler) SaveEndgameChips(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	var req saveEndgameChipsRequest
	if err := decode(r, &req); err != nil {
		h.errorResponse(w, err)
		return
	}
	n, err := h.TableService.SaveEndgameChips(r.Context(), owner, req.Values)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "endgame chips saved", Code: http.StatusOK, Data: map[string]int{"updated": n}})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerID(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	summary, err := h.TableService.Summary(r.Context(), owner)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "money summary", Code: http.StatusOK, Data: summary})
}
