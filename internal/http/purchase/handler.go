package purchase

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/stockroom/internal/http/respond"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

type Handler struct {
	svc      *purchase.Service
	validate *validator.Validate
}

func NewHandler(svc *purchase.Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/pay", h.pay)
}

type itemRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty" validate:"lte=100000"`
}

type createPurchaseRequest struct {
	Items []itemRequest `json:"items" validate:"max=500,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), toLineRequests(req.Items))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toDetailResponse(p))
}

// toLineRequests drops rows without a product or a positive quantity, the
// way blank rows of the order form are ignored.
func toLineRequests(items []itemRequest) []purchase.LineRequest {
	reqs := make([]purchase.LineRequest, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Qty <= 0 {
			continue
		}

		reqs = append(reqs, purchase.LineRequest{ProductID: it.ProductID, Qty: it.Qty})
	}

	return reqs
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(ps))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDetailResponse(p))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDetailResponse(p))
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.purchaseID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Pay(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDetailResponse(p))
}

func (h *Handler) purchaseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.BadRequest(w, "invalid id")
		return 0, false
	}

	return id, true
}
