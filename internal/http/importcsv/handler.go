package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/stockroom/internal/http/respond"
	"github.com/MrJamesThe3rd/stockroom/internal/importer"
	"github.com/MrJamesThe3rd/stockroom/internal/purchase"
)

const maxUploadSize = 10 << 20

type Handler struct {
	parser *importer.Parser
	svc    *purchase.Service
}

func NewHandler(parser *importer.Parser, svc *purchase.Service) *Handler {
	return &Handler{
		parser: parser,
		svc:    svc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importResponse struct {
	ID        int64           `json:"id"`
	InvoiceNo string          `json:"invoice_no"`
	Status    purchase.Status `json:"status"`
	Total     int64           `json:"total"`
	Lines     int             `json:"lines"`
}

// importCSV turns an uploaded order sheet into one purchase. The sheet is
// all or nothing like any other order.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	reqs, err := h.parser.Parse(file)
	if err != nil {
		respond.BadRequest(w, "unreadable order sheet: "+err.Error())
		return
	}

	p, err := h.svc.Create(r.Context(), reqs)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		ID:        p.ID,
		InvoiceNo: p.InvoiceNo,
		Status:    p.Status,
		Total:     p.Total,
		Lines:     len(p.Lines),
	})
}
