package handlers

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/fasthttp/router"
	"github.com/nimasrn/campaign-mailer/internal/apperr"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/internal/services"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
)

type ClientService interface {
	Create(ctx context.Context, campaignID int64, req model.ClientRequest) (*model.Client, error)
	BulkCreate(ctx context.Context, campaignID int64, req model.ClientBulkRequest) (*services.ImportResult, error)
	Upload(ctx context.Context, campaignID int64, r io.Reader) (*services.ImportResult, error)
	Get(ctx context.Context, id int64) (*model.Client, error)
	List(ctx context.Context, campaignID int64, page model.ClientPage) ([]*model.Client, int64, error)
	Range(ctx context.Context, campaignID int64, start, end int) ([]*model.Client, error)
	Count(ctx context.Context, campaignID int64) (int64, error)
	Update(ctx context.Context, id int64, req model.ClientRequest) (*model.Client, error)
	ValidateEmail(ctx context.Context, id int64) (*model.Client, error)
	Delete(ctx context.Context, id int64) error
}

type ClientHandler struct {
	svc ClientService
}

func RegisterClientRoutes(e *router.Group, h *ClientHandler) {
	e.POST("/campaigns/{id}/clients", h.CreateClient)
	e.POST("/campaigns/{id}/clients/bulk", h.BulkCreateClients)
	e.POST("/campaigns/{id}/clients/upload", h.UploadClients)
	e.GET("/campaigns/{id}/clients", h.ListClients)
	e.GET("/campaigns/{id}/clients/count", h.CountClients)
	e.GET("/campaigns/{id}/clients/range", h.ClientRange)
	e.GET("/clients/{id}", h.GetClient)
	e.PUT("/clients/{id}", h.UpdateClient)
	e.PATCH("/clients/{id}/validate", h.ValidateClientEmail)
	e.DELETE("/clients/{id}", h.DeleteClient)
}

func NewClientHandler(svc ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

type clientListResponse struct {
	Items  []*model.Client `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func (h *ClientHandler) CreateClient(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.ClientRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Create(ctx, campaignID, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "client created", c)
}

func (h *ClientHandler) BulkCreateClients(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.ClientBulkRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	res, err := h.svc.BulkCreate(ctx, campaignID, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "clients created", res)
}

// UploadClients accepts the CSV as the raw request body or as the "file"
// part of a multipart form.
func (h *ClientHandler) UploadClients(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}

	var r io.Reader
	if strings.HasPrefix(string(ctx.Request.Header.ContentType()), "multipart/form-data") {
		fh, err := ctx.FormFile("file")
		if err != nil {
			writeFailure(ctx, apperr.Validation("multipart upload needs a file field"))
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeFailure(ctx, apperr.Validation("cannot read uploaded file"))
			return
		}
		defer f.Close()
		r = f
	} else {
		if len(ctx.PostBody()) == 0 {
			writeFailure(ctx, apperr.Validation("csv body is required"))
			return
		}
		r = bytes.NewReader(ctx.PostBody())
	}

	res, err := h.svc.Upload(ctx, campaignID, r)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusCreated, "clients imported", res)
}

func (h *ClientHandler) ListClients(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var page model.ClientPage
	if page.Limit, err = queryInt(ctx, "limit", 0); err != nil {
		writeFailure(ctx, err)
		return
	}
	if page.Offset, err = queryInt(ctx, "offset", 0); err != nil {
		writeFailure(ctx, err)
		return
	}

	items, total, err := h.svc.List(ctx, campaignID, page)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", clientListResponse{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset})
}

func (h *ClientHandler) CountClients(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	n, err := h.svc.Count(ctx, campaignID)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", map[string]int64{"count": n})
}

func (h *ClientHandler) ClientRange(ctx *xhttp.RequestCtx) {
	campaignID, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	start, err := queryInt(ctx, "start_row", 0)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	end, err := queryInt(ctx, "end_row", 0)
	if err != nil {
		writeFailure(ctx, err)
		return
	}

	list, err := h.svc.Range(ctx, campaignID, start, end)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", list)
}

func (h *ClientHandler) GetClient(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Get(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "", c)
}

func (h *ClientHandler) UpdateClient(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	var req model.ClientRequest
	if err = readJSON(ctx, &req); err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "client updated", c)
}

func (h *ClientHandler) ValidateClientEmail(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	c, err := h.svc.ValidateEmail(ctx, id)
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "client email checked", c)
}

func (h *ClientHandler) DeleteClient(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeFailure(ctx, err)
		return
	}
	if err = h.svc.Delete(ctx, id); err != nil {
		writeFailure(ctx, err)
		return
	}
	writeSuccess(ctx, xhttp.StatusOK, "client deleted", nil)
}
