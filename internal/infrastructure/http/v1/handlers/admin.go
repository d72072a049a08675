package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"adminnext/internal/domain/admin"
	"adminnext/internal/infrastructure/http/v1/dto"
)

// AdminHandler serves the generated admin views of every registered model.
type AdminHandler struct {
	*BaseHandler
	service *admin.Service
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(base *BaseHandler, service *admin.Service) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Index lists the registered models.
// GET /admin/
func (h *AdminHandler) Index(c *gin.Context) {
	h.OK(c, dto.IndexResponse{Models: h.service.Index()})
}

// List handles a paginated, filtered list.
// GET /admin/:model
func (h *AdminHandler) List(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	params, err := dto.ParseListQuery(c.Request.URL.Query())
	if err != nil {
		h.Error(c, err)
		return
	}

	view, err := h.service.ListView(c.Request.Context(), sess, c.Param("model"), params)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// New returns what an empty form needs.
// GET /admin/:model/new
func (h *AdminHandler) New(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	view, err := h.service.CreateView(c.Request.Context(), sess, c.Param("model"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Create handles creation of a new row.
// POST /admin/:model
func (h *AdminHandler) Create(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	var payload map[string]any
	if !h.BindJSON(c, &payload) {
		return
	}

	form, err := h.service.SaveView(c.Request.Context(), sess, c.Param("model"), payload)
	if err != nil {
		h.Error(c, err)
		return
	}
	if !form.OK() {
		c.JSON(http.StatusUnprocessableEntity, form)
		return
	}
	h.Created(c, form)
}

// Get returns one row with its related data.
// GET /admin/:model/:id
func (h *AdminHandler) Get(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	view, err := h.service.DetailView(c.Request.Context(), sess, c.Param("model"), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	if !view.Found() {
		c.JSON(http.StatusNotFound, view)
		return
	}
	h.OK(c, view)
}

// Update handles a partial update of one row.
// PUT|PATCH /admin/:model/:id
func (h *AdminHandler) Update(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	var payload map[string]any
	if !h.BindJSON(c, &payload) {
		return
	}

	form, err := h.service.UpdateView(c.Request.Context(), sess, c.Param("model"), c.Param("id"), payload)
	if err != nil {
		h.Error(c, err)
		return
	}
	switch {
	case form.OK():
		h.OK(c, form)
	case len(form.Errors) == 1 && form.Errors["id"] == admin.MsgObjectNotFound:
		c.JSON(http.StatusNotFound, form)
	default:
		c.JSON(http.StatusUnprocessableEntity, form)
	}
}

// FilterOptions returns the selectable values of one filter field.
// GET /admin/:model/filters/:field
func (h *AdminHandler) FilterOptions(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	model, field := c.Param("model"), c.Param("field")
	options, err := h.service.FilterOptions(c.Request.Context(), sess, model, field)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FilterOptionsResponse{Model: model, Field: field, Options: options})
}
