// Reference example HTTP handlers.
//
// This file exposes REST endpoints for the curated reply-example corpus:
//   - GET    /examples        (list, paginated)
//   - POST   /examples        (create)
//   - GET    /examples/{id}   (detail)
//   - PUT    /examples/{id}   (replace)
//   - DELETE /examples/{id}   (remove)
//
// Examples are (customer feedback, approved reply) pairs the prompt assembler
// offers to the generator as few-shot guidance. The pipeline only reads the
// corpus; these endpoints are its single write surface besides the seed
// command.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

//
// DTOs
//

// ExampleRequest is the JSON payload for creating or replacing a reference
// example. Feedback and reply texts are required; the product name and rating
// are optional ranking hints.
type ExampleRequest struct {
	ProductName string `json:"product_name,omitempty" example:"Кофта женская"`
	// Rating is the star rating of the original feedback (1..5), if known.
	Rating       *int   `json:"rating,omitempty" example:"5"`
	FeedbackText string `json:"feedback_text" binding:"required,min=1" example:"Отличное качество, размер подошёл."`
	ReplyText    string `json:"reply_text" binding:"required,min=1" example:"Спасибо за тёплый отзыв! Рады, что кофта подошла."`
}

// ListExamplesResponse wraps a page of examples and pagination information.
type ListExamplesResponse struct {
	Examples   []domain.ReferenceExample `json:"examples"`
	Pagination Pagination                `json:"pagination"`
}

//
// Handlers
//

// ListExamples godoc
// @ID          listExamples
// @Summary     List reference examples
// @Description Returns a page of reference examples, newest first.
// @Tags        Examples
// @Produce     json
//
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListExamplesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /examples [get]
func (h *Handlers) ListExamples(c *gin.Context) {
	page, pageSize := clampPagination(c)

	rows, total, err := h.exampleSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListExamplesResponse{
		Examples: rows,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CreateExample godoc
// @ID          createExample
// @Summary     Add a reference example
// @Description Stores a new (feedback, reply) pair for few-shot prompt guidance.
// @Tags        Examples
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ExampleRequest  true  "Example payload"
//
// @Success     201  {object} domain.ReferenceExample
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /examples [post]
func (h *Handlers) CreateExample(c *gin.Context) {
	var req ExampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feedback_text and reply_text required")
		return
	}

	ex, err := h.exampleSvc.Create(c.Request.Context(), req.ProductName, req.Rating, req.FeedbackText, req.ReplyText)
	if err != nil {
		failExampleErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ex)
}

// GetExample godoc
// @ID          getExample
// @Summary     Get one reference example
// @Tags        Examples
// @Produce     json
//
// @Param       id  path  string  true  "Example ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.ReferenceExample
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Example not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /examples/{id} [get]
func (h *Handlers) GetExample(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "example id must be a UUID")
		return
	}

	ex, err := h.exampleSvc.Get(c.Request.Context(), id)
	if err != nil {
		failExampleErr(c, err)
		return
	}
	ok(c, http.StatusOK, ex)
}

// UpdateExample godoc
// @ID          updateExample
// @Summary     Replace a reference example
// @Tags        Examples
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Example ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ExampleRequest  true  "Replacement payload"
//
// @Success     200  {object} domain.ReferenceExample
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404  {object} handlers.ErrorResponse "Example not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /examples/{id} [put]
func (h *Handlers) UpdateExample(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "example id must be a UUID")
		return
	}

	var req ExampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feedback_text and reply_text required")
		return
	}

	ex, err := h.exampleSvc.Update(c.Request.Context(), id, req.ProductName, req.Rating, req.FeedbackText, req.ReplyText)
	if err != nil {
		failExampleErr(c, err)
		return
	}
	ok(c, http.StatusOK, ex)
}

// DeleteExample godoc
// @ID          deleteExample
// @Summary     Delete a reference example
// @Tags        Examples
//
// @Param       id  path  string  true  "Example ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Example not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /examples/{id} [delete]
func (h *Handlers) DeleteExample(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "example id must be a UUID")
		return
	}

	if err := h.exampleSvc.Delete(c.Request.Context(), id); err != nil {
		failExampleErr(c, err)
		return
	}
	noContent(c)
}

// failExampleErr maps ExampleService errors onto the error envelope.
func failExampleErr(c *gin.Context, err error) {
	switch err {
	case services.ErrExampleNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reference example not found")
	case services.ErrValidation:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "feedback_text and reply_text required; rating must be 1..5")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
