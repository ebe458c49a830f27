// Package api exposes an engine.RecordStore over the realtrack REST boundary.
package api

import (
	"errors"
	"net/http"

	"github.com/celerix-dev/realtrack/internal/engine"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Store engine.RecordStore
	Log   sdk.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = sdk.NopLogger{}
	}
	r := gin.New()
	r.Use(gin.Recovery(), h.requestID, cors)

	r.GET("/:resource", h.List)
	r.POST("/:resource", h.Create)
	r.PUT("/:resource/:id", h.Update)
	r.DELETE("/:resource/:id", h.Delete)
	r.GET("/:resource/:id/:relation", h.GetRelated)
	r.POST("/:resource/:id/:relation", h.CreateRelated)
	// DELETE /links/{transactionId}/{buildingId} shares this shape.
	r.DELETE("/:resource/:id/:relation", h.DeleteLink)
	r.DELETE("/:resource/:id/:relation/:related", h.DeleteRelated)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "route not found"})
	})
	return r
}

func (h *Handler) List(c *gin.Context) {
	resource := c.Param("resource")
	filter := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			filter[k] = v[0]
		}
	}

	// GET /{resource}?id={id} is the single-record read.
	if id, ok := filter["id"]; ok && len(filter) == 1 {
		rec, err := h.Store.Get(resource, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	list, err := h.Store.List(resource, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Create(c *gin.Context) {
	resource := c.Param("resource")

	var rec schema.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	created, err := h.Store.Create(resource, rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Update(c *gin.Context) {
	resource := c.Param("resource")
	id := c.Param("id")

	var patch schema.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	updated, err := h.Store.Update(resource, id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.Store.Delete(c.Param("resource"), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetRelated(c *gin.Context) {
	list, err := h.Store.Related(c.Param("resource"), c.Param("id"), c.Param("relation"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateRelated(c *gin.Context) {
	var rec schema.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	created, err := h.Store.CreateRelated(c.Param("resource"), c.Param("id"), c.Param("relation"), rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteLink handles DELETE /links/{transactionId}/{buildingId}.
func (h *Handler) DeleteLink(c *gin.Context) {
	if c.Param("resource") != "links" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "route not found"})
		return
	}
	if err := h.Store.DeleteLinkPair(c.Param("id"), c.Param("relation")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteRelated(c *gin.Context) {
	resource, id := c.Param("resource"), c.Param("id")
	relation, related := c.Param("relation"), c.Param("related")

	var err error
	if isJoined(resource, relation) {
		if resource == engine.DefaultJoins[0].LeftResource {
			err = h.Store.DeleteLinkPair(id, related)
		} else {
			err = h.Store.DeleteLinkPair(related, id)
		}
	} else {
		err = h.Store.Delete(relation, related)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, engine.ErrBadRecord), errors.Is(err, engine.ErrDuplicate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	default:
		h.Log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}

func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(sdk.RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Writer.Header().Set(sdk.RequestIDHeader, id)
	c.Next()
	h.Log.Infof("[%s] %s %s: HTTP-%d", id, c.Request.Method, c.Request.URL.Path, c.Writer.Status())
}

func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID, Authorization")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func isJoined(resource, relation string) bool {
	for _, j := range engine.DefaultJoins {
		if (j.LeftResource == resource && j.RightResource == relation) ||
			(j.RightResource == resource && j.LeftResource == relation) {
			return true
		}
	}
	return false
}
