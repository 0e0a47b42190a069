package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"jansarthi-be/wards"
)

// GetWards returns the ward table, filtered by ?search= when given.
func (h *Controller) GetWards(c *gin.Context) {
	list := wards.Search(c.Query("search"))
	if list == nil {
		list = []wards.Ward{}
	}
	c.JSON(http.StatusOK, gin.H{"items": list, "total": len(list)})
}

func (h *Controller) GetWard(c *gin.Context) {
	id, ok := pathID(c, "ward_id")
	if !ok {
		return
	}
	w, found := wards.ByID(int(id))
	if !found {
		detail(c, http.StatusNotFound, fmt.Sprintf("Ward %d not found", id))
		return
	}
	c.JSON(http.StatusOK, w)
}
