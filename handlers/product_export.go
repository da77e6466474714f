package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetProductsExport returns every product as a spreadsheet, one row per variant.
func (h *ProductHandler) GetProductsExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Export.WriteProducts(c.Request.Context(), &buf); err != nil {
		respondError(c, err, "export products")
		return
	}
	name := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
