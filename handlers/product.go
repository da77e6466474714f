package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kiprej-bot/catalog"
	"kiprej-bot/dtos"
	"kiprej-bot/models"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

type ProductHandler struct {
	Catalog  *services.CatalogService
	Products *services.ProductService
	Reviews  *services.ReviewService
	Export   *services.ExportService
}

// GetProducts lists one page of the catalog, optionally filtered by
// category_id and by an in-stock size.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var q services.Query
	if raw := c.Query("category_id"); raw != "" {
		id, err := utils.ParseID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.CategoryID = &id
	}
	q.Size = strings.TrimSpace(c.Query("size"))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	result, err := h.Catalog.Page(c.Request.Context(), q, page, limit)
	if err != nil {
		respondError(c, err, "fetch products")
		return
	}
	c.JSON(http.StatusOK, dtos.ProductListResponse{
		Products:   result.Products,
		Page:       result.Number,
		Limit:      limit,
		Total:      result.Total,
		TotalPages: result.Pages,
	})
}

// GetProduct returns the product card for the size given in the query, or
// for the product alone.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.Catalog.Product(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch product")
		return
	}
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, img.ImageURL)
	}
	c.JSON(http.StatusOK, dtos.ProductCardResponse{
		Card:   catalog.FormatCard(p, catalog.FindVariant(p, c.Query("size")), 0, len(p.Images)),
		Sizes:  catalog.AvailableSizes([]models.Product{*p}),
		Images: images,
	})
}

func (h *ProductHandler) GetReviews(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	reviews, err := h.Reviews.Approved(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "fetch reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

type variantRequest struct {
	Size            string          `json:"size"`
	Color           string          `json:"color"`
	Markup          decimal.Decimal `json:"markup"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Stock           int             `json:"stock"`
}

// CreateProduct takes a multipart form: category_id, name, description,
// price, brand, variants (a JSON array) and up to ten image files.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	categoryID, err := utils.ParseID(c.PostForm("category_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category_id: " + err.Error()})
		return
	}
	price, err := utils.ParseAmount(c.PostForm("price"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price: " + err.Error()})
		return
	}

	var variants []variantRequest
	if raw := c.PostForm("variants"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variants); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "variants must be a JSON array"})
			return
		}
	}

	in := services.NewProduct{
		CategoryID:  categoryID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Brand:       c.PostForm("brand"),
	}
	for _, v := range variants {
		in.Variants = append(in.Variants, services.NewVariant(v))
	}

	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["images"] {
			if err := utils.ValidateImage(fh.Header.Get("Content-Type"), fh.Size); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			in.Images = append(in.Images, uploadedImage(fh))
		}
	}

	product, err := h.Products.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func uploadedImage(fh *multipart.FileHeader) services.ImageSource {
	return services.ImageSource{
		Ext: strings.ToLower(filepath.Ext(fh.Filename)),
		Open: func(context.Context) (io.ReadCloser, string, error) {
			f, err := fh.Open()
			return f, fh.Header.Get("Content-Type"), err
		},
	}
}

// DeleteProduct removes the product and reports how many image files could
// not be deleted.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.Products.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Product deleted successfully",
		"files_deleted": res.FilesDeleted,
		"files_failed":  res.FilesFailed,
	})
}
