package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/campstay/internal/booking/domain"
)

func (s *Server) GetBookingTotals(c *gin.Context) {
	bookingID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.totals.Summary(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	setVersionHeader(c, summary.Version)
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) AddTent(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.TentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.AddTent(c.Request.Context(), bookingdomain.AddTentRequest{MutationMeta: meta, Tent: input})
	respondMutation(c, http.StatusCreated, resp, err)
}

func (s *Server) UpdateTent(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tentID, err := pathID(c, "tentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.TentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.UpdateTent(c.Request.Context(), bookingdomain.UpdateTentRequest{MutationMeta: meta, TentID: tentID, Tent: input})
	respondMutation(c, http.StatusOK, resp, err)
}

func (s *Server) DeleteTent(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tentID, err := pathID(c, "tentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.bookingSvc.DeleteTent(c.Request.Context(), bookingdomain.DeleteTentRequest{MutationMeta: meta, TentID: tentID})
	respondMutation(c, http.StatusOK, resp, err)
}

func (s *Server) AddAddon(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.AddonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.AddAddon(c.Request.Context(), bookingdomain.AddAddonRequest{MutationMeta: meta, Addon: input})
	respondMutation(c, http.StatusCreated, resp, err)
}

func (s *Server) UpdateAddon(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.AddonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.UpdateAddon(c.Request.Context(), bookingdomain.UpdateAddonRequest{MutationMeta: meta, ItemID: itemID, Addon: input})
	respondMutation(c, http.StatusOK, resp, err)
}

func (s *Server) DeleteAddon(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.bookingSvc.DeleteAddon(c.Request.Context(), bookingdomain.DeleteAddonRequest{MutationMeta: meta, ItemID: itemID})
	respondMutation(c, http.StatusOK, resp, err)
}

func (s *Server) AddMenuProduct(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.MenuProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.AddMenuProduct(c.Request.Context(), bookingdomain.AddMenuProductRequest{MutationMeta: meta, Product: input})
	respondMutation(c, http.StatusCreated, resp, err)
}

func (s *Server) UpdateMenuProduct(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var input bookingdomain.MenuProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.UpdateMenuProduct(c.Request.Context(), bookingdomain.UpdateMenuProductRequest{MutationMeta: meta, ProductID: productID, Product: input})
	respondMutation(c, http.StatusOK, resp, err)
}

func (s *Server) DeleteMenuProduct(c *gin.Context) {
	meta, err := mutationMeta(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.bookingSvc.DeleteMenuProduct(c.Request.Context(), bookingdomain.DeleteMenuProductRequest{MutationMeta: meta, ProductID: productID})
	respondMutation(c, http.StatusOK, resp, err)
}

func respondMutation(c *gin.Context, status int, resp *bookingdomain.MutationResult, err error) {
	if err != nil {
		AbortWithError(c, err)
		return
	}
	setVersionHeader(c, resp.Version)
	c.JSON(status, gin.H{"data": resp})
}
