package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/checkout"
)

// withCart opens the session cart, runs fn and writes the cart back when fn
// changed it. The value fn returns is sent with status once the cart is saved.
func (h *Handler) withCart(c *gin.Context, status int, fn func(*cart.Session) (any, error)) {
	ctx := c.Request.Context()

	sess, err := h.carts.Open(ctx, sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sess.Close()

	body, fnErr := fn(sess)
	saveErr := sess.Save(ctx)
	switch {
	case fnErr != nil:
		if saveErr != nil {
			log.Error().Err(saveErr).Str("session", sess.ID).Msg("cart not saved")
		}
		respondError(c, fnErr)
	case saveErr != nil:
		respondError(c, saveErr)
	default:
		c.JSON(status, body)
	}
}

func (h *Handler) GetCart(c *gin.Context) {
	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		return s.Cart.Snapshot(), nil
	})
}

func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.products.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		if _, err := s.Cart.AddItem(*p, req.Quantity); err != nil {
			return nil, err
		}
		return s.Cart.Snapshot(), nil
	})
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	id, ok := parseID(c, "productId")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		if !s.Cart.UpdateQuantity(id, *req.Quantity) {
			return nil, cart.ErrLineNotFound
		}
		return s.Cart.Snapshot(), nil
	})
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	id, ok := parseID(c, "productId")
	if !ok {
		return
	}
	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		s.Cart.RemoveItem(id)
		return s.Cart.Snapshot(), nil
	})
}

func (h *Handler) ClearCart(c *gin.Context) {
	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		s.Cart.Clear()
		return s.Cart.Snapshot(), nil
	})
}

func (h *Handler) EndCartSession(c *gin.Context) {
	if err := h.carts.End(c.Request.Context(), sessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Quote(c *gin.Context) {
	h.withCart(c, http.StatusOK, func(s *cart.Session) (any, error) {
		q, err := h.checkout.Quote(s.Cart, c.Query("tier"))
		if err != nil {
			return nil, err
		}
		return gin.H{
			"quote":           q,
			"payment_methods": h.checkout.PaymentMethods(),
		}, nil
	})
}

// Checkout decodes the form without binding so that an empty cart is
// reported before any field errors. Once the order exists the response is
// 201 even if the emptied cart cannot be written back.
func (h *Handler) Checkout(c *gin.Context) {
	var form checkout.Form
	if err := json.NewDecoder(c.Request.Body).Decode(&form); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	sess, err := h.carts.Open(ctx, sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sess.Close()

	conf, err := h.checkout.Submit(ctx, sess.Cart, form)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := sess.Save(ctx); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Uint64("order_id", conf.OrderID).Msg("cart not cleared after checkout")
	}
	c.JSON(http.StatusCreated, conf)
}
