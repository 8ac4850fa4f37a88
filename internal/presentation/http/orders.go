package httppresentation

import (
	"net/http"
	"strings"

	appOrder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	domainCart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/money"
	domainOrder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domainPayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID      string             `json:"customer_id"`
	Items           []orderItemRequest `json:"items"`
	ShippingAddress map[string]string  `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
}

// handleCreateOrder fills a cart from the request lines and checks it out.
func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c := domainCart.New()
	for _, item := range req.Items {
		p, err := h.products.FindByID(r.Context(), item.ProductID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if err := c.AddItem(p, item.Quantity); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}

	res, err := h.orders.CreateOrder(r.Context(), appOrder.CreateOrderInput{
		CustomerID:      req.CustomerID,
		Cart:            c,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   domainPayment.Method(req.PaymentMethod),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Order.Details())
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o.Details())
}

type invoiceResponse struct {
	OrderID           string   `json:"order_id"`
	Subtotal          float64  `json:"subtotal"`
	ShippingFee       float64  `json:"shipping_fee"`
	Total             float64  `json:"total"`
	InstallmentCount  int      `json:"installment_count,omitempty"`
	InstallmentAmount *float64 `json:"installment_amount,omitempty"`
	TransactionID     string   `json:"transaction_id"`
	Text              string   `json:"text"`
}

// handleInvoice answers with the printable invoice when the client accepts
// text/plain, and with a JSON summary otherwise.
func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	inv, err := o.GenerateInvoice()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(inv.Text()))
		return
	}

	resp := invoiceResponse{
		OrderID:          inv.OrderID,
		Subtotal:         money.Float(inv.Subtotal),
		ShippingFee:      money.Float(inv.ShippingFee),
		Total:            money.Float(inv.Total),
		InstallmentCount: inv.InstallmentCount,
		TransactionID:    inv.TransactionID,
		Text:             inv.Text(),
	}
	if inv.InstallmentAmount != nil {
		v := money.Float(*inv.InstallmentAmount)
		resp.InstallmentAmount = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

type processPaymentRequest struct {
	InstallmentCount int    `json:"installment_count"`
	CardNumber       string `json:"card_number"`
	CardHolder       string `json:"card_holder"`
	AttemptKey       string `json:"attempt_key"`
}

type processPaymentResponse struct {
	OrderID           string   `json:"order_id"`
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	Status            string   `json:"status"`
	TransactionID     string   `json:"transaction_id,omitempty"`
	Settled           float64  `json:"settled"`
	InstallmentCount  int      `json:"installment_count,omitempty"`
	InstallmentAmount *float64 `json:"installment_amount,omitempty"`
	Replayed          bool     `json:"replayed,omitempty"`
}

// handleProcessPayment always answers 200 once the attempt ran; a declined
// payment is reported in the body.
func (h *Handler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	attempt := req.AttemptKey
	if attempt == "" {
		attempt = r.Header.Get(headerIdempotencyKey)
	}

	res, err := h.orders.ProcessPayment(r.Context(), appOrder.ProcessPaymentInput{
		OrderID:          r.PathValue("id"),
		AttemptKey:       attempt,
		InstallmentCount: req.InstallmentCount,
		Card:             domainPayment.CardDetails{Number: req.CardNumber, Holder: req.CardHolder},
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := processPaymentResponse{
		OrderID:          res.OrderID,
		Success:          res.Success,
		Message:          res.Message,
		Status:           string(res.Status),
		TransactionID:    res.TransactionID,
		Settled:          money.Float(res.Settled),
		InstallmentCount: res.InstallmentCount,
		Replayed:         res.Replayed,
	}
	if res.InstallmentAmount != nil {
		v := money.Float(*res.InstallmentAmount)
		resp.InstallmentAmount = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

type cancelOrderResponse struct {
	domainOrder.Details
	RefundDue bool `json:"refund_due"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.CancelOrder(r.Context(), appOrder.CancelOrderInput{OrderID: r.PathValue("id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelOrderResponse{Details: res.Order.Details(), RefundDue: res.RefundDue})
}

type refundResponse struct {
	OrderID string `json:"order_id"`
	Refund  string `json:"refund_status"`
	Success bool   `json:"success"`
}

func (h *Handler) handleProcessRefund(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.ProcessRefund(r.Context(), appOrder.ProcessRefundInput{OrderID: r.PathValue("id")})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refundResponse{OrderID: res.OrderID, Refund: string(res.Refund), Success: res.Success})
}

type fulfillmentRequest struct {
	Status string `json:"status"`
}

type fulfillmentResponse struct {
	OrderID      string `json:"order_id"`
	From         string `json:"from"`
	Status       string `json:"status"`
	Transitioned bool   `json:"transitioned"`
}

// handleAdvanceFulfillment reports a refused transition as 409 with the
// unchanged status in the body.
func (h *Handler) handleAdvanceFulfillment(w http.ResponseWriter, r *http.Request) {
	var req fulfillmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.orders.AdvanceFulfillment(r.Context(), appOrder.AdvanceFulfillmentInput{
		OrderID: r.PathValue("id"),
		Target:  domainOrder.Status(req.Status),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Transitioned {
		status = http.StatusConflict
	}
	writeJSON(w, status, fulfillmentResponse{
		OrderID:      res.OrderID,
		From:         string(res.From),
		Status:       string(res.Status),
		Transitioned: res.Transitioned,
	})
}

func (h *Handler) handleListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListCustomerOrders(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]domainOrder.Details, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Details())
	}
	writeJSON(w, http.StatusOK, out)
}

type salesLineResponse struct {
	OrderID    string  `json:"order_id"`
	CustomerID string  `json:"customer_id"`
	Status     string  `json:"status"`
	Settled    float64 `json:"settled"`
}

type salesReportResponse struct {
	OrderCount   int                 `json:"order_count"`
	TotalSettled float64             `json:"total_settled"`
	Orders       []salesLineResponse `json:"orders"`
}

func (h *Handler) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.orders.SalesReport(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	resp := salesReportResponse{
		OrderCount:   rep.OrderCount,
		TotalSettled: money.Float(rep.TotalSettled),
		Orders:       make([]salesLineResponse, 0, len(rep.Lines)),
	}
	for _, l := range rep.Lines {
		resp.Orders = append(resp.Orders, salesLineResponse{
			OrderID:    l.OrderID,
			CustomerID: l.CustomerID,
			Status:     string(l.Status),
			Settled:    money.Float(l.Settled),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
