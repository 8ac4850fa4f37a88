package httppresentation

import (
	"net/http"
	"strings"

	domainCatalog "github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

// handleListProducts lists the catalog, filtered by a case-insensitive name
// fragment when ?q= is set.
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []*domainCatalog.Product
		err      error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		products, err = h.products.FindByNameSubstring(r.Context(), q)
	} else {
		products, err = h.products.ListAll(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	out := make([]domainCatalog.Info, 0, len(products))
	for _, p := range products {
		out = append(out, p.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Info())
}
