package adminserver

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relcore-db/relcore/pkg/storage"
)

// pagePreviewBytes bounds how much of a page's payload the inspector
// echoes back as hex, so a 4KB page doesn't blow up a casual request.
const pagePreviewBytes = 64

// handlePage reports a single page's identity and a short hex preview
// of its payload, fetching it through the buffer pool like any other
// reader (so the inspector never bypasses the pool's pin/latch
// accounting).
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		http.Error(w, "invalid page id", http.StatusBadRequest)
		return
	}
	pageID := storage.PageID(id)
	if pageID == storage.InvalidPageID {
		http.Error(w, "invalid page id", http.StatusBadRequest)
		return
	}

	guard := s.pool.FetchPageRead(pageID)
	if guard == nil {
		http.Error(w, "page not resident and could not be fetched", http.StatusNotFound)
		return
	}
	defer guard.Drop()

	page := guard.Page()
	n := len(page.Data)
	if n > pagePreviewBytes {
		n = pagePreviewBytes
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          uint32(page.ID),
		"type":        page.Type.String(),
		"is_dirty":    page.IsDirty,
		"pin_count":   page.PinCount,
		"data_len":    len(page.Data),
		"data_preview": hex.EncodeToString(page.Data[:n]),
	})
}
