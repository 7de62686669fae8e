package api

import (
	"net/http"

	"github.com/roach88/shoplist/internal/lifecycle"
	"github.com/roach88/shoplist/internal/shop"
)

// Response messages.
const (
	msgMissingParam   = "required parameter not provided"
	msgInvalidParam   = "invalid parameter"
	msgInvalidName    = "invalid item name"
	msgListNotFound   = "list could not be found"
	msgItemNotFound   = "item could not be found"
	msgAllocNotFound  = "list or item not found"
	msgInternal       = "internal server error"
	msgListCreated    = "list created successfully"
	msgListRetired    = "list retired successfully"
	msgListDeleted    = "list deleted successfully"
	msgItemAdded      = "item added successfully"
	msgItemRemoved    = "item removed successfully"
	msgItemUpdated    = "item updated successfully"
	msgPartialCarry   = "list created, but some recurring items were not carried over"
	msgAlreadyRetired = "list already retired"
)

// MessageResponse is the envelope for every write endpoint.
type MessageResponse struct {
	Message     string   `json:"message"`
	ListID      string   `json:"list_id,omitempty"`
	ItemID      string   `json:"item_id,omitempty"`
	CarryFailed []string `json:"carry_failed,omitempty"`
}

// SearchResponse lists the names of matching items.
type SearchResponse struct {
	Names []string `json:"names"`
}

func (s *Server) createList(w http.ResponseWriter, r *http.Request) {
	res, err := s.lists.CreateList(r.Context())
	s.writeRollover(w, res, err, msgListCreated)
}

func (s *Server) retireList(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	listID, ok := requireString(w, body, "list_id")
	if !ok {
		return
	}

	res, err := s.lists.RetireList(r.Context(), listID)
	if shop.IsNotFound(err) {
		writeMessage(w, http.StatusNotFound, msgListNotFound)
		return
	}
	msg := msgListRetired
	if err == nil && res.RetiredListID == "" {
		msg = msgAlreadyRetired
	}
	s.writeRollover(w, res, err, msg)
}

// writeRollover reports a rollover. A rollover that produced a new list is a
// success even when some recurring items were not carried over.
func (s *Server) writeRollover(w http.ResponseWriter, res *lifecycle.RolloverResult, err error, msg string) {
	if res == nil || res.NewListID == "" {
		s.writeError(w, err, msgListNotFound)
		return
	}
	resp := MessageResponse{Message: msg, ListID: res.NewListID}
	if err != nil {
		resp.Message = msgPartialCarry
		for _, f := range res.Failed {
			resp.CarryFailed = append(resp.CarryFailed, f.ItemID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) removeList(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	listID, ok := requireString(w, body, "list_id")
	if !ok {
		return
	}

	res, err := s.lists.RemoveList(r.Context(), listID)
	if err != nil && (res == nil || res.NewListID == "") {
		s.writeError(w, err, msgListNotFound)
		return
	}
	resp := MessageResponse{Message: msgListDeleted}
	if res != nil {
		resp.ListID = res.NewListID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) currentList(w http.ResponseWriter, r *http.Request) {
	current, err := s.store.CurrentList(r.Context())
	if err != nil {
		s.writeError(w, err, msgListNotFound)
		return
	}
	if current == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	listID, ok := requireString(w, body, "list_id")
	if !ok {
		return
	}
	name, ok := requireString(w, body, "name")
	if !ok {
		return
	}
	img, ok := optionalString(w, body, "img")
	if !ok {
		return
	}
	recurring, ok := optionalBool(w, body, "recurring", false)
	if !ok {
		return
	}

	itemID, err := s.store.AddItem(r.Context(), listID, shop.ItemInput{
		Name:      name,
		ImagePath: img,
		Recurring: recurring,
	})
	if err != nil {
		if shop.IsInvalid(err) {
			writeMessage(w, http.StatusBadRequest, msgInvalidName)
			return
		}
		s.writeError(w, err, msgListNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgItemAdded, ItemID: itemID})
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	listID, ok := requireString(w, body, "list_id")
	if !ok {
		return
	}
	itemID, ok := requireString(w, body, "item_id")
	if !ok {
		return
	}

	if err := s.store.RemoveItem(r.Context(), listID, itemID); err != nil {
		s.writeError(w, err, msgAllocNotFound)
		return
	}
	writeMessage(w, http.StatusOK, msgItemRemoved)
}

func (s *Server) setRecurring(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	itemID, ok := requireString(w, body, "item_id")
	if !ok {
		return
	}
	recurring, ok := optionalBool(w, body, "recurring", true)
	if !ok {
		return
	}

	if err := s.store.SetRecurring(r.Context(), itemID, recurring); err != nil {
		s.writeError(w, err, msgItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgItemUpdated, ItemID: itemID})
}

func (s *Server) searchItems(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	prefix, ok := body["match_string"].(string)
	if _, present := body["match_string"]; !present {
		writeMessage(w, http.StatusBadRequest, msgMissingParam)
		return
	}
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
		return
	}

	items, err := s.store.SearchItems(r.Context(), prefix)
	if err != nil {
		s.writeError(w, err, msgItemNotFound)
		return
	}
	resp := SearchResponse{Names: make([]string, 0, len(items))}
	for _, it := range items {
		resp.Names = append(resp.Names, it.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps a store or lifecycle error to a status code. Storage
// failures were already logged where they happened and are reported
// without detail.
func (s *Server) writeError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch shop.KindOf(err) {
	case shop.KindInvalidArgument:
		writeMessage(w, http.StatusBadRequest, msgInvalidParam)
	case shop.KindNotFound:
		writeMessage(w, http.StatusNotFound, notFoundMsg)
	case shop.KindStorage:
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	default:
		s.logger.Error("unexpected handler error", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}
