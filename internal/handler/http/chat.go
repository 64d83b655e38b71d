package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type startChatRequest struct {
	AssetId  string `json:"asset_id"`
	Provider string `json:"provider,omitempty"`
}

type messageRequest struct {
	ChatThreadId string `json:"chat_thread_id"`
	Message      string `json:"message"`
}

func (h *Handler) startChat(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.rag.StartChat(r.Context(), req.AssetId, req.Provider)
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"chat_thread_id": id})
}

// sendMessage streams the answer as chunked text/plain. The status is
// committed with the first slice, so failures before that still map to an
// error status.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if len(req.ChatThreadId) == 0 || len(req.Message) == 0 {
		writeError(w, http.StatusBadRequest, "chat_thread_id and message are required")
		return
	}

	rc := http.NewResponseController(w)
	started := false

	emit := func(slice string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, slice); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	err := h.rag.SendMessage(r.Context(), req.ChatThreadId, req.Message, emit)
	if err == nil {
		return
	}

	if !started {
		writeError(w, statusOf(err), err.Error())
		return
	}

	h.options.Logger.Warn("chat turn failed mid-stream",
		zap.String("chat_thread_id", req.ChatThreadId),
		zap.Error(err),
	)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	writeJSON(w, http.StatusOK, map[string]any{
		"chat_thread_id": id,
		"history":        h.rag.History(r.Context(), id),
	})
}

func (h *Handler) activeChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active_chats": h.rag.ActiveChats(r.Context())})
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chat_threads": h.rag.ListChats(r.Context())})
}

func (h *Handler) resumeChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.rag.ResumeChat(r.Context(), id); err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "chat resumed", "chat_thread_id": id})
}

func (h *Handler) chatMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.rag.ChatMetadata(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, md)
}

func (h *Handler) deleteChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	h.rag.DeleteChat(r.Context(), id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "chat deleted", "chat_thread_id": id})
}
