package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"belief-interview/internal/domain"
	"belief-interview/internal/usecase"
)

type conversationRequest struct {
	ParticipantID  string `json:"participantId"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Message        string `json:"message"`
}

type surveyResponse struct {
	ParticipantID string `json:"participantId"`
}

type startResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
}

type replyResponse struct {
	Reply      string       `json:"reply"`
	Stage      domain.Stage `json:"stage"`
	Terminated bool         `json:"terminated"`
}

type conversationResponse struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participantId"`
	Stage         domain.Stage     `json:"stage"`
	StartedAt     time.Time        `json:"startedAt"`
	EndedAt       *time.Time       `json:"endedAt,omitempty"`
	Messages      []domain.Message `json:"messages"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) submitSurvey(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(w, r, &fields); err != nil {
		writeInvalidBody(w)
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	id, err := h.surveys.Submit(r.Context(), fields)
	if err != nil {
		writeUsecaseError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, surveyResponse{ParticipantID: id})
}

func (h *Handler) startConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}
	out, err := h.interviewer.Start(r.Context(), usecase.StartInput{ParticipantID: req.ParticipantID})
	if err != nil {
		writeUsecaseError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		ConversationID: out.ConversationID,
		Messages:       []domain.Message{out.Opening},
	})
}

func (h *Handler) replyToConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}
	text := req.Content
	if strings.TrimSpace(text) == "" {
		text = req.Message
	}
	out, err := h.interviewer.Reply(r.Context(), usecase.ReplyInput{
		ConversationID: conversationIDFrom(r, req),
		Text:           text,
	})
	if err != nil {
		writeUsecaseError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, replyResponse{Reply: out.Reply, Stage: out.Stage, Terminated: out.Terminated})
}

func (h *Handler) endConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidBody(w)
		return
	}
	if err := h.interviewer.End(r.Context(), conversationIDFrom(r, req)); err != nil {
		writeUsecaseError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.interviewer.Conversation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeUsecaseError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse{
		ID:            conv.ID,
		ParticipantID: conv.ParticipantID,
		Stage:         conv.State.Stage,
		StartedAt:     conv.StartedAt,
		EndedAt:       conv.EndedAt,
		Messages:      conv.Messages,
	})
}

// conversationIDFrom prefers the path variable over the body field.
func conversationIDFrom(r *http.Request, req conversationRequest) string {
	if id := mux.Vars(r)["id"]; id != "" {
		return id
	}
	return req.ConversationID
}
