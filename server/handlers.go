package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"videoInsight/core"
	"videoInsight/highlights"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code string) int {
	switch code {
	case core.CodeNotFound, core.CodeIndexEmpty:
		return http.StatusNotFound
	case core.CodeAlreadyRunning, core.CodeStateConflict, core.CodeIndexStale, core.CodeCancelled:
		return http.StatusConflict
	case core.CodeInvalidArgument, core.CodeInputTooLong:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := core.CodeOf(err)
	msg := err.Error()
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		// The cause stays in the logs, not in the response.
		msg = appErr.Message
	}
	core.WriteJSON(w, statusFor(code), errorResponse{Error: msg, Code: code})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.WrapError(err, core.CodeInvalidArgument, "invalid JSON body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------- Pipeline ----------------

type submitRequest struct {
	SourcePath string `json:"source_path"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.Orchestrator.Submit(r.Context(), req.SourcePath)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(core.StatusPending)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	videos, err := s.Orchestrator.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"videos": videos})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v, err := s.Orchestrator.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Orchestrator.Resubmit(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(core.StatusPending)})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Orchestrator.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "cancel": "requested"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Orchestrator.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- Transcript ----------------

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.Orchestrator.Status(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	segs, err := s.Segments.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "segments": segs})
}

type putTranscriptRequest struct {
	Segments []core.Segment `json:"segments"`
}

func (s *Server) handlePutTranscript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req putTranscriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Segments) == 0 {
		writeError(w, core.NewError(core.CodeInvalidArgument, "segments are required"))
		return
	}
	if err := s.Orchestrator.UpdateTranscript(r.Context(), id, req.Segments); err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "segments": len(req.Segments)})
}

// ---------------- Summaries ----------------

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.Orchestrator.Status(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	sums, err := s.Summaries.List(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "summaries": sums})
}

func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := core.SummaryKind(vars["kind"])
	switch kind {
	case core.SummaryFull, core.SummaryBullet, core.SummaryShort:
	default:
		writeError(w, core.NewError(core.CodeInvalidArgument, "unknown summary kind: "+vars["kind"]))
		return
	}
	sum, err := s.Orchestrator.Summarize(r.Context(), vars["id"], kind)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, sum)
}

// ---------------- Chat ----------------

type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ans, err := s.Engine.Ask(r.Context(), mux.Vars(r)["id"], req.SessionID, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, ans)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	turns, err := s.Engine.History(r.Context(), vars["id"], vars["session"])
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": vars["id"], "session_id": vars["session"], "turns": turns})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	questions, err := s.Engine.SuggestedQuestions(r.Context(), id, 4)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "questions": questions})
}

// ---------------- Highlights & shorts ----------------

func (s *Server) scoringContext(r *http.Request, id string) (highlights.Context, []core.Segment, *core.Video, error) {
	v, err := s.Orchestrator.Status(r.Context(), id)
	if err != nil {
		return highlights.Context{}, nil, nil, err
	}
	segs, err := s.Segments.List(r.Context(), id)
	if err != nil {
		return highlights.Context{}, nil, nil, err
	}
	if len(segs) == 0 {
		return highlights.Context{}, nil, nil, core.NewError(core.CodeNotFound, "no transcript for video "+id)
	}
	ctx := highlights.Context{VideoDuration: v.Duration}
	if sum, err := s.Summaries.Get(r.Context(), id, core.SummaryFull); err == nil {
		ctx.KeyTopics = sum.KeyTopics
	}
	return ctx, segs, v, nil
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, segs, _, err := s.scoringContext(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	cands := highlights.DetectHighlights(segs, s.Scorer, ctx)
	core.WriteJSON(w, http.StatusOK, map[string]any{"video_id": id, "highlights": cands})
}

type shortRequest struct {
	TargetDuration float64 `json:"target_duration"`
	Style          string  `json:"style"`
	CaptionStyle   string  `json:"caption_style"`
}

func (s *Server) handleShort(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req shortRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TargetDuration <= 0 {
		req.TargetDuration = 60
	}
	ctx, segs, v, err := s.scoringContext(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	cands := highlights.DetectHighlights(segs, s.Scorer, ctx)
	plan, err := highlights.BuildPlan(id, cands, req.TargetDuration, v.Duration, req.Style, req.CaptionStyle)
	if err != nil {
		writeError(w, err)
		return
	}
	outPath, err := s.Renderer.Render(r.Context(), v.SourcePath, plan)
	if err != nil {
		writeError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"video_id": id,
		"plan":     plan,
		"duration": plan.TotalDuration(),
		"output":   outPath,
	})
}
