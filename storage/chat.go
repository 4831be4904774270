package storage

import (
	"context"
	"sync"

	"videoInsight/core"
)

// ChatStore is the append-only conversation log, ordered per session by an
// assigned sequence number.
type ChatStore interface {
	Append(ctx context.Context, turn *core.ChatTurn) error
	History(ctx context.Context, videoID, sessionID string) ([]core.ChatTurn, error)
	DeleteVideo(ctx context.Context, videoID string) error
}

// ---------------- Memory implementation ----------------

type MemoryChatStore struct {
	mu    sync.Mutex
	turns map[string][]core.ChatTurn // videoID|sessionID
	byVid map[string][]string        // videoID -> session keys
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{turns: map[string][]core.ChatTurn{}, byVid: map[string][]string{}}
}

func chatKey(videoID, sessionID string) string { return videoID + "|" + sessionID }

func (s *MemoryChatStore) Append(_ context.Context, turn *core.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey(turn.VideoID, turn.SessionID)
	if _, ok := s.turns[key]; !ok {
		s.byVid[turn.VideoID] = append(s.byVid[turn.VideoID], key)
	}
	turn.Seq = len(s.turns[key]) + 1
	s.turns[key] = append(s.turns[key], *turn)
	return nil
}

func (s *MemoryChatStore) History(_ context.Context, videoID, sessionID string) ([]core.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[chatKey(videoID, sessionID)]
	out := make([]core.ChatTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryChatStore) DeleteVideo(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.byVid[videoID] {
		delete(s.turns, key)
	}
	delete(s.byVid, videoID)
	return nil
}

// ---------------- Postgres implementation ----------------

type PgChatStore struct {
	pool Pool
}

func NewPgChatStore(pool Pool) *PgChatStore { return &PgChatStore{pool: pool} }

func (s *PgChatStore) Append(ctx context.Context, turn *core.ChatTurn) error {
	// Sequence assignment and insert in one statement keeps concurrent
	// appends for the same session ordered.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO chat_turns (video_id, session_id, sequence_number, role, text, cited_segment_ids, created_at)
		SELECT $1, $2, COALESCE(MAX(sequence_number), 0) + 1, $3, $4, $5, $6
		FROM chat_turns WHERE video_id = $1 AND session_id = $2
		RETURNING sequence_number`,
		turn.VideoID, turn.SessionID, string(turn.Role), turn.Text, turn.CitedSegmentIDs, turn.CreatedAt)
	if err := row.Scan(&turn.Seq); err != nil {
		return core.WrapError(err, core.CodeInternal, "append chat turn")
	}
	return nil
}

func (s *PgChatStore) History(ctx context.Context, videoID, sessionID string) ([]core.ChatTurn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT video_id, session_id, sequence_number, role, text, cited_segment_ids, created_at
		FROM chat_turns WHERE video_id = $1 AND session_id = $2 ORDER BY sequence_number`,
		videoID, sessionID)
	if err != nil {
		return nil, core.WrapError(err, core.CodeInternal, "list chat history")
	}
	defer rows.Close()
	var out []core.ChatTurn
	for rows.Next() {
		var turn core.ChatTurn
		var role string
		if err := rows.Scan(&turn.VideoID, &turn.SessionID, &turn.Seq, &role, &turn.Text, &turn.CitedSegmentIDs, &turn.CreatedAt); err != nil {
			return nil, core.WrapError(err, core.CodeInternal, "scan chat turn")
		}
		turn.Role = core.ChatRole(role)
		out = append(out, turn)
	}
	return out, rows.Err()
}

func (s *PgChatStore) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE video_id = $1`, videoID)
	if err != nil {
		return core.WrapError(err, core.CodeInternal, "delete chat turns")
	}
	return nil
}
