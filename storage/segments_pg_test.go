package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoInsight/core"
)

func TestPgSegmentStoreReplace(t *testing.T) {
	segCols := []string{"id", "video_id", "start_time", "end_time", "text"}
	tests := []struct {
		name         string
		segs         []core.Segment
		setup        func(mock pgxmock.PgxPoolIface)
		wantReplaced bool
		wantErr      bool
	}{
		{
			name: "first write",
			segs: sampleSegments("vid-1"),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("DELETE FROM transcript_segments").
					WithArgs("vid-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
				mock.ExpectCopyFrom(pgx.Identifier{"transcript_segments"}, segCols).
					WillReturnResult(3)
			},
			wantReplaced: false,
		},
		{
			name: "replacement of an existing transcript",
			segs: sampleSegments("vid-1"),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("DELETE FROM transcript_segments").
					WithArgs("vid-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 3))
				mock.ExpectCopyFrom(pgx.Identifier{"transcript_segments"}, segCols).
					WillReturnResult(3)
			},
			wantReplaced: true,
		},
		{
			name: "empty transcript only clears",
			segs: nil,
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("DELETE FROM transcript_segments").
					WithArgs("vid-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 3))
			},
			wantReplaced: true,
		},
		{
			name: "database error",
			segs: sampleSegments("vid-1"),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("DELETE FROM transcript_segments").
					WithArgs("vid-1").
					WillReturnError(assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			store := NewPgSegmentStore(mock)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			replaced, err := store.Replace(ctx, "vid-1", tt.segs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantReplaced, replaced)
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "pgxmock expectations were not met")
		})
	}
}

func TestPgSegmentStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "video_id", "start_time", "end_time", "text"}).
		AddRow("s1", "vid-1", 0.0, 10.0, "first part").
		AddRow("s2", "vid-1", 10.0, 20.0, "second part")
	mock.ExpectQuery("SELECT id, video_id, start_time, end_time, text").
		WithArgs("vid-1").
		WillReturnRows(rows)

	store := NewPgSegmentStore(mock)
	segs, err := store.List(context.Background(), "vid-1")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "s1", segs[0].ID)
	assert.Equal(t, 10.0, segs[1].Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSummaryStorePutAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	sum := &core.Summary{
		VideoID:        "vid-1",
		Kind:           core.SummaryFull,
		Content:        "a summary",
		KeyTopics:      []string{"Testing"},
		GenerationTime: 1.5,
		GeneratedAt:    now,
	}
	mock.ExpectExec("INSERT INTO summaries").
		WithArgs("vid-1", "full", "a summary", []string{"Testing"}, 1.5, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPgSummaryStore(mock)
	require.NoError(t, store.Put(context.Background(), sum))

	rows := pgxmock.NewRows([]string{"video_id", "kind", "content", "key_topics", "generation_time", "generated_at"}).
		AddRow("vid-1", "full", "a summary", []string{"Testing"}, 1.5, now)
	mock.ExpectQuery("SELECT video_id, kind, content").
		WithArgs("vid-1", "full").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "vid-1", core.SummaryFull)
	require.NoError(t, err)
	assert.Equal(t, "a summary", got.Content)
	assert.Equal(t, core.SummaryFull, got.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSummaryStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT video_id, kind, content").
		WithArgs("vid-1", "bullet").
		WillReturnError(pgx.ErrNoRows)

	store := NewPgSummaryStore(mock)
	_, err = store.Get(context.Background(), "vid-1", core.SummaryBullet)
	require.Error(t, err)
	assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVideoStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, source_path, duration").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	store := NewPgVideoStore(mock)
	_, err = store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, core.CodeNotFound, core.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVideoStorePut(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	v := &core.Video{
		ID:         "vid-1",
		SourcePath: "/videos/talk.mp4",
		Duration:   120,
		Status:     core.StatusCompleted,
		Progress:   100,
		CreatedAt:  now,
		UpdatedAt:  now,
		ProcessedAt: &now,
	}
	mock.ExpectExec("INSERT INTO videos").
		WithArgs("vid-1", "/videos/talk.mp4", 120.0, "completed", 100, "", "", now, now, &now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPgVideoStore(mock)
	require.NoError(t, store.Put(context.Background(), v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgChatStoreAppendAssignsSeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	turn := &core.ChatTurn{
		VideoID:   "vid-1",
		SessionID: "sess-1",
		Role:      core.RoleUser,
		Text:      "what is this about?",
		CreatedAt: now,
	}
	mock.ExpectQuery("INSERT INTO chat_turns").
		WithArgs("vid-1", "sess-1", "user", "what is this about?", []string(nil), now).
		WillReturnRows(pgxmock.NewRows([]string{"sequence_number"}).AddRow(3))

	store := NewPgChatStore(mock)
	require.NoError(t, store.Append(context.Background(), turn))
	assert.Equal(t, 3, turn.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
