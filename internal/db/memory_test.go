package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthscribe/pkg"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	sess, err := repo.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, pkg.StageInitial, sess.Context.Stage)

	_, err = repo.AppendMessage(ctx, sess.ID, pkg.Message{Sender: pkg.SenderAssistant, Content: "Hi"})
	require.NoError(t, err)
	m, err := repo.AppendMessage(ctx, sess.ID, pkg.Message{Sender: pkg.SenderUser, Content: "I have a cough"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)
	assert.Equal(t, pkg.KindText, m.Kind)

	n, err := repo.CountUserMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c := pkg.ConversationContext{Stage: pkg.StageAssessing, Detected: []string{"cough"}, History: []string{"cough"}}
	require.NoError(t, repo.SaveContext(ctx, sess.ID, c))

	// Mutating the caller's slices must not leak into the stored context.
	c.Detected[0] = "mutated"
	got, err := repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cough"}, got.Context.Detected)

	require.NoError(t, repo.ResetSession(ctx, sess.ID))
	msgs, err := repo.GetTranscript(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	got, err = repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.NewConversationContext(), got.Context)
}

func TestMemoryRepository_UnknownSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
	_, err = repo.AppendMessage(ctx, "nope", pkg.Message{})
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
	_, err = repo.GetTranscript(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
	assert.ErrorIs(t, repo.SaveContext(ctx, "nope", pkg.ConversationContext{}), pkg.ErrSessionNotFound)
	assert.ErrorIs(t, repo.ResetSession(ctx, "nope"), pkg.ErrSessionNotFound)
}
