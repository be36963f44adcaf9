package services

import (
	"context"
	"testing"

	"closer-backend/internal/models"
	"closer-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAccount_RemovesOwnDataAndUnpairsPartner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedQuestions(t, threeQuestions...)
	a, b := env.couple(t, "a@x.com", "b@x.com")
	coupleID := *a.CoupleID

	_, err := env.daily.SetMood(ctx, a.ID, "#111111")
	require.NoError(t, err)
	_, err = env.daily.SubmitAnswer(ctx, a.ID, "q2", "mine")
	require.NoError(t, err)
	_, err = env.memories.PostMemory(ctx, a.ID, "from a", nil)
	require.NoError(t, err)
	_, err = env.memories.PostMemory(ctx, b.ID, "from b", nil)
	require.NoError(t, err)

	require.NoError(t, env.accounts.DeleteAccount(ctx, a.ID))

	_, err = env.store.Users.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	_, err = env.store.Moods.GetForDay(ctx, a.ID, DayWindowAt(env.clock).Start)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = env.store.Answers.GetForDay(ctx, a.ID, DayWindowAt(env.clock).Start)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	left, total, err := env.store.Memories.ListByCouple(ctx, coupleID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, left, 1)
	assert.Equal(t, "from b", left[0].Text)
	assert.Equal(t, coupleID, left[0].CoupleID, "survivor records keep the dissolved couple id")

	b, err = env.store.Users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, b.PartnerID)
	assert.Nil(t, b.CoupleID)

	_, err = env.daily.GetPartnerMood(ctx, b.ID)
	assert.ErrorIs(t, err, models.ErrNoPartner)

	// the survivor can pair again
	c := env.verifiedUser(t, "c@x.com")
	code, err := env.pairs.GenerateInviteCode(ctx, b.ID)
	require.NoError(t, err)
	_, err = env.pairs.RedeemInviteCode(ctx, c.ID, code)
	assert.NoError(t, err)
}

func TestDeleteAccount_LeavesOtherCouplesAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.couple(t, "a@x.com", "b@x.com")
	c, d := env.couple(t, "c@x.com", "d@x.com")

	_, err := env.memories.PostMemory(ctx, c.ID, "other couple", nil)
	require.NoError(t, err)

	require.NoError(t, env.accounts.DeleteAccount(ctx, a.ID))

	page, err := env.memories.ListMemories(ctx, d.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Memories, 1)

	d, err = env.store.Users.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, *d.PartnerID)
}

func TestDeleteAccount_UnpairedAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	single := env.verifiedUser(t, "single@x.com")

	require.NoError(t, env.accounts.DeleteAccount(ctx, single.ID))
	assert.ErrorIs(t, env.accounts.DeleteAccount(ctx, single.ID), models.ErrUserNotFound)
}
