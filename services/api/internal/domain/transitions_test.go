package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllowedTransitions_Tables(t *testing.T) {
	t.Parallel()

	owner := map[ListingStatus][]ListingStatus{
		StatusDraft:       {StatusActive, StatusUnderReview},
		StatusActive:      {StatusPaused, StatusSold, StatusDraft},
		StatusPaused:      {StatusActive, StatusDraft, StatusSold},
		StatusExpired:     {StatusActive, StatusDraft},
		StatusSold:        {StatusActive},
		StatusUnderReview: nil,
		StatusRejected:    {StatusDraft},
	}
	reviewer := map[ListingStatus][]ListingStatus{
		StatusDraft:       {StatusActive, StatusUnderReview, StatusRejected},
		StatusActive:      {StatusPaused, StatusSold, StatusUnderReview, StatusRejected},
		StatusPaused:      {StatusActive, StatusUnderReview, StatusRejected},
		StatusExpired:     {StatusActive, StatusRejected},
		StatusSold:        {StatusActive},
		StatusUnderReview: {StatusActive, StatusRejected},
		StatusRejected:    {StatusUnderReview, StatusActive},
	}

	for _, from := range AllStatuses {
		assert.ElementsMatch(t, owner[from], AllowedTransitions(RoleOwner, from), "owner from %s", from)
		assert.ElementsMatch(t, reviewer[from], AllowedTransitions(RoleReviewer, from), "reviewer from %s", from)
		assert.Empty(t, AllowedTransitions(RoleNone, from), "no role from %s", from)
	}
}

func TestAllowedTransitions_EveryStatusHasAnExit(t *testing.T) {
	t.Parallel()

	for _, from := range AllStatuses {
		exits := len(AllowedTransitions(RoleOwner, from)) + len(AllowedTransitions(RoleReviewer, from))
		assert.Positive(t, exits, "status %s has no outgoing transition", from)
	}
}

func TestCanTransition_NeverSelf(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.SampledFrom(AllStatuses).Draw(t, "status")
		role := rapid.SampledFrom([]Role{RoleNone, RoleOwner, RoleReviewer}).Draw(t, "role")
		if CanTransition(role, s, s) {
			t.Fatalf("self transition %s allowed for %s", s, role)
		}
	})
}

func TestCanTransition_MatchesAllowedSet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		role := rapid.SampledFrom([]Role{RoleOwner, RoleReviewer}).Draw(t, "role")
		from := rapid.SampledFrom(AllStatuses).Draw(t, "from")
		to := rapid.SampledFrom(AllStatuses).Draw(t, "to")

		inSet := false
		for _, s := range AllowedTransitions(role, from) {
			if s == to {
				inSet = true
			}
		}
		if inSet != CanTransition(role, from, to) {
			t.Fatalf("CanTransition(%s, %s, %s) disagrees with allowed set", role, from, to)
		}
	})
}

func TestAllowedTransitions_ReturnsFreshSlice(t *testing.T) {
	t.Parallel()

	first := AllowedTransitions(RoleOwner, StatusDraft)
	first[0] = StatusSold
	assert.Equal(t, StatusActive, AllowedTransitions(RoleOwner, StatusDraft)[0])
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
		assert.NotEmpty(t, s.Label())
	}

	_, err := ParseStatus("archived")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	_, err = ParseStatus("")
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

func TestNewStatusUpdate(t *testing.T) {
	t.Parallel()

	now := mustTime(t)

	sold := NewStatusUpdate(StatusActive, StatusSold, now)
	require.NotNil(t, sold.SoldAt)
	assert.Nil(t, sold.ExpiresAt)

	expired := NewStatusUpdate(StatusActive, StatusExpired, now)
	require.NotNil(t, expired.ExpiresAt)
	assert.Nil(t, expired.SoldAt)

	paused := NewStatusUpdate(StatusActive, StatusPaused, now)
	assert.Nil(t, paused.SoldAt)
	assert.Nil(t, paused.ExpiresAt)
	assert.False(t, paused.ClearExpiry)
	assert.False(t, expired.ClearExpiry)

	l := Listing{Status: StatusActive}
	sold.Apply(&l)
	assert.Equal(t, StatusSold, l.Status)
	assert.Equal(t, now, l.StatusChangedAt)
	require.NotNil(t, l.SoldAt)
	assert.Equal(t, now, *l.SoldAt)
}

func TestNewStatusUpdate_LeavingExpiredClearsExpiry(t *testing.T) {
	t.Parallel()

	now := mustTime(t)
	stamped := now.Add(-time.Hour)

	for _, to := range []ListingStatus{StatusActive, StatusDraft, StatusRejected} {
		u := NewStatusUpdate(StatusExpired, to, now)
		assert.True(t, u.ClearExpiry, "expired -> %s", to)

		l := Listing{Status: StatusExpired, ExpiresAt: &stamped}
		u.Apply(&l)
		assert.Equal(t, to, l.Status)
		assert.Nil(t, l.ExpiresAt, "expired -> %s", to)
		assert.False(t, l.ExpiryDue(now.Add(time.Hour)))
	}
}
