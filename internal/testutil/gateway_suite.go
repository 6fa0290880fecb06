package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skillforge/internal/game/player"
	"github.com/cory-johannsen/skillforge/internal/game/session"
	"github.com/cory-johannsen/skillforge/internal/game/skill"
)

// suiteEpoch has microsecond precision so every backend stores it exactly.
var suiteEpoch = time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)

// SampleDocument builds a fully populated document for id: every catalog
// skill has a distinct value and last-used time, and the scalar fields are
// all non-default.
func SampleDocument(id player.Identity, name string) player.Document {
	rec := player.New(id, name, suiteEpoch)
	rec.Update(func(s *player.State) {
		for i := range s.Skills {
			s.Skills[i].Value = float64(i%10) * 1.5
			s.Skills[i].LastUsed = suiteEpoch.Add(time.Duration(i) * time.Minute)
		}
		s.MaxHP, s.HP = 150, 120.5
		s.MaxMana, s.Mana = 20, 7.25
		s.MaxStamina, s.Stamina = 130, 99
		s.Stats = player.Stats{Str: 50, Dex: 30, Int: 12}
		s.Locks[skill.Str] = player.LockUp
		s.Locks[skill.Int] = player.LockLocked
		s.Language = "de-DE"
	})
	doc, _ := rec.Document()
	return doc
}

// AssertDocumentsEqual compares two documents field by field, matching skill
// rows by key and comparing times to the microsecond.
func AssertDocumentsEqual(t *testing.T, want, got player.Document) {
	t.Helper()
	assert.Equal(t, want.Identity, got.Identity)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.HP, got.HP)
	assert.Equal(t, want.MaxHP, got.MaxHP)
	assert.Equal(t, want.Mana, got.Mana)
	assert.Equal(t, want.MaxMana, got.MaxMana)
	assert.Equal(t, want.Stamina, got.Stamina)
	assert.Equal(t, want.MaxStamina, got.MaxStamina)
	assert.Equal(t, want.Str, got.Str)
	assert.Equal(t, want.Dex, got.Dex)
	assert.Equal(t, want.Int, got.Int)
	assert.Equal(t, want.StrLock, got.StrLock)
	assert.Equal(t, want.DexLock, got.DexLock)
	assert.Equal(t, want.IntLock, got.IntLock)
	assert.Equal(t, want.Language, got.Language)

	require.Len(t, got.Skills, len(want.Skills))
	byKey := make(map[string]player.SkillRow, len(got.Skills))
	for _, sr := range got.Skills {
		byKey[sr.Key] = sr
	}
	for _, sr := range want.Skills {
		g, ok := byKey[sr.Key]
		if !assert.True(t, ok, "missing skill row %q", sr.Key) {
			continue
		}
		assert.Equal(t, sr.Value, g.Value, "skill %q value", sr.Key)
		assert.WithinDuration(t, sr.LastUsed, g.LastUsed, time.Microsecond, "skill %q last used", sr.Key)
	}
}

// RunGatewaySuite exercises the session.Gateway contract against a backend.
// newGateway must return an empty gateway for each call.
func RunGatewaySuite(t *testing.T, newGateway func(t *testing.T) session.Gateway) {
	t.Run("LoadMissingReturnsErrNotFound", func(t *testing.T) {
		gw := newGateway(t)
		_, err := gw.Load(context.Background(), uuid.New())
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		gw := newGateway(t)
		ctx := context.Background()
		want := SampleDocument(uuid.New(), "Roundtrip")

		require.NoError(t, gw.Save(ctx, want))
		got, err := gw.Load(ctx, want.Identity)
		require.NoError(t, err)
		AssertDocumentsEqual(t, want, got)

		_, issues := player.FromDocument(got, suiteEpoch)
		assert.Empty(t, issues, "a stored document rebuilds without repairs")
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		gw := newGateway(t)
		ctx := context.Background()
		doc := SampleDocument(uuid.New(), "Before")
		require.NoError(t, gw.Save(ctx, doc))

		doc.Name = "After"
		doc.HP = 1
		doc.Skills[0].Value = 99.9
		doc.Skills[0].LastUsed = suiteEpoch.Add(time.Hour)
		require.NoError(t, gw.Save(ctx, doc))

		got, err := gw.Load(ctx, doc.Identity)
		require.NoError(t, err)
		AssertDocumentsEqual(t, doc, got)
		assert.Len(t, got.Skills, int(skill.Count))
	})

	t.Run("ExistsAndDelete", func(t *testing.T) {
		gw := newGateway(t)
		ctx := context.Background()
		doc := SampleDocument(uuid.New(), "Doomed")

		ok, err := gw.Exists(ctx, doc.Identity)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, gw.Save(ctx, doc))
		ok, err = gw.Exists(ctx, doc.Identity)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, gw.Delete(ctx, doc.Identity))
		ok, err = gw.Exists(ctx, doc.Identity)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = gw.Load(ctx, doc.Identity)
		assert.ErrorIs(t, err, session.ErrNotFound)

		assert.NoError(t, gw.Delete(ctx, uuid.New()), "deleting an absent id is not an error")
	})

	t.Run("ConcurrentSavesOfDistinctPlayers", func(t *testing.T) {
		gw := newGateway(t)
		ctx := context.Background()
		const n = 8
		docs := make([]player.Document, n)
		for i := range docs {
			docs[i] = SampleDocument(uuid.New(), fmt.Sprintf("p%d", i))
		}

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := range docs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = gw.Save(ctx, docs[i])
			}(i)
		}
		wg.Wait()

		for i, doc := range docs {
			require.NoError(t, errs[i])
			got, err := gw.Load(ctx, doc.Identity)
			require.NoError(t, err)
			assert.Equal(t, doc.Name, got.Name)
		}
	})
}
