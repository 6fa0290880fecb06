package mob_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skillforge/internal/game/mob"
)

func TestParseTemplates(t *testing.T) {
	tmpls, err := mob.ParseTemplates([]byte(`kind: " Zombie "
name: Zombie
difficulty: 25
physical_defense: 10
---
kind: husk
name: Husk
difficulty: 30
`))
	require.NoError(t, err)
	require.Len(t, tmpls, 2)
	assert.Equal(t, "zombie", tmpls[0].Kind)
	assert.Equal(t, 25, tmpls[0].Difficulty)
	assert.Equal(t, "husk", tmpls[1].Kind)
	assert.Zero(t, tmpls[1].PhysicalDefense)

	empty, err := mob.ParseTemplates(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseTemplates_Rejects(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want string
	}{
		"misspelt field": {yaml: "kind: wolf\nname: Wolf\ndifficulity: 30\n", want: "difficulity"},
		"second doc bad": {yaml: "kind: a\nname: A\n---\nkind: b\n", want: "document 2"},
		"not a mapping":  {yaml: "- wolf\n", want: "document 1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := mob.ParseTemplates([]byte(tc.yaml))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestTemplate_Validate_JoinsViolations(t *testing.T) {
	err := (&mob.Template{Difficulty: -1, PhysicalDefense: -1}).Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "kind")
	assert.ErrorContains(t, err, "name")
	assert.ErrorContains(t, err, "difficulty")
	assert.ErrorContains(t, err, "physical_defense")
}

func TestRegistry_LookupsAndDefaults(t *testing.T) {
	reg, err := mob.NewRegistry([]*mob.Template{
		{Kind: "skeleton", Name: "Skeleton", Difficulty: 40, PhysicalDefense: 30},
	}, mob.Defaults{Difficulty: 20, PhysicalDefense: 5})
	require.NoError(t, err)

	assert.Equal(t, 40, reg.Difficulty("Skeleton"))
	assert.Equal(t, 30, reg.PhysicalDefense(" skeleton "))
	assert.Equal(t, 20, reg.Difficulty("slime"))
	assert.Equal(t, 5, reg.PhysicalDefense("slime"))
	assert.Equal(t, 1, reg.Len())

	_, err = mob.NewRegistry([]*mob.Template{
		{Kind: "a", Name: "A"}, {Kind: "a", Name: "A2"},
	}, mob.Defaults{})
	assert.Error(t, err)
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wolf.yaml"), []byte("kind: wolf\nname: Wolf\ndifficulty: 30\nphysical_defense: 15\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arachnids.yml"), []byte("kind: spider\nname: Spider\n---\nkind: cave_spider\nname: Cave Spider\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not yaml: ["), 0o644))
	tmpls, err := mob.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, tmpls, 3)
	assert.Equal(t, "spider", tmpls[0].Kind, "files load in name order")
	assert.Equal(t, "wolf", tmpls[2].Kind)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("kind: bad\n"), 0o644))
	_, err = mob.LoadTemplates(dir)
	assert.Error(t, err)

	_, err = mob.LoadTemplates(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadTemplates_ShippedContent(t *testing.T) {
	tmpls, err := mob.LoadTemplates("../../../content/mobs")
	require.NoError(t, err)
	reg, err := mob.NewRegistry(tmpls, mob.Defaults{})
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 0)
}
