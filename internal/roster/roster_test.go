package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoster(t *testing.T) *Roster {
	t.Helper()
	r, err := New(
		Participant{Name: "Kim Min-ji", Sex: Female, Experience: 7},
		Participant{Name: "Lee", Sex: Male, Experience: 3},
		Participant{Name: "Park", Sex: Male, Experience: 5},
		Participant{Name: "Choi", Sex: Female, Experience: 2},
	)
	require.NoError(t, err)
	return r
}

func TestValidate(t *testing.T) {
	t.Run("duplicate names", func(t *testing.T) {
		_, err := New(
			Participant{Name: "Lee", Sex: Male},
			Participant{Name: "Lee", Sex: Female},
		)
		assert.ErrorContains(t, err, "registered twice")
	})

	t.Run("names differing only by case", func(t *testing.T) {
		_, err := New(
			Participant{Name: "Kim", Sex: Female},
			Participant{Name: "kim", Sex: Male},
		)
		assert.ErrorContains(t, err, `"kim" is registered twice (as "Kim")`)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New(Participant{Name: "  ", Sex: Male})
		assert.ErrorContains(t, err, "no name")
	})

	t.Run("experience out of range", func(t *testing.T) {
		_, err := New(Participant{Name: "Lee", Sex: Male, Experience: 11})
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("invalid sex", func(t *testing.T) {
		_, err := New(Participant{Name: "Lee", Sex: "X"})
		assert.ErrorContains(t, err, "invalid sex")
	})

	t.Run("untracked experience is allowed", func(t *testing.T) {
		_, err := New(Participant{Name: "Lee", Sex: Male})
		assert.NoError(t, err)
	})
}

func TestAccessors(t *testing.T) {
	r := testRoster(t)

	assert.Equal(t, []string{"Kim Min-ji", "Lee", "Park", "Choi"}, r.Names())
	assert.Len(t, r.Males(), 2)
	assert.Len(t, r.Females(), 2)
	assert.True(t, r.TracksExperience())

	p, ok := r.Get("Park")
	require.True(t, ok)
	assert.Equal(t, 5, p.Experience)

	r.Participants[1].Experience = 0
	assert.False(t, r.TracksExperience())
}

func TestFind(t *testing.T) {
	r := testRoster(t)

	t.Run("exact match ignores case", func(t *testing.T) {
		p, err := r.Find("lee")
		require.NoError(t, err)
		assert.Equal(t, "Lee", p.Name)
	})

	t.Run("fuzzy match", func(t *testing.T) {
		p, err := r.Find("kimmin")
		require.NoError(t, err)
		assert.Equal(t, "Kim Min-ji", p.Name)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := r.Find("Zed")
		assert.True(t, errors.Is(err, ErrUnknownParticipant))
	})
}

func TestSnapshot(t *testing.T) {
	r := testRoster(t)
	snap, err := r.Snapshot()
	require.NoError(t, err)

	r.Participants[0].Name = "Renamed"
	assert.Equal(t, "Kim Min-ji", snap.Participants[0].Name)
}

func TestParseText(t *testing.T) {
	text := `
# club night
"Kim Min-ji" F 7
Lee m 3
Park male
`
	r, err := ParseText(text)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	assert.Equal(t, Participant{Name: "Kim Min-ji", Sex: Female, Experience: 7}, r.Participants[0])
	assert.Equal(t, Participant{Name: "Lee", Sex: Male, Experience: 3}, r.Participants[1])
	assert.Equal(t, Participant{Name: "Park", Sex: Male}, r.Participants[2])

	t.Run("bad line reports line number", func(t *testing.T) {
		_, err := ParseText("Lee M\nPark\n")
		assert.ErrorContains(t, err, "line 2")
	})

	t.Run("bad experience", func(t *testing.T) {
		_, err := ParseLine("Lee M high")
		assert.ErrorContains(t, err, "invalid experience")
	})
}
