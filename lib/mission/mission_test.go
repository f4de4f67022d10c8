package mission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultToggles() []Toggle {
	return []Toggle{
		{Name: XMM, Include: true},
		{Name: DESILS, Include: true},
		{Name: VLASS, Include: true},
		{Name: LOFARLoTSS, Include: false},
	}
}

func TestSelection_EnabledKeepsDeclarationOrder(t *testing.T) {
	sel, err := NewSelection(DefaultRegistry(), defaultToggles())
	require.NoError(t, err)
	assert.Equal(t, []string{"xmm", "desi-ls", "vlass"}, sel.Enabled())

	reordered := []Toggle{
		{Name: VLASS, Include: true},
		{Name: XMM, Include: true},
	}
	sel, err = NewSelection(DefaultRegistry(), reordered)
	require.NoError(t, err)
	assert.Equal(t, []string{"vlass", "xmm"}, sel.Enabled())
}

func TestSelection_Downloaders(t *testing.T) {
	reg := DefaultRegistry()
	sel, err := NewSelection(reg, defaultToggles())
	require.NoError(t, err)

	dls, err := sel.Downloaders(reg)
	require.NoError(t, err)
	require.Len(t, dls, 3)

	assert.Nil(t, dls[XMM])
	require.NotNil(t, dls[DESILS])
	assert.Equal(t, "LegacyDownloader", dls[DESILS].Name())
	assert.Equal(t, "VLASSDownloader", dls[VLASS].Name())
	_, ok := dls[LOFARLoTSS]
	assert.False(t, ok, "disabled missions must not get a downloader")
}

func TestNewSelection_Rejects(t *testing.T) {
	_, err := NewSelection(DefaultRegistry(), []Toggle{{Name: "chandra", Include: true}})
	assert.True(t, errors.Is(err, ErrUnknownMission))

	_, err = NewSelection(DefaultRegistry(), []Toggle{{Name: XMM, Include: true}, {Name: XMM}})
	assert.True(t, errors.Is(err, ErrDuplicateMission))
}

func TestSelection_Validate(t *testing.T) {
	sel, err := NewSelection(DefaultRegistry(), []Toggle{{Name: XMM}, {Name: VLASS}})
	require.NoError(t, err)
	assert.ErrorIs(t, sel.Validate(), ErrNoMissions)
}

func TestRegistry_RegisterKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("b", nil)
	r.Register("a", External("A"))
	r.Register("b", External("B"))
	assert.Equal(t, []string{"b", "a"}, r.Names())

	d, err := r.Downloader("b")
	require.NoError(t, err)
	assert.Equal(t, "B", d.Name())

	_, err = r.Downloader("c")
	assert.ErrorIs(t, err, ErrUnknownMission)
}
