package phy

import (
	"testing"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rates(modes []domain.WifiMode) []uint64 {
	out := make([]uint64, 0, len(modes))
	for _, m := range modes {
		out = append(out, m.DataRate)
	}
	return out
}

func TestForStandard_G(t *testing.T) {
	tbl, err := ForStandard("g", 0)
	require.NoError(t, err)

	assert.Equal(t, []uint64{
		1000000, 2000000, 5500000, 11000000,
		6000000, 9000000, 12000000, 18000000, 24000000, 36000000, 48000000, 54000000,
	}, rates(tbl.Modes()))
	assert.True(t, tbl.Supports(domain.ModClassDSSS))
	assert.True(t, tbl.Supports(domain.ModClassERPOFDM))
	assert.False(t, tbl.Supports(domain.ModClassOFDM))
	assert.False(t, tbl.Supports(domain.ModClassHT))
	assert.Equal(t, uint8(1), tbl.Channel())

	var mandatory []uint64
	for _, m := range tbl.Modes() {
		if m.Mandatory && m.Class == domain.ModClassERPOFDM {
			mandatory = append(mandatory, m.DataRate)
		}
	}
	assert.Equal(t, []uint64{6000000, 12000000, 24000000}, mandatory)
}

func TestForStandard_MCS(t *testing.T) {
	tbl, err := ForStandard("AX", 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(36), tbl.Channel())

	ht := tbl.McsList(domain.ModClassHT)
	require.Len(t, ht, 8)
	assert.Equal(t, uint64(6500000), ht[0].DataRate)
	assert.Equal(t, uint64(65000000), ht[7].DataRate)
	assert.True(t, ht[0].Mandatory)
	assert.False(t, ht[1].Mandatory)

	vht := tbl.McsList(domain.ModClassVHT)
	require.Len(t, vht, 10)
	assert.Equal(t, uint64(78000000), vht[8].DataRate)

	he := tbl.McsList(domain.ModClassHE)
	require.Len(t, he, 12)
	assert.Equal(t, uint64(8602941), he[0].DataRate)
	assert.True(t, tbl.Supports(domain.ModClassHE))
}

func TestForStandard_Unknown(t *testing.T) {
	_, err := ForStandard("z", 0)
	assert.ErrorIs(t, err, ErrUnknownStandard)
}

func TestRateTable_ModesIsCopy(t *testing.T) {
	tbl, err := ForStandard("b", 6)
	require.NoError(t, err)
	m := tbl.Modes()
	m[0].DataRate = 0
	assert.Equal(t, uint64(1000000), tbl.Modes()[0].DataRate)
	assert.Nil(t, tbl.McsList(domain.ModClassHT))
}

func TestRateTable_BasicMode(t *testing.T) {
	g, err := ForStandard("g", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), g.BasicMode().DataRate)

	ac, err := ForStandard("ac", 36)
	require.NoError(t, err)
	assert.Equal(t, uint64(6000000), ac.BasicMode().DataRate)
}

func TestRateTable_DisableShortPreamble(t *testing.T) {
	tbl, err := ForStandard("g", 6)
	require.NoError(t, err)
	require.True(t, tbl.ShortPreambleSupported())
	tbl.DisableShortPreamble()
	assert.False(t, tbl.ShortPreambleSupported())
}
