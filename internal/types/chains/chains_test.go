package chains

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name         string
		id           ID
		blocksPerDay uint64
		decimals     int32
		wantErr      bool
	}{
		{name: "ethereum", id: Ethereum, blocksPerDay: 7200, decimals: 6},
		{name: "polygon", id: Polygon, blocksPerDay: 43000, decimals: 6},
		{name: "arbitrum", id: Arbitrum, blocksPerDay: 345600, decimals: 6},
		{name: "bsc uses 18 decimals", id: BSC, blocksPerDay: 28800, decimals: 18},
		{name: "unknown chain", id: ID("solana"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Lookup(tt.id)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedChain))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.blocksPerDay, info.BlocksPerDay)
			assert.Equal(t, tt.decimals, info.TokenDecimals)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    ID
		wantErr bool
	}{
		{input: "polygon", want: Polygon},
		{input: " Ethereum ", want: Ethereum},
		{input: "137", want: Polygon},
		{input: "56", want: BSC},
		{input: "42161", want: Arbitrum},
		{input: "10", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedChain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAll_SortedByChainID(t *testing.T) {
	all := All()
	require.Len(t, all, 4)
	assert.Equal(t, []ID{Ethereum, BSC, Polygon, Arbitrum}, []ID{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
}

func TestInfo_TxURL(t *testing.T) {
	info, err := Lookup(Polygon)
	require.NoError(t, err)
	assert.Equal(t, "https://polygonscan.com/tx/0xabc", info.TxURL("0xabc"))
}
