package chains

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type ID string

const (
	Ethereum ID = "ethereum"
	Polygon  ID = "polygon"
	Arbitrum ID = "arbitrum"
	BSC      ID = "bsc"
)

var ErrUnsupportedChain = errors.New("unsupported chain")

// Info is the static per-chain configuration the escrow scanner reads.
type Info struct {
	ID      ID     `json:"id"`
	ChainID int64  `json:"chain_id"`
	Name    string `json:"name"`
	// BlocksPerDay is an estimate derived from the average block time.
	BlocksPerDay  uint64 `json:"blocks_per_day"`
	TokenDecimals int32  `json:"token_decimals"`
	TokenSymbol   string `json:"token_symbol"`
	TokenAddress  string `json:"token_address"`
	ExplorerTxURL string `json:"explorer_tx_url"`
}

var infos = map[ID]Info{
	Ethereum: {
		ID:            Ethereum,
		ChainID:       1,
		Name:          "Ethereum",
		BlocksPerDay:  7200,
		TokenDecimals: 6,
		TokenSymbol:   "USDT",
		TokenAddress:  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		ExplorerTxURL: "https://etherscan.io/tx/%s",
	},
	Polygon: {
		ID:            Polygon,
		ChainID:       137,
		Name:          "Polygon",
		BlocksPerDay:  43000,
		TokenDecimals: 6,
		TokenSymbol:   "USDT",
		TokenAddress:  "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
		ExplorerTxURL: "https://polygonscan.com/tx/%s",
	},
	Arbitrum: {
		ID:            Arbitrum,
		ChainID:       42161,
		Name:          "Arbitrum One",
		BlocksPerDay:  345600,
		TokenDecimals: 6,
		TokenSymbol:   "USDT",
		TokenAddress:  "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
		ExplorerTxURL: "https://arbiscan.io/tx/%s",
	},
	BSC: {
		ID:            BSC,
		ChainID:       56,
		Name:          "BNB Smart Chain",
		BlocksPerDay:  28800,
		TokenDecimals: 18,
		TokenSymbol:   "USDT",
		TokenAddress:  "0x55d398326f99059fF775485246999027B3197955",
		ExplorerTxURL: "https://bscscan.com/tx/%s",
	},
}

// Lookup returns the static info of a supported chain.
func Lookup(id ID) (Info, error) {
	info, ok := infos[id]
	if !ok {
		return Info{}, errors.Wrapf(ErrUnsupportedChain, "chain %q", id)
	}
	return info, nil
}

// Parse accepts a chain name ("polygon") or a numeric chain id ("137").
func Parse(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := infos[ID(s)]; ok {
		return ID(s), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		for id, info := range infos {
			if info.ChainID == n {
				return id, nil
			}
		}
	}
	return "", errors.Wrapf(ErrUnsupportedChain, "chain %q", s)
}

// All returns every supported chain ordered by chain id.
func All() []Info {
	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (i Info) TxURL(txHash string) string {
	return fmt.Sprintf(i.ExplorerTxURL, txHash)
}

func (id ID) String() string {
	return string(id)
}
