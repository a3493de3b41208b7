package evmrpc

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const erc20TransferABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"from","type":"address"},{"indexed":true,"internalType":"address","name":"to","type":"address"},{"indexed":false,"internalType":"uint256","name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var (
	erc20ABI = mustParseABI(erc20TransferABI)

	// TransferEventID is keccak256("Transfer(address,address,uint256)").
	TransferEventID = erc20ABI.Events["Transfer"].ID

	errMalformedLog = errors.New("malformed transfer log")
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// transferTopics builds the topic filter: [event id, from?, to?].
func transferTopics(sender, recipient *common.Address) [][]common.Hash {
	topics := [][]common.Hash{{TransferEventID}}
	switch {
	case sender != nil && recipient != nil:
		topics = append(topics, []common.Hash{addressTopic(*sender)}, []common.Hash{addressTopic(*recipient)})
	case sender != nil:
		topics = append(topics, []common.Hash{addressTopic(*sender)})
	case recipient != nil:
		topics = append(topics, nil, []common.Hash{addressTopic(*recipient)})
	}
	return topics
}

func decodeTransfer(l types.Log) (RawTransfer, error) {
	if l.Removed {
		return RawTransfer{}, errors.Wrap(errMalformedLog, "log removed by reorg")
	}
	if len(l.Topics) != 3 || l.Topics[0] != TransferEventID {
		return RawTransfer{}, errors.Wrapf(errMalformedLog, "unexpected topics (%d)", len(l.Topics))
	}

	values, err := erc20ABI.Unpack("Transfer", l.Data)
	if err != nil {
		return RawTransfer{}, errors.Wrap(errMalformedLog, err.Error())
	}
	if len(values) != 1 {
		return RawTransfer{}, errors.Wrap(errMalformedLog, "missing value")
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return RawTransfer{}, errors.Wrap(errMalformedLog, "value is not uint256")
	}

	return RawTransfer{
		From:        common.BytesToAddress(l.Topics[1].Bytes()),
		To:          common.BytesToAddress(l.Topics[2].Bytes()),
		Value:       value,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}
