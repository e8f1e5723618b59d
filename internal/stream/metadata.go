package stream

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"grantstream/internal/model"
)

// ContractCaller performs eth_call against a contract. chain.Client satisfies
// it; discovery tests substitute a fake.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMeta is ERC-20 metadata for a payout token.
type TokenMeta struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// ReadInstanceConfig reads the current on-chain configuration of an instance.
// When the instance is in token mode, the token's symbol and decimals are
// resolved too; a failed symbol read degrades to an empty symbol rather than
// failing the whole read.
func ReadInstanceConfig(ctx context.Context, caller ContractCaller, instance common.Address, logger *zap.Logger) (model.InstanceState, error) {
	if caller == nil {
		return model.InstanceState{}, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := InstanceABI()
	if err != nil {
		return model.InstanceState{}, fmt.Errorf("parse instance abi: %w", err)
	}

	state := model.InstanceState{
		InstanceAddress: model.NormalizeAddress(instance.Hex()),
		TokenDecimals:   18,
	}

	values, err := callMethod(ctx, caller, instance, parsed, "token")
	if err != nil {
		return model.InstanceState{}, err
	}
	token, err := asAddress(values[0])
	if err != nil {
		return model.InstanceState{}, fmt.Errorf("token: %w", err)
	}

	values, err = callMethod(ctx, caller, instance, parsed, "oneTimePayout")
	if err != nil {
		return model.InstanceState{}, err
	}
	if state.OneTimePayout, err = asBool(values[0]); err != nil {
		return model.InstanceState{}, fmt.Errorf("oneTimePayout: %w", err)
	}

	values, err = callMethod(ctx, caller, instance, parsed, "cycleDuration")
	if err != nil {
		return model.InstanceState{}, err
	}
	cycle, err := asBigInt(values[0])
	if err != nil {
		return model.InstanceState{}, fmt.Errorf("cycleDuration: %w", err)
	}
	state.CycleSeconds = cycle.Uint64()

	values, err = callMethod(ctx, caller, instance, parsed, "locked")
	if err != nil {
		return model.InstanceState{}, err
	}
	if state.Locked, err = asBool(values[0]); err != nil {
		return model.InstanceState{}, fmt.Errorf("locked: %w", err)
	}

	values, err = callMethod(ctx, caller, instance, parsed, "approvalRequired")
	if err != nil {
		return model.InstanceState{}, err
	}
	if state.RequiresApproval, err = asBool(values[0]); err != nil {
		return model.InstanceState{}, fmt.Errorf("approvalRequired: %w", err)
	}

	values, err = callMethod(ctx, caller, instance, parsed, "applicationsOpen")
	if err != nil {
		return model.InstanceState{}, err
	}
	if state.ApplicationsOpen, err = asBool(values[0]); err != nil {
		return model.InstanceState{}, fmt.Errorf("applicationsOpen: %w", err)
	}

	if token != (common.Address{}) {
		state.TokenMode = true
		state.TokenAddress = model.NormalizeAddress(token.Hex())
		meta, err := FetchTokenMeta(ctx, caller, token, logger)
		if err != nil {
			logger.Warn("token metadata fetch failed", zap.String("token", state.TokenAddress), zap.Error(err))
		} else {
			state.TokenSymbol = meta.Symbol
			state.TokenDecimals = meta.Decimals
		}
	}

	return state, nil
}

// FetchTokenMeta loads symbol and decimals via ERC-20 calls, falling back to
// the bytes32 symbol variant used by some legacy tokens.
func FetchTokenMeta(ctx context.Context, caller ContractCaller, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	meta := TokenMeta{Address: model.NormalizeAddress(token.Hex()), Decimals: 18}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	if values, err := callMethod(ctx, caller, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
			return meta, nil
		}
	}
	if values, err := callMethod(ctx, caller, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
			return meta, nil
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", meta.Address), zap.Error(err))
	}

	return meta, nil
}

func callMethod(ctx context.Context, caller ContractCaller, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s return", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
