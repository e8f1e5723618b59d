package stream

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"grantstream/internal/model"
)

// Decoder converts raw factory and instance logs into typed events.
type Decoder struct {
	factoryABI  abi.ABI
	instanceABI abi.ABI
	topicToName map[common.Hash]string
}

// NewDecoder builds a decoder for the full event surface.
func NewDecoder() (*Decoder, error) {
	factory, err := FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}
	instance, err := InstanceABI()
	if err != nil {
		return nil, fmt.Errorf("parse instance abi: %w", err)
	}

	topicToName := map[common.Hash]string{
		factory.Events["StreamCreated"].ID: "StreamCreated",
	}
	for _, name := range []string{
		"MemberUpdated",
		"AdminAdded",
		"AdminRemoved",
		"FundsWithdrawn",
		"WithdrawalRequested",
		"WithdrawalApproved",
		"WithdrawalRejected",
		"WithdrawalCompleted",
		"LockStatusChanged",
		"ApprovalRequirementChanged",
		"ApplicationsStatusChanged",
	} {
		topicToName[instance.Events[name].ID] = name
	}

	return &Decoder{
		factoryABI:  factory,
		instanceABI: instance,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks whether the log's topic0 is part of the event surface.
func (d *Decoder) CanDecode(log types.Log) bool {
	if len(log.Topics) == 0 {
		return false
	}
	_, ok := d.topicToName[log.Topics[0]]
	return ok
}

// Topics returns every topic0 the decoder understands, for log filters.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		out = append(out, topic)
	}
	return out
}

// Decode converts a raw log into a typed event. The block timestamp is
// supplied by the caller; reducers never see wall-clock time.
func (d *Decoder) Decode(chainID uint64, log types.Log, timestamp uint64) (*model.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topic0")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	var decoded interface{}
	var err error
	switch name {
	case "StreamCreated":
		decoded, err = d.decodeStreamCreated(log)
	case "MemberUpdated":
		decoded, err = d.decodeMemberUpdated(log)
	case "AdminAdded":
		decoded, err = d.decodeAdminChange(log, "AdminAdded")
	case "AdminRemoved":
		decoded, err = d.decodeAdminChange(log, "AdminRemoved")
	case "FundsWithdrawn":
		decoded, err = d.decodeFundsWithdrawn(log)
	case "WithdrawalRequested":
		decoded, err = d.decodeWithdrawalRequested(log)
	case "WithdrawalApproved", "WithdrawalRejected", "WithdrawalCompleted":
		decoded, err = d.decodeWithdrawalTransition(log, name)
	case "LockStatusChanged":
		decoded, err = d.decodeLockStatusChanged(log)
	case "ApprovalRequirementChanged":
		decoded, err = d.decodeApprovalRequirementChanged(log)
	case "ApplicationsStatusChanged":
		decoded, err = d.decodeApplicationsStatusChanged(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return &model.Event{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		Timestamp:   timestamp,
		TxHash:      strings.ToLower(log.TxHash.Hex()),
		LogIndex:    uint64(log.Index),
		Address:     model.NormalizeAddress(log.Address.Hex()),
		Name:        name,
		Decoded:     decoded,
	}, nil
}

func (d *Decoder) decodeStreamCreated(log types.Log) (model.StreamCreatedData, error) {
	event := d.factoryABI.Events["StreamCreated"]

	var indexed struct {
		Stream common.Address
		Admin  common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.StreamCreatedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.StreamCreatedData{}, err
	}
	name, err := asString(values[0])
	if err != nil {
		return model.StreamCreatedData{}, fmt.Errorf("name: %w", err)
	}
	description, err := asString(values[1])
	if err != nil {
		return model.StreamCreatedData{}, fmt.Errorf("description: %w", err)
	}

	return model.StreamCreatedData{
		Stream:      model.NormalizeAddress(indexed.Stream.Hex()),
		Admin:       model.NormalizeAddress(indexed.Admin.Hex()),
		Name:        name,
		Description: description,
	}, nil
}

func (d *Decoder) decodeMemberUpdated(log types.Log) (model.MemberUpdatedData, error) {
	event := d.instanceABI.Events["MemberUpdated"]

	var indexed struct {
		Member common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.MemberUpdatedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.MemberUpdatedData{}, err
	}
	cap, err := asBigInt(values[0])
	if err != nil {
		return model.MemberUpdatedData{}, fmt.Errorf("cap: %w", err)
	}

	return model.MemberUpdatedData{
		Member: model.NormalizeAddress(indexed.Member.Hex()),
		Cap:    cap.String(),
	}, nil
}

func (d *Decoder) decodeAdminChange(log types.Log, name string) (interface{}, error) {
	event := d.instanceABI.Events[name]

	var indexed struct {
		Admin common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return nil, err
	}

	admin := model.NormalizeAddress(indexed.Admin.Hex())
	if name == "AdminAdded" {
		return model.AdminAddedData{Admin: admin}, nil
	}
	return model.AdminRemovedData{Admin: admin}, nil
}

func (d *Decoder) decodeFundsWithdrawn(log types.Log) (model.FundsWithdrawnData, error) {
	event := d.instanceABI.Events["FundsWithdrawn"]

	var indexed struct {
		Member common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.FundsWithdrawnData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.FundsWithdrawnData{}, err
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return model.FundsWithdrawnData{}, fmt.Errorf("amount: %w", err)
	}
	reason, err := asString(values[1])
	if err != nil {
		return model.FundsWithdrawnData{}, fmt.Errorf("reason: %w", err)
	}

	return model.FundsWithdrawnData{
		Member: model.NormalizeAddress(indexed.Member.Hex()),
		Amount: amount.String(),
		Reason: reason,
	}, nil
}

func (d *Decoder) decodeWithdrawalRequested(log types.Log) (model.WithdrawalRequestedData, error) {
	event := d.instanceABI.Events["WithdrawalRequested"]

	var indexed struct {
		Member common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.WithdrawalRequestedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return model.WithdrawalRequestedData{}, err
	}
	requestID, err := asBigInt(values[0])
	if err != nil {
		return model.WithdrawalRequestedData{}, fmt.Errorf("request id: %w", err)
	}
	if !requestID.IsUint64() {
		return model.WithdrawalRequestedData{}, fmt.Errorf("request id overflow: %s", requestID)
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return model.WithdrawalRequestedData{}, fmt.Errorf("amount: %w", err)
	}
	reason, err := asString(values[2])
	if err != nil {
		return model.WithdrawalRequestedData{}, fmt.Errorf("reason: %w", err)
	}

	return model.WithdrawalRequestedData{
		Member:    model.NormalizeAddress(indexed.Member.Hex()),
		RequestID: requestID.Uint64(),
		Amount:    amount.String(),
		Reason:    reason,
	}, nil
}

func (d *Decoder) decodeWithdrawalTransition(log types.Log, name string) (interface{}, error) {
	event := d.instanceABI.Events[name]

	var indexed struct {
		Member common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return nil, err
	}
	requestID, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("request id: %w", err)
	}
	if !requestID.IsUint64() {
		return nil, fmt.Errorf("request id overflow: %s", requestID)
	}

	member := model.NormalizeAddress(indexed.Member.Hex())
	switch name {
	case "WithdrawalApproved":
		return model.WithdrawalApprovedData{Member: member, RequestID: requestID.Uint64()}, nil
	case "WithdrawalRejected":
		return model.WithdrawalRejectedData{Member: member, RequestID: requestID.Uint64()}, nil
	default:
		return model.WithdrawalCompletedData{Member: member, RequestID: requestID.Uint64()}, nil
	}
}

func (d *Decoder) decodeLockStatusChanged(log types.Log) (model.LockStatusChangedData, error) {
	event := d.instanceABI.Events["LockStatusChanged"]
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.LockStatusChangedData{}, err
	}
	locked, err := asBool(values[0])
	if err != nil {
		return model.LockStatusChangedData{}, fmt.Errorf("locked: %w", err)
	}
	return model.LockStatusChangedData{Locked: locked}, nil
}

func (d *Decoder) decodeApprovalRequirementChanged(log types.Log) (model.ApprovalRequirementChangedData, error) {
	event := d.instanceABI.Events["ApprovalRequirementChanged"]

	var indexed struct {
		Subject common.Address
	}
	if err := parseIndexed(&indexed, event, log); err != nil {
		return model.ApprovalRequirementChangedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.ApprovalRequirementChangedData{}, err
	}
	required, err := asBool(values[0])
	if err != nil {
		return model.ApprovalRequirementChangedData{}, fmt.Errorf("required: %w", err)
	}

	return model.ApprovalRequirementChangedData{
		Subject:  model.NormalizeAddress(indexed.Subject.Hex()),
		Required: required,
	}, nil
}

func (d *Decoder) decodeApplicationsStatusChanged(log types.Log) (model.ApplicationsStatusChangedData, error) {
	event := d.instanceABI.Events["ApplicationsStatusChanged"]
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.ApplicationsStatusChangedData{}, err
	}
	open, err := asBool(values[0])
	if err != nil {
		return model.ApplicationsStatusChangedData{}, fmt.Errorf("open: %w", err)
	}
	return model.ApplicationsStatusChangedData{Open: open}, nil
}

func parseIndexed(out interface{}, event abi.Event, log types.Log) error {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	if len(indexed) == 0 {
		return nil
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte, want int) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", event.Name, len(values))
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asString(value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unsupported string type %T", value)
	}
	return s, nil
}

func asBool(value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return b, nil
}
