package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fundScope/internal/model"
)

// LogDecoder converts fund and controller logs into typed trigger events.
type LogDecoder struct {
	fundABI       abi.ABI
	controllerABI abi.ABI
	topicToName   map[common.Hash]string
}

func NewLogDecoder() (*LogDecoder, error) {
	fund, err := FundABI()
	if err != nil {
		return nil, err
	}
	controller, err := ControllerABI()
	if err != nil {
		return nil, err
	}

	topicToName := map[common.Hash]string{
		fund.Events["Deposit"].ID:                   "Deposit",
		fund.Events["Withdraw"].ID:                  "Withdraw",
		fund.Events["Transfer"].ID:                  "Transfer",
		controller.Events["ChangeVerifiedToken"].ID: "ChangeVerifiedToken",
		controller.Events["Harvest"].ID:             "Harvest",
	}

	return &LogDecoder{
		fundABI:       fund,
		controllerABI: controller,
		topicToName:   topicToName,
	}, nil
}

// Topics returns all topic0 hashes the decoder understands, for log filters.
func (d *LogDecoder) Topics() []common.Hash {
	topics := make([]common.Hash, 0, len(d.topicToName))
	for topic := range d.topicToName {
		topics = append(topics, topic)
	}
	return topics
}

// CanDecode checks whether the topic0 is supported.
func (d *LogDecoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.topicToName[topic0]
	return ok
}

// Decode converts a raw log into one of the model event types.
func (d *LogDecoder) Decode(log types.Log, meta model.EventMeta) (interface{}, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[log.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	switch name {
	case "Deposit":
		return d.decodeDeposit(log, meta)
	case "Withdraw":
		return d.decodeWithdraw(log, meta)
	case "Transfer":
		return d.decodeTransfer(log, meta)
	case "ChangeVerifiedToken":
		return d.decodeChangeVerifiedToken(log, meta)
	case "Harvest":
		return d.decodeHarvest(log, meta)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func (d *LogDecoder) decodeDeposit(log types.Log, meta model.EventMeta) (*model.DepositEvent, error) {
	event := d.fundABI.Events["Deposit"]
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("deposit: expected 2 topics, got %d", len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack deposit: %w", err)
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	share, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return &model.DepositEvent{
		Meta:   meta,
		Fund:   log.Address,
		Owner:  common.BytesToAddress(log.Topics[1].Bytes()),
		Amount: amount,
		Share:  share,
	}, nil
}

func (d *LogDecoder) decodeWithdraw(log types.Log, meta model.EventMeta) (*model.WithdrawEvent, error) {
	event := d.fundABI.Events["Withdraw"]
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("withdraw: expected 2 topics, got %d", len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack withdraw: %w", err)
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	share, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return &model.WithdrawEvent{
		Meta:   meta,
		Fund:   log.Address,
		Owner:  common.BytesToAddress(log.Topics[1].Bytes()),
		Amount: amount,
		Share:  share,
	}, nil
}

func (d *LogDecoder) decodeTransfer(log types.Log, meta model.EventMeta) (*model.TransferEvent, error) {
	event := d.fundABI.Events["Transfer"]
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("transfer: expected 3 topics, got %d", len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack transfer: %w", err)
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}

	return &model.TransferEvent{
		Meta:  meta,
		Fund:  log.Address,
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: value,
	}, nil
}

func (d *LogDecoder) decodeChangeVerifiedToken(log types.Log, meta model.EventMeta) (*model.ChangeVerifiedTokenEvent, error) {
	event := d.controllerABI.Events["ChangeVerifiedToken"]
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("changeVerifiedToken: expected 2 topics, got %d", len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack changeVerifiedToken: %w", err)
	}
	isVerified, err := asBool(values[0])
	if err != nil {
		return nil, err
	}

	return &model.ChangeVerifiedTokenEvent{
		Meta:       meta,
		Token:      common.BytesToAddress(log.Topics[1].Bytes()),
		IsVerified: isVerified,
	}, nil
}

func (d *LogDecoder) decodeHarvest(log types.Log, meta model.EventMeta) (*model.HarvestEvent, error) {
	event := d.controllerABI.Events["Harvest"]
	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("harvest: expected 2 topics, got %d", len(log.Topics))
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack harvest: %w", err)
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	burned, err := asBigInt(values[1])
	if err != nil {
		return nil, err
	}

	return &model.HarvestEvent{
		Meta:   meta,
		Token:  common.BytesToAddress(log.Topics[1].Bytes()),
		Amount: amount,
		Burned: burned,
	}, nil
}

// DecodeControllerCall unpacks controller transaction input into one of the
// model call types. Unrecognized selectors return (nil, nil) so callers can
// skip transactions that are not position management.
func DecodeControllerCall(input []byte, meta model.EventMeta) (interface{}, error) {
	if len(input) < 4 {
		return nil, nil
	}
	parsed, err := ControllerABI()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return nil, nil
	}

	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	switch method.Name {
	case "setPath":
		fund, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		distToken, err := asAddress(values[1])
		if err != nil {
			return nil, err
		}
		path, ok := values[2].([]byte)
		if !ok {
			return nil, fmt.Errorf("setPath: unsupported path type %T", values[2])
		}
		return &model.SetPathCall{Meta: meta, Fund: fund, DistToken: distToken, Path: path}, nil

	case "setHarvestPath":
		token, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		path, ok := values[1].([]byte)
		if !ok {
			return nil, fmt.Errorf("setHarvestPath: unsupported path type %T", values[1])
		}
		return &model.SetHarvestPathCall{Meta: meta, Token: token, Path: path}, nil

	case "init":
		fund, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		token0, err := asAddress(values[1])
		if err != nil {
			return nil, err
		}
		token1, err := asAddress(values[2])
		if err != nil {
			return nil, err
		}
		feeInt, err := asBigInt(values[3])
		if err != nil {
			return nil, err
		}
		tickLowerInt, err := asBigInt(values[4])
		if err != nil {
			return nil, err
		}
		tickLower, err := int24FromBig(tickLowerInt)
		if err != nil {
			return nil, err
		}
		tickUpperInt, err := asBigInt(values[5])
		if err != nil {
			return nil, err
		}
		tickUpper, err := int24FromBig(tickUpperInt)
		if err != nil {
			return nil, err
		}
		amount, err := asBigInt(values[6])
		if err != nil {
			return nil, err
		}
		return &model.InitCall{
			Meta:      meta,
			Fund:      fund,
			Token0:    token0,
			Token1:    token1,
			Fee:       uint32(feeInt.Uint64()),
			TickLower: tickLower,
			TickUpper: tickUpper,
			Amount:    amount,
		}, nil

	case "add":
		fund, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		poolIndex, err := asBigInt(values[1])
		if err != nil {
			return nil, err
		}
		positionIndex, err := asBigInt(values[2])
		if err != nil {
			return nil, err
		}
		amount, err := asBigInt(values[3])
		if err != nil {
			return nil, err
		}
		collect, err := asBool(values[4])
		if err != nil {
			return nil, err
		}
		return &model.AddCall{
			Meta:          meta,
			Fund:          fund,
			PoolIndex:     int(poolIndex.Int64()),
			PositionIndex: int(positionIndex.Int64()),
			Amount:        amount,
			Collect:       collect,
		}, nil

	case "sub":
		fund, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		poolIndex, err := asBigInt(values[1])
		if err != nil {
			return nil, err
		}
		positionIndex, err := asBigInt(values[2])
		if err != nil {
			return nil, err
		}
		proportion, err := asBigInt(values[3])
		if err != nil {
			return nil, err
		}
		return &model.SubCall{
			Meta:           meta,
			Fund:           fund,
			PoolIndex:      int(poolIndex.Int64()),
			PositionIndex:  int(positionIndex.Int64()),
			ProportionX128: proportion,
		}, nil

	case "move":
		fund, err := asAddress(values[0])
		if err != nil {
			return nil, err
		}
		poolIndex, err := asBigInt(values[1])
		if err != nil {
			return nil, err
		}
		subIndex, err := asBigInt(values[2])
		if err != nil {
			return nil, err
		}
		addIndex, err := asBigInt(values[3])
		if err != nil {
			return nil, err
		}
		proportion, err := asBigInt(values[4])
		if err != nil {
			return nil, err
		}
		return &model.MoveCall{
			Meta:           meta,
			Fund:           fund,
			PoolIndex:      int(poolIndex.Int64()),
			SubIndex:       int(subIndex.Int64()),
			AddIndex:       int(addIndex.Int64()),
			ProportionX128: proportion,
		}, nil

	default:
		return nil, nil
	}
}
