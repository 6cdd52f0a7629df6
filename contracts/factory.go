package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"eventbook-client/models"
)

// FactoryContract wraps the EventFactory contract interactions
type FactoryContract struct {
	backend Backend
	address common.Address
	abi     abi.ABI
}

func NewFactoryContract(backend Backend, address common.Address, parsed abi.ABI) *FactoryContract {
	return &FactoryContract{
		backend: backend,
		address: address,
		abi:     parsed,
	}
}

// ArtistEvents calls getArtistEvents(artist) on the factory
func (fc *FactoryContract) ArtistEvents(ctx context.Context, artist common.Address) ([]common.Address, error) {
	out, err := callView(ctx, fc.backend, fc.abi, fc.address, "getArtistEvents", artist)
	if err != nil {
		return nil, err
	}
	handles, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getArtistEvents: %w", errUnexpectedResult)
	}
	return handles, nil
}

// CreateEventData packs createEvent(...) for artist and cmd
func (fc *FactoryContract) CreateEventData(artist common.Address, cmd models.CreateEventCommand) ([]byte, error) {
	callData, err := fc.abi.Pack("createEvent",
		artist,
		cmd.Name,
		cmd.TicketPrice,
		bigFromInt64(cmd.SeatingCapacity),
		cmd.CancellationCharge,
		cmd.Token,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack createEvent call data: %w", err)
	}
	return callData, nil
}

// CreatedEvent finds the EventCreated log for artist in a confirmed receipt
func (fc *FactoryContract) CreatedEvent(receipt *types.Receipt, artist common.Address) (common.Address, error) {
	created, ok := fc.abi.Events["EventCreated"]
	if !ok {
		return common.Address{}, fmt.Errorf("factory ABI has no EventCreated event")
	}

	for _, lg := range receipt.Logs {
		if lg.Address != fc.address || len(lg.Topics) < 2 || lg.Topics[0] != created.ID {
			continue
		}
		if common.BytesToAddress(lg.Topics[1].Bytes()) != artist {
			continue
		}
		out, err := created.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("failed to unpack EventCreated log: %w", err)
		}
		eventAddress, ok := out[0].(common.Address)
		if !ok {
			return common.Address{}, fmt.Errorf("EventCreated log: %w", errUnexpectedResult)
		}
		return eventAddress, nil
	}
	return common.Address{}, fmt.Errorf("no EventCreated log in transaction %s", receipt.TxHash.Hex())
}
