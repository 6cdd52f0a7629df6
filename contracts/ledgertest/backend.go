// Package ledgertest provides an in-memory EventFactory/Event/ERC20 ledger that
// speaks the same ABI as the deployed contracts, for use in tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"eventbook-client/contracts"
	"eventbook-client/models"
)

// FactoryAddress is where the fake EventFactory lives.
var FactoryAddress = common.HexToAddress("0x00000000000000000000000000000000FAC70123")

// ChainID of the fake chain.
const ChainID = 1337

type eventState struct {
	artist  common.Address
	terms   models.EventTerms
	tickets []models.Ticket
}

// Backend implements contracts.Backend over in-memory state.
type Backend struct {
	mu sync.Mutex

	chainID    *big.Int
	factoryABI abi.ABI
	eventABI   abi.ABI
	tokenABI   abi.ABI

	events   map[common.Address]*eventState
	byArtist map[common.Address][]common.Address
	balances map[common.Address]map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	block    uint64
	created  uint64

	sends       int
	callErr     error
	methodErr   map[string]error
	sendErr     error
	callHook    func(to common.Address, method string)
	pendingOnce map[common.Hash]bool
}

// New returns an empty ledger.
func New() *Backend {
	return &Backend{
		chainID:     big.NewInt(ChainID),
		factoryABI:  mustParse(contracts.EventFactoryABI),
		eventABI:    mustParse(contracts.EventABI),
		tokenABI:    mustParse(contracts.TokenABI),
		events:      make(map[common.Address]*eventState),
		byArtist:    make(map[common.Address][]common.Address),
		balances:    make(map[common.Address]map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		receipts:    make(map[common.Hash]*types.Receipt),
		methodErr:   make(map[string]error),
		pendingOnce: make(map[common.Hash]bool),
		block:       1,
	}
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("ledgertest: %v", err))
	}
	return parsed
}

// AddEvent registers an event owned by artist, as if the factory had created it.
func (b *Backend) AddEvent(artist common.Address, terms models.EventTerms) common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addEventLocked(artist, terms)
}

func (b *Backend) addEventLocked(artist common.Address, terms models.EventTerms) common.Address {
	address := crypto.CreateAddress(FactoryAddress, b.created)
	b.created++
	b.events[address] = &eventState{artist: artist, terms: terms}
	b.byArtist[artist] = append(b.byArtist[artist], address)
	return address
}

// AddTicket appends a ticket sold to buyer.
func (b *Backend) AddTicket(event, buyer common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := b.events[event]
	ev.tickets = append(ev.tickets, models.Ticket{ID: uint64(len(ev.tickets)), Buyer: buyer})
}

// SetBalance sets holder's balance of token.
func (b *Backend) SetBalance(token, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[token] == nil {
		b.balances[token] = make(map[common.Address]*big.Int)
	}
	b.balances[token][holder] = amount
}

// SetCallError makes every view call fail with err until cleared with nil.
func (b *Backend) SetCallError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callErr = err
}

// FailMethod makes view calls of method fail with err until cleared with nil.
func (b *Backend) FailMethod(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.methodErr, method)
		return
	}
	b.methodErr[method] = err
}

// SetSendError makes SendTransaction fail with err until cleared with nil.
func (b *Backend) SetSendError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// OnCall installs a hook run before every view call, outside the ledger lock.
func (b *Backend) OnCall(hook func(to common.Address, method string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callHook = hook
}

// Sends is the number of transactions accepted so far.
func (b *Backend) Sends() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sends
}

// Tickets returns a copy of an event's tickets.
func (b *Backend) Tickets(event common.Address) []models.Ticket {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.events[event]
	if !ok {
		return nil
	}
	return append([]models.Ticket(nil), ev.tickets...)
}

// RevertError is the error object a node returns for a reverted call.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string  { return "execution reverted: " + e.Reason }
func (e *RevertError) ErrorCode() int { return 3 }

func (e *RevertError) ErrorData() interface{} {
	stringType, _ := abi.NewType("string", "", nil)
	payload, _ := abi.Arguments{{Type: stringType}}.Pack(e.Reason)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, payload...))
}

type nodeError struct {
	msg string
}

func (e *nodeError) Error() string  { return e.msg }
func (e *nodeError) ErrorCode() int { return -32000 }

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call.To == nil || len(call.Data) < 4 {
		return nil, &RevertError{Reason: "malformed call"}
	}

	b.mu.Lock()
	hook := b.callHook
	b.mu.Unlock()

	method := b.methodName(*call.To, call.Data[:4])
	if hook != nil {
		hook(*call.To, method)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.callErr != nil {
		return nil, b.callErr
	}
	if err, ok := b.methodErr[method]; ok {
		return nil, err
	}

	to := *call.To
	switch {
	case to == FactoryAddress:
		return b.callFactory(call.Data)
	case b.events[to] != nil:
		return b.callEvent(b.events[to], call.Data)
	case b.balances[to] != nil:
		return b.callToken(b.balances[to], call.Data)
	default:
		// no code at address
		return []byte{}, nil
	}
}

func (b *Backend) methodName(to common.Address, selector []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var parsed abi.ABI
	switch {
	case to == FactoryAddress:
		parsed = b.factoryABI
	case b.events[to] != nil:
		parsed = b.eventABI
	case b.balances[to] != nil:
		parsed = b.tokenABI
	default:
		return ""
	}
	m, err := parsed.MethodById(selector)
	if err != nil {
		return ""
	}
	return m.Name
}

func (b *Backend) callFactory(data []byte) ([]byte, error) {
	m, args, err := decode(b.factoryABI, data)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "getArtistEvents":
		handles := append([]common.Address{}, b.byArtist[args[0].(common.Address)]...)
		return m.Outputs.Pack(handles)
	default:
		return nil, &RevertError{Reason: m.Name + " is not a view"}
	}
}

func (b *Backend) callEvent(ev *eventState, data []byte) ([]byte, error) {
	m, args, err := decode(b.eventABI, data)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "getEventData":
		t := ev.terms
		return m.Outputs.Pack(t.Name, t.TicketPrice, new(big.Int).SetUint64(t.SeatingCapacity), t.CancellationCharge, t.Token)
	case "totalTicketsSold":
		return m.Outputs.Pack(big.NewInt(int64(len(ev.tickets))))
	case "tickets":
		index := args[0].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(ev.tickets)) {
			return nil, &RevertError{Reason: "ticket does not exist"}
		}
		tk := ev.tickets[index.Uint64()]
		return m.Outputs.Pack(new(big.Int).SetUint64(tk.ID), tk.Buyer, tk.Attended)
	default:
		return nil, &RevertError{Reason: m.Name + " is not a view"}
	}
}

func (b *Backend) callToken(balances map[common.Address]*big.Int, data []byte) ([]byte, error) {
	m, args, err := decode(b.tokenABI, data)
	if err != nil {
		return nil, err
	}
	balance := balances[args[0].(common.Address)]
	if balance == nil {
		balance = new(big.Int)
	}
	return m.Outputs.Pack(balance)
}

func decode(parsed abi.ABI, data []byte) (*abi.Method, []interface{}, error) {
	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, nil, &RevertError{Reason: "unknown selector"}
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, &RevertError{Reason: "malformed arguments"}
	}
	return m, args, nil
}

func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 150000, ctx.Err()
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], ctx.Err()
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), ctx.Err()
}

func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), ctx.Err()
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{
		Number:  new(big.Int).SetUint64(b.block),
		BaseFee: big.NewInt(1_000_000_000),
	}, ctx.Err()
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), ctx.Err()
}

// SendTransaction applies tx immediately. Reverted executions still produce a
// receipt, with a failed status.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sender, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return &nodeError{msg: "invalid sender: " + err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendErr != nil {
		return b.sendErr
	}
	if tx.Nonce() != b.nonces[sender] {
		return &nodeError{msg: fmt.Sprintf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[sender])}
	}
	b.nonces[sender]++
	b.sends++
	b.block++

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.block),
	}
	logs, err := b.apply(sender, tx)
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		receipt.Logs = logs
	}
	b.receipts[tx.Hash()] = receipt
	b.pendingOnce[tx.Hash()] = true
	return nil
}

func (b *Backend) apply(sender common.Address, tx *types.Transaction) ([]*types.Log, error) {
	if tx.To() == nil || len(tx.Data()) < 4 {
		return nil, errors.New("unsupported transaction")
	}
	to := *tx.To()

	if to == FactoryAddress {
		m, args, err := decode(b.factoryABI, tx.Data())
		if err != nil || m.Name != "createEvent" {
			return nil, errors.New("unsupported factory call")
		}
		capacity := args[3].(*big.Int)
		if capacity.Sign() <= 0 || !capacity.IsUint64() {
			return nil, errors.New("capacity must be positive")
		}
		artist := args[0].(common.Address)
		address := b.addEventLocked(artist, models.EventTerms{
			Name:               args[1].(string),
			TicketPrice:        args[2].(*big.Int),
			SeatingCapacity:    capacity.Uint64(),
			CancellationCharge: args[4].(*big.Int),
			Token:              args[5].(common.Address),
		})

		created := b.factoryABI.Events["EventCreated"]
		data, err := created.Inputs.NonIndexed().Pack(address)
		if err != nil {
			return nil, err
		}
		return []*types.Log{{
			Address: FactoryAddress,
			Topics:  []common.Hash{created.ID, common.BytesToHash(artist.Bytes())},
			Data:    data,
			TxHash:  tx.Hash(),
		}}, nil
	}

	ev, ok := b.events[to]
	if !ok {
		return nil, errors.New("no contract at address")
	}
	m, _, err := decode(b.eventABI, tx.Data())
	if err != nil || m.Name != "reserveTicket" {
		return nil, errors.New("unsupported event call")
	}
	if tx.Value().Cmp(ev.terms.TicketPrice) != 0 {
		return nil, errors.New("payment must equal ticket price")
	}
	if uint64(len(ev.tickets)) >= ev.terms.SeatingCapacity {
		return nil, errors.New("event sold out")
	}
	ev.tickets = append(ev.tickets, models.Ticket{ID: uint64(len(ev.tickets)), Buyer: sender})
	return nil, nil
}

// TransactionReceipt reports every receipt as pending on its first lookup so that
// callers exercise their polling path.
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingOnce[txHash] {
		delete(b.pendingOnce, txHash)
		return nil, ethereum.NotFound
	}
	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

var _ contracts.Backend = (*Backend)(nil)
