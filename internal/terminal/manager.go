package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/openterm/pinpad-bridge/internal/dsixml"
	"go.uber.org/zap"
)

// TransactionListener receives transaction outcomes from the manager.
// Records are typed; degrading them to whatever the host bridge needs is
// the host's job.
type TransactionListener interface {
	OnError(result dsixml.ErrorResult)
	OnCardReadSuccessfully(data dsixml.CardData)
	OnSaleTransactionCompleted(result dsixml.SaleResult)
	OnRecurringSaleCompleted(result dsixml.RecurringSaleResult)
	OnCardReplaceTransactionCompleted(result dsixml.ZeroAuthResult)
	OnClientVersionCompleted(result dsixml.ClientVersionResult)
	OnShowMessage(text string)
}

// ConfigListener receives configuration outcomes from the manager.
type ConfigListener interface {
	OnConfigError(text string)
	OnConfigPingFailed()
	OnConfigPingSuccess()
	OnConfigCompleted()
}

// StateObserver is notified after every state replacement. Optional.
type StateObserver func(previous, current State)

// Manager owns the terminal operation state machine. It decides the next
// operation after each response, drives the Executor, and raises typed
// outcomes through the two listener contracts.
//
// The protocol is single-outstanding-request: the manager never issues a
// second submit before the prior exchange's response has been handled, and
// "current operation" is the only context needed to interpret a response.
// The mutex serializes transitions against response dispatch.
type Manager struct {
	logger   *zap.Logger
	executor *Executor
	cfg      dsixml.TerminalConfig

	mu       sync.Mutex
	state    State
	amount   string
	txn      TransactionListener
	config   ConfigListener
	observer StateObserver
}

func NewManager(logger *zap.Logger, executor *Executor, cfg dsixml.TerminalConfig) *Manager {
	return &Manager{
		logger:   logger,
		executor: executor,
		cfg:      cfg,
		state:    idleState(),
	}
}

// RegisterListener installs the listener pair and hooks the manager's
// response dispatch into the transport. Must not race an in-flight
// transaction.
func (m *Manager) RegisterListener(txn TransactionListener, config ConfigListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txn = txn
	m.config = config
	m.executor.RegisterResponseHandler(m.HandleResponse)
}

// ClearTransactionListener removes the listener pair and the transport
// response handler. Used during teardown.
func (m *Manager) ClearTransactionListener() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txn = nil
	m.config = nil
	m.executor.ClearHandlers()
}

// SetStateObserver installs an optional observer invoked on every state
// change. Administrative, not part of the state machine.
func (m *Manager) SetStateObserver(observer StateObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = observer
}

// Status returns a snapshot of the manager's state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.state,
		HasAmount: m.amount != "",
		Amount:    m.amount,
	}
}

// DownloadConfig runs a processor parameter download.
func (m *Manager) DownloadConfig(ctx context.Context) error {
	return m.runTransaction(ctx, OpDownloadConfig, OpNone, "")
}

// Sale runs an EMV sale for the given decimal-string amount.
func (m *Manager) Sale(ctx context.Context, amount string) error {
	return m.runTransaction(ctx, OpSale, OpReset, amount)
}

// RecurringSale runs an EMV sale that tokenizes the card for recurring
// billing.
func (m *Manager) RecurringSale(ctx context.Context, amount string) error {
	return m.runTransaction(ctx, OpRecurringSale, OpReset, amount)
}

// ReplaceCardInRecurring runs a zero-amount authorization to replace the
// stored card on a recurring agreement.
func (m *Manager) ReplaceCardInRecurring(ctx context.Context) error {
	return m.runTransaction(ctx, OpReplaceCard, OpReset, "")
}

// GetClientVersion queries the terminal client's version.
func (m *Manager) GetClientVersion(ctx context.Context) error {
	return m.runTransaction(ctx, OpGetClientVersion, OpReset, "")
}

// ReadPrepaidCard has the PIN pad read a card without authorizing.
func (m *Manager) ReadPrepaidCard(ctx context.Context) error {
	return m.runTransaction(ctx, OpReadPrepaidCard, OpReset, "")
}

// Cancel forwards a cancellation to the transport. It does not transition
// state; the terminal is expected to deliver a response that the normal
// dispatch path handles.
func (m *Manager) Cancel(ctx context.Context) error {
	return m.executor.Cancel(ctx)
}

func (m *Manager) runTransaction(ctx context.Context, current, next Operation, amount string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run(ctx, current, next, amount)
}

// run executes one transition. Caller must hold m.mu. State is replaced
// before the submit call returns control, so a response arriving
// concurrently always observes the new state.
func (m *Manager) run(ctx context.Context, current, next Operation, amount string) error {
	previousAmount := m.amount
	if amount != "" {
		m.amount = amount
	}

	var payload string
	switch current {
	case OpNone:
		m.amount = ""
		m.setState(idleState())
		return nil
	case OpReset:
		payload = dsixml.BuildPadReset(m.cfg)
	case OpDownloadConfig:
		payload = dsixml.BuildParamDownload(m.cfg)
	case OpSale:
		payload = dsixml.BuildSale(m.cfg, m.amount)
	case OpRecurringSale:
		payload = dsixml.BuildRecurringSale(m.cfg, m.amount)
	case OpReplaceCard:
		payload = dsixml.BuildZeroAuth(m.cfg)
	case OpGetClientVersion:
		payload = dsixml.BuildClientVersion(m.cfg)
	case OpReadPrepaidCard:
		payload = dsixml.BuildCollectCardData(m.cfg)
	default:
		return fmt.Errorf("unknown operation: %s", current)
	}

	previous := m.state
	m.setState(State{Current: current, Next: next})

	if err := m.executor.Submit(ctx, payload); err != nil {
		// Transport failures go to the immediate caller, never the
		// listeners. Revert so the machine is not left Running with
		// nothing outstanding.
		m.amount = previousAmount
		m.setState(previous)
		m.logger.Error("Submit failed, state reverted",
			zap.String("operation", string(current)),
			zap.Error(err))
		return err
	}
	return nil
}

// HandleResponse dispatches one payload delivered by the transport. It is
// installed as the transport's response handler via RegisterListener.
// No panic may escape: this runs on the transport's callback and has no
// caller to report to.
func (m *Manager) HandleResponse(payload string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in response dispatch",
				zap.Any("panic", r))
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if dsixml.IsBusy(payload) {
		// A prior exchange is still outstanding on the terminal side.
		// Auto-cancel and keep state: the next response is the real
		// result and must still dispatch against the in-flight
		// operation.
		m.logger.Warn("Terminal busy, auto-cancelling",
			zap.String("current", string(m.state.Current)))
		if err := m.executor.Cancel(context.Background()); err != nil {
			m.logger.Error("Auto-cancel failed", zap.Error(err))
		}
		return
	}

	if m.state.Idle() {
		// Nothing in flight: a stray payload re-enters idle and
		// notifies nobody.
		m.runInternal(context.Background(), OpNone, OpNone)
		return
	}

	if dsixml.IsFailed(payload) {
		m.handleError(payload)
		return
	}
	m.handleSuccess(payload)
}

func (m *Manager) handleSuccess(payload string) {
	ctx := context.Background()

	switch m.state.Current {
	case OpDownloadConfig:
		if m.config != nil {
			m.config.OnConfigPingSuccess()
		}
		m.runInternal(ctx, OpNone, OpNone)

	case OpSale:
		if m.informational(payload) {
			return
		}
		if res := dsixml.DecodeSale(payload); res != nil && m.txn != nil {
			m.txn.OnSaleTransactionCompleted(*res)
		}
		m.runInternal(ctx, OpReset, OpNone)

	case OpRecurringSale:
		if m.informational(payload) {
			return
		}
		if res := dsixml.DecodeRecurringSale(payload); res != nil && m.txn != nil {
			m.txn.OnRecurringSaleCompleted(*res)
		}
		m.runInternal(ctx, OpReset, OpNone)

	case OpReplaceCard:
		if m.informational(payload) {
			return
		}
		if res := dsixml.DecodeZeroAuth(payload); res != nil && m.txn != nil {
			m.txn.OnCardReplaceTransactionCompleted(*res)
		}
		m.runInternal(ctx, OpReset, OpNone)

	case OpGetClientVersion:
		if res := dsixml.DecodeClientVersion(payload); res != nil && m.txn != nil {
			m.txn.OnClientVersionCompleted(*res)
		}
		m.runInternal(ctx, OpNone, OpNone)

	case OpReadPrepaidCard:
		if m.informational(payload) {
			return
		}
		if res := dsixml.DecodeCardData(payload); res != nil && m.txn != nil {
			m.txn.OnCardReadSuccessfully(*res)
		}
		m.runInternal(ctx, OpReset, OpNone)

	case OpReset:
		// Reset was an intermediate step; proceed to whatever was
		// queued when it was scheduled.
		m.runInternal(ctx, m.state.Next, OpNone)

	case OpNone:
		m.runInternal(ctx, OpNone, OpNone)
	}
}

// informational reports whether a success-classified payload is a display
// prompt rather than a final result: it carries a TextMessage but no
// account or authorization data. Forwarded via OnShowMessage with no state
// transition.
func (m *Manager) informational(payload string) bool {
	if _, ok := dsixml.ExtractTag(payload, "AuthCode"); ok {
		return false
	}
	if _, ok := dsixml.ExtractTag(payload, "AcctNo"); ok {
		return false
	}
	text, ok := dsixml.ExtractTag(payload, "TextMessage")
	if !ok || text == "" {
		return false
	}
	if m.txn != nil {
		m.txn.OnShowMessage(text)
	}
	return true
}

func (m *Manager) handleError(payload string) {
	res := dsixml.DecodeError(payload)
	if res == nil {
		// Nothing actionable decoded. The machine stays in its current
		// state awaiting the next response; observable via Status().
		m.logger.Warn("Error payload carried no envelope fields, ignoring",
			zap.String("current", string(m.state.Current)))
		return
	}

	ctx := context.Background()

	if m.state.Current == OpReset {
		if res.ReturnCode == dsixml.ReturnCodeSetupRequired {
			// The processor wants parameters. Remediate with a
			// download, then resume whatever Reset was leading to.
			// Invisible to listeners when it succeeds.
			m.logger.Info("Terminal requires parameter download, auto-remediating",
				zap.String("next", string(m.state.Next)))
			m.runInternal(ctx, OpDownloadConfig, m.state.Next)
			return
		}
		m.logger.Error("Reset failed",
			zap.String("return_code", res.ReturnCode),
			zap.String("message", res.TextMessage))
		if m.config != nil {
			m.config.OnConfigError(res.TextMessage)
		}
		// No transition: the machine stays in Running(Reset, next)
		// pending caller-initiated cancel.
		return
	}

	m.logger.Error("Transaction failed",
		zap.String("operation", string(m.state.Current)),
		zap.String("return_code", res.ReturnCode),
		zap.String("message", res.TextMessage))
	if m.txn != nil {
		m.txn.OnError(*res)
	}
	m.runInternal(ctx, OpReset, OpNone)
}

// runInternal is a transition taken from inside response dispatch. Submit
// failures here have no caller to return to; they are logged and the state
// reverted by run itself.
func (m *Manager) runInternal(ctx context.Context, current, next Operation) {
	if err := m.run(ctx, current, next, ""); err != nil {
		m.logger.Error("Internal transition failed",
			zap.String("operation", string(current)),
			zap.Error(err))
	}
}

func (m *Manager) setState(s State) {
	previous := m.state
	m.state = s

	m.logger.Info("Terminal state changed",
		zap.String("current", string(s.Current)),
		zap.String("next", string(s.Next)))

	if m.observer != nil {
		m.observer(previous, s)
	}
}
