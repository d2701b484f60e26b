package logger

import (
	"context"
	"sync/atomic"

	"github.com/saiset-co/sai-travel/types"
)

// Manager owns the process logger. It is a types.Logger itself, so it can
// be handed to components before it is started.
type Manager struct {
	types.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
}

func NewManager(ctx context.Context, config types.ConfigManager) (*Manager, error) {
	loggerConfig := config.GetConfig().Logger
	if loggerConfig == nil {
		return nil, types.ErrLoggerConfigInvalid
	}

	logger, err := newLogger(loggerConfig)
	if err != nil {
		return nil, err
	}

	managerCtx, cancel := context.WithCancel(ctx)

	return &Manager{
		Logger: logger,
		ctx:    managerCtx,
		cancel: cancel,
	}, nil
}

// newLogger picks the backend by type: "" and "zap" build the zap logger,
// "nop" discards everything.
func newLogger(config *types.LoggerConfig) (types.Logger, error) {
	switch config.Type {
	case "", "zap":
		logger, err := NewDefaultLogger(config)
		if err != nil {
			return nil, types.WrapError(err, "failed to create logger")
		}
		return logger, nil
	case "nop":
		return NewNop(), nil
	default:
		return nil, types.Errorf(types.ErrLoggerTypeUnknown, "logger type: %s", config.Type)
	}
}

func (m *Manager) Start() error {
	if !m.running.CompareAndSwap(false, true) {
		return types.ErrServerAlreadyRunning
	}
	return nil
}

// Stop flushes buffered entries. The logger stays usable afterwards, so
// late shutdown messages are not lost.
func (m *Manager) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return types.ErrServerNotRunning
	}
	m.cancel()

	if syncer, ok := m.Logger.(interface{ Sync() error }); ok {
		// stdout/stderr sync fails on some platforms; nothing to recover.
		_ = syncer.Sync()
	}
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.running.Load()
}
