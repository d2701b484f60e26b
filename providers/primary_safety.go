package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/safety"
	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

// PrimarySafety never fails: any error from the wrapped source is replaced
// by the conservative level-1 record.
type PrimarySafety struct {
	source types.SafetyProvider
	logger types.Logger
}

func NewPrimarySafety(source types.SafetyProvider, logger types.Logger) *PrimarySafety {
	return &PrimarySafety{source: source, logger: logger}
}

func (p *PrimarySafety) Name() string {
	return p.source.Name()
}

func (p *PrimarySafety) Available() bool {
	return true
}

func (p *PrimarySafety) GetSafetyInfo(ctx context.Context, code string) (types.SafetyInfo, error) {
	code = utils.NormalizeCode(code)

	if !p.source.Available() {
		return safety.Default(code), nil
	}

	info, err := p.source.GetSafetyInfo(ctx, code)
	if err != nil {
		p.logger.Warn("Primary advisory unavailable, using default",
			zap.String("provider", p.source.Name()),
			zap.String("country", code),
			zap.Error(err))
		return safety.Default(code), nil
	}

	return info, nil
}
