package channel

import (
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// Logging writes every notification to a logger. Faults are logged at
// error level, everything else at info.
type Logging struct {
	logger log.Logger
}

// NewLogging creates a sink that writes to logger.
func NewLogging(logger log.Logger) *Logging {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Logging{logger: logger}
}

func (l *Logging) Send(msg lifecycle.Message) {
	if f, ok := msg.(lifecycle.ServiceFault); ok {
		l.logger.Error("service notification",
			log.String("service", f.Name),
			log.Stringer("kind", f.Kind()),
			log.Err(f.Err),
		)
		return
	}
	l.logger.Info("service notification",
		log.String("service", msg.ServiceName()),
		log.Stringer("kind", msg.Kind()),
	)
}
