package emit

import "github.com/rs/zerolog"

// ZerologEmitter implements Emitter on top of a zerolog.Logger.
//
// Failure events (NodeFailure, NodeError, RecorderError) log at error
// level, everything else at info. Event fields become structured log
// fields, so downstream log pipelines can index run and node identities.
//
// Usage:
//
//	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
//	emitter := emit.NewZerologEmitter(logger)
//	ex, _ := dag.NewExecutor(g, dag.WithEmitter(emitter))
type ZerologEmitter struct {
	logger zerolog.Logger
}

// NewZerologEmitter creates an emitter logging through logger.
func NewZerologEmitter(logger zerolog.Logger) *ZerologEmitter {
	return &ZerologEmitter{logger: logger}
}

// Emit logs the event as one structured line.
func (z *ZerologEmitter) Emit(event Event) {
	var ev *zerolog.Event
	switch event.Type {
	case NodeFailure, NodeError, RecorderError:
		ev = z.logger.Error()
	default:
		ev = z.logger.Info()
	}

	ev = ev.Str("run_id", event.RunID)
	if event.NodeID != "" {
		ev = ev.Str("node_id", event.NodeID)
	}
	if event.Err != "" {
		ev = ev.Str("error", event.Err)
	}
	if len(event.Meta) > 0 {
		ev = ev.Fields(event.Meta)
	}
	ev.Msg(string(event.Type))
}
