// Package telemetry publishes story-run events onto NATS, grounded on
// the teacher's pkg/graft/operators/op_nats.go connection-with-retry
// idiom. Where op_nats.go fetches KV/Object values through a pooled
// *nats.Conn, Publisher goes the other way: it serializes runtime
// events (paragraph_emitted, choice_presented, variable_changed) as
// JSON and publishes them to a single configurable subject.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/tale-forge/inkweave/internal/config"
	"github.com/tale-forge/inkweave/pkg/ink"
)

const (
	EventParagraph = "paragraph_emitted"
	EventChoice    = "choice_presented"
	EventVariable  = "variable_changed"
)

// Event is the wire shape published to the configured subject.
type Event struct {
	Type string                 `json:"type"`
	At   time.Time              `json:"at"`
	Data map[string]interface{} `json:"data"`
}

// Publisher publishes Events to NATS. A disabled Publisher (Telemetry
// not enabled in config) is a valid zero-cost no-op: every Publish*
// call becomes a no-op rather than the caller having to nil-check.
type Publisher struct {
	conn    *nats.Conn
	embed   *server.Server
	subject string
	logger  config.Logger
	enabled bool
}

// New connects a Publisher per opts. When opts.EmbeddedNATS is set, it
// boots an in-process nats-server (for local/dev use, mirroring the
// teacher's habit of keeping infra dependencies runnable without an
// external service) and connects to that instead of opts.TelemetryURL.
func New(opts config.RuntimeOptions, logger config.Logger) (*Publisher, error) {
	if logger == nil {
		logger = config.DefaultLogger{}
	}
	if !opts.TelemetryEnabled {
		return &Publisher{logger: logger, enabled: false}, nil
	}

	p := &Publisher{
		subject: opts.TelemetrySubject,
		logger:  logger,
		enabled: true,
	}
	if p.subject == "" {
		p.subject = "inkweave.events"
	}

	url := opts.TelemetryURL
	if opts.EmbeddedNATS {
		srv, err := server.NewServer(&server.Options{
			Host:           "127.0.0.1",
			Port:           server.RANDOM_PORT,
			NoLog:          true,
			NoSigs:         true,
			MaxControlLine: 4096,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(5 * time.Second) {
			return nil, fmt.Errorf("embedded NATS server did not become ready")
		}
		p.embed = srv
		url = srv.ClientURL()
	}
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Debugf("telemetry: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Debugf("telemetry: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Errorf("telemetry: %v", err)
		}),
	)
	if err != nil {
		if p.embed != nil {
			p.embed.Shutdown()
		}
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	p.conn = conn
	return p, nil
}

// Enabled reports whether this Publisher actually publishes anything.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

func (p *Publisher) publish(eventType string, data map[string]interface{}) {
	if !p.Enabled() {
		return
	}
	body, err := json.Marshal(Event{Type: eventType, At: time.Now(), Data: data})
	if err != nil {
		p.logger.Errorf("telemetry: marshal %s event: %v", eventType, err)
		return
	}
	if err := p.conn.Publish(p.subject, body); err != nil {
		p.logger.Errorf("telemetry: publish %s event: %v", eventType, err)
	}
}

// ParagraphEmitted publishes a paragraph_emitted event (spec §4.5
// "continue").
func (p *Publisher) ParagraphEmitted(path ink.CurrentPath, para ink.Paragraph) {
	p.publish(EventParagraph, map[string]interface{}{
		"knot":   path.Knot,
		"stitch": path.Stitch,
		"text":   para.Text,
		"tags":   para.Tags,
	})
}

// ChoicePresented publishes a choice_presented event listing the
// pending choice menu's captions (spec §4.5 "choose").
func (p *Publisher) ChoicePresented(choices []ink.PendingChoice) {
	titles := make([]string, len(choices))
	for i, c := range choices {
		titles[i] = c.Title
	}
	p.publish(EventChoice, map[string]interface{}{
		"count":  len(choices),
		"titles": titles,
	})
}

// VariableChanged publishes a variable_changed event. It is intended
// to be wired up as an ink.Observer via Session.Observe (spec §6.4),
// one possible Observer implementation among others a host may add.
func (p *Publisher) VariableChanged(name string, old, new ink.Value) {
	p.publish(EventVariable, map[string]interface{}{
		"name": name,
		"old":  old.ToInterface(),
		"new":  new.ToInterface(),
	})
}

// Close drains the NATS connection and shuts down any embedded server
// started by New.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	err := p.conn.Drain()
	if p.embed != nil {
		p.embed.Shutdown()
	}
	return err
}
