// Package progress ingests plan progress reported by study apps over MQTT.
//
// Each message carries the completed range of one plan:
//
//	{"plan_id": "p1", "completed_start": 1, "completed_end": 12, "status": "in_progress"}
//
// The last topic level is taken as the student id and only used for logging.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/infra/logger"
	infmqtt "github.com/kilianp07/studyplan/infra/mqtt"
)

// Config selects the topic progress updates arrive on. An empty topic
// disables the listener.
type Config struct {
	Topic string `json:"topic"`
	QoS   byte   `json:"qos"`
}

// Enabled reports whether a topic is configured.
func (c Config) Enabled() bool { return c.Topic != "" }

// Validate checks the QoS level.
func (c Config) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("qos %d out of range", c.QoS)
	}
	return nil
}

// Recorder stores the progress of a plan.
type Recorder interface {
	RecordProgress(ctx context.Context, id string, completedStart, completedEnd int, status model.PlanStatus) error
}

type subscriber interface {
	IsConnected() bool
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// Update is the payload of one progress message.
type Update struct {
	PlanID         string           `json:"plan_id"`
	CompletedStart int              `json:"completed_start"`
	CompletedEnd   int              `json:"completed_end"`
	Status         model.PlanStatus `json:"status"`
}

// Validate checks the plan id, range and status.
func (u Update) Validate() error {
	if u.PlanID == "" {
		return errors.New("plan_id is required")
	}
	if u.CompletedStart < 1 || u.CompletedEnd < u.CompletedStart {
		return fmt.Errorf("invalid completed range %d-%d", u.CompletedStart, u.CompletedEnd)
	}
	switch u.Status {
	case model.StatusPending, model.StatusInProgress, model.StatusCompleted:
		return nil
	default:
		return fmt.Errorf("unknown status %q", u.Status)
	}
}

// Listener subscribes to progress updates and writes them to a Recorder.
type Listener struct {
	cfg     Config
	cli     subscriber
	rec     Recorder
	log     logger.Logger
	updates *prometheus.CounterVec
}

// NewListener connects to the broker described by mqttCfg. Counters are
// registered on reg when it is not nil.
func NewListener(mqttCfg infmqtt.Config, cfg Config, rec Recorder, reg prometheus.Registerer) (*Listener, error) {
	opts, err := infmqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return nil, err
	}
	opts.SetClientID(mqttCfg.ClientID + "-progress")
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return newListener(cli, cfg, rec, reg)
}

func newListener(cli subscriber, cfg Config, rec Recorder, reg prometheus.Registerer) (*Listener, error) {
	l := &Listener{
		cfg: cfg,
		cli: cli,
		rec: rec,
		log: logger.New("progress"),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplan_progress_updates_total",
			Help: "Progress messages received, by outcome",
		}, []string{"result"}),
	}
	if reg != nil {
		if err := reg.Register(l.updates); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			l.updates = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return l, nil
}

// Start subscribes and blocks until ctx is canceled.
func (l *Listener) Start(ctx context.Context) error {
	handler := func(_ paho.Client, msg paho.Message) {
		l.handle(ctx, msg.Topic(), msg.Payload())
	}
	if token := l.cli.Subscribe(l.cfg.Topic, l.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", l.cfg.Topic, token.Error())
	}
	l.log.Infof("listening for progress on %s", l.cfg.Topic)
	<-ctx.Done()
	if l.cli.IsConnected() {
		l.cli.Disconnect(250)
	}
	return nil
}

func (l *Listener) handle(ctx context.Context, topic string, payload []byte) {
	if err := l.process(ctx, payload); err != nil {
		l.log.Warnf("progress from %s: %v", studentFromTopic(topic), err)
	}
}

func (l *Listener) process(ctx context.Context, payload []byte) error {
	var u Update
	if err := json.Unmarshal(payload, &u); err != nil {
		l.updates.WithLabelValues("invalid").Inc()
		return err
	}
	if err := u.Validate(); err != nil {
		l.updates.WithLabelValues("invalid").Inc()
		return err
	}
	if err := l.rec.RecordProgress(ctx, u.PlanID, u.CompletedStart, u.CompletedEnd, u.Status); err != nil {
		l.updates.WithLabelValues("error").Inc()
		return fmt.Errorf("plan %s: %w", u.PlanID, err)
	}
	l.updates.WithLabelValues("ok").Inc()
	return nil
}

func studentFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}
