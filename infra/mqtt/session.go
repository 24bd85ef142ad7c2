package mqtt

import (
	"context"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/doorbridge/core/mqtt"
	"github.com/kilianp07/doorbridge/infra/logger"
)

// Session is a lightweight broker connection for tools that press the
// button or watch statuses without taking on the bridge's role. It
// carries no availability will and subscribes only to what it is asked.
type Session struct {
	cfg Config
	cli pahoClient
	log logger.Logger
}

// NewSession connects to the broker and returns the session.
func NewSession(cfg Config) (*Session, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	applyCredentials(opts, cfg)
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	s := &Session{cfg: cfg, log: logger.New("mqtt_session")}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		s.log.Errorf("connection lost: %v", err)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	s.cli = cli
	return s, nil
}

// Press publishes a command payload on the command topic.
func (s *Session) Press(payload string) error {
	topic := s.cfg.CommandTopicName()
	token := s.cli.Publish(topic, s.qos("command"), false, []byte(payload))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// WatchStatus subscribes to the status topic and forwards every payload
// to the handler.
func (s *Session) WatchStatus(handler coremqtt.MessageHandler) error {
	token := s.cli.Subscribe(s.cfg.StatusTopicName(), s.qos("status"), func(_ paho.Client, m paho.Message) {
		handler(context.Background(), m.Topic(), string(m.Payload()))
	})
	token.Wait()
	return token.Error()
}

// WatchAvailability subscribes to the availability topic and forwards
// every payload to the handler.
func (s *Session) WatchAvailability(handler coremqtt.MessageHandler) error {
	token := s.cli.Subscribe(s.cfg.AvailabilityTopicName(), s.qos("availability"), func(_ paho.Client, m paho.Message) {
		handler(context.Background(), m.Topic(), string(m.Payload()))
	})
	token.Wait()
	return token.Error()
}

func (s *Session) qos(key string) byte {
	if q, ok := s.cfg.QoS[key]; ok {
		return q
	}
	return 0
}

// Close disconnects from the broker.
func (s *Session) Close() {
	s.cli.Disconnect(250)
}
