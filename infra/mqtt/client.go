package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/doorbridge/auth"
	"github.com/kilianp07/doorbridge/core/monitoring"
	coremqtt "github.com/kilianp07/doorbridge/core/mqtt"
	"github.com/kilianp07/doorbridge/infra/logger"
)

// Availability payloads published on the availability topic. The broker
// publishes PayloadUnavailable through the last will when the bridge dies
// without saying goodbye.
const (
	PayloadAvailable   = "available"
	PayloadUnavailable = "unavailable"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker            string          `json:"broker"`
	ClientID          string          `json:"client_id"`
	Username          string          `json:"username"`
	Password          string          `json:"password"`
	CommandTopic      string          `json:"command_topic"`
	StatusTopic       string          `json:"status_topic"`
	AvailabilityTopic string          `json:"availability_topic"`
	TopicSuffix       string          `json:"topic_suffix"`
	KeepAliveSeconds  int             `json:"keep_alive_seconds"`
	UseTLS            bool            `json:"use_tls"`
	ClientCert        string          `json:"client_cert"`
	ClientKey         string          `json:"client_key"`
	CABundle          string          `json:"ca_bundle"`
	AuthMethod        string          `json:"auth_method"`
	Auth              auth.Conf       `json:"auth"`
	QoS               map[string]byte `json:"qos"`
	RetainStatus      bool            `json:"retain_status"`
	TLSConfig         *tls.Config     `json:"-"`
}

// SetDefaults fills zero values with the conventional garage door topics.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "doorbridge-" + uuid.NewString()
	}
	if c.CommandTopic == "" {
		c.CommandTopic = "garage_door/buttonpress"
	}
	if c.StatusTopic == "" {
		c.StatusTopic = "garage_door/status"
	}
	if c.AvailabilityTopic == "" {
		c.AvailabilityTopic = "garage_door/availability"
	}
	if c.KeepAliveSeconds == 0 {
		c.KeepAliveSeconds = 60
	}
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.UseTLS && c.TLSConfig == nil {
		if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
			return fmt.Errorf("mqtt: tls requires client_cert, client_key and ca_bundle")
		}
	}
	if c.AuthMethod == "oauth2" {
		if c.Auth.AuthURL == "" || c.Auth.ClientID == "" || c.Auth.ClientSecret == "" {
			return fmt.Errorf("mqtt: oauth2 requires auth.client_id, auth.client_secret and auth.auth_url")
		}
	}
	return nil
}

// CommandTopicName returns the command topic with the configured suffix.
// The suffix lets a staging bridge share a broker with production.
func (c Config) CommandTopicName() string { return c.CommandTopic + c.TopicSuffix }

// StatusTopicName returns the status topic with the configured suffix.
func (c Config) StatusTopicName() string { return c.StatusTopic + c.TopicSuffix }

// AvailabilityTopicName returns the availability topic with the configured suffix.
func (c Config) AvailabilityTopicName() string { return c.AvailabilityTopic + c.TopicSuffix }

// pahoClient is the slice of the Paho API the bridge uses.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient implements the core mqtt.Client interface using Eclipse Paho.
// It subscribes to the command topic on every (re)connect and dispatches
// messages to the handler one at a time in arrival order. The handler is
// expected to block for the whole door cycle; messages arriving meanwhile
// queue inside Paho and are handled afterwards in order.
type PahoClient struct {
	cfg     Config
	cli     pahoClient
	handler coremqtt.MessageHandler
	log     logger.Logger

	mu      sync.Mutex
	connCtx context.Context
}

// NewPahoClient builds the client without connecting. handler receives every
// message arriving on the command topic.
func NewPahoClient(cfg Config, handler coremqtt.MessageHandler) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	pc := &PahoClient{
		cfg:     cfg,
		handler: handler,
		log:     logger.New("mqtt_client"),
	}
	opts.OnConnect = pc.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		pc.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		pc.log.Warnf("reconnecting to MQTT broker")
	}
	pc.cli = newMQTTClient(opts)
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config, last will included.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	// Ordered dispatch keeps command handling strictly serial.
	opts.SetOrderMatters(true)
	if cfg.KeepAliveSeconds > 0 {
		opts.SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second)
	}
	applyCredentials(opts, cfg)
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.AvailabilityTopic != "" {
		qos := byte(0)
		if q, ok := cfg.QoS["availability"]; ok {
			qos = q
		}
		opts.SetWill(cfg.AvailabilityTopicName(), PayloadUnavailable, qos, true)
	}
	return opts, nil
}

// applyCredentials wires broker authentication into the options. The oauth2
// method fetches the token lazily on every connection attempt, so a
// reconnecting client never reuses an expired token.
func applyCredentials(opts *paho.ClientOptions, cfg Config) {
	if cfg.AuthMethod == "oauth2" {
		cred := auth.NewClientCred(cfg.Auth)
		log := logger.New("mqtt-auth")
		opts.SetCredentialsProvider(func() (string, string) {
			token, err := cred.GetToken()
			if err != nil {
				log.Errorf("oauth2 token: %v", err)
				return cfg.Username, cfg.Password
			}
			return cfg.Username, token
		})
		return
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// Connect dials the broker. The context bounds the connection attempt and is
// handed to the message handler as the connection lifetime.
func (p *PahoClient) Connect(ctx context.Context) error {
	p.mu.Lock()
	p.connCtx = ctx
	p.mu.Unlock()

	token := p.cli.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// onConnect runs on every connection, reconnects included. The command
// subscription is placed before the bridge is announced available so no
// press can slip past between the two.
func (p *PahoClient) onConnect(c paho.Client) {
	p.log.Infof("MQTT connected")
	topic := p.cfg.CommandTopicName()
	if token := c.Subscribe(topic, p.qosFor("command"), p.onMessage); token.Wait() && token.Error() != nil {
		p.log.Errorf("subscribe %s: %v", topic, token.Error())
		monitoring.CaptureException(token.Error(), map[string]string{"module": "mqtt", "topic": topic})
		return
	}
	p.log.Infof("subscribed to %s", topic)
	if p.cfg.AvailabilityTopic != "" {
		token := c.Publish(p.cfg.AvailabilityTopicName(), p.qosFor("availability"), true, []byte(PayloadAvailable))
		if token.Wait() && token.Error() != nil {
			p.log.Errorf("announce availability: %v", token.Error())
		}
	}
}

func (p *PahoClient) onMessage(_ paho.Client, msg paho.Message) {
	p.mu.Lock()
	ctx := p.connCtx
	p.mu.Unlock()
	if p.handler == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.handler(ctx, msg.Topic(), string(msg.Payload()))
}

// Publish sends a payload and waits for the broker to take it. Statuses are
// retained only when the config asks for it.
func (p *PahoClient) Publish(topic, payload string) error {
	if p.cli == nil || !p.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	retain := false
	key := "status"
	switch topic {
	case p.cfg.AvailabilityTopicName():
		key = "availability"
		retain = true
	case p.cfg.StatusTopicName():
		retain = p.cfg.RetainStatus
	}
	token := p.cli.Publish(topic, p.qosFor(key), retain, []byte(payload))
	token.Wait()
	if err := token.Error(); err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// Disconnect announces unavailability and closes the connection.
func (p *PahoClient) Disconnect() {
	if p.cli == nil || !p.cli.IsConnected() {
		return
	}
	if p.cfg.AvailabilityTopic != "" {
		token := p.cli.Publish(p.cfg.AvailabilityTopicName(), p.qosFor("availability"), true, []byte(PayloadUnavailable))
		token.Wait()
	}
	p.cli.Disconnect(250)
}

func (p *PahoClient) qosFor(key string) byte {
	if q, ok := p.cfg.QoS[key]; ok {
		return q
	}
	return 0
}
