package dmtingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	config "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Config"
	logger "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Logger"
	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
	normalizer "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Normalizer"
	recorder "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Recorder"
)

// writeTimeout bounds a single store write from the ingestion path.
const writeTimeout = 5 * time.Second

// Ingestor subscribes to the device topic space and feeds normalized
// readings to the Recorder. Delivery is at-most-once: a message is consumed
// from the broker regardless of downstream store success, and persistence
// failures are logged and dropped.
type Ingestor struct {
	cfg   *config.Config
	rec   *recorder.Recorder
	log   *logger.Logger
	msgCh chan dmtmodels.Reading
	wg    sync.WaitGroup

	mu     sync.Mutex
	client mqtt.Client // guarded by mu; Start runs on its own goroutine
}

func New(cfg *config.Config, rec *recorder.Recorder, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:   cfg,
		rec:   rec,
		log:   log.WithComponent("ingestor"),
		msgCh: make(chan dmtmodels.Reading, 4096),
	}
}

func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.cfg.GetMQTTBrokerURL()).
		SetClientID(i.cfg.MQTT.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.MQTT.KeepAlive).
		SetPingTimeout(i.cfg.MQTT.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(false)

	if i.cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(i.cfg.MQTT.BrokerUser)
		opts.SetPassword(i.cfg.MQTT.BrokerPass)
	}

	if i.cfg.MQTT.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.MQTT.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.log.ErrorWithError(err, "mqtt connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.MQTT.Topic
		i.log.WithField("topic", topic).Info("mqtt connected, subscribing")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.log.ErrorWithError(token.Error(), "mqtt subscribe failed")
		}
	}

	client := mqtt.NewClient(opts)
	i.mu.Lock()
	i.client = client
	i.mu.Unlock()

	if tk := client.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.writer(ctx)
	}()

	return nil
}

func (i *Ingestor) Stop() {
	i.mu.Lock()
	client := i.client
	i.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(500)
	}
	close(i.msgCh)
	i.wg.Wait()
}

func (i *Ingestor) IsConnected() bool {
	i.mu.Lock()
	client := i.client
	i.mu.Unlock()
	return client != nil && client.IsConnected()
}

// onMessage decodes and normalizes one message. A failure here discards the
// single message and never stops the subscription.
func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	var payload map[string]interface{}
	if err := json.Unmarshal(m.Payload(), &payload); err != nil {
		i.log.WithField("topic", m.Topic()).ErrorWithError(err, "dropping undecodable message")
		return
	}

	rd, err := normalizer.Normalize(payload, normalizer.SourceMQTT)
	if err != nil {
		i.log.WithField("topic", m.Topic()).ErrorWithError(err, "dropping invalid payload")
		return
	}

	i.msgCh <- rd
}

// writer drains the message channel into the store from a single goroutine.
func (i *Ingestor) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rd, ok := <-i.msgCh:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := i.rec.Record(wctx, rd); err != nil {
				i.log.WithField("deviceId", rd.DeviceID).ErrorWithError(err, "dropping reading, store write failed")
			}
			cancel()
		}
	}
}

func (i *Ingestor) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
