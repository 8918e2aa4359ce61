package notify

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/haulshare/core/events"
	coremon "github.com/kilianp07/haulshare/core/monitoring"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	for path, data := range map[string][]byte{certFile: certPEM, keyFile: keyPEM, caFile: certPEM} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}
	publishErrs  []error
	connectErr   error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return !m.disconnected }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}{topic, qos, retain, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := MQTTConfig{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 || tlsCfg.RootCAs == nil {
		t.Fatalf("tls config incomplete")
	}
	if _, err := (MQTTConfig{UseTLS: true}).LoadTLSConfig(); err == nil {
		t.Fatalf("expected error without certificate paths")
	}
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p",
		LWTTopic: "haulshare/status", LWTPayload: "offline", LWTQoS: 1})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	if !opts.WillEnabled || opts.WillTopic != "haulshare/status" || string(opts.WillPayload) != "offline" {
		t.Fatalf("will options incorrect")
	}
	if _, err := NewClientOptions(MQTTConfig{}); err == nil {
		t.Fatalf("expected error without broker")
	}
}

func TestMQTTPublishTopicAndQoS(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "fleet/",
		QoS: map[string]byte{events.TopicOpportunityDetected: 2, "default": 1}}, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	ev := events.OpportunityDetected{OpportunityID: "o1", TruckA: "a", TruckB: "b", Hub: "h", CarbonSaved: 3}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Publish(context.Background(), events.OpportunityCompleted{OpportunityID: "o1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected two messages, got %d", len(mc.published))
	}
	first := mc.published[0]
	if first.topic != "fleet/opportunity/detected" || first.qos != 2 {
		t.Fatalf("unexpected first message %s qos %d", first.topic, first.qos)
	}
	if mc.published[1].qos != 1 {
		t.Fatalf("default qos not applied")
	}
	var decoded events.OpportunityDetected
	if err := json.Unmarshal(first.payload, &decoded); err != nil || decoded != ev {
		t.Fatalf("payload = %s (%v)", first.payload, err)
	}
	_ = p.Close()
	if !mc.disconnected {
		t.Fatalf("expected disconnect on close")
	}
}

func TestMQTTRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	p, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := p.Publish(context.Background(), events.SynergyMatch{SearchingTruck: "t1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
	if mc.published[0].topic != "haulshare/synergy/match" {
		t.Fatalf("default prefix not applied: %s", mc.published[0].topic)
	}
}

func TestMQTTPublishErrorCaptured(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	mon := &recordMonitor{}
	prev := coremon.Init(mon)
	defer coremon.Init(prev)

	p, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 2, BackoffMS: 1}, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	err = p.Publish(context.Background(), events.OpportunityCompleted{OpportunityID: "o1"})
	if !errors.Is(err, fail) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(mc.published) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(mc.published))
	}
	if mon.err == nil || mon.tags["module"] != "mqtt" || mon.tags["topic"] != "haulshare/opportunity/completed" {
		t.Fatalf("error not captured with tags: %+v", mon.tags)
	}
}

func TestMQTTPublishStopsOnCancel(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail, fail}}
	withMock(t, mc)
	p, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 3, BackoffMS: 10000}, nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Publish(ctx, events.OpportunityCompleted{OpportunityID: "o1"})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, fail) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(mc.published))
	}
}

func TestMQTTConnectError(t *testing.T) {
	withMock(t, &mockClient{connectErr: errors.New("refused")})
	if _, err := NewMQTTPublisher(MQTTConfig{Broker: "tcp://localhost:1883"}, nil); err == nil {
		t.Fatal("expected connect error")
	}
}
