package kafka

import (
	"testing"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMechanism(t *testing.T) {
	mech, err := mechanism(config.KafkaService{})
	require.NoError(t, err)
	assert.Nil(t, mech)

	for name, want := range map[string]string{
		"":              "PLAIN",
		"plain":         "PLAIN",
		"SCRAM-SHA-256": "SCRAM-SHA-256",
		"scram-sha-512": "SCRAM-SHA-512",
	} {
		mech, err := mechanism(config.KafkaService{Username: "matrix", Password: "secret", Mechanism: name})
		require.NoError(t, err, name)
		assert.Equal(t, want, mech.Name(), name)
	}

	_, err = mechanism(config.KafkaService{Username: "matrix", Mechanism: "GSSAPI"})
	assert.Error(t, err)
}

func TestTransportAndDialerShareSecurity(t *testing.T) {
	cfg := config.KafkaService{Username: "matrix", Password: "secret", TLSEnabled: true}

	transport, err := newTransport(cfg)
	require.NoError(t, err)
	require.NotNil(t, transport.TLS)
	assert.NotNil(t, transport.SASL)

	dialer, err := newDialer(cfg)
	require.NoError(t, err)
	assert.Equal(t, transport.TLS.MinVersion, dialer.TLS.MinVersion)
	assert.Equal(t, "PLAIN", dialer.SASLMechanism.Name())

	plain, err := newTransport(config.KafkaService{})
	require.NoError(t, err)
	assert.Nil(t, plain.TLS)
	assert.Nil(t, plain.SASL)
}
