package natsclient

import (
	"testing"

	"github.com/sifan077/shrtnr/config"
	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	assert.Equal(t, "nats://localhost:4222", URL(config.NATSConfig{}))
	assert.Equal(t, "nats://broker:5222", URL(config.NATSConfig{Host: "broker", Port: 5222}))
}
