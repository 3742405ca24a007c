package postgres

import (
	"testing"
	"time"

	"github.com/sifan077/shrtnr/config"
	"github.com/stretchr/testify/assert"
)

func TestConnString(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  config.PostgresConfig{URL: "postgres://u@db/x", Host: "ignored"},
			want: "postgres://u@db/x",
		},
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "app", Database: "shrtnr"},
			want: "postgres://app@localhost:5432/shrtnr?sslmode=disable",
		},
		{
			name: "escaped password",
			cfg:  config.PostgresConfig{Host: "db", Port: 6543, User: "app", Password: "p@ss/word", Database: "shrtnr", SSLMode: "require"},
			want: "postgres://app:p%40ss%2Fword@db:6543/shrtnr?sslmode=require",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ConnString(tc.cfg))
		})
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, 30*time.Second, parseDuration("30s", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("-5s", time.Minute))
}
