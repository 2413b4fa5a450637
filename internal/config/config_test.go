package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWhoisTimeout(t *testing.T) {
	assert.Equal(t, 45*time.Second, (&WhoisConfig{Timeout: 45}).WhoisTimeout())
	assert.Equal(t, 30*time.Second, (&WhoisConfig{}).WhoisTimeout())
	assert.Equal(t, 30*time.Second, (&WhoisConfig{Timeout: -1}).WhoisTimeout())
}

func TestFetchTimeout(t *testing.T) {
	assert.Equal(t, 20*time.Second, (&WebsiteConfig{Timeout: 20}).FetchTimeout())
	assert.Equal(t, 15*time.Second, (&WebsiteConfig{}).FetchTimeout())
}

func TestNavigationTimeout(t *testing.T) {
	assert.Equal(t, 10*time.Second, (&SocialConfig{NavTimeout: 10}).NavigationTimeout())
	assert.Equal(t, 25*time.Second, (&SocialConfig{}).NavigationTimeout())
}
