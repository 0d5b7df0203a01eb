package cachevalue_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stormlightlabs.org/cachedrpc/internal/cachevalue"
)

func TestNewClampsReorgTTL(t *testing.T) {
	env := cachevalue.New(json.RawMessage(`"0x1"`), 0, 0)
	assert.Equal(t, int64(1), env.ReorgTTL)
}

func TestEffectiveTTLBothZeroMeansExpired(t *testing.T) {
	env := &cachevalue.Envelope{ReorgTTL: 0, TTL: 0}
	assert.Equal(t, int64(0), env.EffectiveTTL())
	assert.False(t, env.IsFresh(time.Now()))
}

func TestEffectiveTTLMinWhenBothPositive(t *testing.T) {
	env := &cachevalue.Envelope{ReorgTTL: 30, TTL: 10}
	assert.Equal(t, int64(10), env.EffectiveTTL())
}

func TestEffectiveTTLOneZeroOtherWins(t *testing.T) {
	env := &cachevalue.Envelope{ReorgTTL: 0, TTL: 5}
	assert.Equal(t, int64(5), env.EffectiveTTL())

	env2 := &cachevalue.Envelope{ReorgTTL: 5, TTL: 0}
	assert.Equal(t, int64(5), env2.EffectiveTTL())
}

func TestIsFreshClockSkewForcesExpiration(t *testing.T) {
	now := time.Now()
	env := &cachevalue.Envelope{ReorgTTL: 100, LastModified: now.Add(time.Hour).Unix()}
	assert.False(t, env.IsFresh(now))
}

func TestIsFreshWithinWindow(t *testing.T) {
	now := time.Now()
	env := &cachevalue.Envelope{ReorgTTL: 100, LastModified: now.Add(-50 * time.Second).Unix()}
	assert.True(t, env.IsFresh(now))
}

func TestApplyWriteBackPolicyTrueMissUsesBaseline(t *testing.T) {
	fresh := &cachevalue.Envelope{Data: json.RawMessage(`"x"`), ReorgTTL: 999}
	cachevalue.ApplyWriteBackPolicy(fresh, 30, nil)
	assert.Equal(t, int64(30), fresh.ReorgTTL)
}

func TestApplyWriteBackPolicyDataChangedResetsBaseline(t *testing.T) {
	prior := &cachevalue.Envelope{Data: json.RawMessage(`"old"`), ReorgTTL: 120, LastModified: time.Now().Unix()}
	fresh := &cachevalue.Envelope{Data: json.RawMessage(`"new"`)}
	cachevalue.ApplyWriteBackPolicy(fresh, 30, prior)
	assert.Equal(t, int64(30), fresh.ReorgTTL)
}

func TestApplyWriteBackPolicyStableValuePastExpiryDoubles(t *testing.T) {
	prior := &cachevalue.Envelope{
		Data:         json.RawMessage(`"same"`),
		ReorgTTL:     10,
		LastModified: time.Now().Add(-20 * time.Second).Unix(),
	}
	fresh := &cachevalue.Envelope{Data: json.RawMessage(`"same"`)}
	cachevalue.ApplyWriteBackPolicy(fresh, 30, prior)
	assert.Equal(t, int64(20), fresh.ReorgTTL)
}

func TestApplyWriteBackPolicyStableValueWithinWindowResetsBaseline(t *testing.T) {
	prior := &cachevalue.Envelope{
		Data:         json.RawMessage(`"same"`),
		ReorgTTL:     100,
		LastModified: time.Now().Add(-5 * time.Second).Unix(),
	}
	fresh := &cachevalue.Envelope{Data: json.RawMessage(`"same"`)}
	cachevalue.ApplyWriteBackPolicy(fresh, 30, prior)
	assert.Equal(t, int64(30), fresh.ReorgTTL)
}

func TestApplyWriteBackPolicyIdempotentWriteback(t *testing.T) {
	prior := &cachevalue.Envelope{
		Data:         json.RawMessage(`"same"`),
		ReorgTTL:     30,
		LastModified: time.Now().Add(-5 * time.Second).Unix(),
	}
	fresh1 := &cachevalue.Envelope{Data: json.RawMessage(`"same"`)}
	cachevalue.ApplyWriteBackPolicy(fresh1, 30, prior)

	fresh2 := &cachevalue.Envelope{Data: json.RawMessage(`"same"`)}
	cachevalue.ApplyWriteBackPolicy(fresh2, 30, prior)

	assert.Equal(t, fresh1.ReorgTTL, fresh2.ReorgTTL)
}
