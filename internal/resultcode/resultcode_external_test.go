package resultcode_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ipscand/ipscand/internal/resultcode"
)

func TestLookupKnownCode(t *testing.T) {
	e := resultcode.Lookup(resultcode.PortOpen)
	assert.Equal(t, "OPEN", e.Label)
	assert.Equal(t, "red", e.Color)
}

func TestLookupUnknownFallsBackToUnknown(t *testing.T) {
	e := resultcode.Lookup(resultcode.Code(12345))
	assert.Equal(t, "UNKWN", e.Label)
}

func TestIndirectRoundTrip(t *testing.T) {
	base := resultcode.EchoReply
	indirect := resultcode.Indirect(base)

	assert.True(t, resultcode.IsIndirect(indirect))
	assert.False(t, resultcode.IsIndirect(base))
	assert.Equal(t, base, resultcode.BaseCode(indirect))

	e := resultcode.Lookup(indirect)
	assert.Equal(t, "ECHO REPLY", e.Label)
}

func TestClassifyTCPDeadlineIsStealth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	assert.Equal(t, resultcode.PortInProgress, resultcode.ClassifyTCP(ctx, context.DeadlineExceeded))
}

func TestClassifyTCPSuccess(t *testing.T) {
	assert.Equal(t, resultcode.PortOpen, resultcode.ClassifyTCP(context.Background(), nil))
}

func TestClassifyUDPReplyWins(t *testing.T) {
	assert.Equal(t, resultcode.UDPOpen, resultcode.ClassifyUDP(context.Background(), true, nil))
}

func TestClassifyUDPStealthOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	assert.Equal(t, resultcode.UDPStealth, resultcode.ClassifyUDP(ctx, false, nil))
}
