package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipscand/ipscand/internal/portcatalog"
	"github.com/ipscand/ipscand/internal/supervisor"
)

func TestRunCoversEveryPort(t *testing.T) {
	ports := make([]portcatalog.Port, 0, 37)
	for i := 0; i < 37; i++ {
		ports = append(ports, portcatalog.Port{PortNum: uint16(1000 + i)})
	}

	var mu sync.Mutex
	seen := make(map[uint16]int)
	probe := func(_ context.Context, port portcatalog.Port) error {
		mu.Lock()
		seen[port.PortNum]++
		mu.Unlock()
		return nil
	}

	errs := supervisor.Run(context.Background(), ports, 4, 5, probe)
	assert.Empty(t, errs)
	assert.Len(t, seen, 37)
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestRunCollectsErrorsWithoutAborting(t *testing.T) {
	ports := []portcatalog.Port{{PortNum: 1}, {PortNum: 2}, {PortNum: 3}}
	var attempted int32
	probe := func(_ context.Context, port portcatalog.Port) error {
		atomic.AddInt32(&attempted, 1)
		if port.PortNum == 2 {
			return errors.New("boom")
		}
		return nil
	}

	errs := supervisor.Run(context.Background(), ports, 2, 1, probe)
	assert.Len(t, errs, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempted))
}

func TestRunRespectsFanOutCap(t *testing.T) {
	ports := make([]portcatalog.Port, 20)
	var active, maxActive int32
	var mu sync.Mutex
	probe := func(_ context.Context, _ portcatalog.Port) error {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > maxActive {
			maxActive = n
		}
		mu.Unlock()
		atomic.AddInt32(&active, -1)
		return nil
	}

	supervisor.Run(context.Background(), ports, 3, 1, probe)
	assert.LessOrEqual(t, maxActive, int32(3))
}
