// Package supervisor implements the bounded fan-out worker pool that
// covers a port list under a concurrency cap, per run_parallel: workers
// share no mutable state, all results cross the boundary by writing to the
// store.
package supervisor

import (
	"context"
	"sync"

	"github.com/ipscand/ipscand/internal/portcatalog"
)

// ProbeFunc probes one port and records its result, returning any error
// from doing so. Workers call this sequentially for each port in their chunk.
type ProbeFunc func(ctx context.Context, port portcatalog.Port) error

// Run covers ports with at most fanOutMax concurrent workers, each handling
// a contiguous chunk of at most chunkSize ports. It implements the
// run_parallel scheduling loop: spawn while under cap and ports remain,
// block for a completion when at cap, drain the rest once dispatch is
// done. Every error a probe returns is collected into the returned slice
// (in no particular order) but never aborts sibling workers — every chunk
// is always attempted.
func Run(ctx context.Context, ports []portcatalog.Port, fanOutMax, chunkSize int, probe ProbeFunc) []error {
	if fanOutMax < 1 {
		fanOutMax = 1
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	chunks := chunkPorts(ports, chunkSize)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		sem  = make(chan struct{}, fanOutMax)
	)

	for _, chunk := range chunks {
		sem <- struct{}{}
		wg.Add(1)
		go func(chunk []portcatalog.Port) {
			defer wg.Done()
			defer func() { <-sem }()
			runChunk(ctx, chunk, probe, &mu, &errs)
		}(chunk)
	}

	wg.Wait()
	return errs
}

// runChunk probes each port in chunk sequentially, in the worker's own
// goroutine; results are reported to the store by probe itself (it closes
// over the store write), so runChunk only needs to collect errors.
func runChunk(ctx context.Context, chunk []portcatalog.Port, probe ProbeFunc, mu *sync.Mutex, errs *[]error) {
	for _, port := range chunk {
		if err := probe(ctx, port); err != nil {
			mu.Lock()
			*errs = append(*errs, err)
			mu.Unlock()
		}
	}
}

// chunkPorts splits ports into contiguous groups of at most size.
func chunkPorts(ports []portcatalog.Port, size int) [][]portcatalog.Port {
	if len(ports) == 0 {
		return nil
	}
	var chunks [][]portcatalog.Port
	for start := 0; start < len(ports); start += size {
		end := start + size
		if end > len(ports) {
			end = len(ports)
		}
		chunks = append(chunks, ports[start:end])
	}
	return chunks
}
