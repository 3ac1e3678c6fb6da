package models

import "sync"

// runParallel calls fn for 0..n-1 with at most parallelization calls in flight and returns
// the first error encountered.
func runParallel(n, parallelization int, fn func(i int) error) error {
	if parallelization <= 0 || parallelization > n {
		parallelization = n
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, max(parallelization, 1))
	for i := 0; i < n; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				wg.Done()
				<-sem
			}()
			if err := fn(i); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return firstErr
}
