package resilience

import "sync"

// runPool runs each of work concurrently across at most workers
// goroutines and collects results in the same order as work, the way
// spec.md §5.E requires the N-1/N-2 sweeps to be "parallelized ... by a
// worker pool sized by Config.ResilienceWorkers". No worker-pool or
// errgroup library appears anywhere in the retrieval pack, so this is a
// direct sync.WaitGroup/channel implementation rather than a borrowed
// one (see DESIGN.md).
func runPool[T any, R any](items []T, workers int, fn func(T) R) []R {
	if workers < 1 {
		workers = 1
	}
	results := make([]R, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(items[i])
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
