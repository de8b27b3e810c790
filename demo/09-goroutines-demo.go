//go:build ignore

// Goroutines, channels, select and sync.WaitGroup.
package main

import (
	"fmt"
	"sync"
	"time"
)

func worker(id int, jobs <-chan int, results chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		results <- fmt.Sprintf("worker %d squared %d = %d", id, j, j*j)
	}
}

func main() {
	jobs := make(chan int)
	results := make(chan string, 10)

	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go worker(i, jobs, results, &wg)
	}
	for j := 1; j <= 5; j++ {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	close(results)

	n := 0
	for range results {
		n++
	}
	fmt.Println("results:", n)

	timeout := time.After(50 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			fmt.Println("tick")
		case <-timeout:
			fmt.Println("done")
			return
		}
	}
}
