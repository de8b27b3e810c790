//go:build ignore

// Functions: multiple returns, variadics, closures, defer.
package main

import (
	"errors"
	"fmt"
)

func divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func sum(nums ...int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func counter() func() int {
	n := 0
	return func() int {
		n++
		return n
	}
}

func main() {
	defer fmt.Println("deferred: printed last")

	if q, err := divide(10, 4); err == nil {
		fmt.Println("10 / 4 =", q)
	}
	if _, err := divide(1, 0); err != nil {
		fmt.Println("error:", err)
	}

	fmt.Println("sum:", sum(1, 2, 3, 4))

	next := counter()
	next()
	next()
	fmt.Println("counter:", next())
}
