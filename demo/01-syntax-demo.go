//go:build ignore

// Basic syntax: variables, constants, control flow.
package main

import "fmt"

const greeting = "hello"

func main() {
	var count int = 3
	name := "gopher"
	fmt.Printf("%s, %s (x%d)\n", greeting, name, count)

	for i := 0; i < count; i++ {
		if i%2 == 0 {
			fmt.Println(i, "even")
		} else {
			fmt.Println(i, "odd")
		}
	}

	switch n := len(name); {
	case n > 5:
		fmt.Println("long name")
	default:
		fmt.Println("short name")
	}

	nums := []int{1, 2, 3}
	sum := 0
	for _, n := range nums {
		sum += n
	}
	fmt.Println("sum:", sum)
}
