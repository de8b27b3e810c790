//go:build ignore

// Standard library helpers: slices, maps, strings.
package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

func main() {
	xs := []int{5, 2, 8, 1}
	slices.Sort(xs)
	fmt.Println("sorted:", xs)
	fmt.Println("contains 8:", slices.Contains(xs, 8))
	i, found := slices.BinarySearch(xs, 5)
	fmt.Println("index of 5:", i, found)

	ages := map[string]int{"ann": 30, "bob": 25}
	names := slices.Sorted(maps.Keys(ages))
	fmt.Println("names:", names)

	fmt.Println(strings.Fields("  split   on  spaces "))
	fmt.Println(strings.Repeat("=", 10))
	fmt.Println(strings.EqualFold("Go", "GO"))
}
