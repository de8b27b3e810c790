//go:build ignore

// Function types, named types and maps of funcs.
package main

import (
	"fmt"
	"sort"
)

type Celsius float64
type Fahrenheit float64

func (c Celsius) ToF() Fahrenheit { return Fahrenheit(c*9/5 + 32) }

type Op func(a, b int) int

type Handler interface{ Handle(string) string }

type HandlerFunc func(string) string

func (f HandlerFunc) Handle(s string) string { return f(s) }

func main() {
	fmt.Printf("%.1f°C = %.1f°F\n", Celsius(100), Celsius(100).ToF())

	ops := map[string]Op{
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
	}
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Println(k, ops[k](6, 7))
	}

	var h Handler = HandlerFunc(func(s string) string { return "handled " + s })
	fmt.Println(h.Handle("request"))
}
