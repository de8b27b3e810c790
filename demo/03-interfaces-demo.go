//go:build ignore

// Interfaces: implicit satisfaction and embedding.
package main

import (
	"fmt"
	"math"
)

type Shape interface {
	Area() float64
	Perimeter() float64
}

type Named interface {
	Name() string
}

type NamedShape interface {
	Shape
	Named
}

type Circle struct{ R float64 }

func (c Circle) Area() float64      { return math.Pi * c.R * c.R }
func (c Circle) Perimeter() float64 { return 2 * math.Pi * c.R }
func (c Circle) Name() string       { return "circle" }

type Rect struct{ W, H float64 }

func (r Rect) Area() float64      { return r.W * r.H }
func (r Rect) Perimeter() float64 { return 2 * (r.W + r.H) }
func (r Rect) Name() string       { return "rect" }

func main() {
	shapes := []NamedShape{Circle{R: 1}, Rect{W: 2, H: 3}}
	for _, s := range shapes {
		fmt.Printf("%-6s area=%.2f perimeter=%.2f\n", s.Name(), s.Area(), s.Perimeter())
	}

	var s Shape = Rect{W: 1, H: 1}
	if n, ok := s.(Named); ok {
		fmt.Println("rect is also Named:", n.Name())
	}
}
